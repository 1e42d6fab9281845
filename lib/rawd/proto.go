// Copyright 2026 The Sigmetraw Authors
// SPDX-License-Identifier: Apache-2.0

package rawd

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/sigmet-foundation/sigmetraw/lib/sigmet"
)

// SubCommand selects the artifact a request asks for.
type SubCommand uint32

const (
	SubExit SubCommand = iota
	SubVolumeHeaders
	SubSweepHeaders
	SubRayHeaders
	SubData
	SubCorrected
)

func (c SubCommand) String() string {
	switch c {
	case SubExit:
		return "exit"
	case SubVolumeHeaders:
		return "volume-headers"
	case SubSweepHeaders:
		return "sweep-headers"
	case SubRayHeaders:
		return "ray-headers"
	case SubData:
		return "data"
	case SubCorrected:
		return "corrected"
	}
	return fmt.Sprintf("subcommand %d", uint32(c))
}

// AllSweeps is the sweep index meaning "every sweep" where the
// subcommand supports it.
const AllSweeps = ^uint32(0)

// Status is the first response slot.
type Status uint32

const (
	StatusError Status = iota
	StatusOkay
)

// Protocol-level error kinds.
var (
	// ErrProtocol means a malformed request: wrong size, wrong
	// ancillary-data shape, or an unsupported subcommand.
	ErrProtocol = errors.New("malformed daemon request")

	// ErrBadArgument means a well-formed request asking for something
	// the volume does not have: an out-of-range sweep index or an
	// unknown data type abbreviation.
	ErrBadArgument = errors.New("bad request argument")
)

// Request is the client-to-daemon message body. The two shared file
// descriptors travel as ancillary data beside it.
type Request struct {
	SubCommand SubCommand

	// Abbrev is the data type abbreviation, empty for the volume's
	// default type.
	Abbrev string

	// Sweep is the sweep index, AllSweeps for every sweep.
	Sweep uint32
}

// requestSize is the fixed wire size of a request body.
const requestSize = 4 + sigmet.DataTypeLen + 4

func (r *Request) encode() []byte {
	b := make([]byte, requestSize)
	binary.LittleEndian.PutUint32(b, uint32(r.SubCommand))
	copy(b[4:4+sigmet.DataTypeLen], r.Abbrev)
	binary.LittleEndian.PutUint32(b[4+sigmet.DataTypeLen:], r.Sweep)
	return b
}

func decodeRequest(b []byte) (Request, error) {
	if len(b) != requestSize {
		return Request{}, fmt.Errorf("%w: %d-byte request, want %d", ErrProtocol, len(b), requestSize)
	}
	var r Request
	r.SubCommand = SubCommand(binary.LittleEndian.Uint32(b))
	abbrev := b[4 : 4+sigmet.DataTypeLen]
	end := 0
	for end < len(abbrev) && abbrev[end] != 0 {
		end++
	}
	r.Abbrev = string(abbrev[:end])
	r.Sweep = binary.LittleEndian.Uint32(b[4+sigmet.DataTypeLen:])
	return r, nil
}

// Response is the fixed seven-slot reply sent on the socket before
// any bulk byte. Every slot is present in every response; slots a
// subcommand does not use are zero.
type Response struct {
	Status       Status
	NumSweeps    uint32
	NumRays      uint32
	NumSweepBins uint32
	SweepTime    float64 // seconds since epoch
	TZ           string  // 11-byte protocol time zone
	ErrFlag      uint32  // reserved
}

// responseSize is the fixed wire size of a response.
const responseSize = 4 + 4 + 4 + 4 + 8 + sigmet.TZStringLen + 4

func (r *Response) encode() []byte {
	b := make([]byte, responseSize)
	binary.LittleEndian.PutUint32(b[0:], uint32(r.Status))
	binary.LittleEndian.PutUint32(b[4:], r.NumSweeps)
	binary.LittleEndian.PutUint32(b[8:], r.NumRays)
	binary.LittleEndian.PutUint32(b[12:], r.NumSweepBins)
	binary.LittleEndian.PutUint64(b[16:], math.Float64bits(r.SweepTime))
	copy(b[24:24+sigmet.TZStringLen], r.TZ)
	binary.LittleEndian.PutUint32(b[24+sigmet.TZStringLen:], r.ErrFlag)
	return b
}

func decodeResponse(b []byte) (Response, error) {
	if len(b) != responseSize {
		return Response{}, fmt.Errorf("%w: %d-byte response, want %d", ErrProtocol, len(b), responseSize)
	}
	var r Response
	r.Status = Status(binary.LittleEndian.Uint32(b[0:]))
	r.NumSweeps = binary.LittleEndian.Uint32(b[4:])
	r.NumRays = binary.LittleEndian.Uint32(b[8:])
	r.NumSweepBins = binary.LittleEndian.Uint32(b[12:])
	r.SweepTime = math.Float64frombits(binary.LittleEndian.Uint64(b[16:]))
	tz := b[24 : 24+sigmet.TZStringLen]
	end := 0
	for end < len(tz) && tz[end] != 0 {
		end++
	}
	r.TZ = string(tz[:end])
	r.ErrFlag = binary.LittleEndian.Uint32(b[24+sigmet.TZStringLen:])
	return r, nil
}

// SweepRecord is one sweep-header record on the bulk channel.
type SweepRecord struct {
	Time  float64 // seconds since epoch, NaN when unrecorded
	Angle float64 // radians
}

// sweepRecordSize is the wire size of a SweepRecord.
const sweepRecordSize = 16

func (s *SweepRecord) encode(b []byte) {
	binary.LittleEndian.PutUint64(b[0:], math.Float64bits(s.Time))
	binary.LittleEndian.PutUint64(b[8:], math.Float64bits(s.Angle))
}

func decodeSweepRecord(b []byte) SweepRecord {
	return SweepRecord{
		Time:  math.Float64frombits(binary.LittleEndian.Uint64(b[0:])),
		Angle: math.Float64frombits(binary.LittleEndian.Uint64(b[8:])),
	}
}

// WideRayHeader is one ray-header record on the bulk channel: the
// decoded ray header augmented with the ray's absolute time (from the
// extended header when available, else sweep time plus the header's
// whole-second offset; NaN when unavailable).
type WideRayHeader struct {
	Az0     float32
	Tilt0   float32
	Az1     float32
	Tilt1   float32
	NumBins int32
	Offset  uint32  // whole seconds from sweep start
	Time    float64 // absolute seconds since epoch
}

// WideRayHeaderSize is the wire size of a WideRayHeader.
const WideRayHeaderSize = 32

func (h *WideRayHeader) encode(b []byte) {
	binary.LittleEndian.PutUint32(b[0:], math.Float32bits(h.Az0))
	binary.LittleEndian.PutUint32(b[4:], math.Float32bits(h.Tilt0))
	binary.LittleEndian.PutUint32(b[8:], math.Float32bits(h.Az1))
	binary.LittleEndian.PutUint32(b[12:], math.Float32bits(h.Tilt1))
	binary.LittleEndian.PutUint32(b[16:], uint32(h.NumBins))
	binary.LittleEndian.PutUint32(b[20:], h.Offset)
	binary.LittleEndian.PutUint64(b[24:], math.Float64bits(h.Time))
}

// DecodeWideRayHeader reads one record back from its wire form.
func DecodeWideRayHeader(b []byte) WideRayHeader {
	return WideRayHeader{
		Az0:     math.Float32frombits(binary.LittleEndian.Uint32(b[0:])),
		Tilt0:   math.Float32frombits(binary.LittleEndian.Uint32(b[4:])),
		Az1:     math.Float32frombits(binary.LittleEndian.Uint32(b[8:])),
		Tilt1:   math.Float32frombits(binary.LittleEndian.Uint32(b[12:])),
		NumBins: int32(binary.LittleEndian.Uint32(b[16:])),
		Offset:  binary.LittleEndian.Uint32(b[20:]),
		Time:    math.Float64frombits(binary.LittleEndian.Uint64(b[24:])),
	}
}
