// Copyright 2026 The Sigmetraw Authors
// SPDX-License-Identifier: Apache-2.0

package sigmet

import (
	"math"
)

// SweepHeader describes one sweep: its start time, the fixed sweep
// angle, and the antenna position when the sweep began.
type SweepHeader struct {
	Time    YMDS
	Angle   float64 // radians
	StartAz float64 // radians
	StartEl float64 // radians
	NumRays int
}

// RayHeader is the decoded per-ray header for one data type.
type RayHeader struct {
	Az0     float32 // azimuth at start of ray, radians
	Tilt0   float32 // elevation at start of ray, radians
	Az1     float32 // azimuth at end of ray, radians
	Tilt1   float32 // elevation at end of ray, radians
	NumBins int32
	Time    uint16 // seconds from sweep start
}

// Ray is one (sweep, ray, type) grid entry: the decoded ray header
// and the span of the volume's sample buffer holding its storage
// values. Absent rays have Offset -1 and zero Length.
type Ray struct {
	Header RayHeader
	Offset int64
	Length int
}

// Absent reports whether the ray was missing from the file.
func (r *Ray) Absent() bool { return r.Offset < 0 }

// VolumeHeaders is the transferable header portion of a volume: what
// the VolumeHeaders subcommand ships to clients. TypeAbbrevs stands
// in for the registry descriptors, which carry behavior rather than
// data.
type VolumeHeaders struct {
	Product     ProductHeader `cbor:"product"`
	Ingest      IngestHeader  `cbor:"ingest"`
	TypeAbbrevs []string      `cbor:"types"`
}

// Volume is a fully decoded raw product volume. It is immutable once
// ReadVolume returns; the sample buffer is owned by the volume and
// shared only by the Offset references of its own ray grid.
type Volume struct {
	Product ProductHeader
	Ingest  IngestHeader

	// Types is the ordered data-type list resolved from the DSP data
	// mask, extended-header pseudo type first when present.
	Types []*DataType

	// Sweeps holds the decoded sweep headers. The file may contain
	// fewer sweeps than the task configuration declares.
	Sweeps []SweepHeader

	// Rays is the [sweep][ray][type] grid. The sweep axis matches
	// the declared sweep count; sweeps past len(Sweeps) hold only
	// absent entries.
	Rays [][][]Ray

	// Data is the contiguous sample buffer. Ray entries reference it
	// by offset and length.
	Data []byte

	// Digest is the BLAKE3 hash of the file the volume was loaded
	// from by LoadVolume, empty when ReadVolume decoded it from a
	// reader.
	Digest string
}

// NumSweeps returns the declared sweep count from the task scan info.
func (v *Volume) NumSweeps() int {
	return int(v.Ingest.Task.Scan.NumSweeps)
}

// NumRaysPerSweep returns the ray axis length from the ingest
// configuration.
func (v *Volume) NumRaysPerSweep() int {
	return int(v.Ingest.Configuration.NumRays)
}

// NumBins returns the output bin count per ray from the task range
// info.
func (v *Volume) NumBins() int {
	return int(v.Ingest.Task.Range.NumBinsOut)
}

// NumTypes returns the number of present data types, including the
// extended-header pseudo type.
func (v *Volume) NumTypes() int {
	return len(v.Types)
}

// HasXHdr reports whether the volume stores extended ray headers as
// its first data slot.
func (v *Volume) HasXHdr() bool {
	return v.Ingest.Task.DSP.CurrentDataMask.Word0&1 != 0
}

// Headers returns the transferable header portion of the volume.
func (v *Volume) Headers() VolumeHeaders {
	abbrevs := make([]string, len(v.Types))
	for i, dt := range v.Types {
		abbrevs[i] = dt.Abbrev
	}
	return VolumeHeaders{Product: v.Product, Ingest: v.Ingest, TypeAbbrevs: abbrevs}
}

// TypeIndex returns the slot of dt in the volume's present-type list,
// or -1 if the type is not in the volume.
func (v *Volume) TypeIndex(dt *DataType) int {
	for i, t := range v.Types {
		if t == dt {
			return i
		}
	}
	return -1
}

// DefaultType returns the volume's first real measurement type,
// skipping the extended-header slot. Nil when the volume carries no
// real types (rejected at decode time, so only on hand-built values).
func (v *Volume) DefaultType() *DataType {
	for _, t := range v.Types {
		if !t.IsXHdr() {
			return t
		}
	}
	return nil
}

// NyquistVelocity returns the unambiguous velocity in m/s: wavelength
// times PRF over four, scaled by the multi-PRF dealiasing ratio.
func (v *Volume) NyquistVelocity() float64 {
	wavelength := float64(v.Product.End.Wavelength) / 10000 // 1/100 cm -> m
	prf := float64(v.Ingest.Task.DSP.PRF)
	vu := wavelength * prf / 4
	switch v.Ingest.Task.DSP.MultiPRFMode {
	case PRFTwoThree:
		return 2 * vu
	case PRFFourThree:
		return 3 * vu
	case PRFFourFive:
		return 4 * vu
	}
	return vu
}

// TZ returns the volume's recorded UTC offset as the 11-byte protocol
// time-zone string.
func (v *Volume) TZ() string {
	return TZString(int(v.Ingest.Configuration.RecWGMT))
}

// SweepTime returns sweep s's start time as seconds since the epoch,
// NaN when the sweep was never recorded.
func (v *Volume) SweepTime(s int) float64 {
	if s < 0 || s >= len(v.Sweeps) || v.Sweeps[s].Time.IsZero() {
		return math.NaN()
	}
	return v.Sweeps[s].Time.Seconds()
}

// RayTime returns the absolute time of ray r in sweep s: the sweep
// start plus the extended-header offset when the volume has extended
// ray headers, else plus the ray header's whole-second offset. NaN
// when the ray is absent or the sweep time is unknown.
func (v *Volume) RayTime(s, r int) float64 {
	sweepTime := v.SweepTime(s)
	if math.IsNaN(sweepTime) || r < 0 || r >= v.NumRaysPerSweep() {
		return math.NaN()
	}
	if v.HasXHdr() {
		if sec, ok := v.xhdrSeconds(s, r); ok {
			return sweepTime + sec
		}
	}
	ray := &v.Rays[s][r][v.rayHeaderSlot()]
	if ray.Absent() {
		return math.NaN()
	}
	return sweepTime + float64(ray.Header.Time)
}

// rayHeaderSlot is the type slot whose ray headers stand for the
// whole ray: the first real measurement.
func (v *Volume) rayHeaderSlot() int {
	if v.HasXHdr() && len(v.Types) > 1 {
		return 1
	}
	return 0
}

// xhdrSeconds converts ray (s, r)'s extended header to seconds past
// the sweep start.
func (v *Volume) xhdrSeconds(s, r int) (float64, bool) {
	xi := 0
	if !v.Types[xi].IsXHdr() {
		return 0, false
	}
	ray := &v.Rays[s][r][xi]
	if ray.Absent() || ray.Length < 4 {
		return 0, false
	}
	b := v.Data[ray.Offset : ray.Offset+4]
	msec := int32(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24)
	return float64(msec) / 1000, true
}
