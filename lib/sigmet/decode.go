// Copyright 2026 The Sigmetraw Authors
// SPDX-License-Identifier: Apache-2.0

package sigmet

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/sigmet-foundation/sigmetraw/lib/unpack"
)

// DecodeOptions configures ReadVolume. The zero value decodes
// tolerantly and logs through the default logger.
type DecodeOptions struct {
	// Strict makes soft anomalies fatal: unknown data-type bits,
	// sweep-number mismatches in record headers, ray bin counts over
	// the declared maximum.
	Strict bool

	// Logger receives soft-anomaly reports. Nil means slog.Default.
	Logger *slog.Logger
}

func (o DecodeOptions) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// rawProdBHdr is the 12-byte header at the start of every data
// record.
type rawProdBHdr struct {
	RecordNum      int16
	SweepNum       int16 // 1-based
	FirstRayOffset int16
	RayNum         int16
	Flags          uint16
}

const bhdrSize = 12

// defaultRayHeaderSize is the wire size of a ray header when the
// ingest configuration does not declare one.
const defaultRayHeaderSize = 12

// recordStream delivers the logical byte stream of the data records:
// the payloads of records #3 onward with their 12-byte record headers
// stripped. Compressed rays span records transparently.
type recordStream struct {
	r       io.Reader
	buf     [RecordSize]byte
	payload []byte
	pos     int
	record  int // physical record index, first data record = 3

	lastHdr rawProdBHdr
	opts    DecodeOptions
	sweep   int // 1-based sweep the decoder is working on
}

// nextRecord reads and frames the next physical record. Returns
// io.EOF at a clean end of file.
func (s *recordStream) nextRecord() error {
	n, err := io.ReadFull(s.r, s.buf[:])
	if err == io.EOF {
		return io.EOF
	}
	if err != nil {
		return fmt.Errorf("%w: record %d is %d of %d bytes", ErrTruncatedStream, s.record+1, n, RecordSize)
	}
	s.record++

	c := &cursor{b: s.buf[:bhdrSize]}
	s.lastHdr = rawProdBHdr{
		RecordNum:      c.i16(),
		SweepNum:       c.i16(),
		FirstRayOffset: c.i16(),
		RayNum:         c.i16(),
		Flags:          c.u16(),
	}
	if s.sweep != 0 && s.lastHdr.SweepNum != 0 && int(s.lastHdr.SweepNum) != s.sweep {
		if s.opts.Strict {
			return fmt.Errorf("%w: record %d claims sweep %d while decoding sweep %d",
				ErrMalformedHeader, s.record, s.lastHdr.SweepNum, s.sweep)
		}
		s.opts.logger().Warn("record sweep number mismatch",
			"record", s.record, "claimed", s.lastHdr.SweepNum, "decoding", s.sweep)
	}
	s.payload = s.buf[bhdrSize:]
	s.pos = 0
	return nil
}

// read copies n bytes from the logical stream into dst, crossing
// record boundaries as needed.
func (s *recordStream) read(dst []byte) error {
	for len(dst) > 0 {
		if s.pos == len(s.payload) {
			if err := s.nextRecord(); err != nil {
				if err == io.EOF {
					return fmt.Errorf("%w: stream ended inside a record sequence", ErrTruncatedStream)
				}
				return err
			}
		}
		n := copy(dst, s.payload[s.pos:])
		s.pos += n
		dst = dst[n:]
	}
	return nil
}

// word reads the next 16-bit little-endian token. io.EOF is returned
// untouched when the stream ends exactly at a record boundary.
func (s *recordStream) word() (uint16, error) {
	if s.pos == len(s.payload) {
		if err := s.nextRecord(); err != nil {
			return 0, err
		}
	}
	var b [2]byte
	if err := s.read(b[:]); err != nil {
		return 0, err
	}
	return uint16(b[0]) | uint16(b[1])<<8, nil
}

// skipToNextRecord drops the remainder of the current record, so the
// next read starts at the following record's payload.
func (s *recordStream) skipToNextRecord() {
	s.pos = len(s.payload)
}

// ReadVolumeHeaders decodes records #1 and #2 and resolves the
// present data types from the DSP data mask. The returned volume has
// headers and types but no sweeps or samples.
func ReadVolumeHeaders(r io.Reader, opts DecodeOptions) (*Volume, error) {
	var rec [RecordSize]byte

	if _, err := io.ReadFull(r, rec[:]); err != nil {
		return nil, fmt.Errorf("%w: product header record: %v", ErrTruncatedStream, err)
	}
	product, err := parseProductHeader(rec[:])
	if err != nil {
		return nil, fmt.Errorf("product header: %w", err)
	}

	if _, err := io.ReadFull(r, rec[:]); err != nil {
		return nil, fmt.Errorf("%w: ingest header record: %v", ErrTruncatedStream, err)
	}
	ingest, err := parseIngestHeader(rec[:])
	if err != nil {
		return nil, fmt.Errorf("ingest header: %w", err)
	}

	vol := &Volume{Product: product, Ingest: ingest}

	numSweeps := vol.NumSweeps()
	if numSweeps < 1 || numSweeps > MaxSweeps {
		return nil, fmt.Errorf("%w: volume declares %d sweeps (limit %d)",
			ErrMalformedHeader, numSweeps, MaxSweeps)
	}
	if vol.NumBins() <= 0 {
		return nil, fmt.Errorf("%w: volume declares %d bins per ray",
			ErrMalformedHeader, vol.NumBins())
	}
	if vol.NumRaysPerSweep() <= 0 {
		return nil, fmt.Errorf("%w: volume declares %d rays per sweep",
			ErrMalformedHeader, vol.NumRaysPerSweep())
	}

	var unknownErr error
	vol.Types = TypesFromMask(&ingest.Task.DSP.CurrentDataMask, func(bit int) {
		if opts.Strict && unknownErr == nil {
			unknownErr = fmt.Errorf("%w: data mask bit %d", ErrUnknownDataType, bit)
			return
		}
		opts.logger().Warn("skipping unknown data type bit", "bit", bit)
	})
	if unknownErr != nil {
		return nil, unknownErr
	}

	real := 0
	for _, dt := range vol.Types {
		if !dt.IsXHdr() {
			real++
		}
	}
	if real == 0 {
		return nil, fmt.Errorf("%w: data mask selects no data types", ErrMalformedHeader)
	}
	return vol, nil
}

// ReadVolume decodes a complete raw product volume from r in one
// forward pass. On error no partial volume is returned.
func ReadVolume(r io.Reader, opts DecodeOptions) (*Volume, error) {
	vol, err := ReadVolumeHeaders(r, opts)
	if err != nil {
		return nil, err
	}

	numSweeps := vol.NumSweeps()
	numRays := vol.NumRaysPerSweep()
	numTypes := vol.NumTypes()

	rayHdrSize := int(vol.Ingest.Configuration.RayHeaderSize)
	if rayHdrSize <= 0 {
		rayHdrSize = defaultRayHeaderSize
	}

	// Per-type decompressed chunk sizes, and the total sample buffer:
	// every ray of every sweep at full width.
	chunkSize := make([]int, numTypes)
	perRayData := 0
	maxChunk := 0
	for t, dt := range vol.Types {
		chunkSize[t] = rayHdrSize + dt.MaxRayDataSize(vol)
		perRayData += dt.MaxRayDataSize(vol)
		if chunkSize[t] > maxChunk {
			maxChunk = chunkSize[t]
		}
	}
	vol.Data = make([]byte, numSweeps*numRays*perRayData)

	vol.Rays = make([][][]Ray, numSweeps)
	for s := range vol.Rays {
		vol.Rays[s] = make([][]Ray, numRays)
		for r := range vol.Rays[s] {
			rays := make([]Ray, numTypes)
			for t := range rays {
				rays[t].Offset = -1
			}
			vol.Rays[s][r] = rays
		}
	}

	stream := &recordStream{r: r, record: 2, opts: opts}
	scratch := make([]byte, maxChunk)
	var cursor int64

sweeps:
	for s := 0; s < numSweeps; s++ {
		stream.sweep = s + 1

		first, err := stream.word()
		if err == io.EOF {
			if s == 0 {
				return nil, fmt.Errorf("%w: no sweep records", ErrTruncatedStream)
			}
			break
		}
		if err != nil {
			return nil, err
		}
		if first == 0 {
			// No more sweeps in the file.
			break
		}

		hdr, err := readSweepHeader(stream, first)
		if err != nil {
			return nil, err
		}
		if hdr.NumRays != numRays {
			if opts.Strict {
				return nil, fmt.Errorf("%w: sweep %d declares %d rays, volume declares %d",
					ErrMalformedHeader, s, hdr.NumRays, numRays)
			}
			opts.logger().Warn("sweep ray count differs from volume",
				"sweep", s, "sweep_rays", hdr.NumRays, "volume_rays", numRays)
		}
		vol.Sweeps = append(vol.Sweeps, hdr)

		for rayIdx := 0; rayIdx < numRays; rayIdx++ {
			for t := 0; t < numTypes; t++ {
				chunk := scratch[:chunkSize[t]]
				n, sweepEnd, err := decompressChunk(stream, chunk)
				if err != nil {
					return nil, err
				}
				if sweepEnd {
					stream.skipToNextRecord()
					continue sweeps
				}
				if n == 0 {
					continue // absent ray
				}
				if n < rayHdrSize {
					if opts.Strict {
						return nil, fmt.Errorf("%w: sweep %d ray %d type %s: %d-byte chunk shorter than ray header",
							ErrMalformedHeader, s, rayIdx, vol.Types[t].Abbrev, n)
					}
					opts.logger().Warn("short ray chunk", "sweep", s, "ray", rayIdx,
						"type", vol.Types[t].Abbrev, "bytes", n)
					continue
				}
				entry := &vol.Rays[s][rayIdx][t]
				if err := parseRayHeader(chunk[:rayHdrSize], &entry.Header); err != nil {
					return nil, err
				}
				if int(entry.Header.NumBins) > vol.NumBins() {
					if opts.Strict {
						return nil, fmt.Errorf("%w: sweep %d ray %d type %s: %d bins exceeds volume maximum %d",
							ErrMalformedHeader, s, rayIdx, vol.Types[t].Abbrev,
							entry.Header.NumBins, vol.NumBins())
					}
					opts.logger().Warn("ray bin count clamped", "sweep", s, "ray", rayIdx,
						"type", vol.Types[t].Abbrev, "bins", entry.Header.NumBins)
					entry.Header.NumBins = int32(vol.NumBins())
				}
				dt := vol.Types[t]
				var dataBytes int
				if dt.IsXHdr() {
					dataBytes = dt.DatumSize(vol)
				} else {
					dataBytes = (int(entry.Header.NumBins)*dt.DatumBits(vol) + 7) / 8
				}
				copy(vol.Data[cursor:cursor+int64(dataBytes)], chunk[rayHdrSize:rayHdrSize+dataBytes])
				entry.Offset = cursor
				entry.Length = dataBytes
				cursor += int64(dataBytes)
			}
		}

		// The sweep's rays are all in; the end-of-sweep token follows
		// unless the file ends with this sweep.
		tok, err := stream.word()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch tok {
		case 0x8000:
			stream.skipToNextRecord()
		case 0:
			break sweeps
		default:
			return nil, fmt.Errorf("%w: unexpected token %#04x after sweep %d",
				ErrMalformedHeader, tok, s)
		}
	}

	if len(vol.Sweeps) == 0 {
		return nil, fmt.Errorf("%w: volume contains no sweeps", ErrTruncatedStream)
	}
	return vol, nil
}

// readSweepHeader decodes the uncompressed sweep header. The first
// word (the start azimuth) has already been consumed by the caller's
// no-more-sweeps check.
func readSweepHeader(s *recordStream, firstWord uint16) (SweepHeader, error) {
	var rest [18]byte
	if err := s.read(rest[:]); err != nil {
		return SweepHeader{}, err
	}
	c := &cursor{b: rest[:]}
	hdr := SweepHeader{
		StartAz: unpack.Bin2Rad(firstWord),
		StartEl: unpack.Bin2Rad(c.u16()),
		Time:    c.ymds(),
		Angle:   unpack.Bin2Rad(c.u16()),
		NumRays: int(c.i16()),
	}
	return hdr, c.err
}

// parseRayHeader decodes the fixed ray header prefix of a chunk.
func parseRayHeader(b []byte, hdr *RayHeader) error {
	c := &cursor{b: b}
	hdr.Az0 = float32(unpack.Bin2Rad(c.u16()))
	hdr.Tilt0 = float32(unpack.Bin2Rad(c.u16()))
	hdr.Az1 = float32(unpack.Bin2Rad(c.u16()))
	hdr.Tilt1 = float32(unpack.Bin2Rad(c.u16()))
	hdr.NumBins = int32(c.i16())
	hdr.Time = c.u16()
	if hdr.NumBins < 0 {
		hdr.NumBins = 0
	}
	return c.err
}

// decompressChunk inflates one ray chunk into dst. Returns the number
// of decompressed bytes; sweepEnd is true when the end-of-sweep token
// arrived instead of (or inside) the chunk.
//
// Token scheme, reading 16-bit little-endian words:
//
//	0x0000          end of ray: chunk complete, rest zero-filled
//	0x0001..0x7fff  that many data words follow literally
//	0x8000          end of sweep
//	0x8001..0xffff  run of (token & 0x7fff) zero words
//
// A run or literal that would overflow the chunk is truncated to the
// remaining size; overflowing literal words are still consumed.
func decompressChunk(s *recordStream, dst []byte) (n int, sweepEnd bool, err error) {
	for i := range dst {
		dst[i] = 0
	}
	cur := 0
	for cur < len(dst) {
		tok, err := s.word()
		if err == io.EOF {
			return 0, false, fmt.Errorf("%w: stream ended inside a ray", ErrTruncatedStream)
		}
		if err != nil {
			return 0, false, err
		}
		switch {
		case tok == 0:
			return cur, false, nil
		case tok == 0x8000:
			return cur, true, nil
		case tok&0x8000 != 0:
			run := 2 * int(tok&0x7fff)
			if cur+run > len(dst) {
				run = len(dst) - cur
			}
			cur += run
		default:
			var w [2]byte
			for k := int(tok); k > 0; k-- {
				if err := s.read(w[:]); err != nil {
					return 0, false, err
				}
				if cur < len(dst) {
					dst[cur] = w[0]
					cur++
				}
				if cur < len(dst) {
					dst[cur] = w[1]
					cur++
				}
			}
		}
	}
	return cur, false, nil
}
