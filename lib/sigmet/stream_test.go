// Copyright 2026 The Sigmetraw Authors
// SPDX-License-Identifier: Apache-2.0

package sigmet

// Synthetic raw product streams for decoder tests. The builders write
// fields in the same order the parsers read them, so a test describes
// a volume by the handful of values it cares about and everything
// else stays zero.

import (
	"encoding/binary"
)

// bw writes little-endian fields into a fixed-size record.
type bw struct {
	b   []byte
	off int
}

func (w *bw) skip(n int) { w.off += n }

func (w *bw) u8(v uint8) {
	w.b[w.off] = v
	w.off++
}

func (w *bw) u16(v uint16) {
	binary.LittleEndian.PutUint16(w.b[w.off:], v)
	w.off += 2
}

func (w *bw) u32(v uint32) {
	binary.LittleEndian.PutUint32(w.b[w.off:], v)
	w.off += 4
}

func (w *bw) i16(v int16) { w.u16(uint16(v)) }
func (w *bw) i32(v int32) { w.u32(uint32(v)) }

func (w *bw) ymds(t YMDS) {
	w.i32(t.Sec)
	msec := t.Msec
	if t.DST {
		msec |= 1 << 10
	}
	if t.UTC {
		msec |= 1 << 11
	}
	if t.LDST {
		msec |= 1 << 12
	}
	w.u16(msec)
	w.i16(t.Year)
	w.i16(t.Mon)
	w.i16(t.Day)
}

// testVolume is the parameter set for a synthetic volume.
type testVolume struct {
	numSweeps  int16
	numRays    uint16
	numBins    int16
	maskWord0  uint32
	maskWord3  uint32
	extHdrType uint32
	prf        int32
	wavelength int32 // 1/100 cm
	rayHdrSize int16
	extRaySize int16
	recWGMT    int16
	multiPRF   uint16
	start      YMDS
}

// headerRecords builds records #1 and #2.
func (tv *testVolume) headerRecords() []byte {
	out := make([]byte, 2*RecordSize)

	// Record #1: product header.
	w := &bw{b: out[:RecordSize]}
	w.skip(10)  // product struct header
	w.skip(10)  // configuration struct header
	w.skip(8)   // type, schedule, skip
	w.skip(36)  // generation / ingest sweep / ingest file times
	w.skip(24)  // config file, task name
	w.skip(2)   // flag
	w.skip(40)  // scales, sizes, locations, max range
	w.skip(33)  // data type .. y smooth
	w.skip(44)  // product specific info
	w.skip(16)  // suffixes
	w.skip(48)  // color scale
	w.skip(32)  // site name, product and ingest versions
	w.i16(tv.recWGMT)
	w.skip(32) // hardware and ingest site names
	w.i16(tv.recWGMT)
	w.skip(12) // lat, lon, elevation, height
	w.i32(tv.prf)
	w.skip(24) // pulse width .. linear filter
	w.i32(tv.wavelength)
	w.skip(12) // truncation height, first/last bin range
	w.i32(int32(tv.numBins))

	// Record #2: ingest header.
	w = &bw{b: out[RecordSize:]}
	w.skip(10) // ingest struct header
	w.skip(80) // file name
	w.skip(2)  // associated files
	w.i16(tv.numSweeps)
	w.skip(4) // size of files
	w.ymds(tv.start)
	w.i16(tv.rayHdrSize)
	w.i16(tv.extRaySize)
	w.skip(4)  // config table, playback version
	w.skip(8)  // IRIS version
	w.skip(16) // hardware site
	w.skip(2)  // local minutes west
	w.skip(16) // setup site
	w.i16(tv.recWGMT)
	w.skip(8) // lat, lon
	w.skip(4) // elevation, height
	w.skip(4) // resolution, first ray index
	w.u16(tv.numRays)
	w.skip(2)  // g param bytes
	w.skip(4)  // altitude
	w.skip(24) // velocity, INU offset
	w.skip(4)  // fault
	w.skip(2)  // melting level
	w.skip(8)  // time zone
	w.skip(4)  // flags
	w.skip(16) // config name

	w.skip(10) // task struct header
	w.skip(26) // sched info
	w.skip(4)  // DSP major mode, type
	w.u32(tv.maskWord0)
	w.u32(tv.extHdrType)
	w.skip(8) // mask words 1, 2
	w.u32(tv.maskWord3)
	w.skip(4) // mask word 4
	w.skip(24) // original mask
	w.skip(14) // batch mode
	w.i32(tv.prf)
	w.skip(4) // pulse width
	w.u16(tv.multiPRF)
	w.skip(8)  // dual prf .. gain flag
	w.skip(12) // clutter file
	w.skip(2)  // filter numbers
	w.skip(6)  // attenuation .. clutter flag
	w.skip(2)  // transmit phase
	w.skip(4)  // ray header mask
	w.skip(2)  // time series flag
	w.skip(16) // custom ray header

	w.skip(48) // calibration
	w.skip(8)  // first/last bin range
	w.i16(tv.numBins)
	w.i16(tv.numBins)
	w.skip(8) // steps
	w.skip(4) // flag, averaging

	w.u16(uint16(ScanPPIContinuous))
	w.skip(2) // resolution
	w.i16(tv.numSweeps)
	w.skip(scanInfoSize)

	return out
}

// dataWriter emits sweep data records, splitting the token stream at
// record boundaries the way the file format does.
type dataWriter struct {
	records  [][]byte
	cur      *bw
	sweepNum int16
	recNum   int16
}

func (d *dataWriter) newRecord() {
	rec := make([]byte, RecordSize)
	d.recNum++
	w := &bw{b: rec}
	w.i16(d.recNum)
	w.i16(d.sweepNum)
	w.skip(8) // ray pointer, ray number, flags
	d.records = append(d.records, rec)
	d.cur = w
}

// startSweep begins a new record for sweep n (1-based) and writes the
// uncompressed sweep header.
func (d *dataWriter) startSweep(n int16, hdr SweepHeader) {
	d.sweepNum = n
	d.newRecord()
	w := d.cur
	w.u16(radToBin2(hdr.StartAz))
	w.u16(radToBin2(hdr.StartEl))
	w.ymds(hdr.Time)
	w.u16(radToBin2(hdr.Angle))
	w.i16(int16(hdr.NumRays))
}

// write appends raw bytes to the token stream, crossing into new
// records as the current one fills.
func (d *dataWriter) write(b []byte) {
	for len(b) > 0 {
		if d.cur == nil || d.cur.off == RecordSize {
			d.newRecord()
		}
		n := copy(d.cur.b[d.cur.off:], b)
		d.cur.off += n
		b = b[n:]
	}
}

func (d *dataWriter) word(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	d.write(b[:])
}

// literalChunk emits a ray chunk as a single literal-copy token. Odd
// payloads get a pad byte; the decoder truncates it against the
// chunk's expected size.
func (d *dataWriter) literalChunk(chunk []byte) {
	if len(chunk)%2 != 0 {
		chunk = append(append([]byte{}, chunk...), 0)
	}
	d.word(uint16(len(chunk) / 2))
	d.write(chunk)
}

func (d *dataWriter) endOfRay()   { d.word(0x0000) }
func (d *dataWriter) endOfSweep() { d.word(0x8000) }

// finishRecord pads the current record so the next write starts a new
// one.
func (d *dataWriter) finishRecord() {
	if d.cur != nil {
		d.cur.off = RecordSize
	}
}

func (d *dataWriter) bytes() []byte {
	var out []byte
	for _, rec := range d.records {
		out = append(out, rec...)
	}
	return out
}

// rayChunk builds a decompressed ray chunk: the 12-byte ray header
// followed by the storage bytes.
func rayChunk(hdr RayHeader, data []byte) []byte {
	b := make([]byte, 12+len(data))
	w := &bw{b: b}
	w.u16(radToBin2(float64(hdr.Az0)))
	w.u16(radToBin2(float64(hdr.Tilt0)))
	w.u16(radToBin2(float64(hdr.Az1)))
	w.u16(radToBin2(float64(hdr.Tilt1)))
	w.i16(int16(hdr.NumBins))
	w.u16(hdr.Time)
	copy(b[12:], data)
	return b
}

func radToBin2(rad float64) uint16 {
	return uint16(rad / (2 * 3.141592653589793) * 65536)
}
