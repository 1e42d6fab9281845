// Copyright 2026 The Sigmetraw Authors
// SPDX-License-Identifier: Apache-2.0

package sigmet

import (
	"fmt"
	"math"

	"github.com/sigmet-foundation/sigmetraw/lib/unpack"
)

// DataType describes one IRIS measurement slot: its abbreviation, its
// bit position in the DSP data mask, its storage width, its print
// format, and its storage-to-physical conversion. The decoder and the
// daemon never branch on a concrete measurement; everything they need
// is on this descriptor.
type DataType struct {
	// Abbrev is the IRIS abbreviation, e.g. "DB_DBZ".
	Abbrev string

	// Bit is the type's canonical index: its bit position across the
	// five data mask words.
	Bit int

	// bits is the storage width of one bin. Widths that depend on
	// the volume configuration (the extended header) report through
	// bitsFn instead.
	bits   int
	bitsFn func(*Volume) int

	// format is the fmt verb used for text output of one value.
	format string

	// conv converts one storage value to its physical value, NaN for
	// no-data and out-of-range codes. nil means the type is not a
	// real measurement (extended headers).
	conv func(*Volume, uint32) float32

	// correct applies the per-type correction used by the Corrected
	// subcommand, after conv. nil means no correction is defined.
	correct func(*Volume, float32) float32
}

// IsXHdr reports whether the descriptor is the extended ray header
// pseudo type rather than a real measurement.
func (d *DataType) IsXHdr() bool { return d.Bit == 0 }

// DatumBits returns the storage width of one bin in bits. Widths are
// a property of the type except for the extended header, whose size
// comes from the ingest configuration.
func (d *DataType) DatumBits(v *Volume) int {
	if d.bitsFn != nil {
		return d.bitsFn(v)
	}
	return d.bits
}

// DatumSize returns the storage width of one bin in whole bytes,
// rounding sub-byte types up.
func (d *DataType) DatumSize(v *Volume) int {
	return (d.DatumBits(v) + 7) / 8
}

// MaxRayDataSize returns the storage bytes of a full-width ray of
// this type: the volume's bins-out count at the type's datum width.
// The extended header is one datum per ray, not one per bin.
func (d *DataType) MaxRayDataSize(v *Volume) int {
	if d.IsXHdr() {
		return d.DatumSize(v)
	}
	bins := int(v.Ingest.Task.Range.NumBinsOut)
	return (bins*d.DatumBits(v) + 7) / 8
}

// PrintFormat returns the fmt verb for text output of one physical
// value, with a trailing separator.
func (d *DataType) PrintFormat() string { return d.format }

// StorageToValues converts n storage values from in to physical
// values in out. out must hold at least n values; in must hold the
// type's storage bytes for n bins. Out-of-range storage codes map to
// NaN.
func (d *DataType) StorageToValues(v *Volume, n int, out []float32, in []byte) {
	if d.IsXHdr() {
		// One extended header per datum; the leading 32-bit word is
		// the high-resolution time offset in milliseconds.
		stride := d.DatumSize(v)
		for i := 0; i < n; i++ {
			b := in[i*stride:]
			raw := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
			out[i] = convXHdrSeconds(v, raw)
		}
		return
	}
	bits := d.DatumBits(v)
	for i := 0; i < n; i++ {
		var raw uint32
		switch bits {
		case 1:
			var bit [1]byte
			if err := unpack.CopyBits(in, i, 1, bit[:]); err != nil {
				out[i] = nan32
				continue
			}
			raw = uint32(bit[0])
		case 8:
			raw = uint32(in[i])
		case 16:
			raw = uint32(in[2*i]) | uint32(in[2*i+1])<<8
		case 32:
			raw = uint32(in[4*i]) | uint32(in[4*i+1])<<8 |
				uint32(in[4*i+2])<<16 | uint32(in[4*i+3])<<24
		}
		if d.conv != nil {
			out[i] = d.conv(v, raw)
		} else {
			out[i] = float32(raw)
		}
	}
}

// Correct applies the type's correction to an already-converted
// value. Types without a registered correction return the value
// unchanged.
func (d *DataType) Correct(v *Volume, value float32) float32 {
	if d.correct == nil {
		return value
	}
	return d.correct(v, value)
}

var nan32 = float32(math.NaN())

// Conversion families. Storage code 0 is "no data" in every scaled
// family; the two-byte families also reserve 65535. The identity and
// bit conversions pass 0 through as 0.

func conv1DB(_ *Volume, n uint32) float32 {
	if n == 0 || n > 255 {
		return nan32
	}
	return (float32(n) - 64) / 2
}

func conv2DB(_ *Volume, n uint32) float32 {
	if n == 0 || n >= 65535 {
		return nan32
	}
	return (float32(n) - 32768) / 100
}

func conv1Vel(v *Volume, n uint32) float32 {
	if n == 0 || n > 255 {
		return nan32
	}
	return float32(v.NyquistVelocity()) * (float32(n) - 128) / 127
}

func conv1Width(v *Volume, n uint32) float32 {
	if n == 0 || n > 255 {
		return nan32
	}
	return float32(v.NyquistVelocity()) * float32(n) / 256
}

func conv2Vel(_ *Volume, n uint32) float32 {
	if n == 0 || n >= 65535 {
		return nan32
	}
	return (float32(n) - 32768) / 100
}

func conv2Width(_ *Volume, n uint32) float32 {
	if n == 0 || n >= 65535 {
		return nan32
	}
	return float32(n) / 100
}

func conv1ZDR(_ *Volume, n uint32) float32 {
	if n == 0 || n > 255 {
		return nan32
	}
	return (float32(n) - 128) / 16
}

func conv1SQI(_ *Volume, n uint32) float32 {
	if n == 0 || n > 255 {
		return nan32
	}
	return float32(math.Sqrt(float64(n-1) / 253))
}

func conv2SQI(_ *Volume, n uint32) float32 {
	if n == 0 || n >= 65535 {
		return nan32
	}
	return float32(n-1) / 65533
}

func conv1PhiDP(_ *Volume, n uint32) float32 {
	if n == 0 || n > 255 {
		return nan32
	}
	return 180 * float32(n-1) / 254
}

func conv2PhiDP(_ *Volume, n uint32) float32 {
	if n == 0 || n >= 65535 {
		return nan32
	}
	return 360 * float32(n-1) / 65534
}

// conv1KDP is the one-byte KDP exponential encoding: 128 is zero,
// codes 129..254 rise logarithmically from 0.25 deg/km (about 564 at
// 254; 255 is no data), and codes 127..1 mirror them negatively down
// to -600 at code 1.
func conv1KDP(_ *Volume, n uint32) float32 {
	switch {
	case n == 0 || n == 255 || n > 255:
		return nan32
	case n == 128:
		return 0
	case n > 128:
		return float32(0.25 * math.Pow(600/0.25, float64(n-129)/126))
	default:
		return float32(-0.25 * math.Pow(600/0.25, float64(127-n)/126))
	}
}

// conv2Rain is the two-byte rain rate encoding: a 12-bit mantissa
// with a 4-bit binary exponent, in units of 1/10000 mm/hr.
func conv2Rain(_ *Volume, n uint32) float32 {
	if n == 0 || n >= 65535 {
		return nan32
	}
	exp := (n >> 12) & 0xf
	man := n & 0x0fff
	if exp == 0 {
		return float32(man) / 10000
	}
	return float32((man+4096)<<(exp-1)) / 10000
}

func convIdentity(_ *Volume, n uint32) float32 {
	return float32(n)
}

func convBit(_ *Volume, n uint32) float32 {
	return float32(n & 1)
}

// convXHdrSeconds converts the extended ray header's leading
// millisecond word to seconds past the sweep start.
func convXHdrSeconds(_ *Volume, n uint32) float32 {
	return float32(int32(n)) / 1000
}

// correctCalibrated masks values below the calibrated noise floor.
// The calibration slope and threshold are in 1/16 dB.
func correctCalibrated(v *Volume, value float32) float32 {
	threshold := float32(v.Ingest.Task.Calib.DBZNoiseThreshold) / 16
	if value < threshold {
		return 0
	}
	return value
}

func xhdrBits(v *Volume) int {
	size := int(v.Ingest.Configuration.ExtRayHeaderSize)
	if size < 4 {
		size = 4
	}
	return size * 8
}

// dataTypes is the registry, indexed by mask bit. Bit 0 is the
// extended ray header pseudo type; "2"-suffixed types are the
// two-byte variants of their one-byte siblings.
var dataTypes = [NumDataTypes]DataType{
	{Abbrev: "DB_XHDR", Bit: 0, bitsFn: xhdrBits, format: "%8.3f ", conv: convXHdrSeconds},
	{Abbrev: "DB_DBT", Bit: 1, bits: 8, format: "%6.1f ", conv: conv1DB},
	{Abbrev: "DB_DBZ", Bit: 2, bits: 8, format: "%6.1f ", conv: conv1DB, correct: correctCalibrated},
	{Abbrev: "DB_VEL", Bit: 3, bits: 8, format: "%6.1f ", conv: conv1Vel},
	{Abbrev: "DB_WIDTH", Bit: 4, bits: 8, format: "%6.2f ", conv: conv1Width},
	{Abbrev: "DB_ZDR", Bit: 5, bits: 8, format: "%6.2f ", conv: conv1ZDR},
	{Abbrev: "DB_ORAIN", Bit: 6, bits: 8, format: "%6.2f ", conv: conv1DB},
	{Abbrev: "DB_DBZC", Bit: 7, bits: 8, format: "%6.1f ", conv: conv1DB, correct: correctCalibrated},
	{Abbrev: "DB_DBT2", Bit: 8, bits: 16, format: "%7.2f ", conv: conv2DB},
	{Abbrev: "DB_DBZ2", Bit: 9, bits: 16, format: "%7.2f ", conv: conv2DB, correct: correctCalibrated},
	{Abbrev: "DB_VEL2", Bit: 10, bits: 16, format: "%7.2f ", conv: conv2Vel},
	{Abbrev: "DB_WIDTH2", Bit: 11, bits: 16, format: "%7.2f ", conv: conv2Width},
	{Abbrev: "DB_ZDR2", Bit: 12, bits: 16, format: "%7.2f ", conv: conv2DB},
	{Abbrev: "DB_RAINRATE2", Bit: 13, bits: 16, format: "%8.4f ", conv: conv2Rain},
	{Abbrev: "DB_KDP", Bit: 14, bits: 8, format: "%7.3f ", conv: conv1KDP},
	{Abbrev: "DB_KDP2", Bit: 15, bits: 16, format: "%7.2f ", conv: conv2DB},
	{Abbrev: "DB_PHIDP", Bit: 16, bits: 8, format: "%6.1f ", conv: conv1PhiDP},
	{Abbrev: "DB_VELC", Bit: 17, bits: 8, format: "%6.1f ", conv: conv1Vel},
	{Abbrev: "DB_SQI", Bit: 18, bits: 8, format: "%6.3f ", conv: conv1SQI},
	{Abbrev: "DB_RHOHV", Bit: 19, bits: 8, format: "%6.3f ", conv: conv1SQI},
	{Abbrev: "DB_RHOHV2", Bit: 20, bits: 16, format: "%7.4f ", conv: conv2SQI},
	{Abbrev: "DB_DBZC2", Bit: 21, bits: 16, format: "%7.2f ", conv: conv2DB, correct: correctCalibrated},
	{Abbrev: "DB_VELC2", Bit: 22, bits: 16, format: "%7.2f ", conv: conv2Vel},
	{Abbrev: "DB_SQI2", Bit: 23, bits: 16, format: "%7.4f ", conv: conv2SQI},
	{Abbrev: "DB_PHIDP2", Bit: 24, bits: 16, format: "%7.2f ", conv: conv2PhiDP},
	{Abbrev: "DB_LDRH", Bit: 25, bits: 8, format: "%6.1f ", conv: conv1DB},
	{Abbrev: "DB_LDRH2", Bit: 26, bits: 16, format: "%7.2f ", conv: conv2DB},
	{Abbrev: "DB_LDRV", Bit: 27, bits: 8, format: "%6.1f ", conv: conv1DB},
	{Abbrev: "DB_LDRV2", Bit: 28, bits: 16, format: "%7.2f ", conv: conv2DB},
	{Abbrev: "DB_FLAGS", Bit: 29, bits: 8, format: "%4.0f ", conv: convIdentity},
	{Abbrev: "DB_FLAGS2", Bit: 30, bits: 16, format: "%6.0f ", conv: convIdentity},
	{Abbrev: "DB_FLOAT32", Bit: 31, bits: 32, format: "%10.4g ", conv: convIdentity},
	{Abbrev: "DB_HEIGHT", Bit: 32, bits: 8, format: "%6.2f ", conv: conv1DB},
	{Abbrev: "DB_VIL2", Bit: 33, bits: 16, format: "%7.2f ", conv: conv2DB},
	{Abbrev: "DB_RAW", Bit: 34, bits: 1, format: "%2.0f ", conv: convBit},
	{Abbrev: "DB_SHEAR", Bit: 35, bits: 8, format: "%6.2f ", conv: conv1DB},
	{Abbrev: "DB_DIVERGE2", Bit: 36, bits: 16, format: "%7.2f ", conv: conv2DB},
	{Abbrev: "DB_FLIQUID2", Bit: 37, bits: 16, format: "%7.2f ", conv: conv2Rain},
	{Abbrev: "DB_USER", Bit: 38, bits: 8, format: "%4.0f ", conv: convIdentity},
	{Abbrev: "DB_OTHER", Bit: 39, bits: 8, format: "%4.0f ", conv: convIdentity},
	{Abbrev: "DB_DEFORM2", Bit: 40, bits: 16, format: "%7.2f ", conv: conv2DB},
	{Abbrev: "DB_VVEL2", Bit: 41, bits: 16, format: "%7.2f ", conv: conv2Vel},
	{Abbrev: "DB_HVEL2", Bit: 42, bits: 16, format: "%7.2f ", conv: conv2Vel},
	{Abbrev: "DB_HDIR2", Bit: 43, bits: 16, format: "%7.2f ", conv: conv2PhiDP},
	{Abbrev: "DB_AXDIL2", Bit: 44, bits: 16, format: "%7.2f ", conv: conv2DB},
	{Abbrev: "DB_TIME2", Bit: 45, bits: 16, format: "%6.0f ", conv: convIdentity},
	{Abbrev: "DB_RHOH", Bit: 46, bits: 8, format: "%6.3f ", conv: conv1SQI},
	{Abbrev: "DB_RHOH2", Bit: 47, bits: 16, format: "%7.4f ", conv: conv2SQI},
	{Abbrev: "DB_RHOV", Bit: 48, bits: 8, format: "%6.3f ", conv: conv1SQI},
	{Abbrev: "DB_RHOV2", Bit: 49, bits: 16, format: "%7.4f ", conv: conv2SQI},
	{Abbrev: "DB_PHIH", Bit: 50, bits: 8, format: "%6.1f ", conv: conv1PhiDP},
	{Abbrev: "DB_PHIH2", Bit: 51, bits: 16, format: "%7.2f ", conv: conv2PhiDP},
	{Abbrev: "DB_PHIV", Bit: 52, bits: 8, format: "%6.1f ", conv: conv1PhiDP},
	{Abbrev: "DB_PHIV2", Bit: 53, bits: 16, format: "%7.2f ", conv: conv2PhiDP},
	{Abbrev: "DB_USER2", Bit: 54, bits: 16, format: "%6.0f ", conv: convIdentity},
	{Abbrev: "DB_HCLASS", Bit: 55, bits: 8, format: "%4.0f ", conv: convIdentity},
	{Abbrev: "DB_HCLASS2", Bit: 56, bits: 16, format: "%6.0f ", conv: convIdentity},
	{Abbrev: "DB_ZDRC", Bit: 57, bits: 8, format: "%6.2f ", conv: conv1ZDR},
	{Abbrev: "DB_ZDRC2", Bit: 58, bits: 16, format: "%7.2f ", conv: conv2DB},
	{Abbrev: "DB_TEMPERATURE16", Bit: 59, bits: 16, format: "%7.2f ", conv: conv2DB},
	{Abbrev: "DB_VIR16", Bit: 60, bits: 16, format: "%7.2f ", conv: conv2DB},
	{Abbrev: "DB_DBTV8", Bit: 61, bits: 8, format: "%6.1f ", conv: conv1DB},
	{Abbrev: "DB_DBTV16", Bit: 62, bits: 16, format: "%7.2f ", conv: conv2DB},
	{Abbrev: "DB_DBZV8", Bit: 63, bits: 8, format: "%6.1f ", conv: conv1DB},
	{Abbrev: "DB_DBZV16", Bit: 64, bits: 16, format: "%7.2f ", conv: conv2DB},
	{Abbrev: "DB_SNR8", Bit: 65, bits: 8, format: "%6.1f ", conv: conv1DB},
	{Abbrev: "DB_SNR16", Bit: 66, bits: 16, format: "%7.2f ", conv: conv2DB},
	{Abbrev: "DB_ALBEDO8", Bit: 67, bits: 8, format: "%6.2f ", conv: conv1DB},
	{Abbrev: "DB_ALBEDO16", Bit: 68, bits: 16, format: "%7.2f ", conv: conv2DB},
	{Abbrev: "DB_VILD16", Bit: 69, bits: 16, format: "%7.2f ", conv: conv2DB},
	{Abbrev: "DB_TURB16", Bit: 70, bits: 16, format: "%7.2f ", conv: conv2DB},
	{Abbrev: "DB_DBTE8", Bit: 71, bits: 8, format: "%6.1f ", conv: conv1DB},
	{Abbrev: "DB_DBTE16", Bit: 72, bits: 16, format: "%7.2f ", conv: conv2DB},
	{Abbrev: "DB_DBZE8", Bit: 73, bits: 8, format: "%6.1f ", conv: conv1DB},
	{Abbrev: "DB_DBZE16", Bit: 74, bits: 16, format: "%7.2f ", conv: conv2DB},
	{Abbrev: "DB_PMI8", Bit: 75, bits: 8, format: "%6.3f ", conv: conv1SQI},
	{Abbrev: "DB_PMI16", Bit: 76, bits: 16, format: "%7.4f ", conv: conv2SQI},
	{Abbrev: "DB_LOG8", Bit: 77, bits: 8, format: "%6.1f ", conv: conv1DB},
	{Abbrev: "DB_LOG16", Bit: 78, bits: 16, format: "%7.2f ", conv: conv2DB},
	{Abbrev: "DB_CSP8", Bit: 79, bits: 8, format: "%6.1f ", conv: conv1DB},
	{Abbrev: "DB_CSP16", Bit: 80, bits: 16, format: "%7.2f ", conv: conv2DB},
	{Abbrev: "DB_CCOR8", Bit: 81, bits: 8, format: "%6.1f ", conv: conv1DB},
	{Abbrev: "DB_CCOR16", Bit: 82, bits: 16, format: "%7.2f ", conv: conv2DB},
	{Abbrev: "DB_AH8", Bit: 83, bits: 8, format: "%6.2f ", conv: conv1DB},
	{Abbrev: "DB_AH16", Bit: 84, bits: 16, format: "%7.2f ", conv: conv2DB},
	{Abbrev: "DB_AV8", Bit: 85, bits: 8, format: "%6.2f ", conv: conv1DB},
	{Abbrev: "DB_AV16", Bit: 86, bits: 16, format: "%7.2f ", conv: conv2DB},
	{Abbrev: "DB_ADP8", Bit: 87, bits: 8, format: "%6.2f ", conv: conv1DB},
	{Abbrev: "DB_ADP16", Bit: 88, bits: 16, format: "%7.2f ", conv: conv2DB},
}

var byAbbrev = func() map[string]*DataType {
	m := make(map[string]*DataType, NumDataTypes)
	for i := range dataTypes {
		m[dataTypes[i].Abbrev] = &dataTypes[i]
	}
	return m
}()

// DataTypeByAbbrev returns the descriptor for an IRIS abbreviation,
// or nil if the name is not a Sigmet data type.
func DataTypeByAbbrev(name string) *DataType {
	return byAbbrev[name]
}

// DataTypeByBit returns the descriptor for a mask bit position, or
// nil for bits with no registered type.
func DataTypeByBit(bit int) *DataType {
	if bit < 0 || bit >= NumDataTypes {
		return nil
	}
	return &dataTypes[bit]
}

// TypesFromMask enumerates the DSP data mask in ascending bit order
// and returns the descriptors of every present type. If the
// extended-header bit (bit 0 of word 0) is set, the extended-header
// pseudo type occupies index 0. Bits with no registered descriptor
// are reported through unknown; the caller decides whether they are
// fatal.
func TypesFromMask(mask *DataMask, unknown func(bit int)) []*DataType {
	var types []*DataType
	for word := 0; word < 5; word++ {
		w := mask.Word(word)
		for b := 0; b < 32; b++ {
			if w&(1<<b) == 0 {
				continue
			}
			bit := word*32 + b
			dt := DataTypeByBit(bit)
			if dt == nil {
				if unknown != nil {
					unknown(bit)
				}
				continue
			}
			types = append(types, dt)
		}
	}
	return types
}

// FormatValue renders one physical value with the type's print
// format, printing NaN for absent bins the way the text subcommands
// expect.
func (d *DataType) FormatValue(value float32) string {
	if value != value {
		return fmt.Sprintf("%7s", "NaN ")
	}
	return fmt.Sprintf(d.format, value)
}
