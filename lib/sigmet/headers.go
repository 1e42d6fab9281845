// Copyright 2026 The Sigmetraw Authors
// SPDX-License-Identifier: Apache-2.0

package sigmet

import (
	"bytes"
	"fmt"
)

// Limits from the IRIS Programmer's Manual.
const (
	// MaxSweeps is the maximum number of sweeps in a volume.
	MaxSweeps = 40

	// NumDataTypes is the number of defined Sigmet data types,
	// including DB_XHDR.
	NumDataTypes = 89

	// DataTypeLen is the wire length of a data type abbreviation.
	DataTypeLen = 16

	// TZStringLen is the wire length of the protocol time-zone
	// string, including its trailing padding ("UTC-11:-59" plus NUL).
	TZStringLen = 11

	// RecordSize is the physical record size of a raw product file.
	RecordSize = 6144
)

// ScanMode is the antenna scan mode from the task scan info.
type ScanMode uint16

const (
	ScanPPISector ScanMode = 1 + iota
	ScanRHI
	ScanManual
	ScanPPIContinuous
	ScanFile
)

func (m ScanMode) String() string {
	switch m {
	case ScanPPISector:
		return "ppi sector"
	case ScanRHI:
		return "rhi"
	case ScanManual:
		return "manual"
	case ScanPPIContinuous:
		return "ppi continuous"
	case ScanFile:
		return "file"
	}
	return fmt.Sprintf("scan mode %d", uint16(m))
}

// MultiPRF is the multiple-PRF dealiasing mode.
type MultiPRF uint16

const (
	PRFOneOne MultiPRF = iota
	PRFTwoThree
	PRFFourThree // actually 3:4; the manual's enum name is kept
	PRFFourFive
)

// StructHeader prefixes every top-level header structure in the file.
type StructHeader struct {
	ID     int16
	Format int16
	Size   int32
	Flags  int16
}

// ProductSpecificInfo is the raw-product flavor of the product
// configuration's product-specific block.
type ProductSpecificInfo struct {
	DataTypeMask   uint32
	RangeLastBin   int32
	FormatConvFlag uint32
	Flag           uint32
	SweepNum       int32
	XHdrType       uint32
	DataTypeMask1  uint32
	DataTypeMask2  uint32
	DataTypeMask3  uint32
	DataTypeMask4  uint32
	PlaybackVsn    uint32
}

// ColorScaleDef is the product color scale definition.
type ColorScaleDef struct {
	Flags       uint32
	Start       int32
	Step        int32
	ColorCount  int16
	SetAndScale uint16
	LevelSeams  [16]uint16
}

// ProductConfiguration is the first half of record #1.
type ProductConfiguration struct {
	StructHeader StructHeader
	Type         uint16
	Schedule     uint16
	Skip         int32
	GenTime      YMDS
	IngestSweep  YMDS
	IngestFile   YMDS
	ConfigFile   string
	TaskName     string
	Flag         uint16
	XScale       int32
	YScale       int32
	ZScale       int32
	XSize        int32
	YSize        int32
	ZSize        int32
	XLoc         int32
	YLoc         int32
	ZLoc         int32
	MaxRange     int32
	DataType     uint16
	Projection   string
	InpDataType  uint16
	ProjType     uint8
	RadSmoother  int16
	NumRuns      int16
	ZRConst      int32
	ZRExp        int32
	XSmooth      int16
	YSmooth      int16
	SpecificInfo ProductSpecificInfo
	Suffixes     string
	ColorScale   ColorScaleDef
}

// ProductEnd is the second half of record #1: radar site identity,
// transmit parameters, and calibration summary.
type ProductEnd struct {
	SiteNameProd    string
	IrisProdVsn     string
	IrisIngVsn      string
	LocalWGMT       int16 // minutes west of UTC, local clock
	HardwareName    string
	SiteNameIngest  string
	RecWGMT         int16 // minutes west of UTC, recorded time
	CenterLat       uint32
	CenterLon       uint32
	GroundElev      int16
	RadarHeight     int16
	PRF             int32
	PulseWidth      int32
	ProcType        uint16
	TriggerScheme   uint16
	NumSamples      int16
	ClutterFilter   string
	LinFilter       uint16
	Wavelength      int32 // 1/100 cm
	TruncHeight     int32
	RangeFirstBin   int32
	RangeLastBin    int32
	NumBinsOut      int32
	Flag            uint16
	Polarization    uint16
	HPolIOCal       int16
	HPolCalNoise    int16
	HPolRadarConst  int16
	RecvBandwidth   uint16
	HPolNoise       int16
	VPolNoise       int16
	LDROffset       int16
	ZDROffset       int16
	TCFCalFlags     uint16
	TCFCalFlags2    uint16
	StdParallel1    uint32
	StdParallel2    uint32
	REarth          uint32
	Flatten         uint32
	Fault           uint32
	InputSitesMask  uint32
	LogFilterNum    uint16
	ClutterMapUsed  uint16
	ProjLat         uint32
	ProjLon         uint32
	IProd           int16
	MeltLevel       int16
	RadarHeightRef  int16
	NumElements     int16
	WindSpeed       uint8
	WindDirection   uint8
	TimeZone        string
	OffsetToXHdr    uint32
}

// ProductHeader is record #1 of a raw product file.
type ProductHeader struct {
	StructHeader  StructHeader
	Configuration ProductConfiguration
	End           ProductEnd
}

// IngestConfiguration is file-level bookkeeping at the head of
// record #2.
type IngestConfiguration struct {
	FileName         string
	NumAssocFiles    int16
	NumSweeps        int16
	SizeFiles        int32
	VolumeStart      YMDS
	RayHeaderSize    int16
	ExtRayHeaderSize int16
	TaskConfigTable  int16
	PlaybackVsn      int16
	IrisVersion      string
	HardwareSite     string
	LocalWGMT        int16
	SetupSite        string
	RecWGMT          int16
	Latitude         uint32
	Longitude        uint32
	GroundElev       int16
	RadarHeight      int16
	Resolution       uint16
	IndexFirstRay    uint16
	NumRays          uint16
	NumBytesGParam   int16
	Altitude         int32
	Velocity         [3]int32
	OffsetINU        [3]int32
	Fault            uint32
	MeltLevel        int16
	TimeZone         string
	Flags            uint32
	ConfigName       string
}

// TaskSchedInfo is the task scheduling sub-configuration.
type TaskSchedInfo struct {
	StartTime      int32
	StopTime       int32
	Skip           int32
	TimeLastRun    int32
	TimeUsedLast   int32
	RelDayLastRun  int32
	Flag           uint16
}

// DataMask identifies which of the 128 possible data-type slots are
// present. Word 0 carries bits 0-31 (bit 0 is the extended-header
// pseudo type); the extended-header type code sits between word 0 and
// word 1 on the wire.
type DataMask struct {
	Word0       uint32
	ExtHdrType  uint32
	Word1       uint32
	Word2       uint32
	Word3       uint32
	Word4       uint32
}

// Word returns mask word i (0..4).
func (m *DataMask) Word(i int) uint32 {
	switch i {
	case 0:
		return m.Word0
	case 1:
		return m.Word1
	case 2:
		return m.Word2
	case 3:
		return m.Word3
	case 4:
		return m.Word4
	}
	return 0
}

// TaskDSPModeBatch is the batch-mode DSP sub-block.
type TaskDSPModeBatch struct {
	LowPRF            uint16
	LowPRFFraction    uint16
	LowPRFSampleSize  int16
	LowPRFAveraging   int16
	DZUnfoldThreshold int16
	VRUnfoldThreshold int16
	SWUnfoldThreshold int16
}

// TaskDSPInfo is the signal-processor sub-configuration.
type TaskDSPInfo struct {
	MajorMode       uint16
	DSPType         uint16
	CurrentDataMask DataMask
	OriginalDataMask DataMask
	ModeBatch       TaskDSPModeBatch
	PRF             int32 // Hz
	PulseWidth      int32 // 1/100 us
	MultiPRFMode    MultiPRF
	DualPRF         int16
	AGCFeedback     uint16
	SampleSize      int16
	GainFlag        uint16
	ClutterFile     string
	LinFilterNum    uint8
	LogFilterNum    uint8
	Attenuation     int16
	GasAttenuation  uint16
	ClutterFlag     bool
	XmtPhase        uint16
	RayHeaderMask   uint32
	TimeSeriesFlag  uint16
	CustomRayHeader string
}

// TaskCalibInfo is the calibration sub-configuration.
type TaskCalibInfo struct {
	DBZSlope          int16
	DBZNoiseThreshold int16
	ClutterCorrThresh int16
	SQIThreshold      int16
	PowerThreshold    int16
	CalDBZ            int16
	DBTFlags          uint16
	DBZFlags          uint16
	VelFlags          uint16
	SWFlags           uint16
	ZDRFlags          uint16
	Flags             uint16
	LDRBias           int16
	ZDRBias           int16
	NXClutterThresh   int16
	NXClutterSkip     uint16
	HPolIOCal         int16
	VPolIOCal         int16
	HPolNoise         int16
	VPolNoise         int16
	HPolRadarConst    int16
	VPolRadarConst    int16
	Bandwidth         uint16
	Flags2            uint16
}

// TaskRangeInfo is the range sub-configuration.
type TaskRangeInfo struct {
	RangeFirstBin int32 // cm
	RangeLastBin  int32 // cm
	NumBinsIn     int16
	NumBinsOut    int16
	StepIn        int32 // cm
	StepOut       int32 // cm
	Flag          uint16
	RangeAvgFlag  int16
}

// TaskScanInfo is the scan sub-configuration. Angles is the per-sweep
// fixed-angle list: elevations for PPI modes, azimuths for RHI.
type TaskScanInfo struct {
	Mode       ScanMode
	Resolution int16
	NumSweeps  int16

	// PPI / RHI variant fields; which pair is meaningful depends on
	// Mode. Manual scans set only LeftAz (the manual flags word), file
	// scans only LeftAz and RightAz; Angles and Start stay zero for
	// both.
	LeftAz  uint16
	RightAz uint16
	Angles  [MaxSweeps]uint16
	Start   uint8
}

// TaskMiscInfo is the miscellaneous sub-configuration.
type TaskMiscInfo struct {
	Wavelength     int32 // 1/100 cm
	TRSerial       string
	Power          int32
	Flags          uint16
	Polarization   uint16
	TruncHeight    int32
	CommentSize    int16
	HorizBeamWidth uint32 // bin4
	VertBeamWidth  uint32 // bin4
	Custom         [10]uint32
}

// TaskEndInfo is the task end sub-configuration.
type TaskEndInfo struct {
	TaskMajor   int16
	TaskMinor   int16
	TaskConfig  string
	Description string
	HybridTasks int32
	TaskState   uint16
	DataTime    YMDS
}

// TaskConfiguration nests every task sub-configuration, in file order.
type TaskConfiguration struct {
	StructHeader StructHeader
	Sched        TaskSchedInfo
	DSP          TaskDSPInfo
	Calib        TaskCalibInfo
	Range        TaskRangeInfo
	Scan         TaskScanInfo
	Misc         TaskMiscInfo
	End          TaskEndInfo
}

// IngestHeader is record #2 of a raw product file.
type IngestHeader struct {
	StructHeader  StructHeader
	Configuration IngestConfiguration
	Task          TaskConfiguration
}

// scanInfoSize is the on-file size of the task scan info union. The
// PPI/RHI variants use 85 of these bytes; the rest is padding.
const scanInfoSize = 200

// cursor walks a record buffer decoding fields in declaration order.
// The first failed read sticks; subsequent reads return zero values.
type cursor struct {
	b   []byte
	off int
	err error
}

func (c *cursor) take(n int) []byte {
	if c.err != nil {
		return nil
	}
	if c.off+n > len(c.b) {
		c.err = fmt.Errorf("%w: field at offset %d runs past record end", ErrTruncatedStream, c.off)
		return nil
	}
	out := c.b[c.off : c.off+n]
	c.off += n
	return out
}

func (c *cursor) u8() uint8 {
	b := c.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (c *cursor) u16() uint16 {
	b := c.take(2)
	if b == nil {
		return 0
	}
	return uint16(b[0]) | uint16(b[1])<<8
}

func (c *cursor) u32() uint32 {
	b := c.take(4)
	if b == nil {
		return 0
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func (c *cursor) i16() int16 { return int16(c.u16()) }
func (c *cursor) i32() int32 { return int32(c.u32()) }

// str reads an n-byte fixed field and trims trailing NULs and spaces.
func (c *cursor) str(n int) string {
	b := c.take(n)
	if b == nil {
		return ""
	}
	return string(bytes.TrimRight(b, "\x00 "))
}

func (c *cursor) skip(n int) { c.take(n) }

// ymds reads the 12-byte time representation. Bits 10-12 of the
// millisecond word are the DST/UTC/LDST flags.
func (c *cursor) ymds() YMDS {
	var t YMDS
	t.Sec = c.i32()
	msec := c.u16()
	t.Msec = msec & 0x03ff
	t.DST = msec&(1<<10) != 0
	t.UTC = msec&(1<<11) != 0
	t.LDST = msec&(1<<12) != 0
	t.Year = c.i16()
	t.Mon = c.i16()
	t.Day = c.i16()
	return t
}

func (c *cursor) structHeader() StructHeader {
	return StructHeader{
		ID:     c.i16(),
		Format: c.i16(),
		Size:   c.i32(),
		Flags:  c.i16(),
	}
}

func (c *cursor) dataMask() DataMask {
	return DataMask{
		Word0:      c.u32(),
		ExtHdrType: c.u32(),
		Word1:      c.u32(),
		Word2:      c.u32(),
		Word3:      c.u32(),
		Word4:      c.u32(),
	}
}

// parseProductHeader decodes record #1.
func parseProductHeader(rec []byte) (ProductHeader, error) {
	c := &cursor{b: rec}
	var h ProductHeader
	h.StructHeader = c.structHeader()

	cfg := &h.Configuration
	cfg.StructHeader = c.structHeader()
	cfg.Type = c.u16()
	cfg.Schedule = c.u16()
	cfg.Skip = c.i32()
	cfg.GenTime = c.ymds()
	cfg.IngestSweep = c.ymds()
	cfg.IngestFile = c.ymds()
	cfg.ConfigFile = c.str(12)
	cfg.TaskName = c.str(12)
	cfg.Flag = c.u16()
	cfg.XScale = c.i32()
	cfg.YScale = c.i32()
	cfg.ZScale = c.i32()
	cfg.XSize = c.i32()
	cfg.YSize = c.i32()
	cfg.ZSize = c.i32()
	cfg.XLoc = c.i32()
	cfg.YLoc = c.i32()
	cfg.ZLoc = c.i32()
	cfg.MaxRange = c.i32()
	cfg.DataType = c.u16()
	cfg.Projection = c.str(12)
	cfg.InpDataType = c.u16()
	cfg.ProjType = c.u8()
	cfg.RadSmoother = c.i16()
	cfg.NumRuns = c.i16()
	cfg.ZRConst = c.i32()
	cfg.ZRExp = c.i32()
	cfg.XSmooth = c.i16()
	cfg.YSmooth = c.i16()
	psi := &cfg.SpecificInfo
	psi.DataTypeMask = c.u32()
	psi.RangeLastBin = c.i32()
	psi.FormatConvFlag = c.u32()
	psi.Flag = c.u32()
	psi.SweepNum = c.i32()
	psi.XHdrType = c.u32()
	psi.DataTypeMask1 = c.u32()
	psi.DataTypeMask2 = c.u32()
	psi.DataTypeMask3 = c.u32()
	psi.DataTypeMask4 = c.u32()
	psi.PlaybackVsn = c.u32()
	cfg.Suffixes = c.str(16)
	csd := &cfg.ColorScale
	csd.Flags = c.u32()
	csd.Start = c.i32()
	csd.Step = c.i32()
	csd.ColorCount = c.i16()
	csd.SetAndScale = c.u16()
	for i := range csd.LevelSeams {
		csd.LevelSeams[i] = c.u16()
	}

	end := &h.End
	end.SiteNameProd = c.str(16)
	end.IrisProdVsn = c.str(8)
	end.IrisIngVsn = c.str(8)
	end.LocalWGMT = c.i16()
	end.HardwareName = c.str(16)
	end.SiteNameIngest = c.str(16)
	end.RecWGMT = c.i16()
	end.CenterLat = c.u32()
	end.CenterLon = c.u32()
	end.GroundElev = c.i16()
	end.RadarHeight = c.i16()
	end.PRF = c.i32()
	end.PulseWidth = c.i32()
	end.ProcType = c.u16()
	end.TriggerScheme = c.u16()
	end.NumSamples = c.i16()
	end.ClutterFilter = c.str(12)
	end.LinFilter = c.u16()
	end.Wavelength = c.i32()
	end.TruncHeight = c.i32()
	end.RangeFirstBin = c.i32()
	end.RangeLastBin = c.i32()
	end.NumBinsOut = c.i32()
	end.Flag = c.u16()
	end.Polarization = c.u16()
	end.HPolIOCal = c.i16()
	end.HPolCalNoise = c.i16()
	end.HPolRadarConst = c.i16()
	end.RecvBandwidth = c.u16()
	end.HPolNoise = c.i16()
	end.VPolNoise = c.i16()
	end.LDROffset = c.i16()
	end.ZDROffset = c.i16()
	end.TCFCalFlags = c.u16()
	end.TCFCalFlags2 = c.u16()
	end.StdParallel1 = c.u32()
	end.StdParallel2 = c.u32()
	end.REarth = c.u32()
	end.Flatten = c.u32()
	end.Fault = c.u32()
	end.InputSitesMask = c.u32()
	end.LogFilterNum = c.u16()
	end.ClutterMapUsed = c.u16()
	end.ProjLat = c.u32()
	end.ProjLon = c.u32()
	end.IProd = c.i16()
	end.MeltLevel = c.i16()
	end.RadarHeightRef = c.i16()
	end.NumElements = c.i16()
	end.WindSpeed = c.u8()
	end.WindDirection = c.u8()
	end.TimeZone = c.str(8)
	end.OffsetToXHdr = c.u32()

	return h, c.err
}

// parseIngestHeader decodes record #2.
func parseIngestHeader(rec []byte) (IngestHeader, error) {
	c := &cursor{b: rec}
	var h IngestHeader
	h.StructHeader = c.structHeader()

	cfg := &h.Configuration
	cfg.FileName = c.str(80)
	cfg.NumAssocFiles = c.i16()
	cfg.NumSweeps = c.i16()
	cfg.SizeFiles = c.i32()
	cfg.VolumeStart = c.ymds()
	cfg.RayHeaderSize = c.i16()
	cfg.ExtRayHeaderSize = c.i16()
	cfg.TaskConfigTable = c.i16()
	cfg.PlaybackVsn = c.i16()
	cfg.IrisVersion = c.str(8)
	cfg.HardwareSite = c.str(16)
	cfg.LocalWGMT = c.i16()
	cfg.SetupSite = c.str(16)
	cfg.RecWGMT = c.i16()
	cfg.Latitude = c.u32()
	cfg.Longitude = c.u32()
	cfg.GroundElev = c.i16()
	cfg.RadarHeight = c.i16()
	cfg.Resolution = c.u16()
	cfg.IndexFirstRay = c.u16()
	cfg.NumRays = c.u16()
	cfg.NumBytesGParam = c.i16()
	cfg.Altitude = c.i32()
	for i := range cfg.Velocity {
		cfg.Velocity[i] = c.i32()
	}
	for i := range cfg.OffsetINU {
		cfg.OffsetINU[i] = c.i32()
	}
	cfg.Fault = c.u32()
	cfg.MeltLevel = c.i16()
	cfg.TimeZone = c.str(8)
	cfg.Flags = c.u32()
	cfg.ConfigName = c.str(16)

	task := &h.Task
	task.StructHeader = c.structHeader()
	sched := &task.Sched
	sched.StartTime = c.i32()
	sched.StopTime = c.i32()
	sched.Skip = c.i32()
	sched.TimeLastRun = c.i32()
	sched.TimeUsedLast = c.i32()
	sched.RelDayLastRun = c.i32()
	sched.Flag = c.u16()

	dsp := &task.DSP
	dsp.MajorMode = c.u16()
	dsp.DSPType = c.u16()
	dsp.CurrentDataMask = c.dataMask()
	dsp.OriginalDataMask = c.dataMask()
	batch := &dsp.ModeBatch
	batch.LowPRF = c.u16()
	batch.LowPRFFraction = c.u16()
	batch.LowPRFSampleSize = c.i16()
	batch.LowPRFAveraging = c.i16()
	batch.DZUnfoldThreshold = c.i16()
	batch.VRUnfoldThreshold = c.i16()
	batch.SWUnfoldThreshold = c.i16()
	dsp.PRF = c.i32()
	dsp.PulseWidth = c.i32()
	dsp.MultiPRFMode = MultiPRF(c.u16())
	dsp.DualPRF = c.i16()
	dsp.AGCFeedback = c.u16()
	dsp.SampleSize = c.i16()
	dsp.GainFlag = c.u16()
	dsp.ClutterFile = c.str(12)
	dsp.LinFilterNum = c.u8()
	dsp.LogFilterNum = c.u8()
	dsp.Attenuation = c.i16()
	dsp.GasAttenuation = c.u16()
	dsp.ClutterFlag = c.u16() != 0
	dsp.XmtPhase = c.u16()
	dsp.RayHeaderMask = c.u32()
	dsp.TimeSeriesFlag = c.u16()
	dsp.CustomRayHeader = c.str(16)

	cal := &task.Calib
	cal.DBZSlope = c.i16()
	cal.DBZNoiseThreshold = c.i16()
	cal.ClutterCorrThresh = c.i16()
	cal.SQIThreshold = c.i16()
	cal.PowerThreshold = c.i16()
	cal.CalDBZ = c.i16()
	cal.DBTFlags = c.u16()
	cal.DBZFlags = c.u16()
	cal.VelFlags = c.u16()
	cal.SWFlags = c.u16()
	cal.ZDRFlags = c.u16()
	cal.Flags = c.u16()
	cal.LDRBias = c.i16()
	cal.ZDRBias = c.i16()
	cal.NXClutterThresh = c.i16()
	cal.NXClutterSkip = c.u16()
	cal.HPolIOCal = c.i16()
	cal.VPolIOCal = c.i16()
	cal.HPolNoise = c.i16()
	cal.VPolNoise = c.i16()
	cal.HPolRadarConst = c.i16()
	cal.VPolRadarConst = c.i16()
	cal.Bandwidth = c.u16()
	cal.Flags2 = c.u16()

	rng := &task.Range
	rng.RangeFirstBin = c.i32()
	rng.RangeLastBin = c.i32()
	rng.NumBinsIn = c.i16()
	rng.NumBinsOut = c.i16()
	rng.StepIn = c.i32()
	rng.StepOut = c.i32()
	rng.Flag = c.u16()
	rng.RangeAvgFlag = c.i16()

	scan := &task.Scan
	scan.Mode = ScanMode(c.u16())
	scan.Resolution = c.i16()
	scan.NumSweeps = c.i16()
	unionStart := c.off
	switch scan.Mode {
	case ScanRHI:
		scan.LeftAz = c.u16() // low elevation limit
		scan.RightAz = c.u16()
		for i := range scan.Angles {
			scan.Angles[i] = c.u16()
		}
		scan.Start = c.u8()
	case ScanManual:
		scan.LeftAz = c.u16() // manual flags word
	case ScanFile:
		scan.LeftAz = c.u16()
		scan.RightAz = c.u16()
	default: // PPI sector and continuous
		scan.LeftAz = c.u16()
		scan.RightAz = c.u16()
		for i := range scan.Angles {
			scan.Angles[i] = c.u16()
		}
		scan.Start = c.u8()
	}
	if c.err == nil {
		c.off = unionStart
		c.skip(scanInfoSize)
	}

	misc := &task.Misc
	misc.Wavelength = c.i32()
	misc.TRSerial = c.str(16)
	misc.Power = c.i32()
	misc.Flags = c.u16()
	misc.Polarization = c.u16()
	misc.TruncHeight = c.i32()
	misc.CommentSize = c.i16()
	misc.HorizBeamWidth = c.u32()
	misc.VertBeamWidth = c.u32()
	for i := range misc.Custom {
		misc.Custom[i] = c.u32()
	}

	end := &task.End
	end.TaskMajor = c.i16()
	end.TaskMinor = c.i16()
	end.TaskConfig = c.str(12)
	end.Description = c.str(80)
	end.HybridTasks = c.i32()
	end.TaskState = c.u16()
	end.DataTime = c.ymds()

	return h, c.err
}
