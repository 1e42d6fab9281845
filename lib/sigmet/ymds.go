// Copyright 2026 The Sigmetraw Authors
// SPDX-License-Identifier: Apache-2.0

package sigmet

import (
	"fmt"
	"time"
)

// YMDS is a time as represented in Sigmet raw headers: calendar date
// plus seconds and milliseconds since midnight. The millisecond field
// on the wire carries three flag bits above the 10-bit count.
type YMDS struct {
	Sec  int32  // seconds since midnight
	Msec uint16 // milliseconds, 0..999
	DST  bool   // time is daylight savings
	UTC  bool   // time is UTC rather than radar-local
	LDST bool   // local time is daylight savings
	Year int16
	Mon  int16
	Day  int16
}

// IsZero reports whether the time has no calendar date. Sweeps that
// were never recorded leave the date fields zero.
func (t YMDS) IsZero() bool {
	return t.Year == 0 && t.Mon == 0 && t.Day == 0
}

// Seconds returns the time as seconds since the Unix epoch in the
// stated zone, with millisecond resolution. The zone flags are not
// applied here; callers that need wall-clock rendering combine the
// result with the volume's recorded UTC offset.
func (t YMDS) Seconds() float64 {
	day := time.Date(int(t.Year), time.Month(t.Mon), int(t.Day), 0, 0, 0, 0, time.UTC)
	return float64(day.Unix()) + float64(t.Sec) + float64(t.Msec)/1000
}

// BreakTime splits seconds-since-epoch into calendar fields, the
// inverse of Seconds. Returns ok=false for non-finite input.
func BreakTime(seconds float64) (year, mon, day, hour, min int, sec float32, ok bool) {
	if seconds != seconds || seconds > 1e15 || seconds < -1e15 {
		return 0, 0, 0, 0, 0, 0, false
	}
	whole := int64(seconds)
	frac := seconds - float64(whole)
	u := time.Unix(whole, 0).UTC()
	return u.Year(), int(u.Month()), u.Day(), u.Hour(), u.Minute(),
		float32(u.Second()) + float32(frac), true
}

// TZString renders an offset in minutes west of UTC as the 11-byte
// protocol time-zone string, e.g. "UTC-05:00". A zero offset renders
// as "UTC+00:00".
func TZString(minutesWest int) string {
	offset := -minutesWest
	h := offset / 60
	m := offset % 60
	if m < 0 {
		m = -m
	}
	return fmt.Sprintf("UTC%+03d:%02d", h, m)
}

// ParseTZ converts a protocol time-zone string back into a fixed
// *time.Location. Blank means radar-local, reported as time.Local.
func ParseTZ(tz string) *time.Location {
	var h, m int
	if _, err := fmt.Sscanf(tz, "UTC%d:%d", &h, &m); err != nil {
		return time.Local
	}
	if h < 0 {
		m = -m
	}
	return time.FixedZone(tz, h*3600+m*60)
}
