// Copyright 2026 The Sigmetraw Authors
// SPDX-License-Identifier: Apache-2.0

package sigmet

import (
	"math"
	"testing"
	"time"
)

func TestYMDSSeconds(t *testing.T) {
	ymds := YMDS{Sec: 3661, Msec: 500, Year: 2026, Mon: 1, Day: 15}
	want := float64(time.Date(2026, 1, 15, 1, 1, 1, 0, time.UTC).Unix()) + 0.5
	if got := ymds.Seconds(); math.Abs(got-want) > 1e-6 {
		t.Errorf("Seconds = %f, want %f", got, want)
	}
}

func TestBreakTimeRoundTrip(t *testing.T) {
	ymds := YMDS{Sec: 13*3600 + 22*60 + 41, Msec: 250, Year: 2026, Mon: 7, Day: 4}
	year, mon, day, hour, min, sec, ok := BreakTime(ymds.Seconds())
	if !ok {
		t.Fatal("BreakTime rejected a finite time")
	}
	if year != 2026 || mon != 7 || day != 4 || hour != 13 || min != 22 {
		t.Errorf("BreakTime = %04d/%02d/%02d %02d:%02d", year, mon, day, hour, min)
	}
	if math.Abs(float64(sec)-41.25) > 1e-3 {
		t.Errorf("seconds = %g, want 41.25", sec)
	}
}

func TestBreakTimeRejectsNaN(t *testing.T) {
	if _, _, _, _, _, _, ok := BreakTime(math.NaN()); ok {
		t.Error("BreakTime accepted NaN")
	}
}

func TestTZString(t *testing.T) {
	cases := []struct {
		minutesWest int
		want        string
	}{
		{300, "UTC-05:00"},
		{-330, "UTC+05:30"},
		{0, "UTC+00:00"},
		{719, "UTC-11:59"},
	}
	for _, tc := range cases {
		if got := TZString(tc.minutesWest); got != tc.want {
			t.Errorf("TZString(%d) = %q, want %q", tc.minutesWest, got, tc.want)
		}
		if len(tc.want) >= TZStringLen {
			t.Errorf("%q does not fit the %d-byte wire field", tc.want, TZStringLen)
		}
	}
}

func TestParseTZ(t *testing.T) {
	loc := ParseTZ("UTC-05:00")
	_, offset := time.Date(2026, 6, 1, 0, 0, 0, 0, loc).Zone()
	if offset != -5*3600 {
		t.Errorf("UTC-05:00 offset = %d s, want %d", offset, -5*3600)
	}
	loc = ParseTZ("UTC+05:30")
	_, offset = time.Date(2026, 6, 1, 0, 0, 0, 0, loc).Zone()
	if offset != 5*3600+30*60 {
		t.Errorf("UTC+05:30 offset = %d s, want %d", offset, 5*3600+30*60)
	}
	if ParseTZ("") != time.Local {
		t.Error("blank zone should fall back to radar-local")
	}
}
