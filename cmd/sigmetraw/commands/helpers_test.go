// Copyright 2026 The Sigmetraw Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"math"
	"strings"
	"testing"

	"github.com/sigmet-foundation/sigmetraw/lib/rawd"
)

func TestParseSweepArg(t *testing.T) {
	if got, err := parseSweepArg("3", false); err != nil || got != 3 {
		t.Errorf("parseSweepArg(3) = %d, %v", got, err)
	}
	if got, err := parseSweepArg("all", true); err != nil || got != rawd.AllSweeps {
		t.Errorf("parseSweepArg(all) = %d, %v", got, err)
	}
	if _, err := parseSweepArg("all", false); err == nil {
		t.Error("\"all\" accepted where a single sweep is required")
	}
	if _, err := parseSweepArg("first", true); err == nil {
		t.Error("non-integer sweep index accepted")
	}
	if _, err := parseSweepArg("-1", false); err == nil {
		t.Error("negative sweep index accepted")
	}
}

func TestProgramNameFromEnv(t *testing.T) {
	t.Setenv("APP_NAME", "sigmet_raw")
	if got := ProgramName(); got != "sigmet_raw" {
		t.Errorf("ProgramName = %q, want sigmet_raw", got)
	}
}

func TestStrictFromEnv(t *testing.T) {
	t.Setenv("SIGMET_STRICT", "")
	if strictFromEnv() {
		t.Error("strict with SIGMET_STRICT unset")
	}
	t.Setenv("SIGMET_STRICT", "1")
	if !strictFromEnv() {
		t.Error("not strict with SIGMET_STRICT=1")
	}
}

func TestPrintWideRayHeader(t *testing.T) {
	var sb strings.Builder
	printWideRayHeader(&sb, 1, 12, rawd.WideRayHeader{
		Az0: 0.5, Az1: 0.52, Tilt0: 0.1, Tilt1: 0.1,
		NumBins: 950,
		Time:    1.7e9,
	})
	line := sb.String()
	if !strings.Contains(line, "num_bins     950") {
		t.Errorf("line missing bin count: %q", line)
	}
	if !strings.Contains(line, "az       28.6    29.8") {
		t.Errorf("line missing azimuth columns: %q", line)
	}
}

func TestPrintWideRayHeaderNaNTime(t *testing.T) {
	var sb strings.Builder
	printWideRayHeader(&sb, 0, 0, rawd.WideRayHeader{Time: math.NaN()})
	if !strings.Contains(sb.String(), "0000/00/00") {
		t.Errorf("NaN time line = %q, want zeroed date", sb.String())
	}
}
