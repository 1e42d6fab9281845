// Copyright 2026 The Sigmetraw Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sigmet-foundation/sigmetraw/lib/rawd"
	"github.com/sigmet-foundation/sigmetraw/lib/sigmet"
)

// ProgramName is the name used in error messages: APP_NAME when set,
// else the invoked binary name.
func ProgramName() string {
	if name := os.Getenv("APP_NAME"); name != "" {
		return name
	}
	return filepath.Base(os.Args[0])
}

// strictFromEnv reports whether SIGMET_STRICT asks for fatal
// treatment of soft decoder anomalies. Any non-empty value counts.
func strictFromEnv() bool {
	return os.Getenv("SIGMET_STRICT") != ""
}

// quietLogger drops decoder warnings; the one-shot subcommands print
// their own diagnostics.
func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// decodeOptions builds the decoder configuration for the one-shot
// subcommands from the process environment.
func decodeOptions() sigmet.DecodeOptions {
	return sigmet.DecodeOptions{
		Strict: strictFromEnv(),
		Logger: quietLogger(),
	}
}

// isSocket reports whether path is a Unix socket (a daemon), as
// opposed to a raw product file or FIFO.
func isSocket(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, fmt.Errorf("could not get information about %s. %v", path, err)
	}
	switch {
	case info.Mode()&os.ModeSocket != 0:
		return true, nil
	case info.Mode().IsRegular() || info.Mode()&os.ModeNamedPipe != 0:
		return false, nil
	}
	return false, fmt.Errorf("%s must be a file, fifo, or socket.", path)
}

// parseSweepArg parses a sweep index argument: a non-negative
// integer, or "all" where the subcommand supports every sweep.
func parseSweepArg(arg string, allowAll bool) (uint32, error) {
	if allowAll && arg == "all" {
		return rawd.AllSweeps, nil
	}
	n, err := strconv.ParseUint(arg, 10, 32)
	if err != nil {
		if allowAll {
			return 0, fmt.Errorf("expected integer or \"all\" for sweep index, got %s", arg)
		}
		return 0, fmt.Errorf("expected integer for sweep index, got %s", arg)
	}
	return uint32(n), nil
}

// degPerRad converts the decoder's radians for display.
const degPerRad = 57.29577951308232

// rayHeaderFormat matches the one-shot ray header listing column for
// column: sweep, ray, wall-clock time, azimuth span, tilt span, bins.
const rayHeaderFormat = "%2d %4d    time    %04d/%02d/%02d %02d:%02d:%06.3f    az    %7.1f %7.1f    tilt %6.1f %6.1f    num_bins    %4d \n"

// printWideRayHeader renders one ray header line.
func printWideRayHeader(w io.Writer, sweep, ray int, h rawd.WideRayHeader) {
	year, mon, day, hour, min, sec, ok := sigmet.BreakTime(h.Time)
	if !ok {
		year, mon, day, hour, min, sec = 0, 0, 0, 0, 0, 0
	}
	fmt.Fprintf(w, rayHeaderFormat, sweep, ray, year, mon, day, hour, min, sec,
		float64(h.Az0)*degPerRad, float64(h.Az1)*degPerRad,
		float64(h.Tilt0)*degPerRad, float64(h.Tilt1)*degPerRad,
		h.NumBins)
}

// wideRayHeader assembles the augmented ray header for one grid
// entry of a locally decoded volume.
func wideRayHeader(vol *sigmet.Volume, s, r, typeIdx int) rawd.WideRayHeader {
	wide := rawd.WideRayHeader{Time: vol.RayTime(s, r)}
	ray := &vol.Rays[s][r][typeIdx]
	if !ray.Absent() {
		wide.Az0 = ray.Header.Az0
		wide.Tilt0 = ray.Header.Tilt0
		wide.Az1 = ray.Header.Az1
		wide.Tilt1 = ray.Header.Tilt1
		wide.NumBins = ray.Header.NumBins
		wide.Offset = uint32(ray.Header.Time)
	}
	return wide
}
