// Copyright 2026 The Sigmetraw Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bufio"
	"fmt"
	"os"

	"github.com/sigmet-foundation/sigmetraw/cmd/sigmetraw/cli"
	"github.com/sigmet-foundation/sigmetraw/lib/rawd"
	"github.com/sigmet-foundation/sigmetraw/lib/sigmet"
)

func rayHeadersCommand() *cli.Command {
	return &cli.Command{
		Name:    "ray-headers",
		Summary: "print ray headers for one sweep or all sweeps",
		Usage:   "sigmetraw ray-headers <sweep_index|all> [data_type] <raw_product_file|socket>",
		Description: "Ray-headers lists every ray of the selected sweeps: wall-clock\n" +
			"time, start and end azimuth, start and end tilt, and bin count.\n" +
			"Times use the extended ray headers when the volume has them.",
		Run: func(args []string) error {
			switch len(args) {
			case 2:
				return runRayHeaders(args[0], "", args[1])
			case 3:
				return runRayHeaders(args[0], args[1], args[2])
			}
			return fmt.Errorf("usage: sigmetraw ray-headers <sweep_index|all> [data_type] <raw_product_file|socket>")
		},
	}
}

func runRayHeaders(sweepArg, abbrev, path string) error {
	sweep, err := parseSweepArg(sweepArg, true)
	if err != nil {
		return err
	}
	if abbrev != "" && sigmet.DataTypeByAbbrev(abbrev) == nil {
		return fmt.Errorf("%s is not a Sigmet data type.", abbrev)
	}

	socket, err := isSocket(path)
	if err != nil {
		return err
	}
	if socket {
		return rayHeadersFromDaemon(sweep, abbrev, path)
	}
	return rayHeadersFromFile(sweep, abbrev, path)
}

func rayHeadersFromFile(sweep uint32, abbrev, path string) error {
	vol, err := sigmet.LoadVolume(path, decodeOptions())
	if err != nil {
		return fmt.Errorf("could not read volume from %s: %w", path, err)
	}

	typeIdx := -1
	if abbrev != "" {
		typeIdx = vol.TypeIndex(sigmet.DataTypeByAbbrev(abbrev))
		if typeIdx < 0 {
			return fmt.Errorf("%s data type is not in volume at %s.", abbrev, path)
		}
	} else {
		dt := vol.DefaultType()
		if dt == nil {
			return fmt.Errorf("volume at %s has no data types.", path)
		}
		typeIdx = vol.TypeIndex(dt)
	}

	first, last := 0, vol.NumSweeps()
	if sweep != rawd.AllSweeps {
		if int(sweep) >= vol.NumSweeps() {
			return fmt.Errorf("sweep index %d out of range. Volume %s has %d sweeps.",
				sweep, path, vol.NumSweeps())
		}
		first, last = int(sweep), int(sweep)+1
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()
	for s := first; s < last; s++ {
		for r := 0; r < vol.NumRaysPerSweep(); r++ {
			printWideRayHeader(out, s, r, wideRayHeader(vol, s, r, typeIdx))
		}
	}
	return nil
}

func rayHeadersFromDaemon(sweep uint32, abbrev, path string) error {
	client := &rawd.Client{SocketPath: path}
	resp, headers, err := client.RayHeaders(abbrev, sweep)
	if err != nil {
		return err
	}
	if resp.NumSweeps == 0 || resp.NumRays == 0 {
		return fmt.Errorf("got impossible dimensions (%d sweeps, %d rays) from daemon at socket %s.",
			resp.NumSweeps, resp.NumRays, path)
	}

	firstSweep := 0
	if sweep != rawd.AllSweeps {
		firstSweep = int(sweep)
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()
	for i, h := range headers {
		s := firstSweep + i/int(resp.NumRays)
		r := i % int(resp.NumRays)
		printWideRayHeader(out, s, r, h)
	}
	return nil
}
