// Copyright 2026 The Sigmetraw Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/sigmet-foundation/sigmetraw/cmd/sigmetraw/cli"
	"github.com/sigmet-foundation/sigmetraw/lib/rawd"
	"github.com/sigmet-foundation/sigmetraw/lib/sigmet"
)

func sweepHeadersCommand() *cli.Command {
	return &cli.Command{
		Name:    "sweep-headers",
		Summary: "print the start time and fixed angle of every sweep",
		Usage:   "sigmetraw sweep-headers <raw_product_file|socket>",
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("usage: sigmetraw sweep-headers <raw_product_file|socket>")
			}
			return runSweepHeaders(args[0])
		},
	}
}

func runSweepHeaders(path string) error {
	socket, err := isSocket(path)
	if err != nil {
		return err
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	if socket {
		client := &rawd.Client{SocketPath: path}
		_, records, err := client.SweepHeaders()
		if err != nil {
			return err
		}
		for i, rec := range records {
			printSweepHeader(out, i, rec.Time, rec.Angle)
		}
		return nil
	}

	vol, err := sigmet.LoadVolume(path, decodeOptions())
	if err != nil {
		return fmt.Errorf("could not read volume from %s: %w", path, err)
	}
	for i := 0; i < vol.NumSweeps(); i++ {
		angle := 0.0
		if i < len(vol.Sweeps) {
			angle = vol.Sweeps[i].Angle
		}
		printSweepHeader(out, i, vol.SweepTime(i), angle)
	}
	return nil
}

func printSweepHeader(w io.Writer, sweep int, seconds, angle float64) {
	year, mon, day, hour, min, sec, ok := sigmet.BreakTime(seconds)
	if !ok {
		year, mon, day, hour, min, sec = 0, 0, 0, 0, 0, 0
	}
	fmt.Fprintf(w, "%2d    time    %04d/%02d/%02d %02d:%02d:%06.3f    angle %7.1f\n",
		sweep, year, mon, day, hour, min, sec, angle*degPerRad)
}
