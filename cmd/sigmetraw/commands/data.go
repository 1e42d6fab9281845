// Copyright 2026 The Sigmetraw Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/spf13/pflag"

	"github.com/sigmet-foundation/sigmetraw/cmd/sigmetraw/cli"
	"github.com/sigmet-foundation/sigmetraw/lib/rawd"
	"github.com/sigmet-foundation/sigmetraw/lib/sigmet"
)

func dataCommand() *cli.Command {
	var binaryOut bool

	return &cli.Command{
		Name:    "data",
		Summary: "print one sweep of one data type",
		Usage:   "sigmetraw data [-b] <data_type> <sweep_index> <raw_product_file|socket>",
		Description: "Data converts the storage values of one sweep to physical values\n" +
			"and prints them, one ray per line. Absent bins print as NaN. With\n" +
			"-b, raw little-endian float32 values are written instead of text.",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("data", pflag.ContinueOnError)
			fs.BoolVarP(&binaryOut, "binary", "b", false, "write little-endian float32 instead of text")
			return fs
		},
		Run: func(args []string) error {
			if len(args) != 3 {
				return fmt.Errorf("usage: sigmetraw data [-b] <data_type> <sweep_index> <raw_product_file|socket>")
			}
			return runData(args[0], args[1], args[2], binaryOut)
		},
	}
}

func runData(abbrev, sweepArg, path string, binaryOut bool) error {
	dt := sigmet.DataTypeByAbbrev(abbrev)
	if dt == nil {
		return fmt.Errorf("%s is not a Sigmet data type.", abbrev)
	}
	sweep, err := parseSweepArg(sweepArg, false)
	if err != nil {
		return err
	}

	socket, err := isSocket(path)
	if err != nil {
		return err
	}
	if socket {
		return dataFromDaemon(dt, sweep, path, binaryOut)
	}
	return dataFromFile(dt, sweep, path, binaryOut)
}

// dataFromFile decodes the volume locally and prints one sweep.
func dataFromFile(dt *sigmet.DataType, sweep uint32, path string, binaryOut bool) error {
	vol, err := sigmet.LoadVolume(path, decodeOptions())
	if err != nil {
		return fmt.Errorf("could not read volume from %s: %w", path, err)
	}
	if int(sweep) >= vol.NumSweeps() {
		return fmt.Errorf("sweep index %d out of range. Volume has %d sweeps.", sweep, vol.NumSweeps())
	}
	typeIdx := vol.TypeIndex(dt)
	if typeIdx < 0 {
		return fmt.Errorf("%s data type is not in volume at %s.", dt.Abbrev, path)
	}

	s := int(sweep)
	// Pad text rows to the widest ray actually in the sweep, not the
	// volume's declared width.
	maxBins := 0
	for r := 0; r < vol.NumRaysPerSweep(); r++ {
		ray := &vol.Rays[s][r][typeIdx]
		if !ray.Absent() && int(ray.Header.NumBins) > maxBins {
			maxBins = int(ray.Header.NumBins)
		}
	}
	if maxBins == 0 {
		return fmt.Errorf("raw product file %s has no %s data in sweep %d.", path, dt.Abbrev, sweep)
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()
	values := make([]float32, maxBins)
	for r := 0; r < vol.NumRaysPerSweep(); r++ {
		for i := range values {
			values[i] = float32(math.NaN())
		}
		ray := &vol.Rays[s][r][typeIdx]
		if !ray.Absent() {
			n := int(ray.Header.NumBins)
			dt.StorageToValues(vol, n, values[:n], vol.Data[ray.Offset:ray.Offset+int64(ray.Length)])
		}
		if binaryOut {
			if ray.Absent() {
				continue
			}
			n := int(ray.Header.NumBins)
			if err := writeFloat32s(out, values[:n]); err != nil {
				return err
			}
			continue
		}
		for _, v := range values {
			fmt.Fprint(out, dt.FormatValue(v))
		}
		fmt.Fprintln(out)
	}
	return nil
}

// dataFromDaemon asks a running daemon for the sweep. Text output
// needs the ray headers first for per-ray bin counts; binary output
// hands the daemon this process's stdout as the bulk channel.
func dataFromDaemon(dt *sigmet.DataType, sweep uint32, path string, binaryOut bool) error {
	client := &rawd.Client{SocketPath: path}

	if binaryOut {
		_, err := client.DataTo(dt.Abbrev, sweep, os.Stdout)
		return err
	}

	_, headers, err := client.RayHeaders(dt.Abbrev, sweep)
	if err != nil {
		return err
	}
	_, values, err := client.Data(dt.Abbrev, sweep)
	if err != nil {
		return err
	}

	maxBins := 0
	for _, h := range headers {
		if int(h.NumBins) > maxBins {
			maxBins = int(h.NumBins)
		}
	}
	if maxBins == 0 {
		return fmt.Errorf("daemon at socket %s has no %s data in sweep %d.", path, dt.Abbrev, sweep)
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()
	next := 0
	for _, h := range headers {
		bins := int(h.NumBins)
		if next+bins > len(values) {
			return fmt.Errorf("daemon at socket %s sent %d values, ray headers promise more.", path, len(values))
		}
		for _, v := range values[next : next+bins] {
			fmt.Fprint(out, dt.FormatValue(v))
		}
		next += bins
		for b := bins; b < maxBins; b++ {
			fmt.Fprint(out, dt.FormatValue(float32(math.NaN())))
		}
		fmt.Fprintln(out)
	}
	return nil
}

func writeFloat32s(w io.Writer, values []float32) error {
	var buf [4]byte
	for _, v := range values {
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))
		if _, err := w.Write(buf[:]); err != nil {
			return err
		}
	}
	return nil
}
