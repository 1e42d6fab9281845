// Copyright 2026 The Sigmetraw Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sigmet-foundation/sigmetraw/cmd/sigmetraw/cli"
	"github.com/sigmet-foundation/sigmetraw/lib/rawd"
	"github.com/sigmet-foundation/sigmetraw/lib/sigmet"
)

func volumeHeadersCommand() *cli.Command {
	return &cli.Command{
		Name:    "volume-headers",
		Summary: "print the volume's product and ingest headers",
		Usage:   "sigmetraw volume-headers <raw_product_file|socket>",
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("usage: sigmetraw volume-headers <raw_product_file|socket>")
			}
			return runVolumeHeaders(args[0])
		},
	}
}

func runVolumeHeaders(path string) error {
	socket, err := isSocket(path)
	if err != nil {
		return err
	}

	var headers sigmet.VolumeHeaders
	if socket {
		client := &rawd.Client{SocketPath: path}
		_, got, err := client.VolumeHeaders()
		if err != nil {
			return err
		}
		headers = *got
	} else {
		vol, err := sigmet.LoadVolume(path, decodeOptions())
		if err != nil {
			return fmt.Errorf("could not read volume from %s: %w", path, err)
		}
		headers = vol.Headers()
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()
	printVolumeHeaders(out, &headers)
	return nil
}

// printVolumeHeaders lists the header members clients usually need,
// one "name = value" line each.
func printVolumeHeaders(w io.Writer, h *sigmet.VolumeHeaders) {
	end := &h.Product.End
	cfg := &h.Ingest.Configuration
	task := &h.Ingest.Task

	fmt.Fprintf(w, "site_name = %s\n", end.SiteNameIngest)
	fmt.Fprintf(w, "hardware_name = %s\n", end.HardwareName)
	fmt.Fprintf(w, "task_name = %s\n", h.Product.Configuration.TaskName)
	fmt.Fprintf(w, "task_description = %s\n", task.End.Description)
	fmt.Fprintf(w, "iris_version = %s\n", cfg.IrisVersion)
	fmt.Fprintf(w, "scan_mode = %s\n", task.Scan.Mode)
	fmt.Fprintf(w, "num_sweeps = %d\n", task.Scan.NumSweeps)
	fmt.Fprintf(w, "num_rays = %d\n", cfg.NumRays)
	fmt.Fprintf(w, "num_bins = %d\n", task.Range.NumBinsOut)
	fmt.Fprintf(w, "range_first_bin_cm = %d\n", task.Range.RangeFirstBin)
	fmt.Fprintf(w, "range_last_bin_cm = %d\n", task.Range.RangeLastBin)
	fmt.Fprintf(w, "bin_step_cm = %d\n", task.Range.StepOut)
	fmt.Fprintf(w, "prf_hz = %d\n", task.DSP.PRF)
	fmt.Fprintf(w, "pulse_width = %d\n", task.DSP.PulseWidth)
	fmt.Fprintf(w, "wavelength_cm = %.2f\n", float64(end.Wavelength)/100)
	fmt.Fprintf(w, "polarization = %d\n", end.Polarization)
	fmt.Fprintf(w, "latitude_bin4 = %d\n", cfg.Latitude)
	fmt.Fprintf(w, "longitude_bin4 = %d\n", cfg.Longitude)
	fmt.Fprintf(w, "ground_elevation_m = %d\n", cfg.GroundElev)
	fmt.Fprintf(w, "radar_height_m = %d\n", cfg.RadarHeight)
	fmt.Fprintf(w, "minutes_west = %d\n", cfg.RecWGMT)
	fmt.Fprintf(w, "volume_start = %04d/%02d/%02d %02d:%02d:%02d\n",
		cfg.VolumeStart.Year, cfg.VolumeStart.Mon, cfg.VolumeStart.Day,
		cfg.VolumeStart.Sec/3600, cfg.VolumeStart.Sec/60%60, cfg.VolumeStart.Sec%60)
	fmt.Fprintf(w, "data_types = %s\n", strings.Join(h.TypeAbbrevs, " "))
}
