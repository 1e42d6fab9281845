// Copyright 2026 The Sigmetraw Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/sigmet-foundation/sigmetraw/cmd/sigmetraw/cli"
	"github.com/sigmet-foundation/sigmetraw/lib/config"
	"github.com/sigmet-foundation/sigmetraw/lib/rawd"
	"github.com/sigmet-foundation/sigmetraw/lib/sigmet"
)

func daemonCommand() *cli.Command {
	var configPath string
	var strict bool

	return &cli.Command{
		Name:    "daemon",
		Summary: "decode a volume once and serve it over a Unix socket",
		Usage:   "sigmetraw daemon [--config file] [--strict] <socket> <raw_product_file>",
		Description: "Daemon decodes the raw product file into memory and answers\n" +
			"client requests on the socket until a client sends exit or the\n" +
			"process receives SIGINT/SIGTERM. Decoding happens once; every\n" +
			"client request is served from the in-memory volume.",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("daemon", pflag.ContinueOnError)
			fs.StringVar(&configPath, "config", "", "daemon config file (YAML)")
			fs.BoolVar(&strict, "strict", false, "treat soft decoder anomalies as fatal")
			return fs
		},
		Run: func(args []string) error {
			if len(args) != 2 {
				return fmt.Errorf("usage: sigmetraw daemon [--config file] [--strict] <socket> <raw_product_file>")
			}
			return runDaemon(configPath, strict, args[0], args[1])
		},
	}
}

func runDaemon(configPath string, strictFlag bool, socketPath, volumePath string) error {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	cfg.SocketPath = socketPath
	if strictFlag || strictFromEnv() {
		cfg.Strict = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	vol, err := sigmet.LoadVolume(volumePath, sigmet.DecodeOptions{
		Strict: cfg.Strict,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not read volume from %s: %w", volumePath, err)
	}
	logger.Info("volume loaded",
		"path", volumePath,
		"site", vol.Product.End.SiteNameIngest,
		"task", vol.Product.Configuration.TaskName,
		"digest", vol.Digest,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return rawd.NewServer(vol, cfg.SocketPath, logger).Serve(ctx)
}

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
