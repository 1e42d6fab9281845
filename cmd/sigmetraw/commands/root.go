// Copyright 2026 The Sigmetraw Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands assembles the sigmetraw command tree: a daemon
// that keeps a decoded volume in memory, and one-shot subcommands
// that read either a raw product file directly or a running daemon's
// socket.
package commands

import (
	"github.com/sigmet-foundation/sigmetraw/cmd/sigmetraw/cli"
)

// Root returns the top-level sigmetraw command.
func Root() *cli.Command {
	return &cli.Command{
		Name:    "sigmetraw",
		Summary: "read Sigmet/IRIS raw product volumes",
		Description: "Sigmetraw reads Sigmet/IRIS raw product files and serves their\n" +
			"contents to other programs. Subcommands that take a path accept\n" +
			"either a raw product file (optionally gzip- or lz4-compressed)\n" +
			"or the Unix socket of a running sigmetraw daemon.",
		Subcommands: []*cli.Command{
			daemonCommand(),
			dataCommand(),
			rayHeadersCommand(),
			sweepHeadersCommand(),
			volumeHeadersCommand(),
			exitCommand(),
		},
	}
}
