// Copyright 2026 The Sigmetraw Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"

	"github.com/sigmet-foundation/sigmetraw/cmd/sigmetraw/cli"
	"github.com/sigmet-foundation/sigmetraw/lib/rawd"
)

func exitCommand() *cli.Command {
	return &cli.Command{
		Name:    "exit",
		Summary: "ask a running daemon to shut down",
		Usage:   "sigmetraw exit <socket>",
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("usage: sigmetraw exit <socket>")
			}
			client := &rawd.Client{SocketPath: args[0]}
			if err := client.Exit(); err != nil {
				return fmt.Errorf("daemon at socket %s did not exit: %w", args[0], err)
			}
			return nil
		},
	}
}
