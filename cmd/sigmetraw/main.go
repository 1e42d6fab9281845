// Copyright 2026 The Sigmetraw Authors
// SPDX-License-Identifier: Apache-2.0

// Sigmetraw reads Sigmet/IRIS raw product volume files and serves
// their contents to other programs, either directly from a file or
// through a long-lived daemon that keeps the decoded volume in
// memory and answers short-lived clients over a Unix socket.
package main

import (
	"fmt"
	"os"

	"github.com/sigmet-foundation/sigmetraw/cmd/sigmetraw/commands"
)

func main() {
	if err := commands.Root().Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", commands.ProgramName(), err)
		os.Exit(1)
	}
}
