// Copyright 2026 The Sigmetraw Authors
// SPDX-License-Identifier: Apache-2.0

// Package rawd implements the daemon/client protocol that shares one
// decoded volume with many short-lived client processes.
//
// The daemon listens on a Unix stream socket and serves one request
// per connection. A request is a single sendmsg: a fixed 24-byte
// triple (subcommand, data type abbreviation, sweep index) plus
// exactly two file descriptors as SCM_RIGHTS ancillary data — slot 0
// the error channel, slot 1 the bulk channel. Clients that do not
// need a channel still pass a placeholder descriptor so the wire
// shape is constant and the daemon can decode ancillary data
// deterministically.
//
// The daemon replies on the socket with a fixed seven-slot response
// (status, sweep count, ray count, sweep bin count, sweep time, time
// zone, reserved flag), then writes the requested artifact to the
// bulk descriptor and failure detail to the error descriptor. The
// response always precedes the first bulk byte, so a client may size
// its buffers from the reply.
//
// The server holds the volume read-only; requests never mutate shared
// state and need no locking.
package rawd
