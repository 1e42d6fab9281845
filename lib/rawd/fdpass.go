// Copyright 2026 The Sigmetraw Authors
// SPDX-License-Identifier: Apache-2.0

package rawd

import (
	"fmt"
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// Ancillary-data slots of a request. Slot 0 is the error channel,
// slot 1 the bulk channel, matching the protocol's fixed order.
const (
	slotErr = iota
	slotBulk
	numFDSlots
)

// sendRequest writes the request body and the two shared descriptors
// in a single sendmsg. Both descriptors must be valid; callers that
// have no use for one pass a placeholder (see openPlaceholder).
func sendRequest(conn *net.UnixConn, req *Request, errFD, bulkFD uintptr) error {
	oob := unix.UnixRights(int(errFD), int(bulkFD))
	if _, _, err := conn.WriteMsgUnix(req.encode(), oob, nil); err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	return nil
}

// receiveRequest reads one request and takes ownership of the two
// descriptors riding with it. On success the caller must close both
// returned files on every exit path; no descriptor may outlive the
// response. On failure any received descriptors are closed here.
func receiveRequest(conn *net.UnixConn) (Request, *os.File, *os.File, error) {
	body := make([]byte, requestSize)
	oob := make([]byte, unix.CmsgSpace(4*numFDSlots))

	n, oobn, _, _, err := conn.ReadMsgUnix(body, oob)
	if err != nil {
		return Request{}, nil, nil, fmt.Errorf("receiving request: %w", err)
	}

	fds, err := parseRights(oob[:oobn])
	if err != nil {
		return Request{}, nil, nil, err
	}

	req, err := decodeRequest(body[:n])
	if err != nil {
		for _, fd := range fds {
			unix.Close(fd)
		}
		return Request{}, nil, nil, err
	}

	errFile := os.NewFile(uintptr(fds[slotErr]), "request-error-channel")
	bulkFile := os.NewFile(uintptr(fds[slotBulk]), "request-bulk-channel")
	return req, errFile, bulkFile, nil
}

// parseRights decodes the SCM_RIGHTS payload and enforces the
// constant two-descriptor shape.
func parseRights(oob []byte) ([]int, error) {
	scms, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing ancillary data: %v", ErrProtocol, err)
	}
	var fds []int
	for _, scm := range scms {
		got, err := unix.ParseUnixRights(&scm)
		if err != nil {
			continue
		}
		fds = append(fds, got...)
	}
	if len(fds) != numFDSlots {
		for _, fd := range fds {
			unix.Close(fd)
		}
		return nil, fmt.Errorf("%w: request carries %d descriptors, want %d",
			ErrProtocol, len(fds), numFDSlots)
	}
	for _, fd := range fds {
		unix.CloseOnExec(fd)
	}
	return fds, nil
}

// openPlaceholder opens /dev/null for request slots the client does
// not need. The wire always carries two descriptors so the daemon's
// ancillary decode is deterministic.
func openPlaceholder() (*os.File, error) {
	f, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("opening placeholder descriptor: %w", err)
	}
	return f, nil
}
