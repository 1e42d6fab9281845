// Copyright 2026 The Sigmetraw Authors
// SPDX-License-Identifier: Apache-2.0

package rawd

import (
	"fmt"
	"io"
	"math"
	"net"
	"os"
	"strings"
	"time"

	"github.com/sigmet-foundation/sigmetraw/lib/codec"
	"github.com/sigmet-foundation/sigmetraw/lib/sigmet"
)

// dialTimeout covers only the connect phase.
const dialTimeout = 5 * time.Second

// responseReadTimeout is how long the client waits for the daemon's
// reply after sending the request.
const responseReadTimeout = 45 * time.Second

// DaemonError is returned when the daemon answers with an error
// status. Message is the text the daemon wrote to the error channel.
type DaemonError struct {
	SubCommand SubCommand
	Message    string
}

func (e *DaemonError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("daemon rejected %s request", e.SubCommand)
	}
	return e.Message
}

// Client talks to a volume daemon. Each call opens a new connection,
// matching the daemon's one-request-per-connection model.
type Client struct {
	SocketPath string
}

// call connects, sends the request with a fresh pipe pair for the
// error and bulk channels, and reads the response. On an okay status
// the returned reader streams the bulk channel and must be closed by
// the caller. On an error status the daemon's message comes back as
// a *DaemonError.
func (c *Client) call(req Request) (Response, io.ReadCloser, error) {
	conn, err := net.DialTimeout("unix", c.SocketPath, dialTimeout)
	if err != nil {
		return Response{}, nil, fmt.Errorf("connecting to daemon at %s: %w", c.SocketPath, err)
	}
	defer conn.Close()
	unixConn := conn.(*net.UnixConn)

	errR, errW, err := os.Pipe()
	if err != nil {
		return Response{}, nil, fmt.Errorf("creating error channel: %w", err)
	}
	bulkR, bulkW, err := os.Pipe()
	if err != nil {
		errR.Close()
		errW.Close()
		return Response{}, nil, fmt.Errorf("creating bulk channel: %w", err)
	}

	sendErr := sendRequest(unixConn, &req, errW.Fd(), bulkW.Fd())
	// The daemon holds its own copies now; only the read ends stay.
	errW.Close()
	bulkW.Close()
	if sendErr != nil {
		errR.Close()
		bulkR.Close()
		return Response{}, nil, sendErr
	}

	conn.SetReadDeadline(time.Now().Add(responseReadTimeout))
	raw := make([]byte, responseSize)
	if _, err := io.ReadFull(conn, raw); err != nil {
		errR.Close()
		bulkR.Close()
		return Response{}, nil, fmt.Errorf("reading response: %w", err)
	}
	resp, err := decodeResponse(raw)
	if err != nil {
		errR.Close()
		bulkR.Close()
		return Response{}, nil, err
	}

	if resp.Status != StatusOkay {
		bulkR.Close()
		detail, _ := io.ReadAll(errR)
		errR.Close()
		return resp, nil, &DaemonError{
			SubCommand: req.SubCommand,
			Message:    strings.TrimSpace(string(detail)),
		}
	}

	errR.Close()
	return resp, bulkR, nil
}

// Exit asks the daemon to shut down. The request carries placeholder
// descriptors; the protocol's two-descriptor shape holds for every
// subcommand.
func (c *Client) Exit() error {
	conn, err := net.DialTimeout("unix", c.SocketPath, dialTimeout)
	if err != nil {
		return fmt.Errorf("connecting to daemon at %s: %w", c.SocketPath, err)
	}
	defer conn.Close()
	unixConn := conn.(*net.UnixConn)

	placeholder, err := openPlaceholder()
	if err != nil {
		return err
	}
	defer placeholder.Close()

	req := Request{SubCommand: SubExit}
	if err := sendRequest(unixConn, &req, placeholder.Fd(), placeholder.Fd()); err != nil {
		return err
	}

	conn.SetReadDeadline(time.Now().Add(responseReadTimeout))
	raw := make([]byte, responseSize)
	if _, err := io.ReadFull(conn, raw); err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	resp, err := decodeResponse(raw)
	if err != nil {
		return err
	}
	if resp.Status != StatusOkay {
		return &DaemonError{SubCommand: SubExit}
	}
	return nil
}

// VolumeHeaders fetches the daemon's decoded volume headers. A
// client built from the same core reads back a value identical to
// the daemon's.
func (c *Client) VolumeHeaders() (Response, *sigmet.VolumeHeaders, error) {
	resp, bulk, err := c.call(Request{SubCommand: SubVolumeHeaders})
	if err != nil {
		return resp, nil, err
	}
	defer bulk.Close()

	var headers sigmet.VolumeHeaders
	if err := codec.NewDecoder(bulk).Decode(&headers); err != nil {
		return resp, nil, fmt.Errorf("decoding volume headers: %w", err)
	}
	return resp, &headers, nil
}

// SweepHeaders fetches every sweep-header record.
func (c *Client) SweepHeaders() (Response, []SweepRecord, error) {
	resp, bulk, err := c.call(Request{SubCommand: SubSweepHeaders})
	if err != nil {
		return resp, nil, err
	}
	defer bulk.Close()

	records := make([]SweepRecord, resp.NumSweeps)
	buf := make([]byte, sweepRecordSize)
	for i := range records {
		if _, err := io.ReadFull(bulk, buf); err != nil {
			return resp, nil, fmt.Errorf("reading sweep header %d: %w", i, err)
		}
		records[i] = decodeSweepRecord(buf)
	}
	return resp, records, nil
}

// RayHeaders fetches wide ray headers for one sweep, or for every
// sweep with AllSweeps. The abbreviation may be empty for the
// volume's default type. The returned slice holds
// NumSweeps x NumRays records in sweep-major order.
func (c *Client) RayHeaders(abbrev string, sweep uint32) (Response, []WideRayHeader, error) {
	resp, bulk, err := c.call(Request{SubCommand: SubRayHeaders, Abbrev: abbrev, Sweep: sweep})
	if err != nil {
		return resp, nil, err
	}
	defer bulk.Close()

	count := int(resp.NumSweeps) * int(resp.NumRays)
	headers := make([]WideRayHeader, count)
	buf := make([]byte, WideRayHeaderSize)
	for i := range headers {
		if _, err := io.ReadFull(bulk, buf); err != nil {
			return resp, nil, fmt.Errorf("reading ray header %d: %w", i, err)
		}
		headers[i] = DecodeWideRayHeader(buf)
	}
	return resp, headers, nil
}

// Data fetches one sweep of one type as physical float32 values,
// rays concatenated in order.
func (c *Client) Data(abbrev string, sweep uint32) (Response, []float32, error) {
	return c.data(SubData, abbrev, sweep)
}

// Corrected is Data with the per-type correction pipeline applied.
func (c *Client) Corrected(abbrev string, sweep uint32) (Response, []float32, error) {
	return c.data(SubCorrected, abbrev, sweep)
}

// DataTo asks the daemon to write one sweep of physical float32
// values directly to bulk — typically the caller's stdout, so the
// bytes never pass through this process. The daemon writes after the
// response, so on return the transfer is underway but not complete;
// it finishes when the daemon closes its copy of the descriptor.
func (c *Client) DataTo(abbrev string, sweep uint32, bulk *os.File) (Response, error) {
	conn, err := net.DialTimeout("unix", c.SocketPath, dialTimeout)
	if err != nil {
		return Response{}, fmt.Errorf("connecting to daemon at %s: %w", c.SocketPath, err)
	}
	defer conn.Close()
	unixConn := conn.(*net.UnixConn)

	errR, errW, err := os.Pipe()
	if err != nil {
		return Response{}, fmt.Errorf("creating error channel: %w", err)
	}
	defer errR.Close()

	req := Request{SubCommand: SubData, Abbrev: abbrev, Sweep: sweep}
	sendErr := sendRequest(unixConn, &req, errW.Fd(), bulk.Fd())
	errW.Close()
	if sendErr != nil {
		return Response{}, sendErr
	}

	conn.SetReadDeadline(time.Now().Add(responseReadTimeout))
	raw := make([]byte, responseSize)
	if _, err := io.ReadFull(conn, raw); err != nil {
		return Response{}, fmt.Errorf("reading response: %w", err)
	}
	resp, err := decodeResponse(raw)
	if err != nil {
		return Response{}, err
	}
	if resp.Status != StatusOkay {
		detail, _ := io.ReadAll(errR)
		return resp, &DaemonError{
			SubCommand: SubData,
			Message:    strings.TrimSpace(string(detail)),
		}
	}
	return resp, nil
}

func (c *Client) data(sub SubCommand, abbrev string, sweep uint32) (Response, []float32, error) {
	resp, bulk, err := c.call(Request{SubCommand: sub, Abbrev: abbrev, Sweep: sweep})
	if err != nil {
		return resp, nil, err
	}
	defer bulk.Close()

	wire := make([]byte, 4*int(resp.NumSweepBins))
	if _, err := io.ReadFull(bulk, wire); err != nil {
		return resp, nil, fmt.Errorf("reading sweep data: %w", err)
	}
	values := make([]float32, resp.NumSweepBins)
	for i := range values {
		bits := uint32(wire[4*i]) | uint32(wire[4*i+1])<<8 |
			uint32(wire[4*i+2])<<16 | uint32(wire[4*i+3])<<24
		values[i] = math.Float32frombits(bits)
	}
	return resp, values, nil
}
