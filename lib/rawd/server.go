// Copyright 2026 The Sigmetraw Authors
// SPDX-License-Identifier: Apache-2.0

package rawd

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/sigmet-foundation/sigmetraw/lib/codec"
	"github.com/sigmet-foundation/sigmetraw/lib/sigmet"
)

// readTimeout is how long the daemon waits for a connected client to
// send its request. A well-behaved client sends it immediately.
const readTimeout = 30 * time.Second

// writeTimeout bounds the response write on the socket. Bulk-channel
// writes are not bounded; a stalled client stalls only its own
// connection handler.
const writeTimeout = 10 * time.Second

// Server serves one decoded volume over a Unix socket, one request
// per connection. The volume is immutable and shared read-only by
// every connection handler, so no locking is needed.
type Server struct {
	vol        *sigmet.Volume
	socketPath string
	logger     *slog.Logger

	// shutdown is armed by Serve; the exit subcommand fires it.
	shutdown context.CancelFunc

	// activeConnections tracks in-flight handlers so Serve can drain
	// them before returning.
	activeConnections sync.WaitGroup
}

// NewServer creates a daemon for vol listening on socketPath.
func NewServer(vol *sigmet.Volume, socketPath string, logger *slog.Logger) *Server {
	return &Server{
		vol:        vol,
		socketPath: socketPath,
		logger:     logger,
	}
}

// Serve accepts connections until ctx is cancelled or a client sends
// the exit subcommand, then drains active handlers. Any stale socket
// file at the path is removed before listening and the socket file is
// removed on return.
func (s *Server) Serve(ctx context.Context) error {
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket %s: %w", s.socketPath, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.shutdown = cancel

	listener, err := net.ListenUnix("unix", &net.UnixAddr{Name: s.socketPath, Net: "unix"})
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.socketPath, err)
	}
	defer func() {
		listener.Close()
		os.Remove(s.socketPath)
	}()

	// Unblock Accept when the context is cancelled.
	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	s.logger.Info("daemon listening",
		"path", s.socketPath,
		"sweeps", s.vol.NumSweeps(),
		"rays", s.vol.NumRaysPerSweep(),
		"types", s.vol.NumTypes(),
		"digest", s.vol.Digest,
	)

	for {
		conn, err := listener.AcceptUnix()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}

		s.activeConnections.Add(1)
		go func() {
			defer s.activeConnections.Done()
			s.handleConnection(conn)
		}()
	}

	s.activeConnections.Wait()
	return nil
}

// handleConnection processes one request-response cycle. Both shared
// descriptors are closed on every path out of here.
func (s *Server) handleConnection(conn *net.UnixConn) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	req, errFile, bulkFile, err := receiveRequest(conn)
	if err != nil {
		// No error channel to report on; the connection is all there is.
		s.logger.Warn("rejecting request", "error", err)
		s.writeResponse(conn, Response{Status: StatusError, TZ: s.vol.TZ()})
		return
	}
	defer errFile.Close()
	defer bulkFile.Close()

	resp, produce, err := s.dispatch(req)
	if err != nil {
		s.logger.Debug("request failed", "subcommand", req.SubCommand.String(), "error", err)
		s.writeResponse(conn, Response{Status: StatusError, TZ: s.vol.TZ()})
		fmt.Fprintf(errFile, "%v", err)
		return
	}

	// The status and metadata go out before the first bulk byte so
	// the client can size its buffers from the reply.
	s.writeResponse(conn, resp)

	if produce == nil {
		return
	}
	if err := produce(bulkFile); err != nil {
		// A client that closed the bulk channel early is its own
		// problem; the daemon keeps serving.
		if errors.Is(err, syscall.EPIPE) || errors.Is(err, io.ErrClosedPipe) {
			s.logger.Debug("client closed bulk channel early",
				"subcommand", req.SubCommand.String())
		} else {
			s.logger.Warn("bulk write failed",
				"subcommand", req.SubCommand.String(), "error", err)
		}
		fmt.Fprintf(errFile, "writing %s output failed: %v", req.SubCommand, err)
	}
}

func (s *Server) writeResponse(conn *net.UnixConn, resp Response) {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if _, err := conn.Write(resp.encode()); err != nil {
		s.logger.Debug("failed to write response", "error", err)
	}
}

// dispatch validates a request and returns the ready response plus
// the bulk-channel producer.
func (s *Server) dispatch(req Request) (Response, func(io.Writer) error, error) {
	vol := s.vol
	resp := Response{
		Status:    StatusOkay,
		NumSweeps: uint32(vol.NumSweeps()),
		NumRays:   uint32(vol.NumRaysPerSweep()),
		TZ:        vol.TZ(),
		SweepTime: vol.SweepTime(0),
	}

	switch req.SubCommand {
	case SubExit:
		s.logger.Info("exit requested")
		return resp, nil, s.requestShutdown()

	case SubVolumeHeaders:
		return resp, func(w io.Writer) error {
			return codec.NewEncoder(w).Encode(vol.Headers())
		}, nil

	case SubSweepHeaders:
		return resp, s.produceSweepHeaders, nil

	case SubRayHeaders:
		first, last, err := s.sweepRange(req.Sweep)
		if err != nil {
			return Response{}, nil, err
		}
		typeIdx, err := s.resolveType(req.Abbrev)
		if err != nil {
			return Response{}, nil, err
		}
		if req.Sweep != AllSweeps {
			resp.NumSweeps = 1
			resp.SweepTime = vol.SweepTime(first)
		}
		return resp, func(w io.Writer) error {
			return s.produceRayHeaders(w, first, last, typeIdx)
		}, nil

	case SubData, SubCorrected:
		if req.Sweep == AllSweeps || int(req.Sweep) >= vol.NumSweeps() {
			return Response{}, nil, fmt.Errorf("%w: sweep index %d out of range. Volume has %d sweeps.",
				ErrBadArgument, req.Sweep, vol.NumSweeps())
		}
		typeIdx, err := s.resolveType(req.Abbrev)
		if err != nil {
			return Response{}, nil, err
		}
		sweep := int(req.Sweep)
		resp.NumSweeps = 1
		resp.SweepTime = vol.SweepTime(sweep)
		resp.NumSweepBins = s.sweepBinCount(sweep, typeIdx)
		corrected := req.SubCommand == SubCorrected
		return resp, func(w io.Writer) error {
			return s.produceData(w, sweep, typeIdx, corrected)
		}, nil
	}

	return Response{}, nil, fmt.Errorf("%w: unsupported subcommand %d", ErrProtocol, req.SubCommand)
}

// requestShutdown stops the accept loop. Serve drains the current
// handlers, this one included.
func (s *Server) requestShutdown() error {
	if s.shutdown == nil {
		return fmt.Errorf("%w: daemon is not serving", ErrProtocol)
	}
	s.shutdown()
	return nil
}

// resolveType maps an abbreviation to the volume's type slot. Empty
// selects the volume's default (first real) type.
func (s *Server) resolveType(abbrev string) (int, error) {
	if abbrev == "" {
		dt := s.vol.DefaultType()
		if dt == nil {
			return 0, fmt.Errorf("%w: volume has no data types", ErrBadArgument)
		}
		return s.vol.TypeIndex(dt), nil
	}
	dt := sigmet.DataTypeByAbbrev(abbrev)
	if dt == nil {
		return 0, fmt.Errorf("%w: %s is not a Sigmet data type.", ErrBadArgument, abbrev)
	}
	idx := s.vol.TypeIndex(dt)
	if idx < 0 {
		return 0, fmt.Errorf("%w: %s data type is not in volume.", ErrBadArgument, abbrev)
	}
	return idx, nil
}

// sweepRange translates a request sweep index into a [first, last)
// span over the volume's sweep axis.
func (s *Server) sweepRange(sweep uint32) (int, int, error) {
	if sweep == AllSweeps {
		return 0, s.vol.NumSweeps(), nil
	}
	if int(sweep) >= s.vol.NumSweeps() {
		return 0, 0, fmt.Errorf("%w: sweep index %d out of range. Volume has %d sweeps.",
			ErrBadArgument, sweep, s.vol.NumSweeps())
	}
	return int(sweep), int(sweep) + 1, nil
}

func (s *Server) produceSweepHeaders(w io.Writer) error {
	buf := make([]byte, sweepRecordSize)
	for i := 0; i < s.vol.NumSweeps(); i++ {
		rec := SweepRecord{Time: s.vol.SweepTime(i), Angle: math.NaN()}
		if i < len(s.vol.Sweeps) {
			rec.Angle = s.vol.Sweeps[i].Angle
		}
		rec.encode(buf)
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) produceRayHeaders(w io.Writer, first, last, typeIdx int) error {
	vol := s.vol
	buf := make([]byte, WideRayHeaderSize)
	for sw := first; sw < last; sw++ {
		for r := 0; r < vol.NumRaysPerSweep(); r++ {
			var wide WideRayHeader
			wide.Time = math.NaN()
			if sw < len(vol.Sweeps) {
				ray := &vol.Rays[sw][r][typeIdx]
				if !ray.Absent() {
					wide = WideRayHeader{
						Az0:     ray.Header.Az0,
						Tilt0:   ray.Header.Tilt0,
						Az1:     ray.Header.Az1,
						Tilt1:   ray.Header.Tilt1,
						NumBins: ray.Header.NumBins,
						Offset:  uint32(ray.Header.Time),
					}
				}
				wide.Time = vol.RayTime(sw, r)
			}
			wide.encode(buf)
			if _, err := w.Write(buf); err != nil {
				return err
			}
		}
	}
	return nil
}

// sweepBinCount sums the per-ray bin counts of one sweep for one
// type; absent rays contribute zero.
func (s *Server) sweepBinCount(sweep, typeIdx int) uint32 {
	if sweep >= len(s.vol.Sweeps) {
		return 0
	}
	var total uint32
	for r := 0; r < s.vol.NumRaysPerSweep(); r++ {
		ray := &s.vol.Rays[sweep][r][typeIdx]
		if !ray.Absent() {
			total += uint32(ray.Header.NumBins)
		}
	}
	return total
}

// produceData converts one sweep of one type to physical float32
// values and streams them ray by ray.
func (s *Server) produceData(w io.Writer, sweep, typeIdx int, corrected bool) error {
	vol := s.vol
	if sweep >= len(vol.Sweeps) {
		return nil
	}
	dt := vol.Types[typeIdx]
	values := make([]float32, vol.NumBins())
	wire := make([]byte, 4*vol.NumBins())
	for r := 0; r < vol.NumRaysPerSweep(); r++ {
		ray := &vol.Rays[sweep][r][typeIdx]
		if ray.Absent() || ray.Header.NumBins == 0 {
			continue
		}
		n := int(ray.Header.NumBins)
		dt.StorageToValues(vol, n, values[:n], vol.Data[ray.Offset:ray.Offset+int64(ray.Length)])
		for i := 0; i < n; i++ {
			v := values[i]
			if corrected {
				v = dt.Correct(vol, v)
			}
			binary.LittleEndian.PutUint32(wire[4*i:], math.Float32bits(v))
		}
		if _, err := w.Write(wire[:4*n]); err != nil {
			return err
		}
	}
	return nil
}
