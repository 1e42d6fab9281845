// Copyright 2026 The Sigmetraw Authors
// SPDX-License-Identifier: Apache-2.0

package rawd

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"net"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/sigmet-foundation/sigmetraw/lib/sigmet"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testVolume hand-builds a decoded volume: 2 sweeps, 4 rays, 3 bins,
// one 8-bit reflectivity type. Ray r of sweep s stores bins
// {100+16s+4r, +1, +2}; ray 3 of sweep 1 is absent.
func testVolume() *sigmet.Volume {
	v := &sigmet.Volume{}
	v.Ingest.Task.Scan.NumSweeps = 2
	v.Ingest.Configuration.NumRays = 4
	v.Ingest.Task.Range.NumBinsOut = 3
	v.Ingest.Configuration.RecWGMT = 300
	v.Product.End.Wavelength = 500
	v.Ingest.Task.DSP.PRF = 1000
	v.Ingest.Task.Calib.DBZNoiseThreshold = 160 // 10 dBZ
	v.Types = []*sigmet.DataType{sigmet.DataTypeByAbbrev("DB_DBZ")}
	v.Digest = strings.Repeat("ab", 32)

	for s := 0; s < 2; s++ {
		v.Sweeps = append(v.Sweeps, sigmet.SweepHeader{
			Time:    sigmet.YMDS{Sec: 3600 + int32(s)*60, Year: 2026, Mon: 1, Day: 15},
			Angle:   0.2 + float64(s)*0.1,
			NumRays: 4,
		})
	}

	v.Rays = make([][][]sigmet.Ray, 2)
	var offset int64
	for s := range v.Rays {
		v.Rays[s] = make([][]sigmet.Ray, 4)
		for r := range v.Rays[s] {
			ray := sigmet.Ray{Offset: -1}
			if !(s == 1 && r == 3) {
				base := byte(100 + 16*s + 4*r)
				v.Data = append(v.Data, base, base+1, base+2)
				ray = sigmet.Ray{
					Header: sigmet.RayHeader{
						Az0: float32(r) * 0.5, Az1: float32(r)*0.5 + 0.02,
						NumBins: 3, Time: uint16(r),
					},
					Offset: offset,
					Length: 3,
				}
				offset += 3
			}
			v.Rays[s][r] = []sigmet.Ray{ray}
		}
	}
	return v
}

// startServer runs a daemon on a temp socket and returns a client
// for it. The server is torn down with the test.
func startServer(t *testing.T, vol *sigmet.Volume) (*Client, <-chan error) {
	t.Helper()
	socketPath := filepath.Join(t.TempDir(), "sigmet_raw.sock")
	server := NewServer(vol, socketPath, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx) }()

	// Wait for the socket to exist before letting the test dial it.
	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := os.Stat(socketPath); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("daemon socket never appeared")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return &Client{SocketPath: socketPath}, done
}

// S3: the client reads back a volume-headers value identical to the
// daemon's in-memory one.
func TestServeVolumeHeaders(t *testing.T) {
	vol := testVolume()
	client, _ := startServer(t, vol)

	resp, headers, err := client.VolumeHeaders()
	if err != nil {
		t.Fatalf("VolumeHeaders: %v", err)
	}
	if resp.Status != StatusOkay || resp.NumSweeps != 2 || resp.NumRays != 4 {
		t.Errorf("response = %+v", resp)
	}
	want := vol.Headers()
	if !reflect.DeepEqual(*headers, want) {
		t.Errorf("transferred headers differ from daemon's:\n got %+v\nwant %+v", *headers, want)
	}
}

func TestServeSweepHeaders(t *testing.T) {
	vol := testVolume()
	client, _ := startServer(t, vol)

	resp, records, err := client.SweepHeaders()
	if err != nil {
		t.Fatalf("SweepHeaders: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d sweep records, want 2", len(records))
	}
	for i, rec := range records {
		if math.Abs(rec.Angle-vol.Sweeps[i].Angle) > 1e-12 {
			t.Errorf("sweep %d angle = %g, want %g", i, rec.Angle, vol.Sweeps[i].Angle)
		}
		if math.IsNaN(rec.Time) {
			t.Errorf("sweep %d time is NaN", i)
		}
	}
	if resp.TZ != "UTC-05:00" {
		t.Errorf("TZ = %q, want UTC-05:00", resp.TZ)
	}
}

// S4: all-sweeps ray headers report the volume's sweep count and
// deliver NumSweeps x NumRays records.
func TestServeRayHeadersAll(t *testing.T) {
	vol := testVolume()
	client, _ := startServer(t, vol)

	resp, headers, err := client.RayHeaders("", AllSweeps)
	if err != nil {
		t.Fatalf("RayHeaders: %v", err)
	}
	if resp.NumSweeps != 2 {
		t.Errorf("NumSweeps = %d, want the volume's 2", resp.NumSweeps)
	}
	if len(headers) != 8 {
		t.Fatalf("got %d wide ray headers, want 8", len(headers))
	}
	for i, h := range headers {
		s, r := i/4, i%4
		if s == 1 && r == 3 {
			if h.NumBins != 0 {
				t.Errorf("absent ray has %d bins", h.NumBins)
			}
			continue
		}
		if h.NumBins != 3 {
			t.Errorf("header %d: %d bins, want 3", i, h.NumBins)
		}
		if math.IsNaN(h.Time) {
			t.Errorf("header %d: NaN time for a present ray", i)
		}
	}
}

func TestServeRayHeadersSingleSweep(t *testing.T) {
	vol := testVolume()
	client, _ := startServer(t, vol)

	resp, headers, err := client.RayHeaders("DB_DBZ", 1)
	if err != nil {
		t.Fatalf("RayHeaders: %v", err)
	}
	if resp.NumSweeps != 1 {
		t.Errorf("NumSweeps = %d, want 1 for a single-sweep request", resp.NumSweeps)
	}
	if len(headers) != 4 {
		t.Errorf("got %d headers, want 4", len(headers))
	}
	if math.Abs(resp.SweepTime-vol.SweepTime(1)) > 1e-6 {
		t.Errorf("SweepTime = %f, want sweep 1's %f", resp.SweepTime, vol.SweepTime(1))
	}
}

func TestServeData(t *testing.T) {
	vol := testVolume()
	client, _ := startServer(t, vol)

	resp, values, err := client.Data("DB_DBZ", 0)
	if err != nil {
		t.Fatalf("Data: %v", err)
	}
	if resp.NumSweepBins != 12 {
		t.Errorf("NumSweepBins = %d, want 12", resp.NumSweepBins)
	}
	if len(values) != 12 {
		t.Fatalf("got %d values, want 12", len(values))
	}
	// Bin 0 of ray 0 stores 100: (100-64)/2 = 18 dBZ.
	if math.Abs(float64(values[0])-18) > 1e-6 {
		t.Errorf("values[0] = %g, want 18", values[0])
	}
}

// The absent ray contributes no bins; the sweep's bin count shrinks
// accordingly.
func TestServeDataAbsentRay(t *testing.T) {
	vol := testVolume()
	client, _ := startServer(t, vol)

	resp, values, err := client.Data("DB_DBZ", 1)
	if err != nil {
		t.Fatalf("Data: %v", err)
	}
	if resp.NumSweepBins != 9 || len(values) != 9 {
		t.Errorf("sweep 1 bins = %d (%d values), want 9", resp.NumSweepBins, len(values))
	}
}

func TestServeCorrected(t *testing.T) {
	vol := testVolume()
	client, _ := startServer(t, vol)

	_, plain, err := client.Data("DB_DBZ", 0)
	if err != nil {
		t.Fatal(err)
	}
	_, corrected, err := client.Corrected("DB_DBZ", 0)
	if err != nil {
		t.Fatalf("Corrected: %v", err)
	}
	if len(corrected) != len(plain) {
		t.Fatalf("corrected has %d values, plain %d", len(corrected), len(plain))
	}
	// Everything in the test volume sits above the 10 dBZ threshold,
	// so the correction passes values through.
	for i := range plain {
		if corrected[i] != plain[i] {
			t.Errorf("value %d: corrected %g != plain %g", i, corrected[i], plain[i])
		}
	}
}

// S5: an unregistered abbreviation comes back as an error status with
// the daemon's message on the error channel.
func TestServeUnknownType(t *testing.T) {
	client, _ := startServer(t, testVolume())

	_, _, err := client.Data("DB_BOGUS", 0)
	var daemonErr *DaemonError
	if !errors.As(err, &daemonErr) {
		t.Fatalf("err = %v, want *DaemonError", err)
	}
	if !strings.Contains(daemonErr.Message, "is not a Sigmet data type.") {
		t.Errorf("message = %q, want the data-type complaint", daemonErr.Message)
	}
}

func TestServeTypeNotInVolume(t *testing.T) {
	client, _ := startServer(t, testVolume())
	_, _, err := client.Data("DB_VEL", 0)
	var daemonErr *DaemonError
	if !errors.As(err, &daemonErr) {
		t.Fatalf("err = %v, want *DaemonError", err)
	}
	if !strings.Contains(daemonErr.Message, "not in volume") {
		t.Errorf("message = %q", daemonErr.Message)
	}
}

func TestServeSweepOutOfRange(t *testing.T) {
	client, _ := startServer(t, testVolume())
	_, _, err := client.Data("DB_DBZ", 7)
	var daemonErr *DaemonError
	if !errors.As(err, &daemonErr) {
		t.Fatalf("err = %v, want *DaemonError", err)
	}
	if !strings.Contains(daemonErr.Message, "out of range") {
		t.Errorf("message = %q", daemonErr.Message)
	}
	// Data never accepts the all-sweeps index.
	if _, _, err := client.Data("DB_DBZ", AllSweeps); err == nil {
		t.Error("all-sweeps data request succeeded, want error")
	}
}

func TestServeExit(t *testing.T) {
	client, done := startServer(t, testVolume())
	if err := client.Exit(); err != nil {
		t.Fatalf("Exit: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop after exit request")
	}
}

// A request with the wrong ancillary shape gets an error response,
// not a hung or killed daemon.
func TestServeWrongDescriptorCount(t *testing.T) {
	client, _ := startServer(t, testVolume())

	conn, err := net.Dial("unix", client.SocketPath)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	unixConn := conn.(*net.UnixConn)

	devnull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer devnull.Close()

	req := Request{SubCommand: SubVolumeHeaders}
	oob := unix.UnixRights(int(devnull.Fd())) // one descriptor, not two
	if _, _, err := unixConn.WriteMsgUnix(req.encode(), oob, nil); err != nil {
		t.Fatal(err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	raw := make([]byte, responseSize)
	if _, err := io.ReadFull(conn, raw); err != nil {
		t.Fatalf("reading response: %v", err)
	}
	resp, err := decodeResponse(raw)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Status != StatusError {
		t.Errorf("status = %v, want StatusError", resp.Status)
	}

	// The daemon is still serving.
	if _, _, err := client.VolumeHeaders(); err != nil {
		t.Errorf("daemon unusable after malformed request: %v", err)
	}
}

// A client that closes the bulk channel early never takes the daemon
// down.
func TestServeBrokenBulkChannel(t *testing.T) {
	vol := testVolume()
	client, _ := startServer(t, vol)

	resp, bulk, err := client.call(Request{SubCommand: SubRayHeaders, Sweep: AllSweeps})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Status != StatusOkay {
		t.Fatalf("status = %v", resp.Status)
	}
	bulk.Close() // drop the channel without reading

	// The daemon still answers the next request.
	if _, _, err := client.VolumeHeaders(); err != nil {
		t.Errorf("daemon unusable after early bulk close: %v", err)
	}
}

// Descriptor passing in isolation: what the daemon writes to the
// passed descriptor arrives on the client's pipe.
func TestDescriptorRoundTrip(t *testing.T) {
	dir := t.TempDir()
	socketPath := filepath.Join(dir, "pass.sock")
	listener, err := net.ListenUnix("unix", &net.UnixAddr{Name: socketPath, Net: "unix"})
	if err != nil {
		t.Fatal(err)
	}
	defer listener.Close()

	received := make(chan Request, 1)
	go func() {
		conn, err := listener.AcceptUnix()
		if err != nil {
			return
		}
		defer conn.Close()
		req, errFile, bulkFile, err := receiveRequest(conn)
		if err != nil {
			return
		}
		defer errFile.Close()
		defer bulkFile.Close()
		bulkFile.WriteString("bulk bytes")
		errFile.WriteString("error bytes")
		received <- req
	}()

	conn, err := net.DialUnix("unix", nil, &net.UnixAddr{Name: socketPath, Net: "unix"})
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	errR, errW, _ := os.Pipe()
	bulkR, bulkW, _ := os.Pipe()
	req := Request{SubCommand: SubData, Abbrev: "DB_VEL", Sweep: 2}
	if err := sendRequest(conn, &req, errW.Fd(), bulkW.Fd()); err != nil {
		t.Fatal(err)
	}
	errW.Close()
	bulkW.Close()

	select {
	case got := <-received:
		if got != req {
			t.Errorf("request arrived as %+v, want %+v", got, req)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("request never arrived")
	}

	bulk, _ := io.ReadAll(bulkR)
	bulkR.Close()
	if string(bulk) != "bulk bytes" {
		t.Errorf("bulk channel carried %q", bulk)
	}
	errText, _ := io.ReadAll(errR)
	errR.Close()
	if string(errText) != "error bytes" {
		t.Errorf("error channel carried %q", errText)
	}
}
