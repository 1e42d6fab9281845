// Copyright 2026 The Sigmetraw Authors
// SPDX-License-Identifier: Apache-2.0

package sigmet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/pierrec/lz4/v4"
)

func writeTestFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestLoadVolumePlain(t *testing.T) {
	path := writeTestFile(t, "vol.raw", buildSmallStream(smallVolume()))
	vol, err := LoadVolume(path, testOpts())
	if err != nil {
		t.Fatalf("LoadVolume: %v", err)
	}
	if len(vol.Sweeps) != 2 {
		t.Errorf("decoded %d sweeps, want 2", len(vol.Sweeps))
	}
	if len(vol.Digest) != 64 {
		t.Errorf("digest = %q, want 64 hex characters", vol.Digest)
	}
}

func TestLoadVolumeGzip(t *testing.T) {
	stream := buildSmallStream(smallVolume())
	path := filepath.Join(t.TempDir(), "vol.raw.gz")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := gzip.NewWriter(f)
	if _, err := zw.Write(stream); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	f.Close()

	vol, err := LoadVolume(path, testOpts())
	if err != nil {
		t.Fatalf("LoadVolume on gzip input: %v", err)
	}
	if len(vol.Sweeps) != 2 || vol.Types[0].Abbrev != "DB_DBZ" {
		t.Errorf("gzip decode differs from plain: %d sweeps", len(vol.Sweeps))
	}
}

func TestLoadVolumeLZ4(t *testing.T) {
	stream := buildSmallStream(smallVolume())
	path := filepath.Join(t.TempDir(), "vol.raw.lz4")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := lz4.NewWriter(f)
	if _, err := zw.Write(stream); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	f.Close()

	vol, err := LoadVolume(path, testOpts())
	if err != nil {
		t.Fatalf("LoadVolume on lz4 input: %v", err)
	}
	if len(vol.Sweeps) != 2 {
		t.Errorf("lz4 decode differs from plain: %d sweeps", len(vol.Sweeps))
	}
}

// Digests identify the stored bytes: two identical files hash the
// same.
func TestLoadVolumeDigest(t *testing.T) {
	stream := buildSmallStream(smallVolume())
	a := writeTestFile(t, "a.raw", stream)
	b := writeTestFile(t, "b.raw", stream)

	volA, err := LoadVolume(a, testOpts())
	if err != nil {
		t.Fatal(err)
	}
	volB, err := LoadVolume(b, testOpts())
	if err != nil {
		t.Fatal(err)
	}
	if volA.Digest != volB.Digest {
		t.Error("identical files produced different digests")
	}
}
