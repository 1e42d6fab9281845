// Copyright 2026 The Sigmetraw Authors
// SPDX-License-Identifier: Apache-2.0

package sigmet

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/pierrec/lz4/v4"
	"github.com/zeebo/blake3"
)

// Magic numbers of the compressed containers raw product files
// arrive in from field archives.
var (
	gzipMagic = []byte{0x1f, 0x8b}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
)

// decompressor sniffs the stream's leading bytes and, when it finds a
// gzip or lz4 frame, interposes the matching reader. Plain streams
// pass through.
func decompressor(r io.Reader) (io.Reader, error) {
	br := bufio.NewReaderSize(r, 1<<16)
	head, err := br.Peek(4)
	if err != nil && len(head) < 2 {
		return nil, fmt.Errorf("%w: %v", ErrTruncatedStream, err)
	}
	switch {
	case len(head) >= 2 && head[0] == gzipMagic[0] && head[1] == gzipMagic[1]:
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("gzip input: %w", err)
		}
		return zr, nil
	case len(head) >= 4 && head[0] == lz4Magic[0] && head[1] == lz4Magic[1] &&
		head[2] == lz4Magic[2] && head[3] == lz4Magic[3]:
		return lz4.NewReader(br), nil
	}
	return br, nil
}

// LoadVolume opens and fully decodes the raw product file at path.
// Gzip- and lz4-compressed files are decompressed transparently. The
// volume's Digest is the BLAKE3 hash of the file as stored, compressed
// bytes included; the daemon logs it to identify the loaded file.
func LoadVolume(path string, opts DecodeOptions) (*Volume, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	hasher := blake3.New()
	src, err := decompressor(io.TeeReader(f, hasher))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	vol, err := ReadVolume(src, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	// The decoder stops at the last sweep; hash any remaining bytes
	// so the digest covers the whole file.
	if _, err := io.Copy(hasher, f); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	vol.Digest = hex.EncodeToString(hasher.Sum(nil))
	return vol, nil
}
