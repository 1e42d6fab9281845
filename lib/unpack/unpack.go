// Copyright 2026 The Sigmetraw Authors
// SPDX-License-Identifier: Apache-2.0

package unpack

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ErrShortBuffer reports a fixed-width read that ran past the end of
// the buffer. Callers translate it into their own truncation error.
type ErrShortBuffer struct {
	Offset int
	Width  int
	Len    int
}

func (e *ErrShortBuffer) Error() string {
	return fmt.Sprintf("unpack: %d-byte read at offset %d overruns %d-byte buffer",
		e.Width, e.Offset, e.Len)
}

func check(b []byte, off, width int) error {
	if off < 0 || off+width > len(b) {
		return &ErrShortBuffer{Offset: off, Width: width, Len: len(b)}
	}
	return nil
}

// U16 reads an unsigned 16-bit little-endian integer at off.
func U16(b []byte, off int) (uint16, error) {
	if err := check(b, off, 2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b[off:]), nil
}

// U32 reads an unsigned 32-bit little-endian integer at off.
func U32(b []byte, off int) (uint32, error) {
	if err := check(b, off, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[off:]), nil
}

// I16 reads a signed 16-bit little-endian integer at off.
func I16(b []byte, off int) (int16, error) {
	u, err := U16(b, off)
	return int16(u), err
}

// I32 reads a signed 32-bit little-endian integer at off.
func I32(b []byte, off int) (int32, error) {
	u, err := U32(b, off)
	return int32(u), err
}

// Bin2Rad converts a 16-bit binary angle to radians.
func Bin2Rad(u uint16) float64 {
	return float64(u) / 65536 * 2 * math.Pi
}

// Bin4Rad converts a 32-bit binary angle to radians.
func Bin4Rad(u uint32) float64 {
	return float64(u) / 4294967296 * 2 * math.Pi
}

// CopyBits copies n bits from src, starting at absolute bit offset o,
// into dst packed LSB-first. Bit i of the result lands at bit i%8 of
// dst[i/8]; the remainder of the last destination byte is zeroed. dst
// must hold at least (n+7)/8 bytes. Bit offsets address src LSB-first
// within each byte, matching the on-disk order of one-bit-per-bin
// storage types.
func CopyBits(src []byte, o, n int, dst []byte) error {
	if o < 0 || n < 0 || o+n > len(src)*8 {
		return &ErrShortBuffer{Offset: o, Width: n, Len: len(src) * 8}
	}
	need := (n + 7) / 8
	if len(dst) < need {
		return fmt.Errorf("unpack: %d-bit copy needs %d destination bytes, have %d",
			n, need, len(dst))
	}
	for i := 0; i < need; i++ {
		dst[i] = 0
	}
	for i := 0; i < n; i++ {
		pos := o + i
		bit := (src[pos/8] >> (pos % 8)) & 1
		dst[i/8] |= bit << (i % 8)
	}
	return nil
}
