// Copyright 2026 The Sigmetraw Authors
// SPDX-License-Identifier: Apache-2.0

package unpack

import (
	"math"
	"testing"
)

func TestU16LittleEndian(t *testing.T) {
	b := []byte{0x34, 0x12, 0xff, 0x7f}
	got, err := U16(b, 0)
	if err != nil {
		t.Fatalf("U16: %v", err)
	}
	if got != 0x1234 {
		t.Errorf("U16 = %#x, want 0x1234", got)
	}
	if _, err := U16(b, 3); err == nil {
		t.Error("U16 past end of buffer: want error, got nil")
	}
}

func TestI32Negative(t *testing.T) {
	b := []byte{0xff, 0xff, 0xff, 0xff}
	got, err := I32(b, 0)
	if err != nil {
		t.Fatalf("I32: %v", err)
	}
	if got != -1 {
		t.Errorf("I32 = %d, want -1", got)
	}
}

func TestU32ShortBuffer(t *testing.T) {
	if _, err := U32([]byte{1, 2, 3}, 0); err == nil {
		t.Error("U32 on 3-byte buffer: want error, got nil")
	}
}

// Round trip: converting a binary angle to radians and back recovers
// the original code to within half a count.
func TestBin2RadRoundTrip(t *testing.T) {
	for u := 0; u <= math.MaxUint16; u++ {
		rad := Bin2Rad(uint16(u))
		back := rad / (2 * math.Pi) * 65536
		if diff := math.Abs(back - float64(u)); diff >= 0.5 {
			t.Fatalf("Bin2Rad(%d) round trip off by %g", u, diff)
		}
		if rad < 0 || rad >= 2*math.Pi {
			t.Fatalf("Bin2Rad(%d) = %g outside [0, 2pi)", u, rad)
		}
	}
}

func TestBin4RadRoundTrip(t *testing.T) {
	codes := []uint32{0, 1, 0x8000, 0xffff, 0x10000, 0x80000000, 0xfffffffe, 0xffffffff}
	for _, u := range codes {
		rad := Bin4Rad(u)
		back := rad / (2 * math.Pi) * 4294967296
		if diff := math.Abs(back - float64(u)); diff >= 0.5 {
			t.Errorf("Bin4Rad(%d) round trip off by %g", u, diff)
		}
	}
}

func TestCopyBitsAligned(t *testing.T) {
	src := []byte{0xab, 0xcd}
	dst := make([]byte, 1)
	if err := CopyBits(src, 8, 8, dst); err != nil {
		t.Fatalf("CopyBits: %v", err)
	}
	if dst[0] != 0xcd {
		t.Errorf("aligned byte copy = %#x, want 0xcd", dst[0])
	}
}

func TestCopyBitsUnaligned(t *testing.T) {
	src := []byte{0xb5, 0x01}
	dst := make([]byte, 1)

	// 4 bits starting at bit 3 of 0xb5: bits 3..6 are 0,1,1,0 -> 0x6.
	if err := CopyBits(src, 3, 4, dst); err != nil {
		t.Fatalf("CopyBits: %v", err)
	}
	if dst[0] != 0x6 {
		t.Errorf("CopyBits(3,4) = %#x, want 0x6", dst[0])
	}

	// 6 bits spanning the byte boundary: bits 6..11 of 0x01b5.
	if err := CopyBits(src, 6, 6, dst); err != nil {
		t.Fatalf("CopyBits: %v", err)
	}
	want := byte((0x01b5 >> 6) & 0x3f)
	if dst[0] != want {
		t.Errorf("CopyBits(6,6) = %#x, want %#x", dst[0], want)
	}
}

// High bits of the last output byte are always zero, whatever was in
// dst beforehand.
func TestCopyBitsZeroFill(t *testing.T) {
	src := []byte{0xff, 0xff}
	dst := []byte{0xee, 0xee}
	if err := CopyBits(src, 0, 11, dst); err != nil {
		t.Fatalf("CopyBits: %v", err)
	}
	if dst[0] != 0xff {
		t.Errorf("dst[0] = %#x, want 0xff", dst[0])
	}
	if dst[1] != 0x07 {
		t.Errorf("dst[1] = %#x, want 0x07 (high bits zero-filled)", dst[1])
	}
}

func TestCopyBitsBounds(t *testing.T) {
	src := []byte{0xff}
	if err := CopyBits(src, 4, 8, make([]byte, 1)); err == nil {
		t.Error("CopyBits past source end: want error, got nil")
	}
	if err := CopyBits(src, 0, 8, nil); err == nil {
		t.Error("CopyBits with short destination: want error, got nil")
	}
	if err := CopyBits(src, 0, 0, nil); err != nil {
		t.Errorf("CopyBits of zero bits: %v", err)
	}
}
