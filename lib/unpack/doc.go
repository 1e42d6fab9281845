// Copyright 2026 The Sigmetraw Authors
// SPDX-License-Identifier: Apache-2.0

// Package unpack decodes the primitive encodings used by Sigmet/IRIS
// raw product files: little-endian integers at byte offsets, unsigned
// "binary angles" (fractions of a full turn), and right-packed bit
// extraction for one-bit-per-bin storage types.
//
// Everything in a raw product file is little-endian; signed fields are
// two's complement. An N-bit binary angle with value u represents
// u / 2^N of a full turn.
package unpack
