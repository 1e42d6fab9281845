// Copyright 2026 The Sigmetraw Authors
// SPDX-License-Identifier: Apache-2.0

// Package sigmet reads Sigmet/IRIS raw product volume files.
//
// A raw product file is a sequence of 6144-byte physical records:
// record #1 holds the product header, record #2 the ingest header
// (including the task configuration), and the remaining records hold
// sweeps of run-length-compressed rays. ReadVolume scans the file in
// one forward pass and produces an immutable Volume: the decoded
// headers, the ordered data-type list resolved from the DSP data mask,
// per-sweep and per-ray headers, and a single contiguous sample buffer
// holding every bin's storage-form value.
//
// The package also carries the data-type registry: the 89 IRIS
// measurement slots, each with its mask bit, datum width, print
// format, and storage-to-physical conversion. The decoder consumes
// the registry only through the DataType value, never by branching on
// a concrete type.
//
// Field names and struct nesting follow the IRIS Programmer's Manual;
// values taken directly from the file keep the manual's units (binary
// angles, 1/100 dBZ, centimeters), derived values are SI.
package sigmet
