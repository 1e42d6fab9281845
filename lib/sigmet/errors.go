// Copyright 2026 The Sigmetraw Authors
// SPDX-License-Identifier: Apache-2.0

package sigmet

import "errors"

// Error kinds returned by the decoder. Wrapped with context at each
// failure site; match with errors.Is.
var (
	// ErrTruncatedStream means the source ended mid-record or a
	// literal-copy token demanded more words than the file provides.
	ErrTruncatedStream = errors.New("truncated raw product stream")

	// ErrMalformedHeader means a header value violates a declared
	// range: zero bins out, more than MaxSweeps sweeps, an empty
	// data mask.
	ErrMalformedHeader = errors.New("malformed raw product header")

	// ErrUnknownDataType means a bit was set in the data mask with no
	// registered descriptor. During decoding this is fatal only in
	// strict mode; otherwise the slot is logged and skipped.
	ErrUnknownDataType = errors.New("unknown data type")
)
