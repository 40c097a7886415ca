package codec

import "errors"

// Decoder hard-failures (spec.md §7.3): a malformed stream that would
// overflow a literal or match copy. The archive that produced it is kept
// as-is by the caller; validation is expected to then fail that archive.
var (
	// ErrTruncatedStream indicates a control byte demanded more bytes than
	// the input contains.
	ErrTruncatedStream = errors.New("qfs: truncated stream")
	// ErrBadMarker indicates the 0x10 0xFB marker is missing from a buffer
	// callers claimed was a compressed QFS stream.
	ErrBadMarker = errors.New("qfs: missing 0x10 0xFB marker")
	// ErrLiteralOverflow indicates a literal copy would run past the
	// destination buffer bounds.
	ErrLiteralOverflow = errors.New("qfs: literal copy overflows destination")
	// ErrMatchOverflow indicates a match copy would run past the
	// destination buffer bounds, or reference bytes before the start of
	// the output.
	ErrMatchOverflow = errors.New("qfs: match copy overflows destination")
	// ErrSizeMismatch indicates the decoded length did not match the
	// uncompressed size recorded in the stream header.
	ErrSizeMismatch = errors.New("qfs: decoded size does not match header")
)
