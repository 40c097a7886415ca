// Package codec implements the QFS/Refpack LZ77 variant used throughout
// DBPF archives: a byte-accurate encoder/decoder with four token
// encodings, strict literal-run alignment, and the 0x10 0xFB marker that
// doubles as the compressed/uncompressed discriminator (spec.md §4.1).
package codec

const (
	// HeaderSize is the fixed 9-byte QFS stream header.
	HeaderSize = 9

	maxUncompressedSize = 1<<24 - 1 // 3-byte big-endian field
)

// IsCompressed reports whether body carries the 0x10 0xFB marker at
// offsets 4..5, the authoritative compressed/uncompressed discriminator
// per spec.md §3 and §6. It does not validate the rest of the stream.
func IsCompressed(body []byte) bool {
	return len(body) >= HeaderSize && body[4] == markerHi && body[5] == markerLo
}

// UncompressedSize reads the 24-bit big-endian uncompressed-size field
// from a QFS stream header. Callers must have already checked IsCompressed.
func UncompressedSize(body []byte) int {
	return int(body[6])<<16 | int(body[7])<<8 | int(body[8])
}

// Compress encodes src with the recommended hash-chain matcher. It returns
// nil if compression would not beat len(src)-1 bytes, per spec.md §4.1's
// "never ≥ input length" failure rule; callers store the entry
// uncompressed in that case.
func Compress(src []byte) []byte {
	return CompressWithMatcher(src, NewHashChainMatcher())
}

// CompressWithMatcher encodes src using the supplied Matcher, letting
// callers trade compression ratio for speed (spec.md §4.2's hash-chain vs.
// hash-map variants).
func CompressWithMatcher(src []byte, m Matcher) []byte {
	n := len(src)
	if n == 0 || n > maxUncompressedSize {
		return nil
	}

	m.Reset(src)
	body := make([]byte, 0, n)

	pos := 0
	litStart := 0
	for pos < n {
		m.AdvanceTo(pos)
		length, offset := 0, 0
		if pos > 0 {
			length, offset = m.LongestMatch(pos)
		}
		if !Profitable(length, offset) {
			pos++
			continue
		}

		var remainder int
		body, remainder = flushBulkLiterals(body, src, litStart, pos)
		body = appendMatchToken(body, remainder, length, offset)
		body = append(body, src[pos-remainder:pos]...)

		pos += length
		m.AdvanceTo(pos)
		litStart = pos
	}

	var remainder int
	body, remainder = flushBulkLiterals(body, src, litStart, n)
	body = appendTrailingLiteralToken(body, remainder)
	body = append(body, src[n-remainder:n]...)

	total := HeaderSize + len(body)
	if total >= n {
		return nil
	}

	out := make([]byte, HeaderSize, total)
	out[0] = byte(total >> 24)
	out[1] = byte(total >> 16)
	out[2] = byte(total >> 8)
	out[3] = byte(total)
	out[4] = markerHi
	out[5] = markerLo
	out[6] = byte(n >> 16)
	out[7] = byte(n >> 8)
	out[8] = byte(n)
	out = append(out, body...)
	return out
}

// flushBulkLiterals appends as many multiple-of-4, <=112-byte literal-only
// tokens as needed to cover src[start:end], per spec.md §4.1's mandatory
// alignment rule, and returns the 0..3-byte remainder left for the caller
// to attach to the next match token or the stream trailer.
func flushBulkLiterals(dst []byte, src []byte, start, end int) (newDst []byte, remainder int) {
	total := end - start
	full := total - total%longLitUnit
	pos := start
	for full > 0 {
		chunk := full
		if chunk > longLitMax {
			chunk = longLitMax
		}
		dst = appendLongLiteralToken(dst, chunk)
		dst = append(dst, src[pos:pos+chunk]...)
		pos += chunk
		full -= chunk
	}
	return dst, total % longLitUnit
}

// Decompress decodes a QFS stream produced by Compress (or the game's own
// encoder). It returns ErrBadMarker if body lacks the 0x10 0xFB marker,
// and a decoder hard-failure error (spec.md §7.3) if any token's literal
// or match copy would overflow the declared uncompressed size.
func Decompress(body []byte) ([]byte, error) {
	if !IsCompressed(body) {
		return nil, ErrBadMarker
	}
	size := UncompressedSize(body)
	dst := make([]byte, 0, size)

	pos := HeaderSize
	for {
		tok, err := decodeToken(body, pos)
		if err != nil {
			return nil, err
		}
		pos += tok.size

		if tok.plain > 0 {
			if pos+tok.plain > len(body) {
				return nil, ErrTruncatedStream
			}
			if len(dst)+tok.plain > size {
				return nil, ErrLiteralOverflow
			}
			dst = append(dst, body[pos:pos+tok.plain]...)
			pos += tok.plain
		}

		switch tok.form {
		case formLiteralTrail:
			if len(dst) != size {
				return nil, ErrSizeMismatch
			}
			return dst, nil
		case formLiteralLong:
			continue
		}

		if tok.offset > len(dst) || tok.offset <= 0 {
			return nil, ErrMatchOverflow
		}
		if len(dst)+tok.copyLen > size {
			return nil, ErrMatchOverflow
		}
		// Byte-stepped on purpose: length > offset is a valid run-length
		// match and a bulk copy would corrupt it (spec.md §9).
		for i := 0; i < tok.copyLen; i++ {
			dst = append(dst, dst[len(dst)-tok.offset])
		}
	}
}
