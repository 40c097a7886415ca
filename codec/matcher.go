package codec

// Matcher finds back-references for the QFS encoder. The encoder is
// decoupled from match search through this interface (spec.md §4.2) so the
// primary hash-chain strategy and the simpler hash-map strategy can be
// swapped without touching the token-emission logic in qfs.go.
//
// Grounded on original_source/practice/chain.h (multi-entry hash chain) and
// original_source/practice/map_single.h (single-entry hash map): the
// original keeps these as distinct, interchangeable index structures, which
// this interface preserves.
type Matcher interface {
	// Reset prepares the matcher to search over buf from scratch.
	Reset(buf []byte)

	// AdvanceTo registers every input position in [lastAdvanced, pos) in
	// the index. Call this before LongestMatch(pos) so pos's own bytes are
	// not yet searchable (a match can't reference itself), and again after
	// consuming a match so the skipped positions become searchable too.
	AdvanceTo(pos int)

	// LongestMatch returns the best back-reference starting at pos, or
	// length 0 if none qualifies. The hash-chain implementation only keeps
	// candidates that pass Profitable; the hash-map implementation does
	// not check it, so callers still filter with Profitable.
	LongestMatch(pos int) (length, offset int)
}

const maxWindow = 1 << 17 // 131072, per spec.md §4.2

// Profitable reports whether a candidate (length, offset) match is worth
// encoding as a back-reference rather than literal bytes, per spec.md
// §4.1's token-format minimums:
//
//	offset <= 1024                => length >= 3
//	offset <= 16384                => length >= 4
//	offset <= 131072 (maxWindow)    => length >= 5
func Profitable(length, offset int) bool {
	if offset <= 0 || length < minMatchLen {
		return false
	}
	switch {
	case offset <= formAMaxO:
		return length >= formAMinC
	case offset <= formBMaxO:
		return length >= formBMinC
	case offset <= formCMaxO:
		return length >= formCMinC
	default:
		return false
	}
}

// matchLen extends a candidate match byte-by-byte from pos, capped at
// min(remaining input, 1028) as spec.md §4.2 requires. Run-length matches
// (cand within [pos-offset, pos)) are intentional: the byte-by-byte
// comparison naturally replicates overlapping regions.
func matchLen(buf []byte, pos, cand int) int {
	max := len(buf) - pos
	if max > formCMaxC {
		max = formCMaxC
	}
	n := 0
	for n < max && buf[cand+n] == buf[pos+n] {
		n++
	}
	return n
}
