// Package dbpf implements the DBPF v1 container: header/index/CLST/hole
// parsing (Reader), emission (Writer), and the round-trip validator that
// gates an in-place rewrite (spec.md §3-§4).
package dbpf

// Archive is the in-memory descriptor a Reader produces: a header, the
// ordered entries (excluding the synthetic CLST entry), the set of
// compressed-entry claims from the CLST table, and the hole list.
//
// Descriptors have no shared ownership across archives; each file is
// processed independently (spec.md §3 "Lifecycle").
type Archive struct {
	Path   string // display path, for diagnostics only
	Header Header

	Entries []Entry
	CLST    map[TGIR]uint32 // TGIR -> uncompressed_size, from the CLST table
	Holes   []Hole

	// Unpacked is false when the reader rejected the file outright; no
	// partial state is exposed in that case (spec.md §4.3).
	Unpacked bool

	// AlreadyProcessed is set when the signature hole matches the
	// requested operation and the embedded file size matches the actual
	// file size (spec.md §4.3 step 4, §8 scenario 6).
	AlreadyProcessed bool
}

// EntryByTGIR finds an entry by identity. When several entries share the
// TGIR, it returns the first of them.
func (a *Archive) EntryByTGIR(t TGIR) (*Entry, bool) {
	for i := range a.Entries {
		if a.Entries[i].TGIR == t {
			return &a.Entries[i], true
		}
	}
	return nil, false
}
