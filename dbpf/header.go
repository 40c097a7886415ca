package dbpf

import "encoding/binary"

// HeaderSize is the fixed DBPF v1 header size, per spec.md §3.
const HeaderSize = 96

// preservedPrefixSize and mutableRegionEnd bound the bytes the rewrite
// pipeline is allowed to change: spec.md §4.6 requires bytes [0,36) and
// [60,96) to be byte-identical before and after a rewrite; only [36,60) -
// the index/hole bookkeeping fields - may differ.
const (
	preservedPrefixSize = 36
	mutableRegionEnd    = 60
)

// Header is the 96-byte DBPF v1 archive header, field order per spec.md
// §3. Remainder is the trailing 32 opaque bytes, preserved verbatim.
type Header struct {
	Magic               [4]byte
	MajorVersion        uint32
	MinorVersion        uint32
	MajorUserVersion    uint32
	MinorUserVersion    uint32
	Flags               uint32
	DateCreated         uint32
	DateModified        uint32
	IndexMajorVersion   uint32
	IndexEntryCount     uint32
	IndexLocation       uint32
	IndexSize           uint32
	HoleIndexEntryCount uint32
	HoleIndexLocation   uint32
	HoleIndexSize       uint32
	IndexMinorVersion   uint32
	Remainder           [32]byte
}

// EntryStride returns the per-entry index record size: 5 uint32s (20
// bytes) unless IndexMinorVersion is 2, which adds the resource field (24
// bytes), per spec.md §3.
func (h Header) EntryStride() int {
	if h.IndexMinorVersion == 2 {
		return 6 * 4
	}
	return 5 * 4
}

// Valid checks the version-combination rule from spec.md §4.3: major=1,
// minor in {0,1,2}, index-major=7, index-minor in {0,1,2}.
func (h Header) Valid() bool {
	if h.Magic != [4]byte{'D', 'B', 'P', 'F'} {
		return false
	}
	if h.MajorVersion != 1 {
		return false
	}
	if h.MinorVersion > 2 {
		return false
	}
	if h.IndexMajorVersion != 7 {
		return false
	}
	if h.IndexMinorVersion > 2 {
		return false
	}
	return true
}

// decodeHeader parses a 96-byte buffer into a Header.
func decodeHeader(buf []byte) Header {
	var h Header
	copy(h.Magic[:], buf[0:4])
	h.MajorVersion = binary.LittleEndian.Uint32(buf[4:8])
	h.MinorVersion = binary.LittleEndian.Uint32(buf[8:12])
	h.MajorUserVersion = binary.LittleEndian.Uint32(buf[12:16])
	h.MinorUserVersion = binary.LittleEndian.Uint32(buf[16:20])
	h.Flags = binary.LittleEndian.Uint32(buf[20:24])
	h.DateCreated = binary.LittleEndian.Uint32(buf[24:28])
	h.DateModified = binary.LittleEndian.Uint32(buf[28:32])
	h.IndexMajorVersion = binary.LittleEndian.Uint32(buf[32:36])
	h.IndexEntryCount = binary.LittleEndian.Uint32(buf[36:40])
	h.IndexLocation = binary.LittleEndian.Uint32(buf[40:44])
	h.IndexSize = binary.LittleEndian.Uint32(buf[44:48])
	h.HoleIndexEntryCount = binary.LittleEndian.Uint32(buf[48:52])
	h.HoleIndexLocation = binary.LittleEndian.Uint32(buf[52:56])
	h.HoleIndexSize = binary.LittleEndian.Uint32(buf[56:60])
	h.IndexMinorVersion = binary.LittleEndian.Uint32(buf[60:64])
	copy(h.Remainder[:], buf[64:96])
	return h
}

// encodeInto writes h into buf[0:96].
func (h Header) encodeInto(buf []byte) {
	copy(buf[0:4], h.Magic[:])
	binary.LittleEndian.PutUint32(buf[4:8], h.MajorVersion)
	binary.LittleEndian.PutUint32(buf[8:12], h.MinorVersion)
	binary.LittleEndian.PutUint32(buf[12:16], h.MajorUserVersion)
	binary.LittleEndian.PutUint32(buf[16:20], h.MinorUserVersion)
	binary.LittleEndian.PutUint32(buf[20:24], h.Flags)
	binary.LittleEndian.PutUint32(buf[24:28], h.DateCreated)
	binary.LittleEndian.PutUint32(buf[28:32], h.DateModified)
	binary.LittleEndian.PutUint32(buf[32:36], h.IndexMajorVersion)
	binary.LittleEndian.PutUint32(buf[36:40], h.IndexEntryCount)
	binary.LittleEndian.PutUint32(buf[40:44], h.IndexLocation)
	binary.LittleEndian.PutUint32(buf[44:48], h.IndexSize)
	binary.LittleEndian.PutUint32(buf[48:52], h.HoleIndexEntryCount)
	binary.LittleEndian.PutUint32(buf[52:56], h.HoleIndexLocation)
	binary.LittleEndian.PutUint32(buf[56:60], h.HoleIndexSize)
	binary.LittleEndian.PutUint32(buf[60:64], h.IndexMinorVersion)
	copy(buf[64:96], h.Remainder[:])
}
