package dbpf

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/qfstools/dbpfrecompress/codec"
)

// Read parses an archive's header, index, CLST, and hole index into an
// Archive descriptor (spec.md §4.3). Entry bodies are not loaded here -
// only the 9-byte QFS header of entries the CLST claims are compressed is
// peeked, to set Entry.Compressed/UncompressedSize.
//
// checkSignature controls whether the already-processed shortcut (spec.md
// §4.3 step 4) is evaluated; pipelines validating a freshly written temp
// file pass false so a stale signature never short-circuits validation.
//
// On any failure the returned Archive has Unpacked == false and exposes no
// partial state, per spec.md §4.3's closing paragraph.
func Read(src io.ReaderAt, size int64, path string, op Op, checkSignature bool) (*Archive, error) {
	fail := func(err error) (*Archive, error) {
		return &Archive{Path: path}, fmt.Errorf("%s: %w", path, err)
	}

	if size < 64 {
		return fail(ErrTooShort)
	}
	hdrBuf := make([]byte, HeaderSize)
	if _, err := src.ReadAt(hdrBuf, 0); err != nil {
		return fail(fmt.Errorf("read header: %w", err))
	}
	header := decodeHeader(hdrBuf)
	if header.Magic != [4]byte{'D', 'B', 'P', 'F'} {
		return fail(ErrBadMagic)
	}
	if !header.Valid() {
		return fail(ErrBadVersion)
	}

	if _, ok := addUint32Bounds(header.IndexLocation, header.IndexSize, size); !ok {
		return fail(ErrIndexOutOfBounds)
	}
	if _, ok := addUint32Bounds(header.HoleIndexLocation, header.HoleIndexSize, size); !ok {
		return fail(ErrHoleOutOfBounds)
	}

	stride := header.EntryStride()
	if int64(header.IndexEntryCount)*int64(stride) != int64(header.IndexSize) {
		return fail(ErrIndexSizeMismatch)
	}

	arc := &Archive{Path: path, Header: header}

	holes, err := readHoles(src, header)
	if err != nil {
		return fail(err)
	}
	arc.Holes = holes

	if checkSignature {
		if sig, fileSize, ok := singleSignatureHole(src, holes); ok {
			if sig == ExpectedSignature(op) && fileSize == uint32(size) {
				arc.Unpacked = true
				arc.AlreadyProcessed = true
				return arc, nil
			}
		}
	}

	indexBuf := make([]byte, header.IndexSize)
	if header.IndexSize > 0 {
		if _, err := src.ReadAt(indexBuf, int64(header.IndexLocation)); err != nil && err != io.EOF {
			return fail(fmt.Errorf("read index: %w", err))
		}
	}

	type rawEntry struct {
		t        TGIR
		location uint32
		fileSize uint32
	}
	raws := make([]rawEntry, 0, header.IndexEntryCount)
	for i := 0; i < int(header.IndexEntryCount); i++ {
		rec := indexBuf[i*stride : (i+1)*stride]
		var t TGIR
		t.Type = binary.LittleEndian.Uint32(rec[0:4])
		t.Group = binary.LittleEndian.Uint32(rec[4:8])
		t.Instance = binary.LittleEndian.Uint32(rec[8:12])
		off := 12
		if stride == 6*4 {
			t.Resource = binary.LittleEndian.Uint32(rec[12:16])
			off = 16
		}
		loc := binary.LittleEndian.Uint32(rec[off : off+4])
		sz := binary.LittleEndian.Uint32(rec[off+4 : off+8])
		raws = append(raws, rawEntry{t: t, location: loc, fileSize: sz})
	}

	arc.CLST = map[TGIR]uint32{}
	var clstLoc, clstSize uint32
	haveCLST := false
	var entries []Entry
	for _, r := range raws {
		if r.t == CLST {
			clstLoc, clstSize = r.location, r.fileSize
			haveCLST = true
			continue
		}
		entries = append(entries, Entry{TGIR: r.t, Location: r.location, FileSize: r.fileSize})
	}

	if haveCLST && clstSize > 0 {
		clstBuf := make([]byte, clstSize)
		if _, err := src.ReadAt(clstBuf, int64(clstLoc)); err != nil && err != io.EOF {
			return fail(fmt.Errorf("read CLST: %w", err))
		}
		recStride := clstRecordStride(header.IndexMinorVersion)
		count := len(clstBuf) / recStride
		for i := 0; i < count; i++ {
			rec := clstBuf[i*recStride : (i+1)*recStride]
			var t TGIR
			t.Type = binary.LittleEndian.Uint32(rec[0:4])
			t.Group = binary.LittleEndian.Uint32(rec[4:8])
			t.Instance = binary.LittleEndian.Uint32(rec[8:12])
			off := 12
			if recStride == 5*4 {
				t.Resource = binary.LittleEndian.Uint32(rec[12:16])
				off = 16
			}
			usize := binary.LittleEndian.Uint32(rec[off : off+4])
			arc.CLST[t] = usize
		}
	}

	peek := make([]byte, codec.HeaderSize)
	for i := range entries {
		e := &entries[i]
		if _, claimed := arc.CLST[e.TGIR]; !claimed {
			continue
		}
		n, err := src.ReadAt(peek, int64(e.Location))
		if err != nil && err != io.EOF {
			continue
		}
		if n < codec.HeaderSize {
			continue
		}
		if codec.IsCompressed(peek) {
			e.Compressed = true
			e.UncompressedSize = uint32(codec.UncompressedSize(peek))
		}
	}

	seen := map[TGIR]int{}
	for _, e := range entries {
		seen[e.TGIR]++
	}
	for i := range entries {
		if seen[entries[i].TGIR] > 1 {
			entries[i].Repeated = true
		}
	}

	arc.Entries = entries
	arc.Unpacked = true
	return arc, nil
}

func addUint32Bounds(loc, sz uint32, fileSize int64) (int64, bool) {
	end := int64(loc) + int64(sz)
	if end < int64(loc) || end > fileSize {
		return 0, false
	}
	return end, true
}

func readHoles(src io.ReaderAt, h Header) ([]Hole, error) {
	if h.HoleIndexSize == 0 {
		return nil, nil
	}
	const holeStride = 8
	if int64(h.HoleIndexEntryCount)*holeStride != int64(h.HoleIndexSize) {
		return nil, fmt.Errorf("%w: entry_count*8 != hole_index_size", ErrHoleOutOfBounds)
	}
	buf := make([]byte, h.HoleIndexSize)
	if _, err := src.ReadAt(buf, int64(h.HoleIndexLocation)); err != nil && err != io.EOF {
		return nil, fmt.Errorf("read hole index: %w", err)
	}
	holes := make([]Hole, 0, h.HoleIndexEntryCount)
	for i := 0; i < int(h.HoleIndexEntryCount); i++ {
		rec := buf[i*holeStride : (i+1)*holeStride]
		holes = append(holes, Hole{
			Location: binary.LittleEndian.Uint32(rec[0:4]),
			Size:     binary.LittleEndian.Uint32(rec[4:8]),
		})
	}
	return holes, nil
}

// singleSignatureHole returns the signature value and embedded file size
// from the sole 8-byte hole, if the hole list is exactly one hole of size
// 8 pointed at by exactly one hole-index record (spec.md §4.3 step 4,
// §4.6).
func singleSignatureHole(src io.ReaderAt, holes []Hole) (signature, fileSize uint32, ok bool) {
	if len(holes) != 1 || holes[0].Size != 8 {
		return 0, 0, false
	}
	buf := make([]byte, 8)
	if _, err := src.ReadAt(buf, int64(holes[0].Location)); err != nil && err != io.EOF {
		return 0, 0, false
	}
	return binary.LittleEndian.Uint32(buf[0:4]), binary.LittleEndian.Uint32(buf[4:8]), true
}
