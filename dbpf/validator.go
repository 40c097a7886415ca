package dbpf

import (
	"bytes"
	"fmt"
	"io"

	"github.com/qfstools/dbpfrecompress/codec"
)

// Validate re-parses a freshly written temp file and checks it against the
// original file before the pipeline is allowed to replace the original in
// place (spec.md §4.6). origSrc/origHdrBuf/orig describe the source file as
// Read originally parsed it; newSrc/newSize describe the temp file Write
// just produced.
//
// Validate never mutates either archive; a non-nil error means the temp
// file must be discarded and the original left untouched.
func Validate(origSrc io.ReaderAt, origHdrBuf []byte, orig *Archive, newSrc io.ReaderAt, newSize int64, op Op) error {
	newHdrBuf := make([]byte, HeaderSize)
	if _, err := newSrc.ReadAt(newHdrBuf, 0); err != nil {
		return fmt.Errorf("validate: read new header: %w", err)
	}
	if !bytes.Equal(origHdrBuf[0:preservedPrefixSize], newHdrBuf[0:preservedPrefixSize]) {
		return fmt.Errorf("%w: preserved prefix changed", ErrValidationFailed)
	}
	if !bytes.Equal(origHdrBuf[mutableRegionEnd:HeaderSize], newHdrBuf[mutableRegionEnd:HeaderSize]) {
		return fmt.Errorf("%w: preserved suffix changed", ErrValidationFailed)
	}

	newArc, err := Read(newSrc, newSize, orig.Path, op, false)
	if err != nil {
		return fmt.Errorf("%w: re-parse failed: %v", ErrValidationFailed, err)
	}

	if len(newArc.Holes) != 1 || newArc.Holes[0].Size != 8 {
		return fmt.Errorf("%w: expected exactly one 8-byte hole, got %d", ErrValidationFailed, len(newArc.Holes))
	}
	sigBuf := make([]byte, 8)
	if _, err := newSrc.ReadAt(sigBuf, int64(newArc.Holes[0].Location)); err != nil && err != io.EOF {
		return fmt.Errorf("validate: read signature hole: %w", err)
	}
	sig := uint32(sigBuf[0]) | uint32(sigBuf[1])<<8 | uint32(sigBuf[2])<<16 | uint32(sigBuf[3])<<24
	fileSize := uint32(sigBuf[4]) | uint32(sigBuf[5])<<8 | uint32(sigBuf[6])<<16 | uint32(sigBuf[7])<<24
	if sig != ExpectedSignature(op) {
		return fmt.Errorf("%w: signature hole value %#x != expected %#x", ErrValidationFailed, sig, ExpectedSignature(op))
	}
	if fileSize != uint32(newSize) {
		return fmt.Errorf("%w: signature hole file size %d != actual %d", ErrValidationFailed, fileSize, newSize)
	}
	if newArc.Header.HoleIndexEntryCount != 1 {
		return fmt.Errorf("%w: hole index entry count %d != 1", ErrValidationFailed, newArc.Header.HoleIndexEntryCount)
	}

	origCount := entryCountExcludingCLST(orig.Entries)
	newCount := entryCountExcludingCLST(newArc.Entries)
	if origCount != newCount {
		return fmt.Errorf("%w: entry count %d != original %d", ErrValidationFailed, newCount, origCount)
	}

	// Write keeps index order, so entries pair up by position; pairing by
	// TGIR alone would compare every repeated entry against the first one.
	for i, oe := range orig.Entries {
		if oe.TGIR == CLST {
			continue
		}
		if i >= len(newArc.Entries) || newArc.Entries[i].TGIR != oe.TGIR {
			return fmt.Errorf("%w: entry %d %+v missing from rewritten archive", ErrValidationFailed, i, oe.TGIR)
		}
		ne := &newArc.Entries[i]
		if ne.Compressed && ne.FileSize > ne.UncompressedSize {
			return fmt.Errorf("%w: entry %+v compressed size %d exceeds uncompressed size %d", ErrValidationFailed, ne.TGIR, ne.FileSize, ne.UncompressedSize)
		}

		origDecoded, err := readDecoded(origSrc, oe.Location, oe.FileSize, oe.Compressed)
		if err != nil {
			return fmt.Errorf("%w: entry %+v: original body: %v", ErrValidationFailed, oe.TGIR, err)
		}
		newDecoded, err := readDecoded(newSrc, ne.Location, ne.FileSize, ne.Compressed)
		if err != nil {
			return fmt.Errorf("%w: entry %+v: rewritten body: %v", ErrValidationFailed, oe.TGIR, err)
		}

		if !bytes.Equal(origDecoded, newDecoded) {
			return fmt.Errorf("%w: entry %+v decompressed body differs", ErrValidationFailed, oe.TGIR)
		}
	}

	return nil
}

func entryCountExcludingCLST(entries []Entry) int {
	n := 0
	for _, e := range entries {
		if e.TGIR != CLST {
			n++
		}
	}
	return n
}

// readDecoded reads an entry's on-disk bytes and, if compressed, decodes
// them, so bodies compressed under different parameters can still be
// compared for semantic equality.
func readDecoded(src io.ReaderAt, location, size uint32, compressed bool) ([]byte, error) {
	buf := make([]byte, size)
	if size > 0 {
		if _, err := src.ReadAt(buf, int64(location)); err != nil && err != io.EOF {
			return nil, err
		}
	}
	if !compressed {
		return buf, nil
	}
	return codec.Decompress(buf)
}
