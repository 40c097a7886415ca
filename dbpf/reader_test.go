package dbpf

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/qfstools/dbpfrecompress/codec"
)

// buildMinorTwoArchive assembles a DBPF file with index-minor version 2
// (resource field present), one CLST-claimed compressed entry, and two
// entries sharing a TGIR to exercise the repeated-entry rule.
func buildMinorTwoArchive(t *testing.T) (raw []byte, compressedTGIR, dupTGIR TGIR) {
	t.Helper()

	compressedBody := codec.Compress(bytes.Repeat([]byte("xyzxyzxyzxyz"), 64))
	if compressedBody == nil {
		t.Fatal("setup: codec.Compress unexpectedly returned nil")
	}
	plainBody := []byte{0xAA, 0xBB, 0xCC}

	compressedTGIR = TGIR{Type: 9, Group: 9, Instance: 9, Resource: 1}
	dupTGIR = TGIR{Type: 4, Group: 4, Instance: 4, Resource: 2}

	buf := make([]byte, HeaderSize)
	locCompressed := uint32(len(buf))
	buf = append(buf, compressedBody...)
	locDup1 := uint32(len(buf))
	buf = append(buf, plainBody...)
	locDup2 := uint32(len(buf))
	buf = append(buf, plainBody...)

	clstLoc := uint32(len(buf))
	var clstRec [20]byte
	binary.LittleEndian.PutUint32(clstRec[0:4], compressedTGIR.Type)
	binary.LittleEndian.PutUint32(clstRec[4:8], compressedTGIR.Group)
	binary.LittleEndian.PutUint32(clstRec[8:12], compressedTGIR.Instance)
	binary.LittleEndian.PutUint32(clstRec[12:16], compressedTGIR.Resource)
	binary.LittleEndian.PutUint32(clstRec[16:20], uint32(len(bytes.Repeat([]byte("xyzxyzxyzxyz"), 64))))
	buf = append(buf, clstRec[:]...)
	clstSize := uint32(len(buf)) - clstLoc

	type idxEnt struct {
		t   TGIR
		loc uint32
		sz  uint32
	}
	entries := []idxEnt{
		{compressedTGIR, locCompressed, uint32(len(compressedBody))},
		{dupTGIR, locDup1, uint32(len(plainBody))},
		{dupTGIR, locDup2, uint32(len(plainBody))},
		{CLST, clstLoc, clstSize},
	}
	indexLoc := uint32(len(buf))
	for _, e := range entries {
		var rec [24]byte
		binary.LittleEndian.PutUint32(rec[0:4], e.t.Type)
		binary.LittleEndian.PutUint32(rec[4:8], e.t.Group)
		binary.LittleEndian.PutUint32(rec[8:12], e.t.Instance)
		binary.LittleEndian.PutUint32(rec[12:16], e.t.Resource)
		binary.LittleEndian.PutUint32(rec[16:20], e.loc)
		binary.LittleEndian.PutUint32(rec[20:24], e.sz)
		buf = append(buf, rec[:]...)
	}
	indexSize := uint32(len(buf)) - indexLoc

	h := Header{
		Magic:             [4]byte{'D', 'B', 'P', 'F'},
		MajorVersion:      1,
		MinorVersion:      2,
		IndexMajorVersion: 7,
		IndexEntryCount:   uint32(len(entries)),
		IndexLocation:     indexLoc,
		IndexSize:         indexSize,
		IndexMinorVersion: 2,
	}
	h.encodeInto(buf[0:HeaderSize])
	return buf, compressedTGIR, dupTGIR
}

func TestReadDetectsCompressedEntryViaCLST(t *testing.T) {
	raw, compressedTGIR, _ := buildMinorTwoArchive(t)
	arc, err := Read(bytes.NewReader(raw), int64(len(raw)), "t.dat", OpCompress, false)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	e, ok := arc.EntryByTGIR(compressedTGIR)
	if !ok {
		t.Fatalf("entry %+v not found", compressedTGIR)
	}
	if !e.Compressed {
		t.Errorf("entry claimed compressed by CLST was not marked Compressed")
	}
	if e.UncompressedSize == 0 {
		t.Errorf("UncompressedSize not populated for compressed entry")
	}
}

func TestReadMarksAllRepeatedEntries(t *testing.T) {
	raw, _, dupTGIR := buildMinorTwoArchive(t)
	arc, err := Read(bytes.NewReader(raw), int64(len(raw)), "t.dat", OpCompress, false)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	count := 0
	for _, e := range arc.Entries {
		if e.TGIR == dupTGIR {
			count++
			if !e.Repeated {
				t.Errorf("duplicate entry %+v not marked Repeated", e)
			}
		}
	}
	if count != 2 {
		t.Fatalf("expected 2 entries with TGIR %+v, found %d", dupTGIR, count)
	}
}

func TestReadExcludesCLSTFromEntries(t *testing.T) {
	raw, _, _ := buildMinorTwoArchive(t)
	arc, err := Read(bytes.NewReader(raw), int64(len(raw)), "t.dat", OpCompress, false)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if _, ok := arc.EntryByTGIR(CLST); ok {
		t.Errorf("CLST entry should not appear in arc.Entries")
	}
}

func TestReadRejectsBadMagic(t *testing.T) {
	raw := make([]byte, 96)
	copy(raw, "XXXX")
	_, err := Read(bytes.NewReader(raw), int64(len(raw)), "t.dat", OpCompress, false)
	if err == nil {
		t.Fatalf("Read() succeeded on bad magic, want error")
	}
}

func TestReadRejectsTooShort(t *testing.T) {
	raw := make([]byte, 10)
	_, err := Read(bytes.NewReader(raw), int64(len(raw)), "t.dat", OpCompress, false)
	if err == nil {
		t.Fatalf("Read() succeeded on too-short file, want error")
	}
}
