package pipeline

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/qfstools/dbpfrecompress/dbpf"
)

// buildArchiveFile writes a minimal, uncompressed, index-minor-0 DBPF file
// with one entry, the state a freshly unpacked archive is in before its
// first compress pass.
func buildArchiveFile(t *testing.T, path string, body []byte, tgir dbpf.TGIR) {
	t.Helper()

	buf := make([]byte, dbpf.HeaderSize)
	loc := uint32(len(buf))
	buf = append(buf, body...)

	indexLoc := uint32(len(buf))
	var rec [20]byte
	binary.LittleEndian.PutUint32(rec[0:4], tgir.Type)
	binary.LittleEndian.PutUint32(rec[4:8], tgir.Group)
	binary.LittleEndian.PutUint32(rec[8:12], tgir.Instance)
	binary.LittleEndian.PutUint32(rec[12:16], loc)
	binary.LittleEndian.PutUint32(rec[16:20], uint32(len(body)))
	buf = append(buf, rec[:]...)
	indexSize := uint32(len(buf)) - indexLoc

	copy(buf[0:4], []byte("DBPF"))
	binary.LittleEndian.PutUint32(buf[4:8], 1)   // major version
	binary.LittleEndian.PutUint32(buf[8:12], 1)  // minor version
	binary.LittleEndian.PutUint32(buf[32:36], 7) // index major version
	binary.LittleEndian.PutUint32(buf[36:40], 1) // index entry count
	binary.LittleEndian.PutUint32(buf[40:44], indexLoc)
	binary.LittleEndian.PutUint32(buf[44:48], indexSize)

	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func TestRewriteFileCompressesThenSkipsSecondPass(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "archive.dat")
	body := bytes.Repeat([]byte("compress-me-please-"), 200)
	tgir := dbpf.TGIR{Type: 1, Group: 2, Instance: 3}
	buildArchiveFile(t, path, body, tgir)

	res := RewriteFile(path, Options{Op: dbpf.OpCompress})
	if res.Err != nil {
		t.Fatalf("RewriteFile() error = %v", res.Err)
	}
	if res.Skipped {
		t.Fatalf("first pass should not be skipped")
	}

	rewritten, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer f.Close()
	arc, err := dbpf.Read(f, int64(len(rewritten)), path, dbpf.OpCompress, false)
	if err != nil {
		t.Fatalf("Read() of rewritten file error = %v", err)
	}
	e, ok := arc.EntryByTGIR(tgir)
	if !ok {
		t.Fatalf("rewritten archive missing entry %+v", tgir)
	}
	if !e.Compressed {
		t.Errorf("entry was not compressed by the first pass")
	}

	res2 := RewriteFile(path, Options{Op: dbpf.OpCompress})
	if res2.Err != nil {
		t.Fatalf("second RewriteFile() error = %v", res2.Err)
	}
	if !res2.Skipped {
		t.Fatalf("second pass should be skipped (already processed)")
	}
}

func TestRewriteFileSkipsNonArchive(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "not-an-archive.txt")
	if err := os.WriteFile(path, []byte("hello, world"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	res := RewriteFile(path, Options{Op: dbpf.OpCompress})
	if res.Err != nil {
		t.Fatalf("RewriteFile() error = %v, want nil (non-archive skip)", res.Err)
	}
	if !res.Skipped {
		t.Fatalf("non-archive file should be skipped, not processed")
	}
}
