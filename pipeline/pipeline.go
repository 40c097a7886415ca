// Package pipeline drives the end-to-end rewrite of a single archive: read,
// decide an operation, write a temp file, validate it, and atomically
// replace the original only on success (spec.md §4.5). The per-archive
// control flow here is grounded on WoozyMasta/pbo's rewriteArchive, which
// follows the same read -> transform -> temp-file -> rename shape for a
// different container format.
package pipeline

import (
	"fmt"
	"io"
	"os"

	"github.com/qfstools/dbpfrecompress/codec"
	"github.com/qfstools/dbpfrecompress/dbpf"
	"github.com/qfstools/dbpfrecompress/internal/cpufeat"
	"github.com/qfstools/dbpfrecompress/internal/xlog"
)

// largeEntryThreshold is the uncompressed-size floor for the single entry
// probed by decideCompressOp, matching the original tool's mode-selection
// algorithm.
const largeEntryThreshold = 100000

// decideCompressOp picks the real per-archive operation for a compress-mode
// run: recompress if doing so would shrink a representative already-
// compressed entry, skip outright if every entry is already compressed and
// recompression buys nothing, else compress. It probes at most one entry
// (the first compressed one at least largeEntryThreshold bytes uncompressed),
// exactly as the original tool does.
func decideCompressOp(src io.ReaderAt, arc *dbpf.Archive) dbpf.Op {
	allCompressed := true
	for _, e := range arc.Entries {
		if !e.Compressed {
			allCompressed = false
			break
		}
	}

	improves := false
	for _, e := range arc.Entries {
		if !e.Compressed || e.UncompressedSize < largeEntryThreshold {
			continue
		}
		raw := make([]byte, e.FileSize)
		if _, err := src.ReadAt(raw, int64(e.Location)); err != nil && err != io.EOF {
			break
		}
		dec, err := codec.Decompress(raw)
		if err != nil {
			break
		}
		if out := codec.Compress(dec); out != nil && len(out) < len(raw) {
			improves = true
		}
		break
	}

	if improves {
		return dbpf.OpRecompress
	}
	if allCompressed {
		return dbpf.OpSkip
	}
	return dbpf.OpCompress
}

// Result summarizes the outcome of processing one file, for the CLI to log.
type Result struct {
	Path    string
	Op      dbpf.Op
	Skipped bool
	Err     error
}

// Options configures a run.
type Options struct {
	Op      dbpf.Op // dbpf.OpCompress or dbpf.OpDecompress
	Workers int     // per-archive entry-rewrite concurrency; <=0 picks a default
	Logger  *xlog.Logger
}

// RewriteFile processes one archive file in place. It never returns an
// error for files that are simply not DBPF archives or are already in the
// target state - those are reported as Result.Skipped with no Err. Err is
// reserved for failures the caller should surface (I/O errors, a failed
// validation).
func RewriteFile(path string, opt Options) Result {
	logger := opt.Logger
	if logger == nil {
		logger = xlog.Default
	}
	workers := opt.Workers
	if workers <= 0 {
		workers = cpufeat.DefaultWorkers()
	}

	f, err := os.Open(path)
	if err != nil {
		return Result{Path: path, Op: opt.Op, Err: fmt.Errorf("open: %w", err)}
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return Result{Path: path, Op: opt.Op, Err: fmt.Errorf("stat: %w", err)}
	}

	arc, err := dbpf.Read(f, st.Size(), path, opt.Op, true)
	if err != nil || !arc.Unpacked {
		// Not a DBPF archive, or unreadable: log one skip line and return
		// no error, this is a directory walk over arbitrary files.
		logger.Infof("skip %s: %v", path, err)
		return Result{Path: path, Op: opt.Op, Skipped: true}
	}
	if arc.AlreadyProcessed {
		logger.Infof("skip %s: already %s", path, opt.Op)
		return Result{Path: path, Op: opt.Op, Skipped: true}
	}

	op := opt.Op
	if op == dbpf.OpCompress {
		op = decideCompressOp(f, arc)
		if op == dbpf.OpSkip {
			logger.Infof("skip %s: already compressed, recompression would not help", path)
			return Result{Path: path, Op: op, Skipped: true}
		}
	}

	origHdrBuf := make([]byte, dbpf.HeaderSize)
	if _, err := f.ReadAt(origHdrBuf, 0); err != nil {
		return Result{Path: path, Op: op, Err: fmt.Errorf("re-read header: %w", err)}
	}

	tmpPath := path + ".new"
	tmp, err := os.OpenFile(tmpPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return Result{Path: path, Op: op, Err: fmt.Errorf("create temp file: %w", err)}
	}
	cleanupTmp := func() {
		tmp.Close()
		os.Remove(tmpPath)
	}

	if err := dbpf.Write(tmp, f, arc, op, workers); err != nil {
		cleanupTmp()
		return Result{Path: path, Op: op, Err: fmt.Errorf("write: %w", err)}
	}

	tmpSt, err := tmp.Stat()
	if err != nil {
		cleanupTmp()
		return Result{Path: path, Op: op, Err: fmt.Errorf("stat temp file: %w", err)}
	}

	if err := dbpf.Validate(f, origHdrBuf, arc, tmp, tmpSt.Size(), op); err != nil {
		cleanupTmp()
		return Result{Path: path, Op: op, Err: fmt.Errorf("validate: %w", err)}
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return Result{Path: path, Op: op, Err: fmt.Errorf("close temp file: %w", err)}
	}
	f.Close()

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return Result{Path: path, Op: op, Err: fmt.Errorf("rename: %w", err)}
	}

	logger.Infof("rewrote %s (%s)", path, op)
	return Result{Path: path, Op: op}
}
