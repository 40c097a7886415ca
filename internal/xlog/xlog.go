// Package xlog is a minimal line logger for the archive rewrite tool.
//
// No structured-logging dependency appears anywhere in the example corpus
// this tool is built from; every comparable tool prints plain lines with
// fmt/log, so this package does the same instead of reaching for a library
// that nothing in the lineage actually uses.
package xlog

import (
	"fmt"
	"io"
	"os"
)

// Logger writes one line per call to an underlying writer, with no
// timestamps or levels beyond the prefix the caller supplies.
type Logger struct {
	out io.Writer
}

// Default is the package-level logger writing to stdout, used by the CLI
// and the pipeline for per-archive status lines.
var Default = New(os.Stdout)

// New returns a Logger writing to w.
func New(w io.Writer) *Logger {
	return &Logger{out: w}
}

// Infof prints a status line.
func (l *Logger) Infof(format string, args ...any) {
	fmt.Fprintf(l.out, format+"\n", args...)
}

// Errorf prints an error line.
func (l *Logger) Errorf(format string, args ...any) {
	fmt.Fprintf(l.out, "error: "+format+"\n", args...)
}
