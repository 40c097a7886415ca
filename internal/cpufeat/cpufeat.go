// Package cpufeat detects CPU features used to tune the QFS match finder's
// search effort. A wider search can pick different matches, so the
// compressed bytes may differ between hosts; what they decode to does not.
package cpufeat

import (
	"runtime"
	"sync"
)

// Features reports which CPU capabilities were detected on this host.
type Features struct {
	HasAVX2  bool
	HasSSE41 bool
	HasNEON  bool
}

var (
	detectOnce sync.Once
	detected   Features
)

// Detect returns the detected CPU features, probing the hardware once per
// process and caching the result.
func Detect() Features {
	detectOnce.Do(func() {
		detected = Features{}
		detectImpl(&detected)
	})
	return detected
}

// WideSearchBudget reports whether this host can afford a larger hash-chain
// search depth than the conservative default. SSE4.1/AVX2/NEON hosts are
// cheap enough at byte-compare loops that a wider search pays for itself.
func WideSearchBudget() bool {
	f := Detect()
	return f.HasAVX2 || f.HasSSE41 || f.HasNEON
}

// DefaultWorkers returns the number of worker goroutines the rewrite
// pipeline should start by default: runtime.GOMAXPROCS(0), at least 1.
// The detected CPU features do not affect it.
func DefaultWorkers() int {
	n := runtime.GOMAXPROCS(0)
	if n < 1 {
		n = 1
	}
	return n
}
