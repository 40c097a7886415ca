//go:build arm64
// +build arm64

package cpufeat

func detectImpl(f *Features) {
	// All arm64 targets Go supports carry NEON.
	f.HasNEON = true
}
