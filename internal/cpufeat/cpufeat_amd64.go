//go:build amd64
// +build amd64

package cpufeat

import "golang.org/x/sys/cpu"

func detectImpl(f *Features) {
	f.HasSSE41 = cpu.X86.HasSSE41
	f.HasAVX2 = cpu.X86.HasAVX2
}
