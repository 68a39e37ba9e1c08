package tensor

import (
	"runtime"
	"strings"

	"golang.org/x/sys/cpu"
)

// Features describes the host CPU as seen by the compute kernels.
type Features struct {
	Arch    string
	NumCPU  int
	AVX2    bool
	AVX512F bool
	FMA     bool
	NEON    bool
	SVE     bool
}

// DetectFeatures reports CPU SIMD capabilities.
func DetectFeatures() Features {
	f := Features{Arch: runtime.GOARCH, NumCPU: runtime.NumCPU()}
	switch runtime.GOARCH {
	case "amd64", "386":
		f.AVX2 = cpu.X86.HasAVX2
		f.AVX512F = cpu.X86.HasAVX512F
		f.FMA = cpu.X86.HasFMA
	case "arm64":
		f.NEON = cpu.ARM64.HasASIMD
		f.SVE = cpu.ARM64.HasSVE
	}
	return f
}

// String lists the detected SIMD extensions, e.g. "amd64[avx2 fma]".
func (f Features) String() string {
	var ext []string
	for _, e := range []struct {
		name string
		on   bool
	}{
		{"avx2", f.AVX2},
		{"avx512f", f.AVX512F},
		{"fma", f.FMA},
		{"neon", f.NEON},
		{"sve", f.SVE},
	} {
		if e.on {
			ext = append(ext, e.name)
		}
	}
	return f.Arch + "[" + strings.Join(ext, " ") + "]"
}
