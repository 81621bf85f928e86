package capability

import (
	"runtime"

	"golang.org/x/sys/cpu"
)

// Detect probes the host for single-instruction atomics.
//
// arm64 reports the LSE feature bit. amd64 always has LOCK-prefixed
// XADD/XCHG/CMPXCHG. Every other architecture is treated as LL/SC only.
func Detect() bool {
	switch runtime.GOARCH {
	case "arm64":
		return cpu.ARM64.HasATOMICS
	case "amd64":
		return true
	default:
		return false
	}
}

// HostFeatures lists the probed feature names relevant to atomics, for
// reports and host fingerprints.
func HostFeatures() []string {
	var f []string
	switch runtime.GOARCH {
	case "arm64":
		if cpu.ARM64.HasATOMICS {
			f = append(f, "lse")
		}
		if cpu.ARM64.HasCPUID {
			f = append(f, "cpuid")
		}
	case "amd64":
		f = append(f, "lock")
		if cpu.X86.HasAVX2 {
			f = append(f, "avx2")
		}
	}
	if cpu.IsBigEndian {
		f = append(f, "big-endian")
	}
	return f
}
