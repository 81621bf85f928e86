// setaffinity_linux.go - Linux CPU affinity via sched_setaffinity(2)

//go:build linux && !tinygo

package bench

import (
	"syscall"
	"unsafe"
)

// setAffinity pins the calling thread to cpu. Cores beyond one mask word and
// syscall failures (restricted containers) leave the thread unpinned.
func setAffinity(cpu int) {
	if cpu < 0 || cpu >= int(unsafe.Sizeof(uintptr(0))*8) {
		return
	}
	mask := [1]uintptr{1 << uint(cpu)}
	_, _, _ = syscall.RawSyscall(
		syscall.SYS_SCHED_SETAFFINITY,
		0, // current thread
		uintptr(unsafe.Sizeof(mask)),
		uintptr(unsafe.Pointer(&mask)),
	)
}
