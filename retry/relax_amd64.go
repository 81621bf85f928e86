// ════════════════════════════════════════════════════════════════════════════════════════════════
// CPU Relaxation - AMD64 Architecture
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Component: x86-64 Retry Back-off
//
// Description:
//   PAUSE between contended retry attempts. It keeps the losing core from
//   hammering the cache line and releases pipeline resources to the sibling
//   hyperthread while the winner finishes.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

//go:build amd64 && cgo && !noasm

package retry

/*
#ifdef __x86_64__
static inline void cpu_pause() {
    __asm__ __volatile__("pause" ::: "memory");
}
#else
#error "This file requires x86-64 architecture"
#endif
*/
import "C"

// cpuRelax emits PAUSE.
func cpuRelax() {
	C.cpu_pause()
}
