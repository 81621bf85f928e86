// ════════════════════════════════════════════════════════════════════════════════════════════════
// Full Memory Barrier - ARM64 Architecture
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Component: Inner-Shareable Data Memory Barrier
//
// Description:
//   DMB ISH orders every load and store before the barrier against every load
//   and store after it, as observed by all cores in the inner-shareable
//   domain. This is the fence placed around sequentially consistent atomics.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

//go:build arm64 && cgo && !noasm

package fence

/*
#ifdef __aarch64__
static inline void full_barrier() {
    __asm__ __volatile__("dmb ish" ::: "memory");
}
#else
#error "This file requires ARM64 architecture"
#endif
*/
import "C"

// Full emits DMB ISH.
func Full() {
	C.full_barrier()
}
