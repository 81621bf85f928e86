// ════════════════════════════════════════════════════════════════════════════════════════════════
// Full Memory Barrier - AMD64 Architecture
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Component: Store-Load Fence
//
// Description:
//   x86-64 is TSO; the only reordering it allows is a later load passing an
//   earlier store. MFENCE closes that gap, making it a full barrier.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

//go:build amd64 && cgo && !noasm

package fence

/*
#ifdef __x86_64__
static inline void full_barrier() {
    __asm__ __volatile__("mfence" ::: "memory");
}
#else
#error "This file requires x86-64 architecture"
#endif
*/
import "C"

// Full emits MFENCE.
func Full() {
	C.full_barrier()
}
