// ════════════════════════════════════════════════════════════════════════════════════════════════
// Full Memory Barrier - Fallback Implementation
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Component: Portable Barrier
//
// Description:
//   Without cgo (or with noasm) there is no way to emit a bare fence. A
//   sequentially consistent read-modify-write on a private padded word is
//   lowered to a full barrier on every Go target (LOCK XADD, LDADDAL or an
//   LL/SC pair bracketed by DMB), so it stands in for one.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

//go:build (!amd64 && !arm64) || !cgo || noasm

package fence

import "sync/atomic"

var sentinel struct {
	_ [64]byte
	v atomic.Uint32
	_ [60]byte
}

// Full emits a full barrier through a sequentially consistent RMW.
func Full() {
	sentinel.v.Add(1)
}
