// ============================================================================
// RETRY-LOOP EXECUTOR
// ============================================================================
//
// Software loops used when no single accelerated instruction serves a call.
//
// Exclusive loop (always correct, the only option without the extension):
//
//	LoadExclusive → Compute → StoreExclusive ─┬─ Success → Done
//	      ▲                                   │
//	      └──────────────── Conflict ─────────┘
//
// CAS loop (extension present, op has no direct instruction):
//
//	Load → Compute → CAS ─┬─ observed == expected → Done
//	        ▲             │
//	        └── observed ─┘   (the CAS result is the fresh load)
//
// In both flavors the store-exclusive or the CAS is the only arbiter of an
// iteration's validity: a result is never returned from a load that could
// have been overtaken. There is no iteration bound and no failure exit;
// forward progress rests on some contender always winning.
//
// All values are zero-extended to 64 bits and every comparison happens at
// the backend's width.

package retry

import (
	"runtime"
	"sync/atomic"
	"unsafe"

	"atomcore/backend"
	"atomcore/capability"
	"atomcore/constants"
	"atomcore/types"
)

// ============================================================================
// STATISTICS
// ============================================================================

// Stats counts loop iterations. A nil *Stats records nothing.
type Stats struct {
	_         [64]byte
	loops     atomic.Uint64 // completed loop executions
	conflicts atomic.Uint64 // rejected iterations
	_         [48]byte
}

// Loops returns the number of completed loops.
func (s *Stats) Loops() uint64 { return s.loops.Load() }

// Conflicts returns the number of rejected iterations.
func (s *Stats) Conflicts() uint64 { return s.conflicts.Load() }

// Reset zeroes the counters.
func (s *Stats) Reset() {
	s.loops.Store(0)
	s.conflicts.Store(0)
}

func (s *Stats) record(conflicts int) {
	if s == nil {
		return
	}
	s.loops.Add(1)
	if conflicts > 0 {
		s.conflicts.Add(uint64(conflicts))
	}
}

// ============================================================================
// EXECUTOR
// ============================================================================

// Executor runs retry loops and picks their flavor from a capability.
type Executor struct {
	caps  capability.Capability
	stats *Stats
}

// New returns an executor for c. stats may be nil.
func New(c capability.Capability, stats *Stats) *Executor {
	return &Executor{caps: c, stats: stats}
}

// Choose returns the loop flavor for op: the CAS loop when the extension is
// present and preferred for op, the exclusive loop otherwise.
//
//go:nosplit
func Choose(c capability.Capability, op types.Op) types.Path {
	if c.PrefersAccelerated(op) {
		return types.CASLoop
	}
	return types.ExclusiveLoop
}

// Choose returns the loop flavor this executor uses for op.
func (e *Executor) Choose(op types.Op) types.Path {
	return Choose(e.caps, op)
}

// RMW applies op through the loop flavor chosen for it and returns the
// values before and after.
func (e *Executor) RMW(b backend.Backend, addr unsafe.Pointer, op types.Op, operand uint64) (old, new uint64) {
	if e.Choose(op) == types.CASLoop {
		return e.CASRMW(b, addr, op, operand)
	}
	return e.ExclusiveRMW(b, addr, op, operand)
}

// ExclusiveRMW is the load-exclusive/compute/store-exclusive loop.
func (e *Executor) ExclusiveRMW(b backend.Backend, addr unsafe.Pointer, op types.Op, operand uint64) (old, new uint64) {
	w := b.Width()
	for n := 0; ; n++ {
		x := b.LoadExclusive(addr)
		nv := op.Apply(x.Value, operand, w)
		if b.StoreExclusive(addr, x, nv) {
			e.stats.record(n)
			return x.Value, nv
		}
		backoff(n)
	}
}

// CASRMW is the load/compute/compare-and-swap loop. The value observed by a
// failed CAS seeds the next iteration.
func (e *Executor) CASRMW(b backend.Backend, addr unsafe.Pointer, op types.Op, operand uint64) (old, new uint64) {
	w := b.Width()
	old = b.Load(addr)
	for n := 0; ; n++ {
		nv := op.Apply(old, operand, w)
		seen := b.CAS(addr, old, nv)
		if seen == old {
			e.stats.record(n)
			return old, nv
		}
		old = seen
		backoff(n)
	}
}

// ExclusiveSwap installs v unconditionally through the exclusive loop and
// returns the previous value.
func (e *Executor) ExclusiveSwap(b backend.Backend, addr unsafe.Pointer, v uint64) uint64 {
	for n := 0; ; n++ {
		x := b.LoadExclusive(addr)
		if b.StoreExclusive(addr, x, v) {
			e.stats.record(n)
			return x.Value
		}
		backoff(n)
	}
}

// ExclusiveCompareExchange installs new if the cell equals expected. A
// mismatch returns immediately without writing; only a store-exclusive
// conflict causes another iteration.
func (e *Executor) ExclusiveCompareExchange(b backend.Backend, addr unsafe.Pointer, expected, new uint64) (uint64, bool) {
	for n := 0; ; n++ {
		x := b.LoadExclusive(addr)
		if x.Value != expected {
			e.stats.record(n)
			return x.Value, false
		}
		if b.StoreExclusive(addr, x, new) {
			e.stats.record(n)
			return x.Value, true
		}
		backoff(n)
	}
}

// backoff spaces out attempts after repeated conflicts.
func backoff(n int) {
	if n < constants.RelaxAfter {
		return
	}
	cpuRelax()
	if n%constants.YieldAfter == constants.YieldAfter-1 {
		runtime.Gosched()
	}
}
