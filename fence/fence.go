// ============================================================================
// ORDERING FENCE EMITTER
// ============================================================================
//
// Call sites of this core were written against an architecture whose locked
// read-modify-write instructions order every surrounding memory access. The
// target orders only the atomic location itself, so a sequentially
// consistent RMW is bracketed by full bidirectional barriers to recreate that
// contract.
//
// Relaxed needs no fence. Acquire and Release are encoded in the primitive
// variant (acquire-load, release-store, acquire/release exclusive pairs), so
// they need no separate fence either.

package fence

import "atomcore/types"

// Emitter issues barriers around atomic sequences. The zero value uses the
// hardware barrier.
type Emitter struct {
	barrier func()
}

// New returns an emitter that calls barrier instead of the hardware fence.
// Tests use it to observe emission.
func New(barrier func()) Emitter {
	return Emitter{barrier: barrier}
}

// Required reports whether o needs a full barrier around the sequence.
//
//go:nosplit
func Required(o types.Ordering) bool {
	return o == types.SequentiallyConsistent
}

// Emit issues the barrier demanded by o at phase p. Both phases currently
// demand the same full barrier.
func (e Emitter) Emit(o types.Ordering, p types.Phase) {
	if !Required(o) {
		return
	}
	if e.barrier != nil {
		e.barrier()
		return
	}
	Full()
}
