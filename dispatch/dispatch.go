// ============================================================================
// OPERATION DISPATCHER
// ============================================================================
//
// Routes every atomic operation to the cheapest correct implementation for
// the deployment's capability:
//
//	Kind                          Path
//	────────────────────────────  ─────────────────────────────────────────
//	Read / Write                  Direct (plain or acquire/release variant)
//	Swap / CompareExchange        Accelerated if the extension is present,
//	                              ExclusiveLoop otherwise
//	FetchThenOp / OpThenFetch /   Accelerated if present and op is direct,
//	Modify                        CASLoop if present and CAS is preferred,
//	                              ExclusiveLoop otherwise
//
// SequentiallyConsistent read-modify-write sequences (every kind except Read
// and Write) are bracketed by full barriers. Acquire and Release travel in
// the primitive variant the backend picks.
//
// The dispatcher is immutable once built and safe for concurrent use. It
// never allocates on the operation path.

package dispatch

import (
	"unsafe"

	"atomcore/backend"
	"atomcore/capability"
	"atomcore/fence"
	"atomcore/retry"
	"atomcore/types"
)

// Dispatcher binds a capability to a backend table, a fence emitter and a
// retry executor.
type Dispatcher struct {
	caps   capability.Capability
	table  *backend.Table
	fence  fence.Emitter
	exec   *retry.Executor
	stats  *retry.Stats
	forced types.Path
	force  bool
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithTable uses t instead of the default backend table.
func WithTable(t *backend.Table) Option {
	return func(d *Dispatcher) { d.table = t }
}

// WithFence uses e instead of the hardware barrier.
func WithFence(e fence.Emitter) Option {
	return func(d *Dispatcher) { d.fence = e }
}

// WithStats makes the retry loops record into s.
func WithStats(s *retry.Stats) Option {
	return func(d *Dispatcher) { d.stats = s }
}

// ForcePath pins read-modify-write ops to p regardless of the capability.
// Swap and CompareExchange honour only ExclusiveLoop; any other forced path
// leaves them on the single accelerated primitive. Read and Write are never
// affected. Used by the contention bench to compare strategies.
func ForcePath(p types.Path) Option {
	return func(d *Dispatcher) {
		d.forced = p
		d.force = true
	}
}

// New returns a dispatcher for c.
func New(c capability.Capability, opts ...Option) *Dispatcher {
	d := &Dispatcher{caps: c}
	for _, o := range opts {
		o(d)
	}
	if d.table == nil {
		d.table = backend.Default()
	}
	d.exec = retry.New(c, d.stats)
	return d
}

// Capability returns the capability the dispatcher was built with.
func (d *Dispatcher) Capability() capability.Capability { return d.caps }

// Stats returns the retry counters, or nil if none were attached.
func (d *Dispatcher) Stats() *retry.Stats { return d.stats }

// PathFor returns the path a call of kind k with op takes. op is ignored for
// kinds that do not combine values.
func (d *Dispatcher) PathFor(k types.Kind, op types.Op) types.Path {
	switch k {
	case types.Read, types.Write:
		return types.Direct
	case types.Swap, types.CompareExchange:
		if d.force {
			if d.forced == types.ExclusiveLoop {
				return types.ExclusiveLoop
			}
			return types.Accelerated
		}
		if d.caps.HasAcceleratedExtension() {
			return types.Accelerated
		}
		return types.ExclusiveLoop
	}
	if d.force {
		return d.forced
	}
	if d.caps.PrefersAccelerated(op) {
		if capability.HasDirectInstruction(op) {
			return types.Accelerated
		}
		return d.exec.Choose(op)
	}
	return types.ExclusiveLoop
}

// ============================================================================
// WIDTH-ERASED OPERATIONS
// ============================================================================
//
// Values are zero-extended to 64 bits. Callers guarantee addr is aligned to w.

func (d *Dispatcher) read(addr unsafe.Pointer, w types.Width, o types.Ordering) uint64 {
	b := d.table.For(w)
	if o.HasAcquire() {
		return b.LoadAcquire(addr)
	}
	return b.Load(addr)
}

func (d *Dispatcher) write(addr unsafe.Pointer, w types.Width, v uint64, o types.Ordering) {
	b := d.table.For(w)
	if o.HasRelease() {
		b.StoreRelease(addr, v)
		return
	}
	b.Store(addr, v)
}

func (d *Dispatcher) swap(addr unsafe.Pointer, w types.Width, v uint64, o types.Ordering) uint64 {
	b := d.table.For(w)
	d.fence.Emit(o, types.Before)
	var old uint64
	if d.PathFor(types.Swap, 0) == types.Accelerated {
		old = b.Swap(addr, v)
	} else {
		old = d.exec.ExclusiveSwap(b, addr, v)
	}
	d.fence.Emit(o, types.After)
	return old
}

func (d *Dispatcher) rmw(addr unsafe.Pointer, w types.Width, op types.Op, operand uint64, o types.Ordering) (old, new uint64) {
	b := d.table.For(w)
	d.fence.Emit(o, types.Before)
	switch d.PathFor(types.FetchThenOp, op) {
	case types.Accelerated:
		old = b.RMW(addr, op, operand)
		new = op.Apply(old, operand, w)
	case types.CASLoop:
		old, new = d.exec.CASRMW(b, addr, op, operand)
	default:
		old, new = d.exec.ExclusiveRMW(b, addr, op, operand)
	}
	d.fence.Emit(o, types.After)
	return old, new
}

func (d *Dispatcher) compareExchange(addr unsafe.Pointer, w types.Width, expected, new uint64, o types.Ordering) (uint64, bool) {
	b := d.table.For(w)
	d.fence.Emit(o, types.Before)
	var (
		seen uint64
		ok   bool
	)
	if d.PathFor(types.CompareExchange, 0) == types.Accelerated {
		seen = b.CAS(addr, expected, new)
		ok = seen == expected
	} else {
		seen, ok = d.exec.ExclusiveCompareExchange(b, addr, expected, new)
	}
	d.fence.Emit(o, types.After)
	return seen, ok
}

// Dispatch is the untyped entry point: it runs kind k at width w on addr.
//
// Operand use per kind:
//
//	Write, Swap                     a = value
//	FetchThenOp, OpThenFetch, Modify a = operand
//	CompareExchange                 a = expected, b = new
//
// The result is the loaded, previous, resulting or observed value as the
// kind defines it (zero for Write and Modify). ok is the CompareExchange
// success flag and true for every other kind. Values are zero-extended and
// truncated to w.
func (d *Dispatcher) Dispatch(k types.Kind, w types.Width, o types.Ordering, addr unsafe.Pointer, op types.Op, a, b uint64) (result uint64, ok bool) {
	assertAligned(addr, w)
	a &= w.Mask()
	b &= w.Mask()
	switch k {
	case types.Read:
		return d.read(addr, w, o), true
	case types.Write:
		d.write(addr, w, a, o)
		return 0, true
	case types.Swap:
		return d.swap(addr, w, a, o), true
	case types.FetchThenOp:
		old, _ := d.rmw(addr, w, op, a, o)
		return old, true
	case types.OpThenFetch:
		_, nv := d.rmw(addr, w, op, a, o)
		return nv, true
	case types.Modify:
		d.rmw(addr, w, op, a, o)
		return 0, true
	case types.CompareExchange:
		return d.compareExchange(addr, w, a, b, o)
	}
	panic("dispatch: unknown operation kind " + k.String())
}
