package backend

import (
	"sync/atomic"
	"unsafe"

	"atomcore/monitor"
	"atomcore/types"
)

// ============================================================================
// 32-BIT CELLS
// ============================================================================

type word32 struct {
	mon *monitor.Monitor
}

func (word32) Width() types.Width { return types.W32 }

func (word32) Load(addr unsafe.Pointer) uint64 {
	return uint64(atomic.LoadUint32((*uint32)(addr)))
}

func (word32) LoadAcquire(addr unsafe.Pointer) uint64 {
	return uint64(atomic.LoadUint32((*uint32)(addr)))
}

func (word32) Store(addr unsafe.Pointer, v uint64) {
	atomic.StoreUint32((*uint32)(addr), uint32(v))
}

func (word32) StoreRelease(addr unsafe.Pointer, v uint64) {
	atomic.StoreUint32((*uint32)(addr), uint32(v))
}

func (b word32) LoadExclusive(addr unsafe.Pointer) Exclusive {
	r := b.mon.Reserve(addr)
	return Exclusive{Value: b.Load(addr), r: r}
}

func (b word32) StoreExclusive(addr unsafe.Pointer, x Exclusive, v uint64) bool {
	return claimAndCommit(b, b.mon, addr, x, v)
}

func (word32) CAS(addr unsafe.Pointer, old, new uint64) uint64 {
	p := (*uint32)(addr)
	o, n := uint32(old), uint32(new)
	for {
		prev := atomic.LoadUint32(p)
		if prev != o {
			return uint64(prev)
		}
		if atomic.CompareAndSwapUint32(p, o, n) {
			return old
		}
	}
}

func (word32) Swap(addr unsafe.Pointer, v uint64) uint64 {
	return uint64(atomic.SwapUint32((*uint32)(addr), uint32(v)))
}

func (word32) RMW(addr unsafe.Pointer, op types.Op, operand uint64) uint64 {
	p := (*uint32)(addr)
	d := uint32(operand)
	switch op {
	case types.Add:
		return uint64(atomic.AddUint32(p, d) - d)
	case types.Sub:
		return uint64(atomic.AddUint32(p, -d) + d)
	case types.Or:
		return uint64(atomic.OrUint32(p, d))
	case types.And:
		return uint64(atomic.AndUint32(p, d))
	}
	// no sync/atomic xor
	for {
		o := atomic.LoadUint32(p)
		if atomic.CompareAndSwapUint32(p, o, o^d) {
			return uint64(o)
		}
	}
}

// ============================================================================
// 64-BIT CELLS
// ============================================================================

type word64 struct {
	mon *monitor.Monitor
}

func (word64) Width() types.Width { return types.W64 }

func (word64) Load(addr unsafe.Pointer) uint64 {
	return atomic.LoadUint64((*uint64)(addr))
}

func (word64) LoadAcquire(addr unsafe.Pointer) uint64 {
	return atomic.LoadUint64((*uint64)(addr))
}

func (word64) Store(addr unsafe.Pointer, v uint64) {
	atomic.StoreUint64((*uint64)(addr), v)
}

func (word64) StoreRelease(addr unsafe.Pointer, v uint64) {
	atomic.StoreUint64((*uint64)(addr), v)
}

func (b word64) LoadExclusive(addr unsafe.Pointer) Exclusive {
	r := b.mon.Reserve(addr)
	return Exclusive{Value: b.Load(addr), r: r}
}

func (b word64) StoreExclusive(addr unsafe.Pointer, x Exclusive, v uint64) bool {
	return claimAndCommit(b, b.mon, addr, x, v)
}

func (word64) CAS(addr unsafe.Pointer, old, new uint64) uint64 {
	p := (*uint64)(addr)
	for {
		prev := atomic.LoadUint64(p)
		if prev != old {
			return prev
		}
		if atomic.CompareAndSwapUint64(p, old, new) {
			return old
		}
	}
}

func (word64) Swap(addr unsafe.Pointer, v uint64) uint64 {
	return atomic.SwapUint64((*uint64)(addr), v)
}

func (word64) RMW(addr unsafe.Pointer, op types.Op, operand uint64) uint64 {
	p := (*uint64)(addr)
	switch op {
	case types.Add:
		return atomic.AddUint64(p, operand) - operand
	case types.Sub:
		return atomic.AddUint64(p, -operand) + operand
	case types.Or:
		return atomic.OrUint64(p, operand)
	case types.And:
		return atomic.AndUint64(p, operand)
	}
	for {
		o := atomic.LoadUint64(p)
		if atomic.CompareAndSwapUint64(p, o, o^operand) {
			return o
		}
	}
}
