package backend

import (
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/cpu"

	"atomcore/monitor"
	"atomcore/types"
)

// ============================================================================
// 8/16-BIT CELLS (LANES OF A 32-BIT WORD)
// ============================================================================
//
// sync/atomic has no byte or halfword operations, so a sub-word cell is
// accessed through the aligned 32-bit word containing it. Only the lane's
// bits take part in comparisons; neighbouring lanes are carried through
// unchanged, and a concurrent change to a neighbour just costs a retry.
//
// Or and And map onto single word-wide atomics by widening the operand with
// identity bits (0 for or, 1 for and) outside the lane. Everything else needs
// a word CAS loop, since a carry out of the lane would corrupt its neighbour.

type lane struct {
	mon *monitor.Monitor
	w   types.Width
}

// locate returns the containing word and the lane's bit offset within it.
//
//go:nocheckptr
func (l lane) locate(addr unsafe.Pointer) (*uint32, uint) {
	off := uintptr(addr) & 3
	word := (*uint32)(unsafe.Add(addr, -int(off)))
	if cpu.IsBigEndian {
		return word, uint(4-off-l.w.Bytes()) * 8
	}
	return word, uint(off) * 8
}

//go:nosplit
func (l lane) mask() uint32 { return uint32(l.w.Mask()) }

//go:nosplit
func (l lane) extract(word uint32, shift uint) uint64 {
	return uint64(word>>shift) & l.w.Mask()
}

//go:nosplit
func (l lane) insert(word uint32, shift uint, v uint64) uint32 {
	m := l.mask() << shift
	return word&^m | uint32(v)<<shift&m
}

func (l lane) Width() types.Width { return l.w }

func (l lane) Load(addr unsafe.Pointer) uint64 {
	p, s := l.locate(addr)
	return l.extract(atomic.LoadUint32(p), s)
}

func (l lane) LoadAcquire(addr unsafe.Pointer) uint64 {
	return l.Load(addr)
}

// Store has no single sub-word atomic store to map onto; it replaces the
// lane through a word CAS and never disturbs the neighbours.
func (l lane) Store(addr unsafe.Pointer, v uint64) {
	l.Swap(addr, v)
}

func (l lane) StoreRelease(addr unsafe.Pointer, v uint64) {
	l.Swap(addr, v)
}

func (l lane) LoadExclusive(addr unsafe.Pointer) Exclusive {
	r := l.mon.Reserve(addr)
	return Exclusive{Value: l.Load(addr), r: r}
}

func (l lane) StoreExclusive(addr unsafe.Pointer, x Exclusive, v uint64) bool {
	return claimAndCommit(l, l.mon, addr, x, v)
}

func (l lane) CAS(addr unsafe.Pointer, old, new uint64) uint64 {
	p, s := l.locate(addr)
	for {
		w := atomic.LoadUint32(p)
		cur := l.extract(w, s)
		if cur != old {
			return cur
		}
		if atomic.CompareAndSwapUint32(p, w, l.insert(w, s, new)) {
			return old
		}
	}
}

func (l lane) Swap(addr unsafe.Pointer, v uint64) uint64 {
	p, s := l.locate(addr)
	for {
		w := atomic.LoadUint32(p)
		if atomic.CompareAndSwapUint32(p, w, l.insert(w, s, v)) {
			return l.extract(w, s)
		}
	}
}

func (l lane) RMW(addr unsafe.Pointer, op types.Op, operand uint64) uint64 {
	p, s := l.locate(addr)
	switch op {
	case types.Or:
		return l.extract(atomic.OrUint32(p, uint32(operand&l.w.Mask())<<s), s)
	case types.And:
		return l.extract(atomic.AndUint32(p, uint32(operand&l.w.Mask())<<s|^(l.mask()<<s)), s)
	}
	for {
		w := atomic.LoadUint32(p)
		cur := l.extract(w, s)
		if atomic.CompareAndSwapUint32(p, w, l.insert(w, s, op.Apply(cur, operand, l.w))) {
			return cur
		}
	}
}
