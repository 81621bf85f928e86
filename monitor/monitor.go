// ============================================================================
// EXCLUSIVE MONITOR EMULATION
// ============================================================================
//
// Software stand-in for the hardware exclusive monitor behind
// load-exclusive / store-exclusive.
//
// Model:
//   - Memory is split into reservation granules of 2^GranuleShift bytes.
//   - Each granule hashes onto one padded slot holding a generation counter.
//   - Reserve snapshots the generation; Claim succeeds only if no other
//     exclusive store claimed the same slot in between, and bumps it.
//
// Distinct granules sharing a slot and neighbours inside one granule cause
// spurious conflicts, exactly like a coarse hardware reservation granule.
// That is always safe: a conflict only means one more trip round the loop.
//
// The monitor alone does not see non-exclusive writers (plain stores, CAS,
// accelerated RMW). Backends pair Claim with a value check at commit time so
// an overtaken reservation still fails.

package monitor

import (
	"sync/atomic"
	"unsafe"

	"atomcore/constants"
	"atomcore/utils"
)

// slot is one reservation generation on its own cache line.
type slot struct {
	gen atomic.Uint64
	_   [56]byte
}

// Monitor is a table of reservation slots. The zero value is ready to use.
type Monitor struct {
	_     [64]byte
	slots [constants.MonitorSlots]slot
}

// Reservation is the token handed out by Reserve and consumed by Claim.
type Reservation struct {
	s   *slot
	gen uint64
}

var global Monitor

// Default returns the process-wide monitor shared by every backend that does
// not bring its own.
func Default() *Monitor { return &global }

// slotFor maps addr to the slot guarding its granule.
//
//go:nosplit
func (m *Monitor) slotFor(addr unsafe.Pointer) *slot {
	g := uint64(uintptr(addr)) >> constants.GranuleShift
	return &m.slots[utils.Mix64(g)&(constants.MonitorSlots-1)]
}

// Reserve opens an exclusive reservation on addr's granule. It must be taken
// before the exclusive load of the value.
func (m *Monitor) Reserve(addr unsafe.Pointer) Reservation {
	s := m.slotFor(addr)
	return Reservation{s: s, gen: s.gen.Load()}
}

// Claim closes r. It fails if another exclusive store claimed the granule
// since r was taken; on success every other open reservation on the granule
// is invalidated.
func (m *Monitor) Claim(r Reservation) bool {
	return r.s != nil && r.s.gen.CompareAndSwap(r.gen, r.gen+1)
}

// Generation returns the current generation of addr's granule.
func (m *Monitor) Generation(addr unsafe.Pointer) uint64 {
	return m.slotFor(addr).gen.Load()
}

// SameGranule reports whether a and b fall in the same reservation slot.
func (m *Monitor) SameGranule(a, b unsafe.Pointer) bool {
	return m.slotFor(a) == m.slotFor(b)
}
