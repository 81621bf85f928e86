// ============================================================================
// PER-WIDTH PRIMITIVE BACKEND
// ============================================================================
//
// The dispatcher is written once against Backend; a Table maps each operand
// width to the implementation that knows how to touch a cell of that size.
//
// Values cross this boundary as uint64, zero-extended to 64 bits. Every
// comparison and every store looks only at the low Width() bits.
//
// Primitive families:
//   - Load / LoadAcquire, Store / StoreRelease   single access
//   - LoadExclusive / StoreExclusive             LL/SC pair (emulated monitor)
//   - CAS, Swap, RMW                             accelerated single operations
//
// Go exposes no separate relaxed or acquire-only atomics: every sync/atomic
// access is sequentially consistent, which is a superset of what each
// variant requires. The variants are still distinct entries so call sites
// say what they need.
//
// Sub-word widths (8, 16) operate on the naturally aligned 32-bit word that
// contains the cell, masking the neighbouring lanes out of every comparison.

package backend

import (
	"unsafe"

	"atomcore/monitor"
	"atomcore/types"
)

// Backend is the primitive set for one operand width.
type Backend interface {
	// Width is the operand width served.
	Width() types.Width

	// Load is a single-copy atomic load.
	Load(addr unsafe.Pointer) uint64
	// LoadAcquire is a load no later access may be reordered before.
	LoadAcquire(addr unsafe.Pointer) uint64
	// Store is a single-copy atomic store.
	Store(addr unsafe.Pointer, v uint64)
	// StoreRelease is a store no earlier access may be reordered after.
	StoreRelease(addr unsafe.Pointer, v uint64)

	// LoadExclusive loads the cell and opens a reservation on its granule.
	LoadExclusive(addr unsafe.Pointer) Exclusive
	// StoreExclusive stores v only if the reservation in x is still intact.
	// It reports false on conflict and never writes in that case.
	StoreExclusive(addr unsafe.Pointer, x Exclusive, v uint64) bool

	// CAS installs new if the cell equals old and returns the value observed
	// at the attempt; the swap happened iff the result equals old.
	CAS(addr unsafe.Pointer, old, new uint64) uint64
	// Swap installs v and returns the previous value.
	Swap(addr unsafe.Pointer, v uint64) uint64
	// RMW applies op with operand and returns the previous value.
	RMW(addr unsafe.Pointer, op types.Op, operand uint64) uint64
}

// Exclusive is the state carried from LoadExclusive to StoreExclusive.
type Exclusive struct {
	// Value is the loaded cell value, zero-extended.
	Value uint64
	r     monitor.Reservation
}

// ============================================================================
// WIDTH TABLE
// ============================================================================

// Table maps a width to its backend.
type Table struct {
	b [4]Backend
}

// NewTable builds the four width backends sharing monitor m.
func NewTable(m *monitor.Monitor) *Table {
	if m == nil {
		m = monitor.Default()
	}
	return &Table{b: [4]Backend{
		lane{mon: m, w: types.W8},
		lane{mon: m, w: types.W16},
		word32{mon: m},
		word64{mon: m},
	}}
}

var defaultTable = NewTable(monitor.Default())

// Default returns the table bound to the process monitor.
func Default() *Table { return defaultTable }

// For returns the backend for w.
//
//go:nosplit
func (t *Table) For(w types.Width) Backend {
	return t.b[w.Index()]
}

// claimAndCommit is the shared tail of StoreExclusive: the reservation must
// still be intact and the cell must still hold what LoadExclusive saw, which
// catches writers that never went through the monitor.
func claimAndCommit(b Backend, m *monitor.Monitor, addr unsafe.Pointer, x Exclusive, v uint64) bool {
	if !m.Claim(x.r) {
		return false
	}
	return b.CAS(addr, x.Value, v) == x.Value
}
