// ============================================================================
// EXCLUSIVE MONITOR VALIDATION SUITE
// ============================================================================
//
// Covers the reservation state machine (reserve → claim), invalidation by a
// competing claim, granule sharing, and concurrent claim exclusivity.

package monitor

import (
	"sync"
	"sync/atomic"
	"testing"
	"unsafe"
)

func TestReserveClaim_Succeeds(t *testing.T) {
	var m Monitor
	var cell uint64
	addr := unsafe.Pointer(&cell)

	before := m.Generation(addr)
	r := m.Reserve(addr)
	if !m.Claim(r) {
		t.Fatal("uncontended claim failed")
	}
	if got := m.Generation(addr); got != before+1 {
		t.Fatalf("generation = %d, want %d", got, before+1)
	}
}

func TestClaim_InvalidatesOtherReservations(t *testing.T) {
	var m Monitor
	var cell uint64
	addr := unsafe.Pointer(&cell)

	a := m.Reserve(addr)
	b := m.Reserve(addr)
	if !m.Claim(a) {
		t.Fatal("first claim failed")
	}
	if m.Claim(b) {
		t.Fatal("overtaken reservation was allowed to claim")
	}
}

func TestClaim_IsSingleUse(t *testing.T) {
	var m Monitor
	var cell uint32
	r := m.Reserve(unsafe.Pointer(&cell))
	if !m.Claim(r) {
		t.Fatal("claim failed")
	}
	if m.Claim(r) {
		t.Fatal("a reservation claimed twice")
	}
}

func TestClaim_ZeroReservation(t *testing.T) {
	var m Monitor
	if m.Claim(Reservation{}) {
		t.Fatal("zero reservation claimed")
	}
}

func TestSameGranule_NeighboursConflict(t *testing.T) {
	var m Monitor
	var line struct {
		_ [0]uint64
		a uint32
		b uint32
	}
	pa, pb := unsafe.Pointer(&line.a), unsafe.Pointer(&line.b)
	if uintptr(pa)>>6 != uintptr(pb)>>6 {
		t.Skip("fields straddle a granule boundary")
	}
	if !m.SameGranule(pa, pb) {
		t.Fatal("fields in one granule map to different slots")
	}

	ra := m.Reserve(pa)
	rb := m.Reserve(pb)
	if !m.Claim(rb) {
		t.Fatal("claim on b failed")
	}
	if m.Claim(ra) {
		t.Fatal("store to a neighbour in the granule did not clear the reservation")
	}
}

func TestDefault_IsShared(t *testing.T) {
	if Default() != Default() {
		t.Fatal("Default returned different monitors")
	}
}

// TestClaim_Exclusive races many reserve/claim pairs: the number of
// successful claims must equal the generation advance.
func TestClaim_Exclusive(t *testing.T) {
	var m Monitor
	var cell uint64
	addr := unsafe.Pointer(&cell)

	const workers, attempts = 8, 10_000
	var wins atomic.Uint64
	start := m.Generation(addr)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < attempts; i++ {
				if m.Claim(m.Reserve(addr)) {
					wins.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	if got := m.Generation(addr) - start; got != wins.Load() {
		t.Fatalf("generation advanced %d, successful claims %d", got, wins.Load())
	}
	if wins.Load() == 0 {
		t.Fatal("no claim ever succeeded")
	}
}
