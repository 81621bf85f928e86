// ============================================================================
// RETRY-LOOP EXECUTOR VALIDATION SUITE
// ============================================================================
//
// Test categories:
//   - Flavor selection per capability and op
//   - Loop results against a plain reference computation
//   - Conflict handling via injected store-exclusive / CAS failures
//   - Concurrency: no lost updates under contention

package retry

import (
	"fmt"
	"runtime"
	"sync"
	"testing"
	"unsafe"

	"atomcore/backend"
	"atomcore/capability"
	"atomcore/monitor"
	"atomcore/types"
)

// ============================================================================
// TEST UTILITIES
// ============================================================================

type cell struct {
	_ [0]uint64
	b [8]byte
}

func (c *cell) ptr() unsafe.Pointer { return unsafe.Pointer(&c.b[0]) }

// flaky rejects the first n exclusive stores.
type flaky struct {
	backend.Backend
	n int
}

func (f *flaky) StoreExclusive(addr unsafe.Pointer, x backend.Exclusive, v uint64) bool {
	if f.n > 0 {
		f.n--
		return false
	}
	return f.Backend.StoreExclusive(addr, x, v)
}

// racing bumps the cell behind the loop's back before each of the first n CAS
// attempts, as a competing writer would.
type racing struct {
	backend.Backend
	n int
}

func (r *racing) CAS(addr unsafe.Pointer, old, new uint64) uint64 {
	if r.n > 0 {
		r.n--
		r.Backend.RMW(addr, types.Add, 1)
	}
	return r.Backend.CAS(addr, old, new)
}

func forEachWidth(t *testing.T, fn func(t *testing.T, b backend.Backend)) {
	tab := backend.NewTable(new(monitor.Monitor))
	for _, w := range types.Widths {
		t.Run(fmt.Sprintf("w%d", w), func(t *testing.T) {
			fn(t, tab.For(w))
		})
	}
}

// ============================================================================
// FLAVOR SELECTION
// ============================================================================

func TestChoose(t *testing.T) {
	tests := []struct {
		accel, preferCAS bool
		op               types.Op
		want             types.Path
	}{
		{false, false, types.Add, types.ExclusiveLoop},
		{false, true, types.Or, types.ExclusiveLoop},
		{true, false, types.Or, types.ExclusiveLoop},
		{true, true, types.Or, types.CASLoop},
		{true, true, types.Sub, types.CASLoop},
		{true, false, types.Add, types.CASLoop},
	}
	for _, tc := range tests {
		c := capability.New(tc.accel, tc.preferCAS)
		if got := Choose(c, tc.op); got != tc.want {
			t.Errorf("Choose(%v, %v) = %v, want %v", c, tc.op, got, tc.want)
		}
		if got := New(c, nil).Choose(tc.op); got != tc.want {
			t.Errorf("Executor.Choose(%v, %v) = %v, want %v", c, tc.op, got, tc.want)
		}
	}
}

// ============================================================================
// LOOP RESULTS
// ============================================================================

func TestLoops_MatchReference(t *testing.T) {
	e := New(capability.New(false, false), nil)
	forEachWidth(t, func(t *testing.T, b backend.Backend) {
		w := b.Width()
		var c cell
		p := c.ptr()
		starts := []uint64{0, 1, w.SignBit(), w.Mask()}
		for _, op := range types.Ops {
			for _, start := range starts {
				for _, operand := range starts {
					want := op.Apply(start, operand, w)

					b.Store(p, start)
					old, nv := e.ExclusiveRMW(b, p, op, operand)
					if old != start || nv != want || b.Load(p) != want {
						t.Fatalf("ExclusiveRMW %v(%#x,%#x) = (%#x,%#x) cell %#x, want (%#x,%#x)",
							op, start, operand, old, nv, b.Load(p), start, want)
					}

					b.Store(p, start)
					old, nv = e.CASRMW(b, p, op, operand)
					if old != start || nv != want || b.Load(p) != want {
						t.Fatalf("CASRMW %v(%#x,%#x) = (%#x,%#x) cell %#x, want (%#x,%#x)",
							op, start, operand, old, nv, b.Load(p), start, want)
					}
				}
			}
		}
	})
}

func TestExclusiveSwap(t *testing.T) {
	e := New(capability.New(false, false), nil)
	forEachWidth(t, func(t *testing.T, b backend.Backend) {
		var c cell
		p := c.ptr()
		b.Store(p, 3)
		if got := e.ExclusiveSwap(b, p, b.Width().Mask()); got != 3 {
			t.Fatalf("ExclusiveSwap returned %d, want 3", got)
		}
		if got := b.Load(p); got != b.Width().Mask() {
			t.Fatalf("cell = %#x, want %#x", got, b.Width().Mask())
		}
	})
}

func TestExclusiveCompareExchange(t *testing.T) {
	forEachWidth(t, func(t *testing.T, b backend.Backend) {
		var st Stats
		e := New(capability.New(false, false), &st)
		var c cell
		p := c.ptr()
		b.Store(p, 5)

		if obs, ok := e.ExclusiveCompareExchange(b, p, 5, 10); !ok || obs != 5 {
			t.Fatalf("matching = (%d, %v), want (5, true)", obs, ok)
		}
		if obs, ok := e.ExclusiveCompareExchange(b, p, 5, 20); ok || obs != 10 {
			t.Fatalf("mismatching = (%d, %v), want (10, false)", obs, ok)
		}
		if got := b.Load(p); got != 10 {
			t.Fatalf("mismatch wrote: cell = %d", got)
		}
		if st.Conflicts() != 0 {
			t.Fatalf("mismatch counted as conflict: %d", st.Conflicts())
		}
		if st.Loops() != 2 {
			t.Fatalf("Loops = %d, want 2", st.Loops())
		}
	})
}

// ============================================================================
// CONFLICT HANDLING
// ============================================================================

func TestExclusiveRMW_RetriesOnConflict(t *testing.T) {
	forEachWidth(t, func(t *testing.T, b backend.Backend) {
		var st Stats
		e := New(capability.New(false, false), &st)
		var c cell
		p := c.ptr()
		b.Store(p, 1)

		f := &flaky{Backend: b, n: 7}
		old, nv := e.ExclusiveRMW(f, p, types.Add, 2)
		if old != 1 || nv != 3 || b.Load(p) != 3 {
			t.Fatalf("got (%d,%d) cell %d, want (1,3) cell 3", old, nv, b.Load(p))
		}
		if st.Conflicts() != 7 || st.Loops() != 1 {
			t.Fatalf("stats loops=%d conflicts=%d, want 1/7", st.Loops(), st.Conflicts())
		}
	})
}

func TestExclusiveCompareExchange_RetriesOnlyOnConflict(t *testing.T) {
	forEachWidth(t, func(t *testing.T, b backend.Backend) {
		var st Stats
		e := New(capability.New(false, false), &st)
		var c cell
		p := c.ptr()
		b.Store(p, 4)

		f := &flaky{Backend: b, n: 3}
		if obs, ok := e.ExclusiveCompareExchange(f, p, 4, 8); !ok || obs != 4 {
			t.Fatalf("got (%d, %v), want (4, true)", obs, ok)
		}
		if st.Conflicts() != 3 {
			t.Fatalf("conflicts = %d, want 3", st.Conflicts())
		}
	})
}

func TestCASRMW_UsesObservedValue(t *testing.T) {
	forEachWidth(t, func(t *testing.T, b backend.Backend) {
		var st Stats
		e := New(capability.New(true, true), &st)
		var c cell
		p := c.ptr()
		b.Store(p, 10)

		// each injected bump moves the cell by one before the CAS sees it
		r := &racing{Backend: b, n: 2}
		old, nv := e.CASRMW(r, p, types.Or, 0x80)
		if old != 12 || nv != 12|0x80 {
			t.Fatalf("got (%#x,%#x), want (0xc,0x8c)", old, nv)
		}
		if got := b.Load(p); got != 12|0x80 {
			t.Fatalf("cell = %#x, want 0x8c", got)
		}
		if st.Conflicts() != 2 {
			t.Fatalf("conflicts = %d, want 2", st.Conflicts())
		}
	})
}

func TestStats_NilAndReset(t *testing.T) {
	var nilStats *Stats
	nilStats.record(3) // must not panic

	var st Stats
	st.record(2)
	st.record(0)
	if st.Loops() != 2 || st.Conflicts() != 2 {
		t.Fatalf("loops=%d conflicts=%d, want 2/2", st.Loops(), st.Conflicts())
	}
	st.Reset()
	if st.Loops() != 0 || st.Conflicts() != 0 {
		t.Fatal("Reset left counters set")
	}
}

func TestBackoff_NoPanicAcrossThresholds(t *testing.T) {
	for n := 0; n < 3000; n++ {
		backoff(n)
	}
}

// ============================================================================
// CONCURRENCY
// ============================================================================

func TestContention_NoLostUpdates(t *testing.T) {
	const (
		workers = 4
		perG    = 20_000
	)
	flavors := []struct {
		name string
		run  func(e *Executor, b backend.Backend, p unsafe.Pointer)
	}{
		{"exclusive", func(e *Executor, b backend.Backend, p unsafe.Pointer) { e.ExclusiveRMW(b, p, types.Add, 1) }},
		{"cas", func(e *Executor, b backend.Backend, p unsafe.Pointer) { e.CASRMW(b, p, types.Add, 1) }},
	}
	for _, fl := range flavors {
		t.Run(fl.name, func(t *testing.T) {
			forEachWidth(t, func(t *testing.T, b backend.Backend) {
				e := New(capability.New(true, true), nil)
				var c cell
				p := c.ptr()
				var wg sync.WaitGroup
				for g := 0; g < workers; g++ {
					wg.Add(1)
					go func() {
						defer wg.Done()
						for i := 0; i < perG; i++ {
							fl.run(e, b, p)
							if i%1024 == 0 {
								runtime.Gosched()
							}
						}
					}()
				}
				wg.Wait()
				want := uint64(workers*perG) & b.Width().Mask()
				if got := b.Load(p); got != want {
					t.Fatalf("final = %d, want %d", got, want)
				}
			})
		})
	}
}

// Sub-word lanes sharing one word contend on the same containing word and
// the same monitor granule; every lane must still count exactly.
func TestContention_NeighbouringLanes(t *testing.T) {
	const perG = 10_000
	tab := backend.NewTable(new(monitor.Monitor))
	b8 := tab.For(types.W8)
	e := New(capability.New(false, false), nil)
	var c cell

	var wg sync.WaitGroup
	for lane := 0; lane < 4; lane++ {
		wg.Add(1)
		go func(p unsafe.Pointer) {
			defer wg.Done()
			for i := 0; i < perG; i++ {
				e.ExclusiveRMW(b8, p, types.Add, 1)
			}
		}(unsafe.Pointer(&c.b[lane]))
	}
	wg.Wait()
	for lane := 0; lane < 4; lane++ {
		if got, want := b8.Load(unsafe.Pointer(&c.b[lane])), uint64(perG)&0xFF; got != want {
			t.Errorf("lane %d = %d, want %d", lane, got, want)
		}
	}
}

func BenchmarkLoops(b *testing.B) {
	be := backend.NewTable(nil).For(types.W64)
	e := New(capability.New(true, true), nil)
	var c cell
	p := c.ptr()
	b.Run("exclusive", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			e.ExclusiveRMW(be, p, types.Or, uint64(i))
		}
	})
	b.Run("cas", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			e.CASRMW(be, p, types.Or, uint64(i))
		}
	})
}
