// ============================================================================
// DISPATCHER SELF-TEST
// ============================================================================
//
// Runs the core's behavioral guarantees against a live dispatcher so a
// deployment can confirm the resolved capability behaves on its hardware:
//
//   - Write/Read round trip of 0, all-ones and the sign bit at every width
//   - FetchOp(Add)/FetchOp(Sub) at the same boundaries
//   - CompareExchange success and failure, Swap
//   - no lost updates and linearizable "before" values under contention
//   - release/acquire publication of a plain payload

package selftest

import (
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync"

	"atomcore/dispatch"
	"atomcore/types"
)

// Check is the outcome of one named check.
type Check struct {
	Name string
	Err  error
}

// Passed reports whether the check succeeded.
func (c Check) Passed() bool { return c.Err == nil }

// Options sizes the concurrent checks.
type Options struct {
	Workers      int
	OpsPerWorker int
	PublishRound int
}

// DefaultOptions mirrors the two-thread, 100000-increment race.
func DefaultOptions() Options {
	return Options{Workers: 2, OpsPerWorker: 100_000, PublishRound: 1000}
}

// Run executes every check against d.
func Run(d *dispatch.Dispatcher, opt Options) []Check {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"write-read/8", func() error { return writeRead[uint8](d) }},
		{"write-read/16", func() error { return writeRead[uint16](d) }},
		{"write-read/32", func() error { return writeRead[uint32](d) }},
		{"write-read/64", func() error { return writeRead[uint64](d) }},
		{"add-sub/8", func() error { return addSub[uint8](d) }},
		{"add-sub/16", func() error { return addSub[uint16](d) }},
		{"add-sub/32", func() error { return addSub[uint32](d) }},
		{"add-sub/64", func() error { return addSub[uint64](d) }},
		{"fetch-add", func() error { return fetchAdd(d) }},
		{"compare-exchange", func() error { return compareExchange(d) }},
		{"swap", func() error { return swap(d) }},
		{"no-lost-update", func() error { return noLostUpdate(d, opt.Workers, opt.OpsPerWorker) }},
		{"happens-before", func() error { return happensBefore(d, opt.PublishRound) }},
	}
	out := make([]Check, len(checks))
	for i, c := range checks {
		out[i] = Check{Name: c.name, Err: c.fn()}
	}
	return out
}

// Failed joins the errors of every failed check, or returns nil.
func Failed(checks []Check) error {
	var errs []error
	for _, c := range checks {
		if c.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.Name, c.Err))
		}
	}
	return errors.Join(errs...)
}

// ============================================================================
// CHECKS
// ============================================================================

func boundaries[W types.Word]() []W {
	w := types.WidthOf[W]()
	return []W{0, W(w.Mask()), W(w.SignBit())}
}

func writeRead[W types.Word](d *dispatch.Dispatcher) error {
	var loc W
	for _, v := range boundaries[W]() {
		dispatch.Write(d, &loc, v, types.SequentiallyConsistent)
		if got := dispatch.Read(d, &loc, types.SequentiallyConsistent); got != v {
			return fmt.Errorf("wrote %#x, read %#x", v, got)
		}
	}
	return nil
}

func addSub[W types.Word](d *dispatch.Dispatcher) error {
	w := types.WidthOf[W]()
	var loc W
	for _, v := range boundaries[W]() {
		for _, op := range []types.Op{types.Add, types.Sub} {
			dispatch.Write(d, &loc, v, types.Relaxed)
			if old := dispatch.FetchOp(d, &loc, op, 1, types.SequentiallyConsistent); old != v {
				return fmt.Errorf("%v on %#x returned %#x", op, v, old)
			}
			want := W(op.Apply(types.Extend(v), 1, w))
			if got := dispatch.Read(d, &loc, types.Relaxed); got != want {
				return fmt.Errorf("%#x %v 1 = %#x, want %#x", v, op, got, want)
			}
		}
	}
	return nil
}

func fetchAdd(d *dispatch.Dispatcher) error {
	var loc uint32
	if old := dispatch.FetchOp(d, &loc, types.Add, 5, types.SequentiallyConsistent); old != 0 {
		return fmt.Errorf("returned %d, want 0", old)
	}
	if got := dispatch.Read(d, &loc, types.Relaxed); got != 5 {
		return fmt.Errorf("loc = %d, want 5", got)
	}
	return nil
}

func compareExchange(d *dispatch.Dispatcher) error {
	var loc uint32 = 5
	if seen, ok := dispatch.CompareExchange(d, &loc, 5, 10, types.SequentiallyConsistent); seen != 5 || !ok {
		return fmt.Errorf("matching attempt = (%d, %v), want (5, true)", seen, ok)
	}
	if seen, ok := dispatch.CompareExchange(d, &loc, 5, 20, types.SequentiallyConsistent); seen != 10 || ok {
		return fmt.Errorf("mismatching attempt = (%d, %v), want (10, false)", seen, ok)
	}
	if got := dispatch.Read(d, &loc, types.Relaxed); got != 10 {
		return fmt.Errorf("loc = %d, want 10", got)
	}
	return nil
}

func swap(d *dispatch.Dispatcher) error {
	var loc uint32 = 7
	if old := dispatch.Swap(d, &loc, 42, types.SequentiallyConsistent); old != 7 {
		return fmt.Errorf("returned %d, want 7", old)
	}
	if got := dispatch.Read(d, &loc, types.Relaxed); got != 42 {
		return fmt.Errorf("loc = %d, want 42", got)
	}
	return nil
}

func noLostUpdate(d *dispatch.Dispatcher, workers, perG int) error {
	var loc uint64
	seen := make([][]uint64, workers)
	var wg sync.WaitGroup
	for g := 0; g < workers; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out := make([]uint64, perG)
			for i := range out {
				out[i] = dispatch.FetchOp(d, &loc, types.Add, 1, types.SequentiallyConsistent)
			}
			seen[g] = out
		}()
	}
	wg.Wait()

	want := uint64(workers) * uint64(perG)
	if got := dispatch.Read(d, &loc, types.SequentiallyConsistent); got != want {
		return fmt.Errorf("final %d, want %d", got, want)
	}
	all := slices.Concat(seen...)
	slices.Sort(all)
	for i, v := range all {
		if v != uint64(i) {
			return fmt.Errorf("before-value %d at rank %d (duplicate or gap)", v, i)
		}
	}
	return nil
}

func happensBefore(d *dispatch.Dispatcher, rounds int) error {
	for round := 0; round < rounds; round++ {
		var (
			payload int
			flag    uint32
			got     = make(chan int)
		)
		go func() {
			for dispatch.Read(d, &flag, types.Acquire) != 1 {
				runtime.Gosched()
			}
			got <- payload
		}()
		payload = 99
		dispatch.Write(d, &flag, 1, types.Release)
		if v := <-got; v != 99 {
			return fmt.Errorf("round %d: payload %d after acquire", round, v)
		}
	}
	return nil
}
