// ============================================================================
// CONTENTION BENCH
// ============================================================================
//
// Measures each retry strategy under real contention so the CAS-vs-exclusive
// preference can be decided from data on the target host.
//
// One Case = (path, op, width, goroutines, ops per worker):
//
//	Enter × N → park on gate → Release → N workers hammer one cell → Wait
//
// Workers are locked to OS threads and, on linux, pinned to distinct cores.
// Every case ends with a correctness check of the final cell value; Add
// cases that fit in the sample budget also verify the returned "before"
// values are exactly 0..N-1 (linearizable increments).
//
// Cancellation: the context, the process stop flag (SIGINT) or a worker
// error raises the case gate's stop flag; workers observe it between
// batches.

package bench

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"time"
	"unsafe"

	"golang.org/x/sync/errgroup"

	"atomcore/backend"
	"atomcore/capability"
	"atomcore/constants"
	"atomcore/control"
	"atomcore/dispatch"
	"atomcore/monitor"
	"atomcore/retry"
	"atomcore/types"
)

var (
	// ErrLostUpdate reports a final value or before-value set that does not
	// match what the operations must have produced.
	ErrLostUpdate = errors.New("bench: lost update")

	// ErrInterrupted reports a case stopped through the process gate.
	ErrInterrupted = errors.New("bench: interrupted")
)

// pollEvery is the batch size between stop-flag checks.
const pollEvery = 1024

// ============================================================================
// CONFIGURATION
// ============================================================================

// Case is one measured configuration.
type Case struct {
	Path         types.Path
	Op           types.Op
	Width        types.Width
	Ordering     types.Ordering
	Goroutines   int
	OpsPerWorker int
}

// Key identifies the case in reports and the store.
func (c Case) Key() string {
	return fmt.Sprintf("%s/%s/%s/g%d", c.Op, c.Width, c.Path, c.Goroutines)
}

// Config is a sweep over cases.
type Config struct {
	Paths        []types.Path
	Ops          []types.Op
	Widths       []types.Width
	Ordering     types.Ordering
	Goroutines   int
	OpsPerWorker int
	// Pin pins worker i to core i mod NumCPU where supported.
	Pin bool
}

// DefaultConfig sweeps every RMW strategy, op and width.
func DefaultConfig() Config {
	return Config{
		Paths:        []types.Path{types.Accelerated, types.CASLoop, types.ExclusiveLoop},
		Ops:          slices.Clone(types.Ops[:]),
		Widths:       slices.Clone(types.Widths[:]),
		Ordering:     types.Relaxed,
		Goroutines:   constants.BenchGoroutines,
		OpsPerWorker: constants.BenchOpsPerWorker,
		Pin:          true,
	}
}

// Cases expands the sweep in op, width, path order.
func (cfg Config) Cases() []Case {
	out := make([]Case, 0, len(cfg.Ops)*len(cfg.Widths)*len(cfg.Paths))
	for _, op := range cfg.Ops {
		for _, w := range cfg.Widths {
			for _, p := range cfg.Paths {
				out = append(out, Case{
					Path:         p,
					Op:           op,
					Width:        w,
					Ordering:     cfg.Ordering,
					Goroutines:   cfg.Goroutines,
					OpsPerWorker: cfg.OpsPerWorker,
				})
			}
		}
	}
	return out
}

func (cfg Config) validate() error {
	if cfg.Goroutines < 1 {
		return fmt.Errorf("bench: goroutines must be positive, got %d", cfg.Goroutines)
	}
	if cfg.OpsPerWorker < 1 {
		return fmt.Errorf("bench: ops per worker must be positive, got %d", cfg.OpsPerWorker)
	}
	for _, p := range cfg.Paths {
		if p == types.Direct {
			return fmt.Errorf("bench: path %s does not perform read-modify-write", p)
		}
	}
	for _, w := range cfg.Widths {
		if !w.Valid() {
			return fmt.Errorf("bench: unsupported width %d", w)
		}
	}
	return nil
}

// ============================================================================
// RESULTS
// ============================================================================

// Result is the outcome of one case.
type Result struct {
	Case
	Ops       uint64
	Elapsed   time.Duration
	Conflicts uint64
	Final     uint64
	// Linearized is set when the before-value set was checked.
	Linearized bool
}

// NsPerOp is the wall-clock cost per operation across all workers.
func (r Result) NsPerOp() float64 {
	if r.Ops == 0 {
		return 0
	}
	return float64(r.Elapsed.Nanoseconds()) / float64(r.Ops)
}

// OpsPerSec is the aggregate throughput.
func (r Result) OpsPerSec() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Ops) / r.Elapsed.Seconds()
}

// ConflictsPerOp is the mean number of rejected retry iterations per op.
func (r Result) ConflictsPerOp() float64 {
	if r.Ops == 0 {
		return 0
	}
	return float64(r.Conflicts) / float64(r.Ops)
}

// ============================================================================
// EXECUTION
// ============================================================================

// Run executes every case of cfg in order. onResult, if non-nil, sees each
// result as it completes. The first failing case stops the sweep; results
// gathered so far are returned with the error.
func Run(ctx context.Context, cfg Config, onResult func(Result)) ([]Result, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cases := cfg.Cases()
	out := make([]Result, 0, len(cases))
	for _, c := range cases {
		r, err := runCase(ctx, c, cfg.Pin)
		if err != nil {
			return out, fmt.Errorf("bench: %s: %w", c.Key(), err)
		}
		out = append(out, r)
		if onResult != nil {
			onResult(r)
		}
	}
	return out, nil
}

// RunCase executes one case without pinning.
func RunCase(ctx context.Context, c Case) (Result, error) {
	return runCase(ctx, c, false)
}

// cell isolates the contended location on its own cache line.
type cell struct {
	_ [64]byte
	v uint64
	_ [56]byte
}

func runCase(ctx context.Context, c Case, pin bool) (Result, error) {
	var (
		loc   cell
		stats retry.Stats
		gate  control.Gate
	)
	d := dispatch.New(capability.New(true, true),
		dispatch.WithTable(backend.NewTable(new(monitor.Monitor))),
		dispatch.WithStats(&stats),
		dispatch.ForcePath(c.Path),
	)
	addr := unsafe.Pointer(&loc.v)
	w := c.Width
	operand, initial := operandFor(c.Op, w)
	d.Dispatch(types.Write, w, types.SequentiallyConsistent, addr, 0, initial, 0)

	total := uint64(c.Goroutines) * uint64(c.OpsPerWorker)
	sample := c.Op == types.Add && total <= constants.BenchSampleLimit && total-1 <= w.Mask()
	befores := make([][]uint64, c.Goroutines)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < c.Goroutines; i++ {
		gate.Enter()
		g.Go(func() error {
			defer gate.Exit()
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
			if pin {
				setAffinity(i % runtime.NumCPU())
			}
			if !gate.AwaitStart() {
				return interrupted(gctx)
			}
			var seen []uint64
			if sample {
				seen = make([]uint64, 0, c.OpsPerWorker)
			}
			for n := 0; n < c.OpsPerWorker; n++ {
				if n%pollEvery == 0 && (gate.Stopped() || control.Stopped()) {
					return interrupted(gctx)
				}
				old, _ := d.Dispatch(types.FetchThenOp, w, c.Ordering, addr, c.Op, operand, 0)
				if sample {
					seen = append(seen, old)
				}
			}
			befores[i] = seen
			return nil
		})
	}

	// stop parked or running workers when the group fails or ctx ends
	watch := make(chan struct{})
	go func() {
		defer close(watch)
		<-gctx.Done()
		gate.Shutdown()
	}()

	start := time.Now()
	gate.Release()
	err := g.Wait()
	elapsed := time.Since(start)
	<-watch
	if err != nil {
		return Result{}, err
	}

	final, _ := d.Dispatch(types.Read, w, types.SequentiallyConsistent, addr, 0, 0, 0)
	r := Result{
		Case:      c,
		Ops:       total,
		Elapsed:   elapsed,
		Conflicts: stats.Conflicts(),
		Final:     final,
	}
	if want := expectedFinal(c.Op, initial, operand, total, w); final != want {
		return r, fmt.Errorf("%w: final %#x, want %#x", ErrLostUpdate, final, want)
	}
	if sample {
		if err := checkLinearized(befores); err != nil {
			return r, err
		}
		r.Linearized = true
	}
	return r, nil
}

// interrupted is the error of a worker that saw the stop flag. When the
// group was cancelled by a failing sibling, that sibling's error wins.
func interrupted(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return ErrInterrupted
}

// operandFor picks an operand and starting value under which every op keeps
// changing or re-asserting the cell, and whose final value is predictable.
func operandFor(op types.Op, w types.Width) (operand, initial uint64) {
	switch op {
	case types.Or:
		return w.SignBit(), 0
	case types.And:
		return w.Mask() >> 1, w.Mask()
	default:
		return 1, 0
	}
}

func expectedFinal(op types.Op, initial, operand, total uint64, w types.Width) uint64 {
	switch op {
	case types.Add:
		return (initial + operand*total) & w.Mask()
	case types.Sub:
		return (initial - operand*total) & w.Mask()
	case types.Xor:
		if total%2 == 1 {
			return (initial ^ operand) & w.Mask()
		}
		return initial
	default:
		return op.Apply(initial, operand, w)
	}
}

func checkLinearized(befores [][]uint64) error {
	all := slices.Concat(befores...)
	slices.Sort(all)
	for i, v := range all {
		if v != uint64(i) {
			return fmt.Errorf("%w: before-value %d at rank %d (duplicate or gap)", ErrLostUpdate, v, i)
		}
	}
	return nil
}
