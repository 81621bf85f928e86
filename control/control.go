// control.go: Start gate, stop flag and worker accounting for probe runs
// ============================================================================
// PROBE CONTROL ORCHESTRATION
// ============================================================================
//
// A Gate coordinates a set of pinned bench workers:
//
//   • start flag: workers spin until the coordinator releases them together
//   • stop flag:  any party may request early termination
//   • running:    number of workers between Enter and Exit
//
// The flags are published with release stores and observed with acquire
// loads through the atomic core itself, so every probe run also exercises
// the ordering contract it is measuring.
//
// Threading model:
//   • Coordinator calls Release once the workers are parked
//   • Workers poll Stopped() between operation batches
//   • Signal handlers call the package-level Shutdown on the process gate

package control

import (
	"runtime"

	"atomcore/atom"
	"atomcore/types"
)

// ============================================================================
// GATE
// ============================================================================

// Gate is one set of coordination flags. The zero value is closed, running,
// and has no workers.
type Gate struct {
	_       [64]byte
	start   uint32 // 1 = workers may begin
	_       [60]byte
	stop    uint32 // 1 = terminate as soon as possible
	_       [60]byte
	running uint32 // workers between Enter and Exit
	_       [60]byte
}

// Release opens the start gate.
func (g *Gate) Release() {
	atom.Write(&g.start, 1, types.Release)
}

// Started reports whether the start gate is open.
func (g *Gate) Started() bool {
	return atom.Read(&g.start, types.Acquire) == 1
}

// Shutdown raises the stop flag.
func (g *Gate) Shutdown() {
	atom.Write(&g.stop, 1, types.Release)
}

// Stopped reports whether the stop flag is raised.
func (g *Gate) Stopped() bool {
	return atom.Read(&g.stop, types.Acquire) == 1
}

// AwaitStart spins until the gate opens and reports true, or until the stop
// flag is raised and reports false.
func (g *Gate) AwaitStart() bool {
	for spins := 0; ; spins++ {
		if g.Started() {
			return true
		}
		if g.Stopped() {
			return false
		}
		if spins&63 == 63 {
			runtime.Gosched()
		}
	}
}

// Enter registers a worker.
func (g *Gate) Enter() {
	atom.Modify(&g.running, types.Add, 1, types.Relaxed)
}

// Exit deregisters a worker.
func (g *Gate) Exit() {
	atom.Modify(&g.running, types.Sub, 1, types.Release)
}

// Running returns the number of registered workers.
func (g *Gate) Running() uint32 {
	return atom.Read(&g.running, types.Acquire)
}

// Reset closes the gate and clears the stop flag. Call only while no worker
// is registered.
func (g *Gate) Reset() {
	atom.Write(&g.start, 0, types.Relaxed)
	atom.Write(&g.stop, 0, types.Relaxed)
	atom.Write(&g.running, 0, types.SequentiallyConsistent)
}

// Flags returns direct pointers to the stop and start flags for workers
// that poll them through the atomic surface themselves.
func (g *Gate) Flags() (stop, start *uint32) {
	return &g.stop, &g.start
}

// ============================================================================
// PROCESS GATE
// ============================================================================

var process Gate

// Process returns the process-wide gate watched by every probe run.
func Process() *Gate { return &process }

// Shutdown raises the process stop flag. Safe from signal-handling goroutines.
func Shutdown() { process.Shutdown() }

// Stopped reports whether the process stop flag is raised.
func Stopped() bool { return process.Stopped() }
