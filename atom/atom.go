// ============================================================================
// PROCESS-WIDE ATOMIC SURFACE
// ============================================================================
//
// Thin generic wrappers over a single dispatcher built from the process
// capability on first use. Higher-level synchronization code imports this
// package and never sees capability resolution, backends or retry loops.
//
//	var refs uint32
//	atom.FetchOp(&refs, types.Add, 1, types.Acquire)
//
// The dispatcher is fixed for the life of the process. Anything that wants
// to shape it (policy file, build tags) must do so before the first call,
// through capability.Install.

package atom

import (
	"sync"

	"atomcore/capability"
	"atomcore/dispatch"
	"atomcore/types"
)

var (
	once sync.Once
	proc *dispatch.Dispatcher
)

// Dispatcher returns the process dispatcher.
func Dispatcher() *dispatch.Dispatcher {
	once.Do(func() {
		proc = dispatch.New(capability.Process())
	})
	return proc
}

// Read loads *loc.
func Read[W types.Word](loc *W, o types.Ordering) W {
	return dispatch.Read(Dispatcher(), loc, o)
}

// Write stores v to *loc.
func Write[W types.Word](loc *W, v W, o types.Ordering) {
	dispatch.Write(Dispatcher(), loc, v, o)
}

// Swap stores v to *loc and returns the previous value.
func Swap[W types.Word](loc *W, v W, o types.Ordering) W {
	return dispatch.Swap(Dispatcher(), loc, v, o)
}

// FetchOp applies op and returns the value before.
func FetchOp[W types.Word](loc *W, op types.Op, operand W, o types.Ordering) W {
	return dispatch.FetchOp(Dispatcher(), loc, op, operand, o)
}

// OpFetch applies op and returns the value after.
func OpFetch[W types.Word](loc *W, op types.Op, operand W, o types.Ordering) W {
	return dispatch.OpFetch(Dispatcher(), loc, op, operand, o)
}

// Modify applies op and discards the result.
func Modify[W types.Word](loc *W, op types.Op, operand W, o types.Ordering) {
	dispatch.Modify(Dispatcher(), loc, op, operand, o)
}

// CompareExchange installs new if *loc equals expected and returns the value
// observed at the attempt with the success flag.
func CompareExchange[W types.Word](loc *W, expected, new W, o types.Ordering) (W, bool) {
	return dispatch.CompareExchange(Dispatcher(), loc, expected, new, o)
}
