package dispatch

import (
	"unsafe"

	"atomcore/debug"
	"atomcore/types"
)

// ============================================================================
// TYPED SURFACE
// ============================================================================
//
// One generic entry per operation. The width comes from W; signed types are
// zero-extended on the way in and converted back on the way out, so a
// negative int8 round-trips unchanged.

func assertAligned(addr unsafe.Pointer, w types.Width) {
	if debug.Enabled {
		debug.AssertAligned(addr, w)
	}
}

// Read loads *loc.
func Read[W types.Word](d *Dispatcher, loc *W, o types.Ordering) W {
	w := types.WidthOf[W]()
	p := unsafe.Pointer(loc)
	assertAligned(p, w)
	return W(d.read(p, w, o))
}

// Write stores v to *loc.
func Write[W types.Word](d *Dispatcher, loc *W, v W, o types.Ordering) {
	w := types.WidthOf[W]()
	p := unsafe.Pointer(loc)
	assertAligned(p, w)
	d.write(p, w, types.Extend(v), o)
}

// Swap stores v to *loc and returns the previous value.
func Swap[W types.Word](d *Dispatcher, loc *W, v W, o types.Ordering) W {
	w := types.WidthOf[W]()
	p := unsafe.Pointer(loc)
	assertAligned(p, w)
	return W(d.swap(p, w, types.Extend(v), o))
}

// FetchOp applies op to *loc and returns the value before.
func FetchOp[W types.Word](d *Dispatcher, loc *W, op types.Op, operand W, o types.Ordering) W {
	w := types.WidthOf[W]()
	p := unsafe.Pointer(loc)
	assertAligned(p, w)
	old, _ := d.rmw(p, w, op, types.Extend(operand), o)
	return W(old)
}

// OpFetch applies op to *loc and returns the value after.
func OpFetch[W types.Word](d *Dispatcher, loc *W, op types.Op, operand W, o types.Ordering) W {
	w := types.WidthOf[W]()
	p := unsafe.Pointer(loc)
	assertAligned(p, w)
	_, nv := d.rmw(p, w, op, types.Extend(operand), o)
	return W(nv)
}

// Modify applies op to *loc without returning a value.
func Modify[W types.Word](d *Dispatcher, loc *W, op types.Op, operand W, o types.Ordering) {
	w := types.WidthOf[W]()
	p := unsafe.Pointer(loc)
	assertAligned(p, w)
	d.rmw(p, w, op, types.Extend(operand), o)
}

// CompareExchange installs new if *loc equals expected. It returns the value
// observed at the attempt and whether the install happened. A mismatch never
// writes.
func CompareExchange[W types.Word](d *Dispatcher, loc *W, expected, new W, o types.Ordering) (W, bool) {
	w := types.WidthOf[W]()
	p := unsafe.Pointer(loc)
	assertAligned(p, w)
	seen, ok := d.compareExchange(p, w, types.Extend(expected), types.Extend(new), o)
	return W(seen), ok
}
