package types

import "unsafe"

// ============================================================================
// OPERAND WIDTHS
// ============================================================================

// Width is an operand size in bits. Only 8, 16, 32 and 64 are valid.
type Width uint8

const (
	W8  Width = 8
	W16 Width = 16
	W32 Width = 32
	W64 Width = 64
)

// Widths lists every supported width, narrowest first.
var Widths = [...]Width{W8, W16, W32, W64}

// Word is the set of Go integer types that map onto an atomic location.
// Signed types are carried through the core zero-extended and come back
// sign-correct on conversion.
type Word interface {
	~int8 | ~uint8 | ~int16 | ~uint16 | ~int32 | ~uint32 | ~int64 | ~uint64 | ~uintptr
}

// WidthOf returns the width of W.
//
//go:nosplit
func WidthOf[W Word]() Width {
	var zero W
	return Width(unsafe.Sizeof(zero) * 8)
}

// Bytes returns the width in bytes, which is also its required alignment.
//
//go:nosplit
func (w Width) Bytes() uintptr { return uintptr(w) >> 3 }

// Index maps a width to 0..3 for table lookups.
//
//go:nosplit
func (w Width) Index() int {
	switch w {
	case W8:
		return 0
	case W16:
		return 1
	case W32:
		return 2
	default:
		return 3
	}
}

// Valid reports whether w is one of the supported widths.
func (w Width) Valid() bool {
	return w == W8 || w == W16 || w == W32 || w == W64
}

// Mask returns a value with the low w bits set.
//
//go:nosplit
func (w Width) Mask() uint64 {
	if w >= W64 {
		return ^uint64(0)
	}
	return uint64(1)<<w - 1
}

// SignBit returns the width's sign-bit pattern.
//
//go:nosplit
func (w Width) SignBit() uint64 { return uint64(1) << (w - 1) }

func (w Width) String() string {
	switch w {
	case W8:
		return "8"
	case W16:
		return "16"
	case W32:
		return "32"
	case W64:
		return "64"
	}
	return "?"
}

// Extend zero-extends v into the 64-bit carrier used below the typed surface.
//
//go:nosplit
func Extend[W Word](v W) uint64 {
	return uint64(v) & WidthOf[W]().Mask()
}
