//go:build atomdebug

package debug

import (
	"unsafe"

	"atomcore/types"
	"atomcore/utils"
)

// Enabled reports whether precondition assertions are compiled in.
const Enabled = true

// AssertAligned panics when addr is not naturally aligned for w or w is not
// a supported width.
func AssertAligned(addr unsafe.Pointer, w types.Width) {
	if !w.Valid() {
		panic("atomcore: unsupported operand width " + w.String())
	}
	if uintptr(addr)&(w.Bytes()-1) != 0 {
		panic("atomcore: misaligned " + w.String() + "-bit location at " + utils.Hex(uint64(uintptr(addr))))
	}
}
