//go:build !atomdebug

package debug

import (
	"unsafe"

	"atomcore/types"
)

// Enabled reports whether precondition assertions are compiled in.
const Enabled = false

// AssertAligned is a no-op outside atomdebug builds.
//
//go:nosplit
func AssertAligned(addr unsafe.Pointer, w types.Width) {}
