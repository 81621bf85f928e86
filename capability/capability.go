// ============================================================================
// CAPABILITY MODEL
// ============================================================================
//
// Process-wide facts about which atomic strategy the deployment may use:
//
//   - whether the single-instruction extension is present and permitted
//   - per op, whether the extension is preferable to the exclusive retry loop
//
// Not every op has a combined load/op/store instruction. There is an
// atomic add and an atomic exclusive-or, but no atomic subtract, or, and
// (as single instructions with these semantics). For those ops the core
// falls back to a CAS loop or to LL/SC; PreferCASForOps picks which one when
// the extension is otherwise available.
//
// A Capability is immutable. The process value is resolved once, on first
// use, and never changes afterwards.

package capability

import (
	"errors"
	"sync"

	"atomcore/constants"
	"atomcore/debug"
	"atomcore/types"
)

// direct marks ops that have a single accelerated instruction.
var direct = [...]bool{
	types.Add: true,
	types.Sub: false,
	types.Xor: true,
	types.Or:  false,
	types.And: false,
}

// HasDirectInstruction reports whether op maps onto one accelerated instruction.
//
//go:nosplit
func HasDirectInstruction(op types.Op) bool {
	return int(op) < len(direct) && direct[op]
}

// Capability is an immutable capability snapshot.
type Capability struct {
	accelerated bool
	preferCAS   bool
}

// New builds a capability from explicit facts. It performs no host check;
// use Resolve for that.
func New(hasAccelerated, preferCASForOps bool) Capability {
	return Capability{accelerated: hasAccelerated, preferCAS: preferCASForOps}
}

// HasAcceleratedExtension reports whether single-instruction atomics may be used.
func (c Capability) HasAcceleratedExtension() bool { return c.accelerated }

// PreferCASForOps reports the policy for ops without a direct instruction.
func (c Capability) PreferCASForOps() bool { return c.preferCAS }

// PrefersAccelerated reports whether op should avoid the exclusive retry
// loop: the extension is present and either op has a direct instruction or
// the CAS preference is on.
//
//go:nosplit
func (c Capability) PrefersAccelerated(op types.Op) bool {
	return c.accelerated && (HasDirectInstruction(op) || c.preferCAS)
}

func (c Capability) String() string {
	s := "accelerated="
	if c.accelerated {
		s += "yes"
	} else {
		s += "no"
	}
	s += " prefer-cas="
	if c.preferCAS {
		s += "yes"
	} else {
		s += "no"
	}
	return s
}

// ============================================================================
// RESOLUTION
// ============================================================================

// ErrAcceleratedUnavailable is returned when a configuration requires the
// extension on a host that does not have it.
var ErrAcceleratedUnavailable = errors.New("capability: accelerated atomics required but not present on this host")

// Config is the deployment input to Resolve.
type Config struct {
	// AllowAccelerated permits the extension when the host has it.
	AllowAccelerated bool
	// RequireAccelerated turns a missing extension into an error instead of
	// a silent fallback.
	RequireAccelerated bool
	// PreferCASForOps selects CAS over LL/SC for ops without a direct instruction.
	PreferCASForOps bool
}

// DefaultConfig returns the build-time configuration.
func DefaultConfig() Config {
	return Config{
		AllowAccelerated: constants.AllowAccelerated,
		PreferCASForOps:  constants.PreferCASForOps,
	}
}

// Resolve combines cfg with what the host offers.
func Resolve(cfg Config, hostHasAccelerated bool) (Capability, error) {
	if cfg.RequireAccelerated && !hostHasAccelerated {
		return Capability{}, ErrAcceleratedUnavailable
	}
	return New(cfg.AllowAccelerated && hostHasAccelerated, cfg.PreferCASForOps), nil
}

// ============================================================================
// PROCESS-WIDE STATE
// ============================================================================

var (
	processOnce sync.Once
	process     Capability
)

// Process returns the process capability, resolving it from DefaultConfig
// and Detect on first use.
func Process() Capability {
	processOnce.Do(func() {
		c, err := Resolve(DefaultConfig(), Detect())
		if err != nil {
			debug.DropError("CAPABILITY", err)
		}
		process = c
		debug.DropMessage("CAPABILITY", c.String())
	})
	return process
}

// ErrAlreadyResolved is returned by Install after the process capability
// has been fixed.
var ErrAlreadyResolved = errors.New("capability: process capability already resolved")

// Install fixes the process capability to c. It must run before the first
// call to Process; afterwards it fails with ErrAlreadyResolved.
func Install(c Capability) error {
	installed := false
	processOnce.Do(func() {
		process = c
		installed = true
		debug.DropMessage("CAPABILITY", "installed "+c.String())
	})
	if !installed {
		return ErrAlreadyResolved
	}
	return nil
}
