// ============================================================================
// ATOMIC OPERATION VOCABULARY
// ============================================================================
//
// Shared enumerations consumed by every layer of the atomic core: operation
// kinds, arithmetic/logical ops, ordering levels, fence phases and the
// execution paths the dispatcher can select.
//
// Nothing in this package touches memory. It is pure vocabulary so that the
// capability model, fence emitter, dispatcher and retry executor can agree on
// names without importing each other.

package types

// ============================================================================
// OPERATION KINDS
// ============================================================================

// Kind identifies an operation family.
type Kind uint8

const (
	Read Kind = iota
	Write
	FetchThenOp // RMW returning the value before the op
	OpThenFetch // RMW returning the value after the op
	Swap
	CompareExchange
	Modify // RMW with no returned value
)

var kindNames = [...]string{
	Read:            "read",
	Write:           "write",
	FetchThenOp:     "fetch-then-op",
	OpThenFetch:     "op-then-fetch",
	Swap:            "swap",
	CompareExchange: "compare-exchange",
	Modify:          "modify",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(?)"
}

// IsRMW reports whether the kind reads, computes and writes in one atomic step.
func (k Kind) IsRMW() bool {
	return k == FetchThenOp || k == OpThenFetch || k == Swap || k == CompareExchange || k == Modify
}

// ============================================================================
// ARITHMETIC / LOGICAL OPS
// ============================================================================

// Op is the combining function of a read-modify-write.
type Op uint8

const (
	Add Op = iota
	Sub
	Xor
	Or
	And
)

// Ops lists every supported op in declaration order.
var Ops = [...]Op{Add, Sub, Xor, Or, And}

var opNames = [...]string{
	Add: "add",
	Sub: "sub",
	Xor: "xor",
	Or:  "or",
	And: "and",
}

func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return "op(?)"
}

// ParseOp maps a lowercase op name back to its Op.
func ParseOp(s string) (Op, bool) {
	for i, n := range opNames {
		if n == s {
			return Op(i), true
		}
	}
	return 0, false
}

// Apply computes old <op> operand truncated to width w. Both inputs are
// expected zero-extended; the result always is.
//
//go:nosplit
func (op Op) Apply(old, operand uint64, w Width) uint64 {
	var v uint64
	switch op {
	case Add:
		v = old + operand
	case Sub:
		v = old - operand
	case Xor:
		v = old ^ operand
	case Or:
		v = old | operand
	case And:
		v = old & operand
	}
	return v & w.Mask()
}

// ============================================================================
// MEMORY ORDERING
// ============================================================================

// Ordering is the visibility contract of a single atomic operation.
type Ordering uint8

const (
	Relaxed Ordering = iota
	Acquire
	Release
	SequentiallyConsistent
)

var orderingNames = [...]string{
	Relaxed:                "relaxed",
	Acquire:                "acquire",
	Release:                "release",
	SequentiallyConsistent: "seq_cst",
}

func (o Ordering) String() string {
	if int(o) < len(orderingNames) {
		return orderingNames[o]
	}
	return "ordering(?)"
}

// ParseOrdering maps an ordering name back to its Ordering.
func ParseOrdering(s string) (Ordering, bool) {
	for i, n := range orderingNames {
		if n == s {
			return Ordering(i), true
		}
	}
	return 0, false
}

// HasAcquire reports whether loads must not be reordered after this op.
func (o Ordering) HasAcquire() bool { return o == Acquire || o == SequentiallyConsistent }

// HasRelease reports whether prior stores must be visible before this op.
func (o Ordering) HasRelease() bool { return o == Release || o == SequentiallyConsistent }

// Phase places a fence relative to the atomic instruction sequence.
type Phase uint8

const (
	Before Phase = iota
	After
)

func (p Phase) String() string {
	if p == Before {
		return "before"
	}
	return "after"
}

// ============================================================================
// EXECUTION PATHS
// ============================================================================

// Path is the implementation strategy the dispatcher selected for a call.
type Path uint8

const (
	// Direct is a plain or acquire/release single load or store.
	Direct Path = iota
	// Accelerated is a single-instruction atomic from the extension.
	Accelerated
	// CASLoop is load/compute/compare-and-swap with retry.
	CASLoop
	// ExclusiveLoop is load-exclusive/compute/store-exclusive with retry.
	ExclusiveLoop
)

// Paths lists every path in declaration order.
var Paths = [...]Path{Direct, Accelerated, CASLoop, ExclusiveLoop}

var pathNames = [...]string{
	Direct:        "direct",
	Accelerated:   "accelerated",
	CASLoop:       "cas-loop",
	ExclusiveLoop: "exclusive-loop",
}

func (p Path) String() string {
	if int(p) < len(pathNames) {
		return pathNames[p]
	}
	return "path(?)"
}

// ParsePath maps a path name back to its Path.
func ParsePath(s string) (Path, bool) {
	for i, n := range pathNames {
		if n == s {
			return Path(i), true
		}
	}
	return 0, false
}
