// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: constants.go: Atomic core tunables
//
// Purpose:
//   - Sizes the emulated exclusive monitor and the retry back-off.
//   - Holds the defaults used by the contention bench and its result store.
//
// Notes:
//   - Deployment switches (accelerated extension, CAS preference) live in the
//     build-tagged siblings so they stay compile-time constants.
//
// ⚠️ No runtime logic here; all values must be compile-time resolvable
// ─────────────────────────────────────────────────────────────────────────────

package constants

// ───────────────────────────── Exclusive Monitor ────────────────────────────

const (
	// GranuleShift is log2 of the exclusive reservation granule in bytes.
	// 64 B matches the cache line and the common ARM ERG.
	GranuleShift = 6

	// MonitorBits sizes the reservation table: 2^8 = 256 padded slots = 16 KiB.
	// Distinct granules may share a slot; that only costs spurious conflicts.
	MonitorBits = 8

	// MonitorSlots is the number of reservation slots.
	MonitorSlots = 1 << MonitorBits
)

// ──────────────────────────────── Retry Loops ───────────────────────────────

const (
	// RelaxAfter is the number of consecutive conflicts a retry loop tolerates
	// before it starts emitting a CPU relax hint between attempts.
	RelaxAfter = 4

	// YieldAfter is the conflict count at which a loop also yields the P.
	// Keeps GOMAXPROCS=1 stress tests from spinning a whole time slice.
	YieldAfter = 1024
)

// ───────────────────────────── Contention Bench ─────────────────────────────

const (
	// BenchGoroutines is the default number of contending workers.
	BenchGoroutines = 4

	// BenchOpsPerWorker is the default number of operations per worker.
	BenchOpsPerWorker = 100_000

	// BenchSampleLimit caps how many "before" values a worker keeps for the
	// linearizability check.
	BenchSampleLimit = 1 << 20

	// DatabasePath is the default sqlite file for bench results.
	DatabasePath = "atomprobe.db"

	// PolicyPath is the default output of `atomprobe recommend`.
	PolicyPath = "atomprobe_policy.json"
)
