//go:build !preferllsc

package constants

// PreferCASForOps routes ops without a direct accelerated instruction
// (sub, or, and) through a CAS loop instead of an exclusive loop whenever
// the extension is present. CAS behaves better under heavy contention on
// Neoverse-class cores; build with -tags preferllsc to keep LL/SC instead.
const PreferCASForOps = true
