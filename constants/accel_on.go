//go:build !noaccel

package constants

// AllowAccelerated permits the single-instruction extension when the host
// has it. Build with -tags noaccel to pin every deployment to retry loops.
const AllowAccelerated = true
