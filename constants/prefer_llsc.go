//go:build preferllsc

package constants

// PreferCASForOps is disabled by the preferllsc build tag.
const PreferCASForOps = false
