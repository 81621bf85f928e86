//go:build noaccel

package constants

// AllowAccelerated is forced off by the noaccel build tag.
const AllowAccelerated = false
