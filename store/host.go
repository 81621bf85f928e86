package store

import (
	"encoding/hex"
	"runtime"
	"strconv"
	"strings"

	"golang.org/x/crypto/sha3"

	"atomcore/capability"
)

// HostKey fingerprints the properties that decide atomic performance:
// OS, architecture, core count and probed feature flags. Measurements are
// only comparable between hosts with the same key.
func HostKey() string {
	parts := append([]string{runtime.GOOS, runtime.GOARCH, strconv.Itoa(runtime.NumCPU())},
		capability.HostFeatures()...)
	sum := sha3.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:8])
}
