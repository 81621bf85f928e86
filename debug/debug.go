// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: debug.go: cold-path diagnostics (zero-alloc)
//
// Purpose:
//   - Logs capability resolution, policy loading and probe progress.
//   - Never used inside an atomic operation.
//
// Notes:
//   - Avoids fmt.Sprintf; messages are concatenated and written to stderr.
//
// ⚠️ Never invoke in hot loops; use only in setup and failure diagnostics.
// ─────────────────────────────────────────────────────────────────────────────

package debug

import "atomcore/utils"

// DropError logs "<prefix>: <err>" or just "<prefix>" when err is nil.
func DropError(prefix string, err error) {
	if err != nil {
		utils.PrintWarning(prefix + ": " + err.Error() + "\n")
		return
	}
	utils.PrintWarning(prefix + "\n")
}

// DropMessage logs "<prefix>: <message>".
func DropMessage(prefix, message string) {
	utils.PrintWarning(prefix + ": " + message + "\n")
}
