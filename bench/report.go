package bench

import (
	"fmt"
	"os"
	"runtime"

	"github.com/sugawarayuuta/sonnet"

	"atomcore/capability"
)

// ============================================================================
// JSON REPORTS
// ============================================================================

// Row is the flat, name-keyed form of a Result.
type Row struct {
	Key            string  `json:"key"`
	Path           string  `json:"path"`
	Op             string  `json:"op"`
	Width          int     `json:"width"`
	Ordering       string  `json:"ordering"`
	Goroutines     int     `json:"goroutines"`
	OpsPerWorker   int     `json:"ops_per_worker"`
	Ops            uint64  `json:"ops"`
	ElapsedNs      int64   `json:"elapsed_ns"`
	NsPerOp        float64 `json:"ns_per_op"`
	OpsPerSec      float64 `json:"ops_per_sec"`
	ConflictsPerOp float64 `json:"conflicts_per_op"`
	Linearized     bool    `json:"linearized"`
}

// RowOf flattens r.
func RowOf(r Result) Row {
	return Row{
		Key:            r.Key(),
		Path:           r.Path.String(),
		Op:             r.Op.String(),
		Width:          int(r.Width),
		Ordering:       r.Ordering.String(),
		Goroutines:     r.Goroutines,
		OpsPerWorker:   r.OpsPerWorker,
		Ops:            r.Ops,
		ElapsedNs:      r.Elapsed.Nanoseconds(),
		NsPerOp:        r.NsPerOp(),
		OpsPerSec:      r.OpsPerSec(),
		ConflictsPerOp: r.ConflictsPerOp(),
		Linearized:     r.Linearized,
	}
}

// Report is a bench sweep with the host it ran on.
type Report struct {
	Host       string   `json:"host"`
	Arch       string   `json:"arch"`
	CPUs       int      `json:"cpus"`
	Features   []string `json:"features"`
	Capability string   `json:"capability"`
	Rows       []Row    `json:"rows"`
}

// NewReport wraps results for host.
func NewReport(host string, rs []Result) Report {
	rows := make([]Row, len(rs))
	for i, r := range rs {
		rows[i] = RowOf(r)
	}
	return Report{
		Host:       host,
		Arch:       runtime.GOARCH,
		CPUs:       runtime.NumCPU(),
		Features:   capability.HostFeatures(),
		Capability: capability.Process().String(),
		Rows:       rows,
	}
}

// EncodeReport serializes rep.
func EncodeReport(rep Report) ([]byte, error) {
	b, err := sonnet.Marshal(rep)
	if err != nil {
		return nil, fmt.Errorf("bench: encode report: %w", err)
	}
	return b, nil
}

// DecodeReport parses a serialized report.
func DecodeReport(b []byte) (Report, error) {
	var rep Report
	if err := sonnet.Unmarshal(b, &rep); err != nil {
		return Report{}, fmt.Errorf("bench: decode report: %w", err)
	}
	return rep, nil
}

// WriteReport encodes rep to path.
func WriteReport(path string, rep Report) error {
	b, err := EncodeReport(rep)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("bench: write report: %w", err)
	}
	return nil
}
