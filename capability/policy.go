package capability

import (
	"fmt"
	"os"

	"github.com/sugawarayuuta/sonnet"
)

// Policy is a measured override of the build-time configuration, written by
// `atomprobe recommend` and applied once at startup.
type Policy struct {
	// Host is the fingerprint of the machine the measurements came from.
	Host string `json:"host"`
	// DisableAccelerated turns the extension off where it measured slower.
	DisableAccelerated bool `json:"disable_accelerated"`
	// PreferCASForOps is the measured winner for ops without a direct instruction.
	PreferCASForOps bool `json:"prefer_cas_for_ops"`
	// Evidence maps "<op>/<width>" to the CAS-loop / exclusive-loop throughput ratio.
	Evidence map[string]float64 `json:"evidence,omitempty"`
}

// Apply overlays p on cfg.
func (p Policy) Apply(cfg Config) Config {
	if p.DisableAccelerated {
		cfg.AllowAccelerated = false
	}
	cfg.PreferCASForOps = p.PreferCASForOps
	return cfg
}

// EncodePolicy serializes p.
func EncodePolicy(p Policy) ([]byte, error) {
	b, err := sonnet.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("capability: encode policy: %w", err)
	}
	return b, nil
}

// DecodePolicy parses a serialized policy.
func DecodePolicy(b []byte) (Policy, error) {
	var p Policy
	if err := sonnet.Unmarshal(b, &p); err != nil {
		return Policy{}, fmt.Errorf("capability: decode policy: %w", err)
	}
	return p, nil
}

// LoadPolicy reads and decodes a policy file.
func LoadPolicy(path string) (Policy, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("capability: read policy: %w", err)
	}
	return DecodePolicy(b)
}

// SavePolicy encodes p and writes it to path.
func SavePolicy(path string, p Policy) error {
	b, err := EncodePolicy(p)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("capability: write policy: %w", err)
	}
	return nil
}
