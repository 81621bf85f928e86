// ============================================================================
// CAPABILITY MODEL TEST SUITE
// ============================================================================

package capability

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"atomcore/types"
)

func TestHasDirectInstruction(t *testing.T) {
	want := map[types.Op]bool{
		types.Add: true, types.Sub: false, types.Xor: true, types.Or: false, types.And: false,
	}
	for op, w := range want {
		if got := HasDirectInstruction(op); got != w {
			t.Errorf("HasDirectInstruction(%v) = %v, want %v", op, got, w)
		}
	}
	if HasDirectInstruction(types.Op(99)) {
		t.Error("unknown op reported as direct")
	}
}

func TestPrefersAccelerated(t *testing.T) {
	for _, accel := range []bool{false, true} {
		for _, preferCAS := range []bool{false, true} {
			c := New(accel, preferCAS)
			for _, op := range types.Ops {
				want := accel && (HasDirectInstruction(op) || preferCAS)
				if got := c.PrefersAccelerated(op); got != want {
					t.Errorf("%v PrefersAccelerated(%v) = %v, want %v", c, op, got, want)
				}
			}
		}
	}
}

func TestString(t *testing.T) {
	if got := New(true, false).String(); got != "accelerated=yes prefer-cas=no" {
		t.Errorf("String = %q", got)
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		host    bool
		want    Capability
		wantErr error
	}{
		{"allowed and present", Config{AllowAccelerated: true, PreferCASForOps: true}, true, New(true, true), nil},
		{"allowed but absent", Config{AllowAccelerated: true}, false, New(false, false), nil},
		{"disallowed", Config{AllowAccelerated: false, PreferCASForOps: true}, true, New(false, true), nil},
		{"required but absent", Config{AllowAccelerated: true, RequireAccelerated: true}, false, Capability{}, ErrAcceleratedUnavailable},
		{"required and present", Config{AllowAccelerated: true, RequireAccelerated: true}, true, New(true, false), nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Resolve(tc.cfg, tc.host)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
			if got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDetectConsistentWithFeatures(t *testing.T) {
	has := false
	for _, f := range HostFeatures() {
		if f == "lse" || f == "lock" {
			has = true
		}
	}
	if Detect() != has {
		t.Errorf("Detect() = %v but features = %v", Detect(), HostFeatures())
	}
}

// ============================================================================
// POLICY
// ============================================================================

func TestPolicy_Apply(t *testing.T) {
	base := Config{AllowAccelerated: true, PreferCASForOps: true}
	got := Policy{DisableAccelerated: true, PreferCASForOps: false}.Apply(base)
	if got.AllowAccelerated || got.PreferCASForOps {
		t.Errorf("Apply = %+v", got)
	}
	got = Policy{PreferCASForOps: true}.Apply(Config{AllowAccelerated: true})
	if !got.AllowAccelerated || !got.PreferCASForOps {
		t.Errorf("Apply kept = %+v", got)
	}
}

func TestPolicy_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.json")
	want := Policy{
		Host:            "0123456789abcdef",
		PreferCASForOps: true,
		Evidence:        map[string]float64{"sub/32": 1.75, "accel:add/64": 3.5},
	}
	if err := SavePolicy(path, want); err != nil {
		t.Fatalf("SavePolicy: %v", err)
	}
	got, err := LoadPolicy(path)
	if err != nil {
		t.Fatalf("LoadPolicy: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("policy mismatch (-want +got):\n%s", diff)
	}
}

func TestPolicy_Errors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadPolicy(filepath.Join(dir, "missing.json")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file err = %v, want ErrNotExist", err)
	}
	bad := filepath.Join(dir, "bad.json")
	os.WriteFile(bad, []byte("{not json"), 0o644)
	if _, err := LoadPolicy(bad); err == nil {
		t.Error("malformed policy accepted")
	}
}

// ============================================================================
// PROCESS STATE
// ============================================================================

// The only test in this package that touches the process capability.
func TestInstallThenProcess(t *testing.T) {
	want := New(false, true)
	if err := Install(want); err != nil {
		t.Fatalf("first Install: %v", err)
	}
	if got := Process(); got != want {
		t.Fatalf("Process = %v, want installed %v", got, want)
	}
	if err := Install(New(true, true)); !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("second Install err = %v, want ErrAlreadyResolved", err)
	}
	if got := Process(); got != want {
		t.Fatalf("Process changed to %v", got)
	}
}
