package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"testing"
)

// ============================================================================
// INTEGER FORMATTING TESTS
// ============================================================================

func TestItoa(t *testing.T) {
	tests := []struct {
		name  string
		input int
	}{
		{"Zero", 0},
		{"Single digit", 5},
		{"Two digits", 42},
		{"Large number", 987654321},
		{"Maximum int32", math.MaxInt32},
		{"Negative", -17},
		{"Minimum int", math.MinInt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, want := Itoa(tt.input), strconv.Itoa(tt.input); got != want {
				t.Errorf("Itoa(%d) = %q, want %q", tt.input, got, want)
			}
		})
	}
}

func TestUtoa_Boundaries(t *testing.T) {
	for _, n := range []uint64{0, 1, 9, 10, 99, 100, 1 << 32, math.MaxUint64} {
		t.Run(fmt.Sprintf("boundary_%d", n), func(t *testing.T) {
			if got, want := Utoa(n), strconv.FormatUint(n, 10); got != want {
				t.Errorf("Utoa(%d) = %q, want %q", n, got, want)
			}
		})
	}
}

func TestHex(t *testing.T) {
	for _, v := range []uint64{0, 0x7f, 0x80, 0xffff, 0xdeadbeef, math.MaxUint64} {
		if got, want := Hex(v), "0x"+strconv.FormatUint(v, 16); got != want {
			t.Errorf("Hex(%d) = %q, want %q", v, got, want)
		}
	}
}

func TestItoa_ZeroAllocation(t *testing.T) {
	allocs := testing.AllocsPerRun(1000, func() {
		_ = Itoa(12345)
	})
	if allocs > 1 { // the returned string
		t.Errorf("Itoa() allocated %f times per op", allocs)
	}
}

// ============================================================================
// DIAGNOSTICS OUTPUT TESTS
// ============================================================================

func TestPrintWarning(t *testing.T) {
	for _, msg := range []string{
		"",
		"warning: test message\n",
		"unicode: 测试警告消息\n",
		strings.Repeat("long message ", 100) + "\n",
	} {
		t.Run(fmt.Sprintf("message_len_%d", len(msg)), func(t *testing.T) {
			PrintWarning(msg)
		})
	}
}

func TestPrintWarning_ZeroAllocation(t *testing.T) {
	msg := "test warning message\n"
	if allocs := testing.AllocsPerRun(100, func() { PrintWarning(msg) }); allocs > 0 {
		t.Errorf("PrintWarning() allocated %f times per op", allocs)
	}
}

// ============================================================================
// HASHING TESTS
// ============================================================================

func TestMix64_Deterministic(t *testing.T) {
	for _, in := range []uint64{0, 1, 0x123456789abcdef0, math.MaxUint64} {
		if Mix64(in) != Mix64(in) {
			t.Errorf("Mix64(%#x) not deterministic", in)
		}
	}
	if Mix64(0) != 0 {
		t.Errorf("Mix64(0) = %#x, want 0", Mix64(0))
	}
}

// TestMix64_GranuleSpread mirrors the monitor's use: consecutive 64-byte
// granules must land in well spread slots of a 256-entry table.
func TestMix64_GranuleSpread(t *testing.T) {
	const slots = 256
	const samples = 64 * slots
	var buckets [slots]int
	base := uint64(0xc000010000)
	for i := uint64(0); i < samples; i++ {
		g := (base + i*64) >> 6
		buckets[Mix64(g)&(slots-1)]++
	}

	expected := samples / slots
	for i, c := range buckets {
		if c < expected/3 || c > expected*3 {
			t.Errorf("slot %d has %d granules, expected ~%d", i, c, expected)
		}
	}
}

func TestMix64_Avalanche(t *testing.T) {
	a := uint64(0x123456789abcdef0)
	diff := Mix64(a) ^ Mix64(a^1)
	bits := 0
	for diff != 0 {
		bits++
		diff &= diff - 1
	}
	if bits < 20 || bits > 44 {
		t.Errorf("poor avalanche: %d bits changed", bits)
	}
}

func BenchmarkMix64(b *testing.B) {
	var sink uint64
	for i := 0; i < b.N; i++ {
		sink += Mix64(uint64(i))
	}
	_ = sink
}
