// ════════════════════════════════════════════════════════════════════════════════════════════════
// 🧪 TEST SUITE: PROBE CONTROL GATE
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Component: Control System Test Suite
//
// Test Coverage:
//   - Unit tests: initial state, release, shutdown, reset, flag pointers
//   - Integration tests: coordinated release of many workers, shutdown while parked
//   - Benchmarks: flag polling
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package control

import (
	"sync"
	"testing"
	"time"

	"atomcore/atom"
	"atomcore/types"
)

const testGoroutines = 16

// ============================================================================
// UNIT TESTS
// ============================================================================

func TestGate_InitialState(t *testing.T) {
	var g Gate
	if g.Started() || g.Stopped() || g.Running() != 0 {
		t.Fatalf("zero gate: started=%v stopped=%v running=%d", g.Started(), g.Stopped(), g.Running())
	}
}

func TestGate_ReleaseAndShutdown(t *testing.T) {
	var g Gate
	g.Release()
	if !g.Started() {
		t.Fatal("Release did not open the gate")
	}
	g.Shutdown()
	if !g.Stopped() {
		t.Fatal("Shutdown did not raise stop")
	}
	g.Reset()
	if g.Started() || g.Stopped() {
		t.Fatal("Reset left flags set")
	}
}

func TestGate_EnterExit(t *testing.T) {
	var g Gate
	g.Enter()
	g.Enter()
	if g.Running() != 2 {
		t.Fatalf("Running = %d, want 2", g.Running())
	}
	g.Exit()
	if g.Running() != 1 {
		t.Fatalf("Running = %d, want 1", g.Running())
	}
}

func TestGate_FlagPointers(t *testing.T) {
	var g Gate
	stop, start := g.Flags()
	atom.Write(start, 1, types.Release)
	if !g.Started() {
		t.Fatal("start pointer does not alias the gate")
	}
	atom.Write(stop, 1, types.Release)
	if !g.Stopped() {
		t.Fatal("stop pointer does not alias the gate")
	}
}

func TestProcessGate(t *testing.T) {
	if Process() != Process() {
		t.Fatal("Process returned different gates")
	}
	defer Process().Reset()
	if Stopped() {
		t.Fatal("process gate starts stopped")
	}
	Shutdown()
	if !Stopped() || !Process().Stopped() {
		t.Fatal("Shutdown did not reach the process gate")
	}
}

// ============================================================================
// INTEGRATION TESTS
// ============================================================================

func TestGate_CoordinatedRelease(t *testing.T) {
	var g Gate
	var (
		wg      sync.WaitGroup
		payload [testGoroutines]int
		seen    [testGoroutines]int
	)
	for i := 0; i < testGoroutines; i++ {
		wg.Add(1)
		g.Enter()
		go func(i int) {
			defer wg.Done()
			defer g.Exit()
			if !g.AwaitStart() {
				t.Error("worker saw stop instead of start")
				return
			}
			seen[i] = payload[i]
		}(i)
	}
	for i := range payload {
		payload[i] = i + 100
	}
	g.Release()
	wg.Wait()
	if g.Running() != 0 {
		t.Fatalf("Running = %d after all exits", g.Running())
	}
	for i, v := range seen {
		if v != i+100 {
			t.Errorf("worker %d saw payload %d before release", i, v)
		}
	}
}

func TestGate_ShutdownWhileParked(t *testing.T) {
	var g Gate
	done := make(chan bool)
	go func() { done <- g.AwaitStart() }()
	time.Sleep(5 * time.Millisecond)
	g.Shutdown()
	select {
	case started := <-done:
		if started {
			t.Fatal("AwaitStart reported start after shutdown")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("AwaitStart did not observe shutdown")
	}
}

// ============================================================================
// BENCHMARKS
// ============================================================================

func BenchmarkGate_Stopped(b *testing.B) {
	var g Gate
	for i := 0; i < b.N; i++ {
		_ = g.Stopped()
	}
}
