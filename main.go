// ════════════════════════════════════════════════════════════════════════════════════════════════
// atomprobe - Atomic Core Probe
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Component: Main Entry Point & Capability Orchestration
//
// Description:
//   Resolves the process capability (build tags → host probe → measured policy), then runs one
//   of:
//     caps       print the resolved capability and the path each operation takes
//     bench      measure retry strategies under contention and store the results
//     recommend  derive a CAS-vs-exclusive policy from stored results
//     selftest   verify the core's guarantees against the process dispatcher
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"maps"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v3/ffcli"

	"atomcore/atom"
	"atomcore/bench"
	"atomcore/capability"
	"atomcore/constants"
	"atomcore/control"
	"atomcore/debug"
	"atomcore/selftest"
	"atomcore/store"
	"atomcore/types"
	"atomcore/utils"
)

var rootArgs struct {
	policy          string
	requireAccel    bool
	disableAccel    bool
	preferExclusive bool
}

func main() {
	rootFS := flag.NewFlagSet("atomprobe", flag.ExitOnError)
	rootFS.StringVar(&rootArgs.policy, "policy", constants.PolicyPath, "measured policy file applied at startup (ignored if missing)")
	rootFS.BoolVar(&rootArgs.requireAccel, "require-accel", false, "fail if the host lacks single-instruction atomics")
	rootFS.BoolVar(&rootArgs.disableAccel, "no-accel", false, "never use single-instruction atomics")
	rootFS.BoolVar(&rootArgs.preferExclusive, "prefer-exclusive", false, "use the exclusive loop instead of the CAS loop for ops without a direct instruction")

	root := &ffcli.Command{
		Name:       "atomprobe",
		ShortUsage: "atomprobe [flags] <caps|bench|recommend|selftest> [subcommand flags]",
		ShortHelp:  "Probe and tune the adaptive atomic core",
		FlagSet:    rootFS,
		Exec: func(ctx context.Context, args []string) error {
			return flag.ErrHelp
		},
		Subcommands: []*ffcli.Command{
			capsCmd(),
			benchCmd(),
			recommendCmd(),
			selftestCmd(),
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setupSignalHandling(cancel)

	if err := root.ParseAndRun(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		debug.DropError("atomprobe", err)
		os.Exit(1)
	}
}

// setupSignalHandling raises the process stop flag and cancels ctx on
// SIGINT/SIGTERM. Running bench workers observe the flag between batches.
func setupSignalHandling(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		debug.DropMessage("SIGNAL", "Received interrupt, stopping probe")
		control.Shutdown()
		cancel()
	}()
}

// resolveCapability fixes the process capability before the first atomic
// operation: build-time defaults, then the policy file if it was measured
// on this host, then command-line overrides.
func resolveCapability() error {
	cfg := capability.DefaultConfig()
	host := store.HostKey()

	switch p, err := capability.LoadPolicy(rootArgs.policy); {
	case err == nil && p.Host == host:
		cfg = p.Apply(cfg)
		debug.DropMessage("POLICY", "applied "+rootArgs.policy)
	case err == nil:
		debug.DropMessage("POLICY", "ignored "+rootArgs.policy+": measured on host "+p.Host+", this is "+host)
	case errors.Is(err, os.ErrNotExist):
	default:
		return err
	}

	if rootArgs.disableAccel {
		cfg.AllowAccelerated = false
	}
	if rootArgs.preferExclusive {
		cfg.PreferCASForOps = false
	}
	cfg.RequireAccelerated = rootArgs.requireAccel

	c, err := capability.Resolve(cfg, capability.Detect())
	if err != nil {
		return err
	}
	return capability.Install(c)
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// caps
// ═══════════════════════════════════════════════════════════════════════════════════════════════

func capsCmd() *ffcli.Command {
	return &ffcli.Command{
		Name:       "caps",
		ShortUsage: "atomprobe caps",
		ShortHelp:  "Print the resolved capability and the path of every operation",
		Exec: func(ctx context.Context, args []string) error {
			if err := resolveCapability(); err != nil {
				return err
			}
			d := atom.Dispatcher()
			fmt.Printf("host        %s\n", store.HostKey())
			fmt.Printf("detected    %v\n", capability.Detect())
			fmt.Printf("features    %s\n", strings.Join(capability.HostFeatures(), ","))
			fmt.Printf("capability  %s\n\n", d.Capability())

			for _, k := range []types.Kind{types.Read, types.Write, types.Swap, types.CompareExchange} {
				fmt.Printf("%-18s %s\n", k, d.PathFor(k, 0))
			}
			for _, op := range types.Ops {
				fmt.Printf("%-18s %s\n", "fetch-"+op.String(), d.PathFor(types.FetchThenOp, op))
			}
			return nil
		},
	}
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// bench
// ═══════════════════════════════════════════════════════════════════════════════════════════════

var benchArgs struct {
	paths      string
	ops        string
	widths     string
	ordering   string
	goroutines int
	perWorker  int
	pin        bool
	db         string
	report     string
}

func benchCmd() *ffcli.Command {
	fs := flag.NewFlagSet("bench", flag.ExitOnError)
	fs.StringVar(&benchArgs.paths, "paths", "accelerated,cas-loop,exclusive-loop", "comma-separated strategies")
	fs.StringVar(&benchArgs.ops, "ops", "add,sub,xor,or,and", "comma-separated ops")
	fs.StringVar(&benchArgs.widths, "widths", "8,16,32,64", "comma-separated widths")
	fs.StringVar(&benchArgs.ordering, "ordering", "relaxed", "relaxed, acquire, release or seq_cst")
	fs.IntVar(&benchArgs.goroutines, "goroutines", constants.BenchGoroutines, "contending workers")
	fs.IntVar(&benchArgs.perWorker, "n", constants.BenchOpsPerWorker, "operations per worker")
	fs.BoolVar(&benchArgs.pin, "pin", true, "pin workers to distinct cores")
	fs.StringVar(&benchArgs.db, "db", constants.DatabasePath, "sqlite results database (empty to skip)")
	fs.StringVar(&benchArgs.report, "report", "", "also write a JSON report to this file")

	return &ffcli.Command{
		Name:       "bench",
		ShortUsage: "atomprobe bench [flags]",
		ShortHelp:  "Measure retry strategies under contention",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			if err := resolveCapability(); err != nil {
				return err
			}
			cfg, err := benchConfig()
			if err != nil {
				return err
			}
			debug.DropMessage("BENCH", utils.Itoa(len(cfg.Cases()))+" cases, "+
				utils.Itoa(cfg.Goroutines)+" workers × "+utils.Itoa(cfg.OpsPerWorker)+" ops")

			fmt.Printf("%-28s %12s %14s %12s\n", "case", "ns/op", "ops/s", "conflicts/op")
			rs, err := bench.Run(ctx, cfg, func(r bench.Result) {
				fmt.Printf("%-28s %12.2f %14.0f %12.4f\n", r.Key(), r.NsPerOp(), r.OpsPerSec(), r.ConflictsPerOp())
			})
			if err != nil {
				return err
			}

			host := store.HostKey()
			if benchArgs.db != "" {
				s, err := store.Open(benchArgs.db)
				if err != nil {
					return err
				}
				defer s.Close()
				id, err := s.Record(ctx, host, rs)
				if err != nil {
					return err
				}
				debug.DropMessage("BENCH", "recorded run "+utils.Itoa(int(id))+" for host "+host)
			}
			if benchArgs.report != "" {
				if err := bench.WriteReport(benchArgs.report, bench.NewReport(host, rs)); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func benchConfig() (bench.Config, error) {
	cfg := bench.DefaultConfig()
	cfg.Goroutines = benchArgs.goroutines
	cfg.OpsPerWorker = benchArgs.perWorker
	cfg.Pin = benchArgs.pin

	var ok bool
	if cfg.Ordering, ok = types.ParseOrdering(benchArgs.ordering); !ok {
		return cfg, fmt.Errorf("unknown ordering %q", benchArgs.ordering)
	}
	cfg.Paths = cfg.Paths[:0]
	for _, s := range splitList(benchArgs.paths) {
		p, ok := types.ParsePath(s)
		if !ok {
			return cfg, fmt.Errorf("unknown path %q", s)
		}
		cfg.Paths = append(cfg.Paths, p)
	}
	cfg.Ops = nil
	for _, s := range splitList(benchArgs.ops) {
		op, ok := types.ParseOp(s)
		if !ok {
			return cfg, fmt.Errorf("unknown op %q", s)
		}
		cfg.Ops = append(cfg.Ops, op)
	}
	cfg.Widths = nil
	for _, s := range splitList(benchArgs.widths) {
		w := parseWidth(s)
		if !w.Valid() {
			return cfg, fmt.Errorf("unsupported width %q", s)
		}
		cfg.Widths = append(cfg.Widths, w)
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func parseWidth(s string) types.Width {
	for _, w := range types.Widths {
		if w.String() == s {
			return w
		}
	}
	return 0
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// recommend
// ═══════════════════════════════════════════════════════════════════════════════════════════════

var recommendArgs struct {
	db  string
	out string
}

func recommendCmd() *ffcli.Command {
	fs := flag.NewFlagSet("recommend", flag.ExitOnError)
	fs.StringVar(&recommendArgs.db, "db", constants.DatabasePath, "sqlite results database")
	fs.StringVar(&recommendArgs.out, "out", constants.PolicyPath, "policy file to write")

	return &ffcli.Command{
		Name:       "recommend",
		ShortUsage: "atomprobe recommend [flags]",
		ShortHelp:  "Derive a capability policy from this host's bench results",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			s, err := store.Open(recommendArgs.db)
			if err != nil {
				return err
			}
			defer s.Close()

			host := store.HostKey()
			p, err := s.Recommend(ctx, host)
			if errors.Is(err, store.ErrNoResults) {
				return fmt.Errorf("no bench results for host %s in %s; run `atomprobe bench` first", host, recommendArgs.db)
			}
			if err != nil {
				return err
			}
			for _, k := range slices.Sorted(maps.Keys(p.Evidence)) {
				fmt.Printf("%-18s %6.3f\n", k, p.Evidence[k])
			}
			fmt.Printf("\nprefer-cas-for-ops  %v\ndisable-accelerated %v\n", p.PreferCASForOps, p.DisableAccelerated)
			if err := capability.SavePolicy(recommendArgs.out, p); err != nil {
				return err
			}
			debug.DropMessage("POLICY", "wrote "+recommendArgs.out)
			return nil
		},
	}
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// selftest
// ═══════════════════════════════════════════════════════════════════════════════════════════════

func selftestCmd() *ffcli.Command {
	opt := selftest.DefaultOptions()
	fs := flag.NewFlagSet("selftest", flag.ExitOnError)
	fs.IntVar(&opt.Workers, "workers", opt.Workers, "racing workers in the no-lost-update check")
	fs.IntVar(&opt.OpsPerWorker, "n", opt.OpsPerWorker, "increments per worker")

	return &ffcli.Command{
		Name:       "selftest",
		ShortUsage: "atomprobe selftest [flags]",
		ShortHelp:  "Verify the core's guarantees with the resolved capability",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			if err := resolveCapability(); err != nil {
				return err
			}
			checks := selftest.Run(atom.Dispatcher(), opt)
			for _, c := range checks {
				status := "ok"
				if !c.Passed() {
					status = "FAIL " + c.Err.Error()
				}
				fmt.Printf("%-18s %s\n", c.Name, status)
			}
			return selftest.Failed(checks)
		},
	}
}
