// ============================================================================
// BENCH RESULT STORE
// ============================================================================
//
// sqlite persistence for contention bench sweeps, keyed by host fingerprint,
// and the policy recommendation derived from them.
//
// Schema:
//
//	runs     one row per sweep (host, arch, cpus, capability, time)
//	results  one row per case of a run, raw counters only
//
// Derived metrics (ns/op, throughput, conflicts/op) are recomputed on read
// so the stored rows never disagree with bench.Result.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"runtime"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"atomcore/bench"
	"atomcore/capability"
	"atomcore/debug"
	"atomcore/types"
)

// ErrNoResults is returned when a host has no stored measurements.
var ErrNoResults = errors.New("store: no results for host")

// Store is an open results database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// pragmas are per connection
	db.SetMaxOpenConns(1)
	if err := configureDatabase(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := initializeSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close optimizes and closes the database.
func (s *Store) Close() error {
	if _, err := s.db.Exec("PRAGMA optimize"); err != nil {
		debug.DropError("STORE_OPTIMIZE", err)
	}
	return s.db.Close()
}

func configureDatabase(db *sql.DB) error {
	optimizations := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL", // a lost sweep is rerun, not recovered
		"PRAGMA cache_size = 10000",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 30000",
	}
	for _, pragma := range optimizations {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("store: failed to execute %s: %w", pragma, err)
		}
	}
	return nil
}

func initializeSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		host        TEXT NOT NULL,
		arch        TEXT NOT NULL,
		cpus        INTEGER NOT NULL,
		capability  TEXT NOT NULL,
		started_at  INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_host ON runs(host);

	CREATE TABLE IF NOT EXISTS results (
		run_id         INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		case_key       TEXT NOT NULL,
		path           TEXT NOT NULL,
		op             TEXT NOT NULL,
		width          INTEGER NOT NULL,
		ordering       TEXT NOT NULL,
		goroutines     INTEGER NOT NULL,
		ops_per_worker INTEGER NOT NULL,
		ops            INTEGER NOT NULL,
		elapsed_ns     INTEGER NOT NULL,
		conflicts      INTEGER NOT NULL,
		final          INTEGER NOT NULL,
		linearized     INTEGER NOT NULL,
		PRIMARY KEY (run_id, case_key)
	) WITHOUT ROWID;
	`
	_, err := db.Exec(schema)
	return err
}

// ============================================================================
// WRITES
// ============================================================================

// Record stores one sweep for host and returns its run id.
func (s *Store) Record(ctx context.Context, host string, rs []bench.Result) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (host, arch, cpus, capability, started_at) VALUES (?, ?, ?, ?, ?)`,
		host, runtime.GOARCH, runtime.NumCPU(), capability.Process().String(), time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("store: insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO results (run_id, case_key, path, op, width, ordering, goroutines,
			ops_per_worker, ops, elapsed_ns, conflicts, final, linearized)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("store: prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range rs {
		// sqlite integers are signed 64-bit
		if _, err := stmt.ExecContext(ctx, runID, r.Key(), r.Path.String(), r.Op.String(),
			int(r.Width), r.Ordering.String(), r.Goroutines, r.OpsPerWorker,
			int64(r.Ops), r.Elapsed.Nanoseconds(), int64(r.Conflicts), int64(r.Final),
			r.Linearized); err != nil {
			return 0, fmt.Errorf("store: insert %s: %w", r.Key(), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: commit: %w", err)
	}
	return runID, nil
}

// ============================================================================
// READS
// ============================================================================

// Results returns every stored result for host, oldest run first.
func (s *Store) Results(ctx context.Context, host string) ([]bench.Result, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.path, r.op, r.width, r.ordering, r.goroutines, r.ops_per_worker,
			r.ops, r.elapsed_ns, r.conflicts, r.final, r.linearized
		FROM results r
		JOIN runs u ON u.id = r.run_id
		WHERE u.host = ?
		ORDER BY r.run_id, r.case_key`, host)
	if err != nil {
		return nil, fmt.Errorf("store: query results: %w", err)
	}
	defer rows.Close()

	var out []bench.Result
	for rows.Next() {
		var (
			path, op, ordering           string
			width                        int
			ops, elapsed, conflicts, fin int64
			r                            bench.Result
		)
		if err := rows.Scan(&path, &op, &width, &ordering, &r.Goroutines, &r.OpsPerWorker,
			&ops, &elapsed, &conflicts, &fin, &r.Linearized); err != nil {
			return nil, fmt.Errorf("store: scan: %w", err)
		}
		var ok bool
		if r.Path, ok = types.ParsePath(path); !ok {
			return nil, fmt.Errorf("store: unknown path %q", path)
		}
		if r.Op, ok = types.ParseOp(op); !ok {
			return nil, fmt.Errorf("store: unknown op %q", op)
		}
		if r.Ordering, ok = types.ParseOrdering(ordering); !ok {
			return nil, fmt.Errorf("store: unknown ordering %q", ordering)
		}
		r.Width = types.Width(width)
		r.Ops = uint64(ops)
		r.Elapsed = time.Duration(elapsed)
		r.Conflicts = uint64(conflicts)
		r.Final = uint64(fin)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate results: %w", err)
	}
	if len(out) == 0 {
		return nil, ErrNoResults
	}
	return out, nil
}

// Runs returns the number of sweeps stored for host.
func (s *Store) Runs(ctx context.Context, host string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE host = ?`, host).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count runs: %w", err)
	}
	return n, nil
}
