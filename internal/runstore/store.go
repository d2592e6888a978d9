// Package runstore persists estimator runs to a SQLite database. The schema
// is managed with embedded golang-migrate migrations.
package runstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/debris-cloud/internal/estimator"
	"github.com/banshee-data/debris-cloud/internal/timeutil"
)

// ErrNotFound is returned by Get for an unknown run ID.
var ErrNotFound = errors.New("run not found")

// Run is one persisted estimate. Sweep points share a SweepID.
type Run struct {
	ID        uuid.UUID
	CreatedAt time.Time
	SweepID   uuid.NullUUID
	Mode      string
	Seed      uint64

	// Config is the resolved run configuration as JSON.
	Config json.RawMessage

	Estimate estimator.Estimate

	// State and Batches are only set for adaptive runs.
	State   string
	Batches int
}

// Store wraps the run database.
type Store struct {
	db    *sql.DB
	clock timeutil.Clock
}

// Open opens or creates the database at path and migrates it to the latest
// schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set pragmas: %w", err)
	}

	s := &Store{db: db, clock: timeutil.RealClock{}}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Record inserts r and returns its ID. A zero ID is replaced with a fresh
// random UUID and a zero CreatedAt with the current time.
func (s *Store) Record(ctx context.Context, r Run) (uuid.UUID, error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.clock.Now()
	}
	cfg := string(r.Config)
	if cfg == "" {
		cfg = "{}"
	}
	if !json.Valid([]byte(cfg)) {
		return uuid.Nil, fmt.Errorf("run config is not valid JSON")
	}

	e := r.Estimate
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (
			run_id, created_nanos, sweep_id, mode, seed, config_json,
			probability, hits, trials, lower_bound, upper_bound,
			confidence_level, std_error, hit_distance, elapsed_nanos,
			fragments_used, subsampled, fallbacks, state, batches
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID.String(), r.CreatedAt.UnixNano(), r.SweepID, r.Mode, int64(r.Seed), cfg,
		e.Probability, e.Hits, e.Trials, e.Lower, e.Upper,
		e.ConfidenceLevel, e.StdError, e.HitDistance, int64(e.Elapsed),
		e.FragmentsUsed, e.Subsampled, e.Fallbacks, r.State, r.Batches,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to record run: %w", err)
	}
	return r.ID, nil
}

const selectRuns = `
	SELECT run_id, created_nanos, sweep_id, mode, seed, config_json,
		probability, hits, trials, lower_bound, upper_bound,
		confidence_level, std_error, hit_distance, elapsed_nanos,
		fragments_used, subsampled, fallbacks, state, batches
	FROM runs`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		r       Run
		id      string
		created int64
		seed    int64
		cfg     string
		elapsed int64
	)
	e := &r.Estimate
	err := row.Scan(&id, &created, &r.SweepID, &r.Mode, &seed, &cfg,
		&e.Probability, &e.Hits, &e.Trials, &e.Lower, &e.Upper,
		&e.ConfidenceLevel, &e.StdError, &e.HitDistance, &elapsed,
		&e.FragmentsUsed, &e.Subsampled, &e.Fallbacks, &r.State, &r.Batches)
	if err != nil {
		return Run{}, err
	}
	if r.ID, err = uuid.Parse(id); err != nil {
		return Run{}, fmt.Errorf("bad run id %q: %w", id, err)
	}
	r.CreatedAt = time.Unix(0, created)
	r.Seed = uint64(seed)
	r.Config = json.RawMessage(cfg)
	e.Elapsed = time.Duration(elapsed)
	return r, nil
}

// Get returns the run with the given ID.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Run, error) {
	r, err := scanRun(s.db.QueryRowContext(ctx, selectRuns+` WHERE run_id = ?`, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r, err
}

// List returns up to limit runs, newest first. A limit of zero or less
// returns every run.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	return s.query(ctx, selectRuns+` ORDER BY created_nanos DESC, run_id LIMIT ?`, limit)
}

// Sweep returns the points of one sweep ordered by hit distance.
func (s *Store) Sweep(ctx context.Context, sweepID uuid.UUID) ([]Run, error) {
	return s.query(ctx, selectRuns+` WHERE sweep_id = ? ORDER BY hit_distance`, sweepID.String())
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
