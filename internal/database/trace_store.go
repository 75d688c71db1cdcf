package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/myorg/tempo/internal/controller"
	"github.com/myorg/tempo/internal/timeline"
)

// ErrRunNotFound is returned when a run ID has no stored run.
var ErrRunNotFound = errors.New("run not found")

const schemaDDL = `
	CREATE TABLE IF NOT EXISTS tempo_runs (
		run_id UUID PRIMARY KEY,
		profile TEXT NOT NULL,
		duration DOUBLE PRECISION NOT NULL,
		iterations DOUBLE PRECISION NOT NULL,
		speed DOUBLE PRECISION NOT NULL,
		persist BOOLEAN NOT NULL DEFAULT FALSE,
		pingpong BOOLEAN NOT NULL DEFAULT FALSE,
		pongping BOOLEAN NOT NULL DEFAULT FALSE,
		started_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	-- overflow is NULL when the playable reported none
	CREATE TABLE IF NOT EXISTS tempo_ticks (
		run_id UUID NOT NULL REFERENCES tempo_runs(run_id) ON DELETE CASCADE,
		seq BIGINT NOT NULL,
		wall TIMESTAMPTZ NOT NULL,
		clock DOUBLE PRECISION NOT NULL,
		local DOUBLE PRECISION NOT NULL,
		dt DOUBLE PRECISION NOT NULL,
		iteration DOUBLE PRECISION NOT NULL,
		speed DOUBLE PRECISION NOT NULL,
		status TEXT NOT NULL,
		overflow DOUBLE PRECISION,
		PRIMARY KEY (run_id, seq)
	);
`

var tickColumns = []string{
	"run_id", "seq", "wall", "clock", "local", "dt", "iteration", "speed", "status", "overflow",
}

// RunRecord describes one stored run.
type RunRecord struct {
	ID         uuid.UUID
	Profile    string
	Duration   float64
	Iterations float64
	Speed      float64
	Persist    bool
	Pingpong   bool
	Pongping   bool
	StartedAt  time.Time
}

// TraceStore persists runs and their tick traces in PostgreSQL.
type TraceStore struct {
	pool *Pool
	log  *slog.Logger
}

// NewTraceStore creates a store on top of pool.
func NewTraceStore(pool *Pool, log *slog.Logger) *TraceStore {
	if log == nil {
		log = slog.Default()
	}
	return &TraceStore{pool: pool, log: log}
}

// Close releases the store's connection pool.
func (s *TraceStore) Close() {
	s.pool.Close()
}

// EnsureSchema creates the run and tick tables if they do not exist.
func (s *TraceStore) EnsureSchema(ctx context.Context) error {
	if err := s.pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("creating trace schema: %w", err)
	}
	return nil
}

// InsertRun stores the run header. It must precede CopyEntries for the run.
func (s *TraceStore) InsertRun(ctx context.Context, run RunRecord) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	err := s.pool.Exec(ctx, `
		INSERT INTO tempo_runs
			(run_id, profile, duration, iterations, speed, persist, pingpong, pongping, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		run.ID, run.Profile, run.Duration, run.Iterations, run.Speed,
		run.Persist, run.Pingpong, run.Pongping, run.StartedAt)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", run.ID, err)
	}
	return nil
}

// GetRun loads a run header.
func (s *TraceStore) GetRun(ctx context.Context, id uuid.UUID) (RunRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT run_id, profile, duration, iterations, speed, persist, pingpong, pongping, started_at
		FROM tempo_runs WHERE run_id = $1`, id)
	if err != nil {
		return RunRecord{}, fmt.Errorf("querying run %s: %w", id, err)
	}
	runs, err := collectRuns(rows)
	if err != nil {
		return RunRecord{}, err
	}
	if len(runs) == 0 {
		return RunRecord{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return runs[0], nil
}

// ListRuns returns the most recent runs, newest first.
func (s *TraceStore) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT run_id, profile, duration, iterations, speed, persist, pingpong, pongping, started_at
		FROM tempo_runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return collectRuns(rows)
}

func collectRuns(rows pgx.Rows) ([]RunRecord, error) {
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.ID, &r.Profile, &r.Duration, &r.Iterations, &r.Speed,
			&r.Persist, &r.Pingpong, &r.Pongping, &r.StartedAt); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// tickRow converts an entry to the column order of tickColumns.
func tickRow(runID uuid.UUID, e timeline.TraceEntry) []any {
	var overflow any
	if v, ok := e.Overflow.Value(); ok {
		overflow = v
	}
	return []any{
		runID, e.Seq, e.Wall, e.Clock, e.Local, e.Dt, e.Iteration, e.Speed,
		e.Status.String(), overflow,
	}
}

// CopyEntries bulk-loads entries with COPY and returns the number of rows
// written.
func (s *TraceStore) CopyEntries(ctx context.Context, runID uuid.UUID, entries []timeline.TraceEntry) (int64, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	n, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{"tempo_ticks"},
		tickColumns,
		pgx.CopyFromSlice(len(entries), func(i int) ([]any, error) {
			return tickRow(runID, entries[i]), nil
		}),
	)
	if err != nil {
		return n, fmt.Errorf("copying %d ticks of run %s: %w", len(entries), runID, err)
	}

	s.log.LogAttrs(ctx, slog.LevelDebug, "copied ticks",
		slog.String("run", runID.String()),
		slog.Int64("rows", n))
	return n, nil
}

// WriteEntries implements timeline.Sink.
func (s *TraceStore) WriteEntries(ctx context.Context, runID uuid.UUID, entries []timeline.TraceEntry) error {
	_, err := s.CopyEntries(ctx, runID, entries)
	return err
}

// LoadEntries returns the stored ticks of a run ordered by sequence number.
func (s *TraceStore) LoadEntries(ctx context.Context, runID uuid.UUID) ([]timeline.TraceEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT seq, wall, clock, local, dt, iteration, speed, status, overflow
		FROM tempo_ticks WHERE run_id = $1 ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying ticks of run %s: %w", runID, err)
	}
	defer rows.Close()

	var entries []timeline.TraceEntry
	for rows.Next() {
		var (
			e        timeline.TraceEntry
			status   string
			overflow *float64
		)
		if err := rows.Scan(&e.Seq, &e.Wall, &e.Clock, &e.Local, &e.Dt,
			&e.Iteration, &e.Speed, &status, &overflow); err != nil {
			return nil, fmt.Errorf("scanning tick: %w", err)
		}
		if e.Status, err = controller.ParseStatus(status); err != nil {
			return nil, fmt.Errorf("tick %d: %w", e.Seq, err)
		}
		if overflow != nil {
			e.Overflow = controller.OverflowOf(*overflow)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteRun removes a run and its ticks.
func (s *TraceStore) DeleteRun(ctx context.Context, runID uuid.UUID) error {
	if err := s.pool.Exec(ctx, "DELETE FROM tempo_runs WHERE run_id = $1", runID); err != nil {
		return fmt.Errorf("deleting run %s: %w", runID, err)
	}
	return nil
}
