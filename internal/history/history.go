// Package history persists per-run and per-iteration SSSP metrics to
// Postgres, for operators who want to query past runs instead of only
// reading stdout or the JSONL run log (SPEC_FULL.md §2.3 component I).
// It is optional: an engine invocation with no history DSN configured
// never touches this package.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"shmemsssp/pkg/config"
	"shmemsssp/pkg/logger"
)

// DB is the subset of a pgx connection pool this package depends on,
// narrow enough to be satisfied by pgxmock in tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Run is one completed engine invocation's summary row.
type Run struct {
	RunID            string
	StartedAt        time.Time
	Peers            int64
	Vertices         int64
	RawEdges         int64
	MeanTimeMs       float64
	MeanTEPS         float64
	HarmonicMeanTEPS float64
}

// Iteration is one completed iteration's metrics row, keyed to a Run.
type Iteration struct {
	RunID          string
	Iteration      int
	Source         int64
	Mode           string
	RoundsRun      int64
	TraversedEdges int64
	DurationMs     int64
	TEPS           float64
	Outcome        string
	ErrorCode      string
	ErrorMessage   string
}

// Store records runs and their per-iteration metrics.
type Store interface {
	// SaveRun upserts the run summary row.
	SaveRun(ctx context.Context, run Run) error
	// SaveIteration appends one iteration row under an existing run.
	SaveIteration(ctx context.Context, it Iteration) error
	// SaveRunWithIterations persists a run summary and all of its
	// iterations atomically, for callers that buffer iterations in
	// memory and only want to touch the database once per invocation.
	SaveRunWithIterations(ctx context.Context, run Run, iterations []Iteration) error
	// Close releases the store's underlying connection resources.
	Close()
}

// PostgresStore is the Store backed by a live pgx connection pool.
type PostgresStore struct {
	pool    DB
	rawPool *pgxpool.Pool
}

// Open connects to Postgres using cfg.DSN and pings it before returning.
func Open(ctx context.Context, cfg *config.HistoryConfig) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("history: parse dsn: %w", err)
	}
	poolConfig.ConnConfig.ConnectTimeout = 10 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("history: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("history: ping: %w", err)
	}

	logger.Log.Info("connected to run history store")
	return &PostgresStore{pool: pool, rawPool: pool}, nil
}

// NewWithDB wraps an already-open DB (in tests, a pgxmock connection),
// skipping Open's connection setup. Migrations are unavailable on a
// store built this way since pgxmock has no real schema to migrate.
func NewWithDB(db DB) *PostgresStore {
	return &PostgresStore{pool: db}
}

// Pool returns the underlying pgx connection pool, for callers (the
// orchestrator) that need to run migrations before first use. Returns
// nil for a store built via NewWithDB.
func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.rawPool
}

// SaveRun upserts the run summary row, overwriting the aggregate fields
// on conflict since a run is only summarized once all iterations finish.
func (s *PostgresStore) SaveRun(ctx context.Context, run Run) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO runs (run_id, started_at, peers, vertices, raw_edges, mean_time_ms, mean_teps, harmonic_mean_teps)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (run_id) DO UPDATE SET
			mean_time_ms = EXCLUDED.mean_time_ms,
			mean_teps = EXCLUDED.mean_teps,
			harmonic_mean_teps = EXCLUDED.harmonic_mean_teps
	`, run.RunID, run.StartedAt, run.Peers, run.Vertices, run.RawEdges,
		run.MeanTimeMs, run.MeanTEPS, run.HarmonicMeanTEPS)
	if err != nil {
		return fmt.Errorf("history: save run: %w", err)
	}
	return nil
}

// SaveIteration appends one iteration row under an existing run.
func (s *PostgresStore) SaveIteration(ctx context.Context, it Iteration) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO run_iterations
			(run_id, iteration, source, mode, rounds_run, traversed_edges, duration_ms, teps, outcome, error_code, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, it.RunID, it.Iteration, it.Source, it.Mode, it.RoundsRun, it.TraversedEdges,
		it.DurationMs, it.TEPS, it.Outcome, nullIfEmpty(it.ErrorCode), nullIfEmpty(it.ErrorMessage))
	if err != nil {
		return fmt.Errorf("history: save iteration: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// SaveRunWithIterations persists the run summary and all of its
// iteration rows in a single transaction, so a crash mid-write never
// leaves a run summarized without its iterations or vice versa.
// Requires the underlying DB to also provide Begin(ctx) (a pgx pool and a
// pgxmock pool both do); otherwise it returns an error without writing.
func (s *PostgresStore) SaveRunWithIterations(ctx context.Context, run Run, iterations []Iteration) error {
	beginner, ok := s.pool.(interface {
		Begin(ctx context.Context) (pgx.Tx, error)
	})
	if !ok {
		return fmt.Errorf("history: underlying pool does not support transactions")
	}

	tx, err := beginner.Begin(ctx)
	if err != nil {
		return fmt.Errorf("history: begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if _, err := tx.Exec(ctx, `
		INSERT INTO runs (run_id, started_at, peers, vertices, raw_edges, mean_time_ms, mean_teps, harmonic_mean_teps)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (run_id) DO UPDATE SET
			mean_time_ms = EXCLUDED.mean_time_ms,
			mean_teps = EXCLUDED.mean_teps,
			harmonic_mean_teps = EXCLUDED.harmonic_mean_teps
	`, run.RunID, run.StartedAt, run.Peers, run.Vertices, run.RawEdges,
		run.MeanTimeMs, run.MeanTEPS, run.HarmonicMeanTEPS); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("history: save run: %w", err)
	}

	for _, it := range iterations {
		if _, err := tx.Exec(ctx, `
			INSERT INTO run_iterations
				(run_id, iteration, source, mode, rounds_run, traversed_edges, duration_ms, teps, outcome, error_code, error_message)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, it.RunID, it.Iteration, it.Source, it.Mode, it.RoundsRun, it.TraversedEdges,
			it.DurationMs, it.TEPS, it.Outcome, nullIfEmpty(it.ErrorCode), nullIfEmpty(it.ErrorMessage)); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("history: save iteration: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("history: commit transaction: %w", err)
	}
	return nil
}
