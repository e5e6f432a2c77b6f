package history

import (
	"context"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"shmemsssp/pkg/config"
	"shmemsssp/pkg/logger"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrator applies and inspects goose migrations against the runs /
// run_iterations schema.
type Migrator struct {
	pool *pgxpool.Pool
}

// NewMigrator builds a Migrator over an already-open pgx pool.
func NewMigrator(pool *pgxpool.Pool) *Migrator {
	return &Migrator{pool: pool}
}

// Up applies every pending migration.
func (m *Migrator) Up(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(m.pool)
	defer db.Close()

	goose.SetBaseFS(migrationFiles)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("history: set dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("history: run migrations: %w", err)
	}

	logger.Log.Info("history store migrations applied")
	return nil
}

// Status reports the current migration state to the logger.
func (m *Migrator) Status(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(m.pool)
	defer db.Close()

	goose.SetBaseFS(migrationFiles)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("history: set dialect: %w", err)
	}
	return goose.StatusContext(ctx, db, "migrations")
}

// RunMigrations applies migrations if cfg.AutoMigrate is set, and is a
// no-op otherwise — operators who manage schema out-of-band disable it.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, cfg *config.HistoryConfig) error {
	if !cfg.AutoMigrate {
		logger.Log.Info("history auto-migration disabled")
		return nil
	}
	return NewMigrator(pool).Up(ctx)
}
