// Package storage selects and opens the configured progress store.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/felixgeelhaar/circuitscribe/internal/config"
	"github.com/felixgeelhaar/circuitscribe/internal/progress"
	"github.com/felixgeelhaar/circuitscribe/internal/storage/local"
	"github.com/felixgeelhaar/circuitscribe/internal/storage/postgres"
	"github.com/felixgeelhaar/circuitscribe/internal/storage/resilient"
	"github.com/felixgeelhaar/circuitscribe/internal/storage/sqlite"
)

// SQLiteFile is the database file created under the storage path
const SQLiteFile = "progress.db"

// Maintainer is implemented by stores with periodic housekeeping
type Maintainer interface {
	Maintain(ctx context.Context) error
}

// Open returns the store for cfg.Driver and a function releasing its resources.
// Postgres is wrapped in the resilient guard; the file-backed stores are not.
func Open(ctx context.Context, cfg config.StorageConfig) (progress.Store, func(), error) {
	switch cfg.Driver {
	case config.DriverLocal, "":
		store, err := local.NewStore(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open local store: %w", err)
		}
		return store, func() {}, nil

	case config.DriverSQLite:
		if err := os.MkdirAll(cfg.Path, 0755); err != nil {
			return nil, nil, fmt.Errorf("create sqlite dir: %w", err)
		}
		db, err := sqlite.Open(filepath.Join(cfg.Path, SQLiteFile))
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		closeDB := func() {
			if err := db.Close(); err != nil {
				slog.Warn("close sqlite", "error", err)
			}
		}
		return sqlite.NewProgressStore(db), closeDB, nil

	case config.DriverPostgres:
		pool, err := postgres.Connect(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		store := postgres.NewStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		guarded := resilient.Wrap(store, resilient.Config{
			FailureThreshold: cfg.Breaker.FailureThreshold,
			OpenTimeout:      cfg.Breaker.OpenTimeout,
			MaxConcurrent:    cfg.Breaker.MaxConcurrent,
			QueueTimeout:     cfg.Breaker.QueueTimeout,
			Name:             "postgres",
		})
		return guarded, pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
