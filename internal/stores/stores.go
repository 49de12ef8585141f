// Package stores opens the result store selected by configuration.
package stores

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/claude/fitarch/internal/config"
	"github.com/claude/fitarch/internal/docstore"
	"github.com/claude/fitarch/internal/localstore"
	"github.com/claude/fitarch/internal/progress"
	"github.com/claude/fitarch/internal/storage"
	"github.com/claude/fitarch/internal/workout"
)

// Store is what every backend provides.
type Store interface {
	workout.ResultSink
	ListResults(ctx context.Context, userID string, start, end time.Time) ([]workout.Result, error)
	GetResult(ctx context.Context, userID, id string) (*workout.Result, error)
	DeleteResult(ctx context.Context, userID, id string) error
	progress.Store
	io.Closer
}

var (
	_ Store = (*storage.DB)(nil)
	_ Store = (*localstore.Store)(nil)
	_ Store = (*docstore.Store)(nil)
)

// Open connects to the configured backend. For PostgreSQL, migrations from
// migrationsPath are applied first.
func Open(ctx context.Context, cfg config.DatabaseConfig, migrationsPath string, log *slog.Logger) (Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres, "":
		dsn := cfg.DSN()
		if err := storage.RunMigrations(dsn, migrationsPath); err != nil {
			return nil, fmt.Errorf("migrating postgres: %w", err)
		}
		log.Info("migrations applied")
		db, err := storage.New(ctx, dsn)
		if err != nil {
			return nil, err
		}
		log.Info("database connected", "driver", config.DriverPostgres, "host", cfg.Host, "name", cfg.Name)
		return db, nil

	case config.DriverSQLite:
		s, err := localstore.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		log.Info("database opened", "driver", config.DriverSQLite, "path", cfg.Path)
		return s, nil

	case config.DriverFirestore:
		s, err := docstore.Open(ctx, cfg.ProjectID, cfg.CredentialsFile)
		if err != nil {
			return nil, err
		}
		log.Info("firestore connected", "project", cfg.ProjectID)
		return s, nil

	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}
