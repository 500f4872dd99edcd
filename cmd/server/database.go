package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-fsrs/internal/config"
	"github.com/phrazzld/scry-fsrs/internal/platform/postgres"
	"github.com/phrazzld/scry-fsrs/internal/platform/sqlite"
	"github.com/phrazzld/scry-fsrs/internal/redact"
)

// setupAppDatabase opens the database selected by the configured driver.
func setupAppDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sql.DB, error) {
	logger.Info("connecting to database",
		slog.String("driver", cfg.Database.Driver),
		slog.String("url", redact.URL(cfg.Database.URL)))

	var (
		db  *sql.DB
		err error
	)
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		db, err = sqlite.Open(ctx, cfg.Database.URL)
	case config.DriverPostgres:
		db, err = postgres.Open(ctx, cfg.Database.URL)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Database.Driver, err)
	}

	logger.Info("database connection established")
	return db, nil
}
