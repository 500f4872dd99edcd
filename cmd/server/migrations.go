package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-fsrs/internal/config"
	"github.com/phrazzld/scry-fsrs/internal/platform/postgres"
)

// handleMigrations runs a goose command against the PostgreSQL schema.
// SQLite databases create their schema on open and have no migrations.
func handleMigrations(
	ctx context.Context,
	cfg *config.Config,
	db *sql.DB,
	command string,
	logger *slog.Logger,
) error {
	if cfg.Database.Driver != config.DriverPostgres {
		return fmt.Errorf("migrations are only supported for the %s driver, got %q",
			config.DriverPostgres, cfg.Database.Driver)
	}

	logger.Info("running migrations", slog.String("command", command))
	return postgres.Migrate(ctx, db, postgres.MigrationCommand(command), logger)
}
