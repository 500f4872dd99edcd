// Package main runs the scry-fsrs process. It loads configuration, opens the
// card store, wires the review service and serves health and metrics endpoints.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
)

func main() {
	migrate := flag.String("migrate", "", "run a migration command (up, down, status, version) and exit")
	configPath := flag.String("config", "", "path to a YAML configuration file")
	flag.Parse()

	if err := initializeApp(context.Background(), *configPath, *migrate); err != nil {
		log.Fatalf("scry-fsrs: %v", err)
	}
}

// initializeApp loads configuration and either runs a migration command or
// starts the server until it is signalled to stop.
func initializeApp(ctx context.Context, configPath, migrate string) error {
	cfg, err := loadAppConfig(configPath)
	if err != nil {
		return err
	}

	logger, err := setupAppLogger(cfg)
	if err != nil {
		return err
	}

	db, err := setupAppDatabase(ctx, cfg, logger)
	if err != nil {
		return err
	}

	if migrate != "" {
		defer func() {
			if err := db.Close(); err != nil {
				logger.Error("failed to close database", slog.String("error", err.Error()))
			}
		}()
		return handleMigrations(ctx, cfg, db, migrate, logger)
	}

	app, err := newApplication(ctx, cfg, db, logger)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	return app.Run(ctx)
}
