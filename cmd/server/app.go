package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-fsrs/internal/config"
	"github.com/phrazzld/scry-fsrs/internal/domain"
	"github.com/phrazzld/scry-fsrs/internal/domain/srs"
	"github.com/phrazzld/scry-fsrs/internal/events"
	"github.com/phrazzld/scry-fsrs/internal/platform/metrics"
	"github.com/phrazzld/scry-fsrs/internal/platform/postgres"
	"github.com/phrazzld/scry-fsrs/internal/platform/redislock"
	"github.com/phrazzld/scry-fsrs/internal/platform/sqlite"
	"github.com/phrazzld/scry-fsrs/internal/service/review"
	"github.com/phrazzld/scry-fsrs/internal/store"
	goredis "github.com/redis/go-redis/v9"
)

// application holds the process-wide dependencies.
type application struct {
	config  *config.Config
	logger  *slog.Logger
	db      *sql.DB
	redis   *goredis.Client
	metrics *metrics.Collector
	// reviews has no HTTP route; transports embedding the process call it
	// through Reviews.
	reviews review.Service
}

// newApplication wires the scheduler, stores, locker and event handlers on top
// of an open database. The application takes ownership of db.
func newApplication(
	ctx context.Context,
	cfg *config.Config,
	db *sql.DB,
	logger *slog.Logger,
) (*application, error) {
	params, err := srs.NewParams(cfg.Scheduler.ParamsConfig())
	if err != nil {
		return nil, fmt.Errorf("invalid scheduler parameters: %w", err)
	}
	scheduler, err := srs.NewServiceWithParams(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	cards := make(map[domain.ContentType]store.MemoryCardStore, len(domain.ContentTypes()))
	var logs store.ReviewLogStore
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		for _, contentType := range domain.ContentTypes() {
			cards[contentType] = sqlite.NewSQLiteMemoryCardStore(db, contentType, logger)
		}
		logs = sqlite.NewSQLiteReviewLogStore(db, logger)
	case config.DriverPostgres:
		for _, contentType := range domain.ContentTypes() {
			cards[contentType] = postgres.NewPostgresMemoryCardStore(db, contentType, logger)
		}
		logs = postgres.NewPostgresReviewLogStore(db, logger)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	app := &application{
		config:  cfg,
		logger:  logger,
		db:      db,
		metrics: metrics.NewCollector(),
	}

	var locker store.KeyLocker = store.NewLocalKeyLocker()
	if cfg.Redis.Enabled() {
		client, err := redislock.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		app.redis = client
		locker = redislock.New(client, redislock.Options{TTL: cfg.Redis.LockTTL}, logger)
		logger.Info("using redis card locker", slog.String("addr", cfg.Redis.Addr))
	}

	emitter := events.NewInMemoryEventEmitter(logger)
	emitter.RegisterHandler(app.metrics, events.TypeReviewRecorded, events.TypeReviewFailed)

	app.reviews, err = review.NewService(review.Dependencies{
		Scheduler: scheduler,
		Cards:     cards,
		Logs:      logs,
		DB:        db,
		Locker:    locker,
		Emitter:   emitter,
		Logger:    logger,
	})
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to create review service: %w", err)
	}

	return app, nil
}

// Reviews returns the review orchestrator wired to this process's stores,
// locker and metrics.
func (app *application) Reviews() review.Service {
	return app.reviews
}

// Run serves HTTP until ctx is done or the process is signalled.
func (app *application) Run(ctx context.Context) error {
	return app.startHTTPServer(ctx, app.routes())
}

// cleanup releases the database and cache connections.
func (app *application) cleanup() {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("failed to close redis client", slog.String("error", err.Error()))
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("failed to close database", slog.String("error", err.Error()))
		}
	}
}
