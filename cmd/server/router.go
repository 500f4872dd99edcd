package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/scry-fsrs/internal/platform/logger"
)

const healthTimeout = 2 * time.Second

func (app *application) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(app.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(app.metrics.Middleware)

	r.Get("/healthz", app.handleHealth)
	r.Method(http.MethodGet, "/metrics", app.metrics.Handler())

	return r
}

// requestLogger stores a logger tagged with the request ID in the request
// context, so stores and services log with it.
func (app *application) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := app.logger.With(
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path))
		next.ServeHTTP(w, r.WithContext(logger.WithLogger(r.Context(), l)))
	})
}

type healthResponse struct {
	Status string `json:"status"`
}

func (app *application) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	status, resp := http.StatusOK, healthResponse{Status: "ok"}
	if err := app.db.PingContext(ctx); err != nil {
		logger.FromContextOrDefault(r.Context(), app.logger).Warn("health check failed",
			slog.String("error", err.Error()))
		status, resp = http.StatusServiceUnavailable, healthResponse{Status: "unavailable"}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
