// Package metrics exposes review activity as Prometheus metrics.
//
// Collector receives orchestrator events through events.EventHandler and also
// provides HTTP instrumentation for the server.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/scry-fsrs/internal/events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "scry"

// Collector owns a private registry with the review and HTTP metrics.
type Collector struct {
	reviewsTotal  *prometheus.CounterVec
	lapsesTotal   *prometheus.CounterVec
	scheduledDays *prometheus.HistogramVec
	errorsTotal   *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	registry      *prometheus.Registry
}

// NewCollector creates a Collector. Go runtime and process metrics are
// registered alongside the domain metrics.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		reviewsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reviews_total",
				Help:      "Graded reviews committed, by content type and grade.",
			},
			[]string{"content_type", "grade"},
		),
		lapsesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "review_lapses_total",
				Help:      "Reviews that increased a card's lapse count.",
			},
			[]string{"content_type"},
		),
		scheduledDays: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "scheduled_days",
				Help:      "Interval in days assigned by each review.",
				Buckets:   []float64{1, 2, 3, 5, 7, 14, 21, 30, 45, 60, 90, 180, 365},
			},
			[]string{"content_type"},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "review_errors_total",
				Help:      "Failed orchestrator operations, by operation.",
			},
			[]string{"operation"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by method, route pattern and status code.",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by method and route pattern.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		registry: registry,
	}

	registry.MustRegister(
		c.reviewsTotal,
		c.lapsesTotal,
		c.scheduledDays,
		c.errorsTotal,
		c.httpRequests,
		c.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

var _ events.EventHandler = (*Collector)(nil)

// HandleEvent implements events.EventHandler. Unknown event types are ignored.
func (c *Collector) HandleEvent(_ context.Context, event *events.Event) error {
	switch event.Type {
	case events.TypeReviewRecorded:
		var payload events.ReviewRecorded
		if err := event.UnmarshalPayload(&payload); err != nil {
			return fmt.Errorf("decode %s payload: %w", event.Type, err)
		}
		c.reviewsTotal.WithLabelValues(payload.ContentType, payload.Grade).Inc()
		c.scheduledDays.WithLabelValues(payload.ContentType).Observe(float64(payload.ScheduledDays))
		if payload.Lapsed {
			c.lapsesTotal.WithLabelValues(payload.ContentType).Inc()
		}
	case events.TypeReviewFailed:
		var payload events.ReviewFailed
		if err := event.UnmarshalPayload(&payload); err != nil {
			return fmt.Errorf("decode %s payload: %w", event.Type, err)
		}
		c.errorsTotal.WithLabelValues(payload.Operation).Inc()
	}
	return nil
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Middleware records request counts and latency labelled by the chi route
// pattern, so path parameters do not explode label cardinality.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		c.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		c.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
