package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// ErrHandlerPanic wraps a panic recovered from an EventHandler.
var ErrHandlerPanic = errors.New("event handler panicked")

// subscription is a handler and the event types it wants. No types means all.
type subscription struct {
	handler EventHandler
	types   []string
}

func (s subscription) wants(eventType string) bool {
	return len(s.types) == 0 || slices.Contains(s.types, eventType)
}

// InMemoryEventEmitter dispatches events synchronously to the handlers
// registered with it, in registration order.
type InMemoryEventEmitter struct {
	mu            sync.RWMutex
	subscriptions []subscription
	logger        *slog.Logger
}

var _ EventEmitter = (*InMemoryEventEmitter)(nil)

// NewInMemoryEventEmitter creates an emitter with no handlers.
// A nil logger falls back to slog.Default().
func NewInMemoryEventEmitter(logger *slog.Logger) *InMemoryEventEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &InMemoryEventEmitter{
		logger: logger.With(slog.String("component", "event_emitter")),
	}
}

// RegisterHandler subscribes handler to the given event types, or to every
// event when no type is given.
func (e *InMemoryEventEmitter) RegisterHandler(handler EventHandler, types ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subscriptions = append(e.subscriptions, subscription{
		handler: handler,
		types:   slices.Clone(types),
	})
	e.logger.Debug("registered event handler",
		slog.Int("handler_count", len(e.subscriptions)),
		slog.Any("event_types", types))
}

// EmitEvent delivers event to every subscribed handler. A failing or panicking
// handler does not stop delivery to the others; the first error is returned.
func (e *InMemoryEventEmitter) EmitEvent(ctx context.Context, event *Event) error {
	e.mu.RLock()
	subs := slices.Clone(e.subscriptions)
	e.mu.RUnlock()

	var (
		firstErr  error
		delivered int
	)
	for i, sub := range subs {
		if !sub.wants(event.Type) {
			continue
		}
		delivered++
		if err := dispatch(ctx, sub.handler, event); err != nil {
			e.logger.Error("event handler failed",
				slog.String("error", err.Error()),
				slog.Int("handler_index", i),
				slog.String("event_id", event.ID.String()),
				slog.String("event_type", event.Type))
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	e.logger.Debug("event emitted",
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", event.Type),
		slog.Int("delivered", delivered))
	return firstErr
}

func dispatch(ctx context.Context, handler EventHandler, event *Event) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, p)
		}
	}()
	return handler.HandleEvent(ctx, event)
}
