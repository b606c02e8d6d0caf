package events

import (
	"context"
	"log/slog"
	"sync"
)

// InMemoryEmitter dispatches events synchronously to registered handlers.
//
// The plan service emits a JobRequestEvent once a plan row is stored; the
// server registers the job package's plan handler, which turns the event into
// a queued job. Dispatch happens on the caller's goroutine, so a slow handler
// delays the HTTP response. Handlers are expected to enqueue and return.
//
// Handlers are registered at startup and read on every emit. Emits run
// concurrently under the read lock.
type InMemoryEmitter struct {
	handlers []Handler
	mu       sync.RWMutex
	logger   *slog.Logger
}

// NewInMemoryEmitter returns an emitter without handlers. Events emitted
// before the first RegisterHandler call are logged and dropped.
func NewInMemoryEmitter(logger *slog.Logger) *InMemoryEmitter {
	return &InMemoryEmitter{
		logger: logger.With("component", "in_memory_event_emitter"),
	}
}

// RegisterHandler adds handler to the dispatch list.
func (e *InMemoryEmitter) RegisterHandler(handler Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = append(e.handlers, handler)
	e.logger.Debug("registered new event handler", "handler_count", len(e.handlers))
}

// EmitEvent delivers event to every handler, even after one fails, and
// returns the first error encountered. Later errors are only logged.
func (e *InMemoryEmitter) EmitEvent(ctx context.Context, event *JobRequestEvent) error {
	// Snapshot the handler list so handlers run without holding the lock and
	// may themselves register further handlers.
	e.mu.RLock()
	handlers := make([]Handler, len(e.handlers))
	copy(handlers, e.handlers)
	e.mu.RUnlock()

	e.logger.Debug("emitting event",
		"event_id", event.ID,
		"event_type", event.Type,
		"handler_count", len(handlers))

	// Only happens when the server is wired without the job runner, e.g. in
	// tests. Reported as success; the plan stays pending.
	if len(handlers) == 0 {
		e.logger.Warn("no handlers registered for event",
			"event_id", event.ID,
			"event_type", event.Type)
		return nil
	}

	var firstErr error
	for i, handler := range handlers {
		if err := handler.HandleEvent(ctx, event); err != nil {
			e.logger.Error("handler failed to process event",
				"error", err,
				"handler_index", i,
				"event_id", event.ID,
				"event_type", event.Type)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}

var _ Emitter = (*InMemoryEmitter)(nil)
