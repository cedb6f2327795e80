package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// HandlerError reports a handler that failed to process an item event.
type HandlerError struct {
	EventType string
	ItemID    uuid.UUID
	Handler   int
	Err       error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("%s for item %s: handler %d: %v", e.EventType, e.ItemID, e.Handler, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

// InMemoryEventEmitter dispatches item events synchronously to the handlers
// registered with it, in registration order.
type InMemoryEventEmitter struct {
	handlers []EventHandler
	mu       sync.RWMutex
	logger   *slog.Logger
}

// NewInMemoryEventEmitter creates an emitter with no handlers.
func NewInMemoryEventEmitter(logger *slog.Logger) *InMemoryEventEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &InMemoryEventEmitter{
		logger: logger.With(slog.String("component", "item_event_emitter")),
	}
}

var _ EventEmitter = (*InMemoryEventEmitter)(nil)

// RegisterHandler adds handler to the dispatch list.
func (e *InMemoryEventEmitter) RegisterHandler(handler EventHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = append(e.handlers, handler)
	e.logger.Debug("registered item event handler", slog.Int("handler_count", len(e.handlers)))
}

// EmitEvent validates event and hands it to every registered handler. A failing
// handler does not stop the others; each failure is returned as a *HandlerError,
// joined when more than one handler fails.
func (e *InMemoryEventEmitter) EmitEvent(ctx context.Context, event *ItemEvent) error {
	log := e.logger.With(
		slog.String("event_type", event.Type),
		slog.String("item_id", event.ItemID.String()))

	if err := event.Validate(); err != nil {
		log.Warn("rejected invalid item event", slog.String("error", err.Error()))
		return err
	}

	e.mu.RLock()
	handlers := append([]EventHandler(nil), e.handlers...)
	e.mu.RUnlock()

	if len(handlers) == 0 {
		log.Warn("no handlers registered for item event", slog.String("event_id", event.ID.String()))
		return nil
	}

	var errs []error
	for i, handler := range handlers {
		if err := handler.HandleEvent(ctx, event); err != nil {
			log.Error("item event handler failed",
				slog.String("error", err.Error()),
				slog.Int("handler", i),
				slog.String("event_id", event.ID.String()))
			errs = append(errs, &HandlerError{EventType: event.Type, ItemID: event.ItemID, Handler: i, Err: err})
		}
	}
	return errors.Join(errs...)
}
