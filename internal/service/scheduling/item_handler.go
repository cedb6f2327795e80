package scheduling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/cadence/internal/events"
	"github.com/phrazzld/cadence/internal/platform/logger"
)

// ItemLifecycleHandler keeps schedules in step with items in the content
// service. Redelivered events are harmless.
type ItemLifecycleHandler struct {
	engine Engine
	logger *slog.Logger
}

var _ events.EventHandler = (*ItemLifecycleHandler)(nil)

// NewItemLifecycleHandler creates a handler that forwards item events to engine.
func NewItemLifecycleHandler(engine Engine, logger *slog.Logger) *ItemLifecycleHandler {
	if engine == nil {
		panic("engine cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ItemLifecycleHandler{
		engine: engine,
		logger: logger.With(slog.String("component", "item_lifecycle_handler")),
	}
}

// HandleEvent implements events.EventHandler.
func (h *ItemLifecycleHandler) HandleEvent(ctx context.Context, event *events.ItemEvent) error {
	log := logger.FromContextOrDefault(ctx, h.logger).With(
		slog.String("event_type", event.Type),
		slog.String("item_id", event.ItemID.String()))

	switch event.Type {
	case events.TypeItemCreated:
		_, created, err := h.engine.CreateSchedule(ctx, event.UserID, event.ItemID)
		if err != nil {
			return err
		}
		log.Debug("handled item created", slog.Bool("created", created))
		return nil

	case events.TypeItemDeleted:
		n, err := h.engine.DeactivateItem(ctx, event.ItemID)
		if errors.Is(err, ErrItemNotFound) {
			log.Debug("deleted item had no schedules")
			return nil
		}
		if err != nil {
			return err
		}
		log.Debug("handled item deleted", slog.Int("deactivated", n))
		return nil

	default:
		return fmt.Errorf("%w: unknown type %q", events.ErrInvalidEvent, event.Type)
	}
}
