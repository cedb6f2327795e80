package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/cadence/internal/api/shared"
	"github.com/phrazzld/cadence/internal/events"
	"github.com/phrazzld/cadence/internal/platform/logger"
)

// ItemEventHandler receives item lifecycle webhooks from the content service.
type ItemEventHandler struct {
	emitter events.EventEmitter
	logger  *slog.Logger
}

// NewItemEventHandler creates an ItemEventHandler dispatching to emitter.
func NewItemEventHandler(emitter events.EventEmitter, logger *slog.Logger) *ItemEventHandler {
	if emitter == nil {
		panic("emitter cannot be nil for ItemEventHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ItemEventHandler{
		emitter: emitter,
		logger:  logger.With(slog.String("component", "item_event_handler")),
	}
}

// Receive handles POST /internal/items/events. It answers 202 once every
// registered handler has processed the event.
func (h *ItemEventHandler) Receive(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req ItemEventRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	event := requestToEvent(&req)
	if err := h.emitter.EmitEvent(r.Context(), event); err != nil {
		HandleAPIError(w, r, err, "Failed to process item event")
		return
	}

	log.Debug("item event accepted",
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", event.Type))
	w.WriteHeader(http.StatusAccepted)
}

// requestToEvent converts a validated request. Missing IDs and times are filled in.
func requestToEvent(req *ItemEventRequest) *events.ItemEvent {
	event := &events.ItemEvent{
		ID:         uuid.New(),
		Type:       req.Type,
		ItemID:     uuid.MustParse(req.ItemID),
		OccurredAt: time.Now().UTC(),
	}
	if req.ID != "" {
		event.ID = uuid.MustParse(req.ID)
	}
	if req.UserID != "" {
		event.UserID = uuid.MustParse(req.UserID)
	}
	if req.OccurredAt != nil {
		event.OccurredAt = req.OccurredAt.UTC()
	}
	return event
}
