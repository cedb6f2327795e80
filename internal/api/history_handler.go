package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/cadence/internal/api/shared"
	"github.com/phrazzld/cadence/internal/domain"
	"github.com/phrazzld/cadence/internal/service/scheduling"
	"github.com/phrazzld/cadence/internal/store"
)

// HistoryHandler serves the caller's review history.
type HistoryHandler struct {
	history scheduling.HistoryReader
	logger  *slog.Logger
}

// NewHistoryHandler creates a HistoryHandler.
func NewHistoryHandler(history scheduling.HistoryReader, logger *slog.Logger) *HistoryHandler {
	if history == nil {
		panic("history cannot be nil for HistoryHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryHandler{
		history: history,
		logger:  logger.With(slog.String("component", "history_handler")),
	}
}

// List handles GET /api/history?item_id=&from=&to=.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDOrError(w, r)
	if !ok {
		return
	}

	filter := store.HistoryFilter{UserID: userID}
	var err error
	if filter.ItemID, err = queryUUID(r, "item_id"); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if filter.From, err = queryTime(r, "from"); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if filter.To, err = queryTime(r, "to"); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if filter.Limit, err = queryInt(r, "limit", 0); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	records, err := h.history.History(r.Context(), filter)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to read history")
		return
	}
	if records == nil {
		records = []domain.HistoryRecord{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, HistoryResponse{Records: records})
}
