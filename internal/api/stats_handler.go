package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/cadence/internal/api/shared"
	"github.com/phrazzld/cadence/internal/domain"
	calc "github.com/phrazzld/cadence/internal/domain/stats"
	statsvc "github.com/phrazzld/cadence/internal/service/stats"
)

const (
	defaultTrendDays = 7
	maxTrendDays     = 365
)

// StatsProvider computes review statistics for a user.
type StatsProvider interface {
	Summary(ctx context.Context, userID uuid.UUID, now time.Time, loc *time.Location) (*calc.Summary, error)
	Trend(ctx context.Context, userID uuid.UUID, current, previous statsvc.Window) (*calc.Trend, error)
}

var _ StatsProvider = (*statsvc.Service)(nil)

// TrendResponse is the body of GET /api/stats/trend.
type TrendResponse struct {
	Days     int            `json:"days"`
	Current  statsvc.Window `json:"current"`
	Previous statsvc.Window `json:"previous"`
	calc.Trend
}

// StatsHandler serves review statistics.
type StatsHandler struct {
	stats  StatsProvider
	clock  func() time.Time
	logger *slog.Logger
}

// NewStatsHandler creates a StatsHandler. A nil clock uses time.Now.
func NewStatsHandler(stats StatsProvider, clock func() time.Time, logger *slog.Logger) *StatsHandler {
	if stats == nil {
		panic("stats cannot be nil for StatsHandler")
	}
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StatsHandler{
		stats:  stats,
		clock:  clock,
		logger: logger.With(slog.String("component", "stats_handler")),
	}
}

// Summary handles GET /api/stats?tz=.
func (h *StatsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDOrError(w, r)
	if !ok {
		return
	}
	loc, err := queryLocation(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	summary, err := h.stats.Summary(r.Context(), userID, h.clock(), loc)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to compute statistics")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, summary)
}

// Trend handles GET /api/stats/trend?days=&tz=. It compares the last days
// calendar days, today included, against the days before them.
func (h *StatsHandler) Trend(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDOrError(w, r)
	if !ok {
		return
	}
	days, err := queryInt(r, "days", defaultTrendDays)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if days < 1 || days > maxTrendDays {
		HandleAPIError(w, r,
			fmt.Errorf("%w: days must be between 1 and %d", domain.ErrInvalidInput, maxTrendDays), "")
		return
	}
	loc, err := queryLocation(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	current, previous := statsvc.LastDays(h.clock(), days, loc)
	trend, err := h.stats.Trend(r.Context(), userID, current, previous)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to compute trend")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, TrendResponse{
		Days:     days,
		Current:  current,
		Previous: previous,
		Trend:    *trend,
	})
}
