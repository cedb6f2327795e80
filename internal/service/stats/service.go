// Package stats serves review statistics computed from a user's history.
package stats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/cadence/internal/domain"
	calc "github.com/phrazzld/cadence/internal/domain/stats"
	"github.com/phrazzld/cadence/internal/platform/logger"
	"github.com/phrazzld/cadence/internal/store"
)

// ErrInvalidWindow is returned for a window that ends before it starts.
var ErrInvalidWindow = fmt.Errorf("%w: window end must be after its start", domain.ErrInvalidInput)

// HistoryReader reads review history.
type HistoryReader interface {
	History(ctx context.Context, filter store.HistoryFilter) ([]domain.HistoryRecord, error)
}

// Window is a half-open time range [From, To).
type Window struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// LastDays returns the window covering the last days local days up to and
// including today, and the window of equal length just before it.
func LastDays(now time.Time, days int, loc *time.Location) (current, previous Window) {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	tomorrow := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
	start := tomorrow.AddDate(0, 0, -days)
	current = Window{From: start, To: tomorrow}
	previous = Window{From: start.AddDate(0, 0, -days), To: start}
	return current, previous
}

// Service computes statistics for a user.
type Service struct {
	history HistoryReader
	logger  *slog.Logger
}

// NewService creates a statistics service over history.
func NewService(history HistoryReader, logger *slog.Logger) *Service {
	if history == nil {
		panic("history cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		history: history,
		logger:  logger.With(slog.String("component", "stats_service")),
	}
}

// Summary computes the lifetime summary of userID's reviews. Streaks count
// calendar days in loc; a nil loc means UTC.
func (s *Service) Summary(
	ctx context.Context,
	userID uuid.UUID,
	now time.Time,
	loc *time.Location,
) (*calc.Summary, error) {
	records, err := s.history.History(ctx, store.HistoryFilter{UserID: userID})
	if err != nil {
		return nil, err
	}

	summary := calc.Summarize(records, now, loc)
	logger.FromContextOrDefault(ctx, s.logger).Debug("computed summary",
		slog.String("user_id", userID.String()),
		slog.Int("total_reviews", summary.TotalReviews))
	return &summary, nil
}

// Trend compares userID's reviews in current against previous.
func (s *Service) Trend(
	ctx context.Context,
	userID uuid.UUID,
	current, previous Window,
) (*calc.Trend, error) {
	cur, err := s.window(ctx, userID, current)
	if err != nil {
		return nil, err
	}
	prev, err := s.window(ctx, userID, previous)
	if err != nil {
		return nil, err
	}

	trend := calc.TrendComparison(cur, prev)
	return &trend, nil
}

func (s *Service) window(ctx context.Context, userID uuid.UUID, w Window) ([]domain.HistoryRecord, error) {
	if !w.To.After(w.From) {
		return nil, ErrInvalidWindow
	}
	from, to := w.From, w.To
	return s.history.History(ctx, store.HistoryFilter{UserID: userID, From: &from, To: &to})
}
