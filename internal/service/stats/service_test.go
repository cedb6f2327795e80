package stats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/cadence/internal/domain"
	"github.com/phrazzld/cadence/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHistory filters a fixed record set the way a store would.
type fakeHistory struct {
	records []domain.HistoryRecord
	err     error
	filters []store.HistoryFilter
}

func (f *fakeHistory) History(ctx context.Context, filter store.HistoryFilter) ([]domain.HistoryRecord, error) {
	f.filters = append(f.filters, filter)
	if f.err != nil {
		return nil, f.err
	}
	out := []domain.HistoryRecord{}
	for i := range f.records {
		if filter.Matches(&f.records[i]) {
			out = append(out, f.records[i])
		}
	}
	return out, nil
}

func record(userID uuid.UUID, outcome domain.ReviewOutcome, at time.Time) domain.HistoryRecord {
	return domain.HistoryRecord{
		ID:         uuid.New(),
		ScheduleID: uuid.New(),
		UserID:     userID,
		ItemID:     uuid.New(),
		Outcome:    outcome,
		RecordedAt: at,
	}
}

func TestLastDays(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

	current, previous := LastDays(now, 7, nil)
	assert.Equal(t, time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), current.From)
	assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), current.To)
	assert.Equal(t, time.Date(2026, 2, 25, 0, 0, 0, 0, time.UTC), previous.From)
	assert.Equal(t, current.From, previous.To)

	tokyo := time.FixedZone("JST", 9*60*60)
	// 15:30 UTC is already the 11th in Tokyo.
	current, _ = LastDays(now, 1, tokyo)
	assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, tokyo), current.From)
}

func TestSummary(t *testing.T) {
	userID := uuid.New()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	spent := 30
	r := record(userID, domain.ReviewOutcomeRemembered, now.Add(-time.Hour))
	r.TimeSpentSeconds = &spent

	history := &fakeHistory{records: []domain.HistoryRecord{
		r,
		record(userID, domain.ReviewOutcomeForgotten, now.AddDate(0, 0, -1)),
		record(userID, domain.ReviewOutcomeRemembered, now.AddDate(0, 0, -2)),
		record(uuid.New(), domain.ReviewOutcomeRemembered, now),
	}}
	svc := NewService(history, nil)

	summary, err := svc.Summary(context.Background(), userID, now, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.TotalReviews)
	assert.InDelta(t, 66.67, summary.SuccessRate, 0.001)
	assert.InDelta(t, 30.0, summary.AverageTimeSpent, 0.001)
	assert.Equal(t, 3, summary.CurrentStreak)
	assert.Equal(t, 3, summary.LongestStreak)
	assert.Equal(t, 1, summary.Distribution[domain.ReviewOutcomeForgotten].Count)
	assert.Equal(t, 0, summary.Distribution[domain.ReviewOutcomePartial].Count)
}

func TestSummaryPropagatesErrors(t *testing.T) {
	readErr := errors.New("history unavailable")
	svc := NewService(&fakeHistory{err: readErr}, nil)

	_, err := svc.Summary(context.Background(), uuid.New(), time.Now(), nil)
	assert.ErrorIs(t, err, readErr)
}

func TestTrend(t *testing.T) {
	userID := uuid.New()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	current, previous := LastDays(now, 7, nil)

	history := &fakeHistory{records: []domain.HistoryRecord{
		record(userID, domain.ReviewOutcomeRemembered, now),
		record(userID, domain.ReviewOutcomeRemembered, now.AddDate(0, 0, -3)),
		record(userID, domain.ReviewOutcomePartial, now.AddDate(0, 0, -8)),
		record(userID, domain.ReviewOutcomeRemembered, now.AddDate(0, 0, -9)),
		record(userID, domain.ReviewOutcomeRemembered, now.AddDate(0, 0, -30)),
	}}
	svc := NewService(history, nil)

	trend, err := svc.Trend(context.Background(), userID, current, previous)
	require.NoError(t, err)
	assert.Equal(t, 2, trend.CurrentCount)
	assert.Equal(t, 2, trend.PreviousCount)
	assert.Equal(t, 0, trend.CountChange)
	assert.InDelta(t, 100.0, trend.CurrentSuccessRate, 0.001)
	assert.InDelta(t, 50.0, trend.PreviousSuccessRate, 0.001)
	assert.InDelta(t, 50.0, trend.SuccessRateChange, 0.001)

	require.Len(t, history.filters, 2)
	assert.Equal(t, current.From, *history.filters[0].From)
	assert.Equal(t, current.To, *history.filters[0].To)
}

func TestTrendRejectsEmptyWindow(t *testing.T) {
	svc := NewService(&fakeHistory{}, nil)
	now := time.Now()

	_, err := svc.Trend(context.Background(), uuid.New(), Window{From: now, To: now}, Window{From: now.Add(-time.Hour), To: now})
	assert.ErrorIs(t, err, ErrInvalidWindow)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
