// Package scheduling owns the review schedules: it creates them when items
// appear, lists what is due, applies review outcomes and records history.
package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/cadence/internal/domain"
	"github.com/phrazzld/cadence/internal/store"
)

// Submission is one review answer for a schedule.
type Submission struct {
	ScheduleID       uuid.UUID
	UserID           uuid.UUID
	Outcome          domain.ReviewOutcome
	TimeSpentSeconds *int
	Notes            string
}

// ReviewResult is the outcome of ApplyOutcome.
type ReviewResult struct {
	// Schedule is the schedule after the submission.
	Schedule *domain.Schedule
	// Record is the history record that was appended.
	Record *domain.HistoryRecord
	// Applied is false when the schedule was not yet due and was left unchanged.
	Applied bool
}

// TierResolver looks up a user's current subscription tier.
type TierResolver interface {
	GetTier(ctx context.Context, userID uuid.UUID) (domain.Tier, error)
}

// Clock returns the current time.
type Clock func() time.Time

// Engine manages review schedules.
type Engine interface {
	// CreateSchedule creates the schedule for a newly created item. It is
	// idempotent: if the schedule exists it is returned with created=false.
	CreateSchedule(ctx context.Context, userID, itemID uuid.UUID) (*domain.Schedule, bool, error)

	// DueSchedules returns every active schedule of userID with
	// next_review_at <= now, ordered by next_review_at and then item_id.
	DueSchedules(ctx context.Context, userID uuid.UUID, now time.Time) ([]*domain.Schedule, error)

	// DueSchedulesPage is DueSchedules with a limit and offset.
	// A limit of 0 means no limit.
	DueSchedulesPage(
		ctx context.Context,
		userID uuid.UUID,
		now time.Time,
		limit, offset int,
	) ([]*domain.Schedule, error)

	// ApplyOutcome applies one review submission. The schedule update and the
	// history append happen in one transaction.
	//
	// Returns ErrScheduleNotFound or ErrScheduleInactive (both wrap
	// domain.ErrNotFound), ErrScheduleNotOwned, ErrInvalidOutcome or
	// ErrNegativeTimeSpent. Other failures are returned as *ServiceError.
	ApplyOutcome(ctx context.Context, submission Submission) (*ReviewResult, error)

	// DeactivateItem deactivates every schedule referencing itemID and returns
	// how many changed. Repeating it is harmless. Returns ErrItemNotFound when
	// no schedule references the item.
	DeactivateItem(ctx context.Context, itemID uuid.UUID) (int, error)
}

// HistoryReader is the read side of the recorder, used by the statistics service.
type HistoryReader interface {
	History(ctx context.Context, filter store.HistoryFilter) ([]domain.HistoryRecord, error)
}
