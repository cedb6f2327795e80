package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ReviewOutcome represents the result of a single review attempt
type ReviewOutcome string

// Possible review outcome values
const (
	ReviewOutcomeRemembered ReviewOutcome = "remembered"
	ReviewOutcomePartial    ReviewOutcome = "partial"
	ReviewOutcomeForgotten  ReviewOutcome = "forgotten"
)

// ReviewOutcomes returns every valid outcome in a stable order.
func ReviewOutcomes() []ReviewOutcome {
	return []ReviewOutcome{ReviewOutcomeRemembered, ReviewOutcomePartial, ReviewOutcomeForgotten}
}

// Valid reports whether o is a recognized outcome.
func (o ReviewOutcome) Valid() bool {
	switch o {
	case ReviewOutcomeRemembered, ReviewOutcomePartial, ReviewOutcomeForgotten:
		return true
	default:
		return false
	}
}

// Common validation errors for HistoryRecord
var (
	ErrEmptyHistoryID         = errors.New("history record ID cannot be empty")
	ErrEmptyHistoryScheduleID = errors.New("history record schedule ID cannot be empty")
	ErrEmptyHistoryUserID     = errors.New("history record user ID cannot be empty")
	ErrEmptyHistoryItemID     = errors.New("history record item ID cannot be empty")
	ErrEmptyRecordedAt        = errors.New("history record time cannot be empty")

	// ErrInvalidReviewOutcome is returned for outcomes outside the supported set.
	ErrInvalidReviewOutcome = fmt.Errorf("%w: invalid review outcome", ErrInvalidInput)

	// ErrNegativeTimeSpent is returned when a review duration is below zero.
	ErrNegativeTimeSpent = fmt.Errorf("%w: time spent cannot be negative", ErrInvalidInput)
)

// HistoryRecord is an immutable entry describing one completed review.
// Records are append-only: nothing in the application updates or deletes them.
type HistoryRecord struct {
	ID               uuid.UUID     `json:"id"`
	ScheduleID       uuid.UUID     `json:"schedule_id"`
	UserID           uuid.UUID     `json:"user_id"`
	ItemID           uuid.UUID     `json:"item_id"`
	Outcome          ReviewOutcome `json:"outcome"`
	TimeSpentSeconds *int          `json:"time_spent_seconds,omitempty"` // nil when the client did not measure it
	Notes            string        `json:"notes,omitempty"`
	RecordedAt       time.Time     `json:"recorded_at"`
}

// NewHistoryRecord builds a history record for a review of the given schedule.
func NewHistoryRecord(
	schedule *Schedule,
	outcome ReviewOutcome,
	timeSpentSeconds *int,
	notes string,
	now time.Time,
) (*HistoryRecord, error) {
	if schedule == nil {
		return nil, ErrEmptyHistoryScheduleID
	}

	r := &HistoryRecord{
		ID:               uuid.New(),
		ScheduleID:       schedule.ID,
		UserID:           schedule.UserID,
		ItemID:           schedule.ItemID,
		Outcome:          outcome,
		TimeSpentSeconds: timeSpentSeconds,
		Notes:            notes,
		RecordedAt:       now.UTC(),
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}

	return r, nil
}

// Validate checks if the HistoryRecord has valid data.
func (r *HistoryRecord) Validate() error {
	if r.ID == uuid.Nil {
		return ErrEmptyHistoryID
	}

	if r.ScheduleID == uuid.Nil {
		return ErrEmptyHistoryScheduleID
	}

	if r.UserID == uuid.Nil {
		return ErrEmptyHistoryUserID
	}

	if r.ItemID == uuid.Nil {
		return ErrEmptyHistoryItemID
	}

	if !r.Outcome.Valid() {
		return ErrInvalidReviewOutcome
	}

	if r.TimeSpentSeconds != nil && *r.TimeSpentSeconds < 0 {
		return ErrNegativeTimeSpent
	}

	if r.RecordedAt.IsZero() {
		return ErrEmptyRecordedAt
	}

	return nil
}
