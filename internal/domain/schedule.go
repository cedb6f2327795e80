package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for Schedule
var (
	ErrEmptyScheduleID     = errors.New("schedule ID cannot be empty")
	ErrEmptyScheduleUserID = errors.New("schedule user ID cannot be empty")
	ErrEmptyScheduleItemID = errors.New("schedule item ID cannot be empty")
	ErrInvalidIntervalIdx  = errors.New("interval index must be greater than or equal to 0")
	ErrInvalidVersion      = errors.New("schedule version must be greater than 0")
	ErrEmptyNextReviewAt   = errors.New("schedule next review time cannot be empty")
)

// Schedule tracks when a user should next review a specific item.
// There is at most one Schedule per (UserID, ItemID) pair.
//
// A Schedule is treated as an immutable value: the transitions in package srs
// return a modified copy and leave the receiver untouched.
type Schedule struct {
	ID                     uuid.UUID `json:"id"`
	UserID                 uuid.UUID `json:"user_id"`
	ItemID                 uuid.UUID `json:"item_id"`
	IntervalIndex          int       `json:"interval_index"` // Position in the tier's interval table
	NextReviewAt           time.Time `json:"next_review_at"`
	IsActive               bool      `json:"is_active"`
	InitialReviewCompleted bool      `json:"initial_review_completed"`
	Version                int       `json:"version"` // Incremented on every persisted mutation
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// NewSchedule creates a schedule for a newly created item.
// The schedule starts at the first interval and is due immediately.
func NewSchedule(userID, itemID uuid.UUID, now time.Time) (*Schedule, error) {
	now = now.UTC()
	s := &Schedule{
		ID:                     uuid.New(),
		UserID:                 userID,
		ItemID:                 itemID,
		IntervalIndex:          0,
		NextReviewAt:           now,
		IsActive:               true,
		InitialReviewCompleted: false,
		Version:                1,
		CreatedAt:              now,
		UpdatedAt:              now,
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return s, nil
}

// Validate checks if the Schedule has valid data.
// Returns an error if any field fails validation.
func (s *Schedule) Validate() error {
	if s.ID == uuid.Nil {
		return ErrEmptyScheduleID
	}

	if s.UserID == uuid.Nil {
		return ErrEmptyScheduleUserID
	}

	if s.ItemID == uuid.Nil {
		return ErrEmptyScheduleItemID
	}

	if s.IntervalIndex < 0 {
		return ErrInvalidIntervalIdx
	}

	if s.Version < 1 {
		return ErrInvalidVersion
	}

	if s.NextReviewAt.IsZero() {
		return ErrEmptyNextReviewAt
	}

	return nil
}

// IsDue reports whether the schedule is active and its review time has been reached.
func (s *Schedule) IsDue(now time.Time) bool {
	return s.IsActive && !s.NextReviewAt.After(now)
}

// Clone returns a copy of the schedule that can be modified independently.
func (s *Schedule) Clone() *Schedule {
	c := *s
	return &c
}
