package srs

import (
	"time"

	"github.com/phrazzld/cadence/internal/domain"
)

// Advance moves the schedule one step up the interval table, saturating at the
// last entry, and marks the initial review as completed.
func Advance(s *domain.Schedule, table []int, now time.Time) *domain.Schedule {
	next := mutate(s, now)
	next.IntervalIndex = clampIndex(s.IntervalIndex+1, len(table))
	next.NextReviewAt = addDays(now, table[next.IntervalIndex])
	next.InitialReviewCompleted = true
	return next
}

// Hold keeps the schedule at its current interval. The index is only clamped
// into the table, and the next review is never pulled earlier than it already is.
func Hold(s *domain.Schedule, table []int, now time.Time) *domain.Schedule {
	next := mutate(s, now)
	next.IntervalIndex = clampIndex(s.IntervalIndex, len(table))
	candidate := addDays(now, table[next.IntervalIndex])
	if candidate.After(s.NextReviewAt) {
		next.NextReviewAt = candidate
	}
	return next
}

// Reset sends the schedule back to the first interval.
func Reset(s *domain.Schedule, table []int, now time.Time) *domain.Schedule {
	next := mutate(s, now)
	next.IntervalIndex = 0
	next.NextReviewAt = addDays(now, table[0])
	return next
}

// Deactivate marks the schedule inactive. An inactive schedule is never due
// and rejects further outcomes.
func Deactivate(s *domain.Schedule, now time.Time) *domain.Schedule {
	next := mutate(s, now)
	next.IsActive = false
	return next
}

// mutate copies s and stamps the copy as a new version.
func mutate(s *domain.Schedule, now time.Time) *domain.Schedule {
	next := s.Clone()
	next.Version = s.Version + 1
	next.UpdatedAt = now.UTC()
	return next
}

func addDays(now time.Time, days int) time.Time {
	return now.UTC().AddDate(0, 0, days)
}
