package srs

import (
	"errors"
	"time"

	"github.com/phrazzld/cadence/internal/domain"
)

// Common errors
var (
	ErrNilSchedule    = errors.New("schedule cannot be nil")
	ErrInvalidOutcome = domain.ErrInvalidReviewOutcome
)

// Service defines the interface for SRS algorithm operations
type Service interface {
	// CalculateNextReview returns the schedule that results from applying
	// outcome under the interval table of tier. The input is not modified.
	CalculateNextReview(
		schedule *domain.Schedule,
		tier domain.Tier,
		outcome domain.ReviewOutcome,
		now time.Time,
	) (*domain.Schedule, error)

	// Intervals returns the interval table used for tier.
	Intervals(tier domain.Tier) []int
}

// defaultService is the standard implementation of the Service interface
type defaultService struct {
	policy *IntervalPolicy
}

// NewDefaultService creates a new SRS service with the built-in interval tables
func NewDefaultService() Service {
	return &defaultService{
		policy: NewDefaultIntervalPolicy(),
	}
}

// NewServiceWithPolicy creates a new SRS service with a custom interval policy
func NewServiceWithPolicy(policy *IntervalPolicy) Service {
	if policy == nil {
		policy = NewDefaultIntervalPolicy()
	}
	return &defaultService{
		policy: policy,
	}
}

// CalculateNextReview implements Service.
//
// Remembered advances the schedule, Partial holds it and Forgotten resets it.
// A tier missing from the policy uses the free table, and an index beyond the
// current tier's table is clamped as part of the transition.
func (s *defaultService) CalculateNextReview(
	schedule *domain.Schedule,
	tier domain.Tier,
	outcome domain.ReviewOutcome,
	now time.Time,
) (*domain.Schedule, error) {
	if schedule == nil {
		return nil, ErrNilSchedule
	}

	table := s.policy.table(tier)

	switch outcome {
	case domain.ReviewOutcomeRemembered:
		return Advance(schedule, table, now), nil
	case domain.ReviewOutcomePartial:
		return Hold(schedule, table, now), nil
	case domain.ReviewOutcomeForgotten:
		return Reset(schedule, table, now), nil
	default:
		return nil, ErrInvalidOutcome
	}
}

// Intervals implements Service.
func (s *defaultService) Intervals(tier domain.Tier) []int {
	return s.policy.Intervals(tier)
}
