package scheduling

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/cadence/internal/domain"
	"github.com/phrazzld/cadence/internal/domain/srs"
	"github.com/phrazzld/cadence/internal/platform/logger"
	"github.com/phrazzld/cadence/internal/store"
)

// Verify interface compliance at compile time
var _ Engine = (*engineImpl)(nil)

// engineImpl implements the Engine interface.
type engineImpl struct {
	tx         store.Transactor
	schedules  store.ScheduleStore
	recorder   *Recorder
	srsService srs.Service
	tiers      TierResolver
	clock      Clock
	logger     *slog.Logger
}

// Option configures an Engine.
type Option func(*engineImpl)

// WithClock overrides the engine's time source.
func WithClock(clock Clock) Option {
	return func(e *engineImpl) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// NewEngine creates a new Engine implementation.
// schedules serves reads outside transactions; tx runs every write.
func NewEngine(
	tx store.Transactor,
	schedules store.ScheduleStore,
	recorder *Recorder,
	srsService srs.Service,
	tiers TierResolver,
	logger *slog.Logger,
	opts ...Option,
) Engine {
	if tx == nil {
		panic("tx cannot be nil")
	}
	if schedules == nil {
		panic("schedules cannot be nil")
	}
	if recorder == nil {
		panic("recorder cannot be nil")
	}
	if srsService == nil {
		panic("srsService cannot be nil")
	}
	if tiers == nil {
		panic("tiers cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	e := &engineImpl{
		tx:         tx,
		schedules:  schedules,
		recorder:   recorder,
		srsService: srsService,
		tiers:      tiers,
		clock:      time.Now,
		logger:     logger.With(slog.String("component", "scheduling_engine")),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CreateSchedule implements Engine.CreateSchedule.
func (e *engineImpl) CreateSchedule(
	ctx context.Context,
	userID, itemID uuid.UUID,
) (*domain.Schedule, bool, error) {
	log := logger.FromContextOrDefault(ctx, e.logger).With(
		slog.String("user_id", userID.String()),
		slog.String("item_id", itemID.String()))

	existing, err := e.schedules.GetByUserAndItem(ctx, userID, itemID)
	switch {
	case err == nil:
		log.Debug("schedule already exists", slog.String("schedule_id", existing.ID.String()))
		return existing, false, nil
	case !store.IsNotFoundError(err):
		log.Error("failed to look up schedule", slog.String("error", err.Error()))
		return nil, false, NewServiceError("create_schedule", "failed to look up schedule", err)
	}

	schedule, err := domain.NewSchedule(userID, itemID, e.clock())
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}

	if err := e.schedules.Create(ctx, schedule); err != nil {
		if !store.IsDuplicateError(err) {
			log.Error("failed to create schedule", slog.String("error", err.Error()))
			return nil, false, NewServiceError("create_schedule", "failed to create schedule", err)
		}

		// Lost a race with another creator; the stored one wins.
		existing, getErr := e.schedules.GetByUserAndItem(ctx, userID, itemID)
		if getErr != nil {
			return nil, false, NewServiceError("create_schedule", "failed to load existing schedule", getErr)
		}
		log.Debug("schedule created concurrently", slog.String("schedule_id", existing.ID.String()))
		return existing, false, nil
	}

	log.Info("schedule created", slog.String("schedule_id", schedule.ID.String()))
	return schedule, true, nil
}

// DueSchedules implements Engine.DueSchedules.
func (e *engineImpl) DueSchedules(
	ctx context.Context,
	userID uuid.UUID,
	now time.Time,
) ([]*domain.Schedule, error) {
	return e.DueSchedulesPage(ctx, userID, now, 0, 0)
}

// DueSchedulesPage implements Engine.DueSchedulesPage.
func (e *engineImpl) DueSchedulesPage(
	ctx context.Context,
	userID uuid.UUID,
	now time.Time,
	limit, offset int,
) ([]*domain.Schedule, error) {
	if limit < 0 || offset < 0 {
		return nil, ErrInvalidPage
	}

	due, err := e.schedules.ListDue(ctx, userID, now, limit, offset)
	if err != nil {
		log := logger.FromContextOrDefault(ctx, e.logger)
		log.Error("failed to list due schedules",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, NewServiceError("due_schedules", "failed to list due schedules", err)
	}
	return due, nil
}

// ApplyOutcome implements Engine.ApplyOutcome.
func (e *engineImpl) ApplyOutcome(ctx context.Context, sub Submission) (*ReviewResult, error) {
	log := logger.FromContextOrDefault(ctx, e.logger).With(
		slog.String("user_id", sub.UserID.String()),
		slog.String("schedule_id", sub.ScheduleID.String()))

	if !sub.Outcome.Valid() {
		log.Warn("invalid review outcome", slog.String("outcome", string(sub.Outcome)))
		return nil, ErrInvalidOutcome
	}
	if sub.TimeSpentSeconds != nil && *sub.TimeSpentSeconds < 0 {
		log.Warn("negative time spent", slog.Int("time_spent_seconds", *sub.TimeSpentSeconds))
		return nil, ErrNegativeTimeSpent
	}

	// The tier lookup runs outside the transaction; no row lock is held across it.
	if _, err := e.loadSchedule(ctx, log, e.schedules.GetByID, sub); err != nil {
		if isClientError(err) {
			return nil, err
		}
		log.Error("failed to load schedule", slog.String("error", err.Error()))
		return nil, NewServiceError("apply_outcome", "failed to load schedule", err)
	}

	tier, err := e.resolveTier(ctx, sub.UserID)
	if err != nil {
		log.Error("failed to resolve tier", slog.String("error", err.Error()))
		return nil, NewServiceError("apply_outcome", "failed to resolve tier", err)
	}

	var result *ReviewResult
	err = e.tx.WithinTx(ctx,
		func(ctx context.Context, schedules store.ScheduleStore, history store.HistoryStore) error {
			// The schedule may have changed hands or been deactivated since the first read.
			current, err := e.loadSchedule(ctx, log, schedules.GetForUpdate, sub)
			if err != nil {
				return err
			}

			now := e.clock().UTC()
			next := current
			// Only a remembered outcome waits for the schedule to be due.
			applied := sub.Outcome != domain.ReviewOutcomeRemembered || current.IsDue(now)
			if applied {
				next, err = e.srsService.CalculateNextReview(current, tier, sub.Outcome, now)
				if err != nil {
					return fmt.Errorf("failed to calculate next review: %w", err)
				}
				if err := schedules.Update(ctx, next, current.Version); err != nil {
					return fmt.Errorf("failed to update schedule: %w", err)
				}
			} else {
				log.Info("schedule not due, recording without transition",
					slog.Time("next_review_at", current.NextReviewAt))
			}

			record, err := domain.NewHistoryRecord(current, sub.Outcome, sub.TimeSpentSeconds, sub.Notes, now)
			if err != nil {
				return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
			}
			if err := e.recorder.Append(ctx, history, record); err != nil {
				return err
			}

			result = &ReviewResult{Schedule: next, Record: record, Applied: applied}
			return nil
		})
	if err != nil {
		if isClientError(err) {
			return nil, err
		}
		log.Error("failed to apply review outcome", slog.String("error", err.Error()))
		return nil, NewServiceError("apply_outcome", "failed to apply review outcome", err)
	}

	log.Info("review outcome applied",
		slog.String("outcome", string(sub.Outcome)),
		slog.Bool("applied", result.Applied),
		slog.Int("interval_index", result.Schedule.IntervalIndex),
		slog.Time("next_review_at", result.Schedule.NextReviewAt))
	return result, nil
}

// loadSchedule reads the submitted schedule through get and checks, in order,
// that it exists, belongs to the submitter and is still active.
func (e *engineImpl) loadSchedule(
	ctx context.Context,
	log *slog.Logger,
	get func(context.Context, uuid.UUID) (*domain.Schedule, error),
	sub Submission,
) (*domain.Schedule, error) {
	current, err := get(ctx, sub.ScheduleID)
	if err != nil {
		if store.IsNotFoundError(err) {
			log.Debug("schedule not found")
			return nil, ErrScheduleNotFound
		}
		return nil, fmt.Errorf("failed to read schedule: %w", err)
	}

	if current.UserID != sub.UserID {
		log.Warn("user does not own schedule",
			slog.String("owner_id", current.UserID.String()))
		return nil, ErrScheduleNotOwned
	}
	if !current.IsActive {
		log.Debug("schedule is inactive")
		return nil, ErrScheduleInactive
	}
	return current, nil
}

// resolveTier asks the resolver for the user's tier on every call.
// An unrecognized tier is treated as free; a lookup failure is returned.
func (e *engineImpl) resolveTier(ctx context.Context, userID uuid.UUID) (domain.Tier, error) {
	tier, err := e.tiers.GetTier(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve tier: %w", err)
	}
	if !tier.Valid() {
		logger.FromContextOrDefault(ctx, e.logger).Warn("unknown tier, using free",
			slog.String("tier", string(tier)),
			slog.String("user_id", userID.String()))
		return domain.TierFree, nil
	}
	return tier, nil
}

// DeactivateItem implements Engine.DeactivateItem.
func (e *engineImpl) DeactivateItem(ctx context.Context, itemID uuid.UUID) (int, error) {
	log := logger.FromContextOrDefault(ctx, e.logger).With(slog.String("item_id", itemID.String()))

	changed := 0
	err := e.tx.WithinTx(ctx,
		func(ctx context.Context, schedules store.ScheduleStore, _ store.HistoryStore) error {
			changed = 0
			found, err := schedules.ListByItem(ctx, itemID)
			if err != nil {
				return fmt.Errorf("failed to list schedules for item: %w", err)
			}
			if len(found) == 0 {
				return ErrItemNotFound
			}

			now := e.clock()
			for _, s := range found {
				if !s.IsActive {
					continue
				}
				if err := schedules.Update(ctx, srs.Deactivate(s, now), s.Version); err != nil {
					return fmt.Errorf("failed to deactivate schedule %s: %w", s.ID, err)
				}
				changed++
			}
			return nil
		})
	if err != nil {
		if isClientError(err) {
			return 0, err
		}
		log.Error("failed to deactivate item", slog.String("error", err.Error()))
		return 0, NewServiceError("deactivate_item", "failed to deactivate item", err)
	}

	log.Info("item schedules deactivated", slog.Int("deactivated", changed))
	return changed, nil
}
