package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/cadence/internal/domain"
)

// ScheduleStore defines the interface for review schedule persistence.
type ScheduleStore interface {
	// Create saves a new schedule.
	// Returns ErrScheduleExists if a schedule already exists for the same user and item.
	// Returns an error wrapping ErrInvalidEntity if the schedule fails validation.
	Create(ctx context.Context, schedule *domain.Schedule) error

	// GetByID retrieves a schedule by its unique ID.
	// Returns ErrScheduleNotFound if the schedule does not exist.
	// NOTE: This method does NOT provide any row locking.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Schedule, error)

	// GetForUpdate retrieves a schedule and locks it until the surrounding
	// transaction ends. It must be called inside a transaction.
	// Returns ErrScheduleNotFound if the schedule does not exist.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Schedule, error)

	// GetByUserAndItem retrieves the schedule for a (user, item) pair.
	// Returns ErrScheduleNotFound if no such schedule exists.
	GetByUserAndItem(ctx context.Context, userID, itemID uuid.UUID) (*domain.Schedule, error)

	// ListByItem returns every schedule referencing itemID, active or not.
	// Returns an empty slice when there are none.
	ListByItem(ctx context.Context, itemID uuid.UUID) ([]*domain.Schedule, error)

	// ListDue returns the user's active schedules with next_review_at <= now,
	// ordered by next_review_at and then item_id ascending.
	// A limit of 0 returns every due schedule.
	ListDue(
		ctx context.Context,
		userID uuid.UUID,
		now time.Time,
		limit, offset int,
	) ([]*domain.Schedule, error)

	// Update replaces a stored schedule if its version still equals
	// expectedVersion. The schedule argument carries the new version.
	// Returns ErrConflict if the stored version differs and
	// ErrScheduleNotFound if the schedule does not exist.
	Update(ctx context.Context, schedule *domain.Schedule, expectedVersion int) error
}
