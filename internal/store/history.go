package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/cadence/internal/domain"
)

// HistoryFilter narrows a history read. UserID is required; every other
// field is optional.
type HistoryFilter struct {
	UserID uuid.UUID
	ItemID *uuid.UUID
	From   *time.Time // inclusive
	To     *time.Time // exclusive
	Limit  int        // 0 means no limit
}

// Matches reports whether r satisfies the filter.
func (f HistoryFilter) Matches(r *domain.HistoryRecord) bool {
	if r.UserID != f.UserID {
		return false
	}
	if f.ItemID != nil && r.ItemID != *f.ItemID {
		return false
	}
	if f.From != nil && r.RecordedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && !r.RecordedAt.Before(*f.To) {
		return false
	}
	return true
}

// HistoryStore defines the interface for the append-only review history.
// It exposes no update or delete operations.
type HistoryStore interface {
	// Append inserts a new history record.
	// Returns an error wrapping ErrInvalidEntity if the record fails validation.
	Append(ctx context.Context, record *domain.HistoryRecord) error

	// List returns the records matching filter ordered by recorded_at ascending.
	List(ctx context.Context, filter HistoryFilter) ([]domain.HistoryRecord, error)
}

// Transactor runs a function against schedule and history stores that share a
// single transaction. Either every write made through the stores is committed
// or none is.
type Transactor interface {
	WithinTx(
		ctx context.Context,
		fn func(ctx context.Context, schedules ScheduleStore, history HistoryStore) error,
	) error
}
