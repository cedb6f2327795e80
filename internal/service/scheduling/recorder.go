package scheduling

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/cadence/internal/domain"
	"github.com/phrazzld/cadence/internal/platform/logger"
	"github.com/phrazzld/cadence/internal/store"
)

// Recorder writes and reads the append-only review history.
type Recorder struct {
	history store.HistoryStore
	clock   Clock
	logger  *slog.Logger
}

var _ HistoryReader = (*Recorder)(nil)

// NewRecorder creates a Recorder reading from history.
// If logger is nil, a default logger will be used.
func NewRecorder(history store.HistoryStore, clock Clock, logger *slog.Logger) *Recorder {
	if history == nil {
		panic("history cannot be nil")
	}
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		history: history,
		clock:   clock,
		logger:  logger.With(slog.String("component", "review_recorder")),
	}
}

// Append assigns an ID and recording time when they are missing, validates
// the record and inserts it through repo. A nil repo uses the recorder's own
// store; pass the transaction's store to make the append part of a transaction.
func (r *Recorder) Append(ctx context.Context, repo store.HistoryStore, record *domain.HistoryRecord) error {
	log := logger.FromContextOrDefault(ctx, r.logger)

	if repo == nil {
		repo = r.history
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.RecordedAt.IsZero() {
		record.RecordedAt = r.clock().UTC()
	}

	if err := record.Validate(); err != nil {
		log.Warn("history record rejected",
			slog.String("error", err.Error()),
			slog.String("schedule_id", record.ScheduleID.String()))
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}

	if err := repo.Append(ctx, record); err != nil {
		return fmt.Errorf("failed to append history record: %w", err)
	}

	log.Debug("history record appended",
		slog.String("record_id", record.ID.String()),
		slog.String("outcome", string(record.Outcome)))
	return nil
}

// History returns the records matching filter, oldest first.
func (r *Recorder) History(ctx context.Context, filter store.HistoryFilter) ([]domain.HistoryRecord, error) {
	if filter.UserID == uuid.Nil {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidHistoryFilter)
	}
	if filter.Limit < 0 {
		return nil, fmt.Errorf("%w: limit must not be negative", ErrInvalidHistoryFilter)
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, fmt.Errorf("%w: from is after to", ErrInvalidHistoryFilter)
	}

	records, err := r.history.List(ctx, filter)
	if err != nil {
		log := logger.FromContextOrDefault(ctx, r.logger)
		log.Error("failed to read history",
			slog.String("error", err.Error()),
			slog.String("user_id", filter.UserID.String()))
		return nil, NewServiceError("history", "failed to read history", err)
	}
	return records, nil
}
