package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phrazzld/cadence/internal/domain"
	"github.com/phrazzld/cadence/internal/platform/logger"
	"github.com/phrazzld/cadence/internal/store"
)

// PostgresHistoryStore implements the store.HistoryStore interface
// on top of the append-only review_history table.
type PostgresHistoryStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresHistoryStore creates a new PostgreSQL implementation of the HistoryStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresHistoryStore(db store.DBTX, logger *slog.Logger) *PostgresHistoryStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresHistoryStore{
		db:     db,
		logger: logger.With(slog.String("component", "history_store")),
	}
}

// Ensure PostgresHistoryStore implements store.HistoryStore interface
var _ store.HistoryStore = (*PostgresHistoryStore)(nil)

// Append implements store.HistoryStore.Append
func (s *PostgresHistoryStore) Append(ctx context.Context, record *domain.HistoryRecord) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := record.Validate(); err != nil {
		log.Warn("history record validation failed",
			slog.String("error", err.Error()),
			slog.String("record_id", record.ID.String()))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	var timeSpent sql.NullInt64
	if record.TimeSpentSeconds != nil {
		timeSpent = sql.NullInt64{Int64: int64(*record.TimeSpentSeconds), Valid: true}
	}

	query := `
		INSERT INTO review_history
			(id, schedule_id, user_id, item_id, outcome, time_spent_seconds, notes, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		record.ID,
		record.ScheduleID,
		record.UserID,
		record.ItemID,
		string(record.Outcome),
		timeSpent,
		record.Notes,
		record.RecordedAt,
	)
	if err != nil {
		log.Error("failed to append history record",
			slog.String("error", err.Error()),
			slog.String("record_id", record.ID.String()),
			slog.String("schedule_id", record.ScheduleID.String()))
		return store.NewStoreError("history_record", "append", "failed to insert history record", MapError(err))
	}

	log.Debug("history record appended",
		slog.String("record_id", record.ID.String()),
		slog.String("outcome", string(record.Outcome)))
	return nil
}

// List implements store.HistoryStore.List
func (s *PostgresHistoryStore) List(
	ctx context.Context,
	filter store.HistoryFilter,
) ([]domain.HistoryRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var b strings.Builder
	b.WriteString(`
		SELECT id, schedule_id, user_id, item_id, outcome, time_spent_seconds, notes, recorded_at
		FROM review_history
		WHERE user_id = $1`)

	args := []any{filter.UserID}
	if filter.ItemID != nil {
		args = append(args, *filter.ItemID)
		fmt.Fprintf(&b, " AND item_id = $%d", len(args))
	}
	if filter.From != nil {
		args = append(args, filter.From.UTC())
		fmt.Fprintf(&b, " AND recorded_at >= $%d", len(args))
	}
	if filter.To != nil {
		args = append(args, filter.To.UTC())
		fmt.Fprintf(&b, " AND recorded_at < $%d", len(args))
	}
	b.WriteString(" ORDER BY recorded_at ASC, id ASC")
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		log.Error("failed to list history",
			slog.String("error", err.Error()),
			slog.String("user_id", filter.UserID.String()))
		return nil, store.NewStoreError("history_record", "list", "failed to query history", MapError(err))
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	records := []domain.HistoryRecord{}
	for rows.Next() {
		var (
			r         domain.HistoryRecord
			outcome   string
			timeSpent sql.NullInt64
		)
		if err := rows.Scan(
			&r.ID,
			&r.ScheduleID,
			&r.UserID,
			&r.ItemID,
			&outcome,
			&timeSpent,
			&r.Notes,
			&r.RecordedAt,
		); err != nil {
			return nil, MapError(err)
		}
		r.Outcome = domain.ReviewOutcome(outcome)
		if timeSpent.Valid {
			v := int(timeSpent.Int64)
			r.TimeSpentSeconds = &v
		}
		r.RecordedAt = r.RecordedAt.UTC()
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return records, nil
}
