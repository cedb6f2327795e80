package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/cadence/internal/domain"
	"github.com/phrazzld/cadence/internal/platform/logger"
	"github.com/phrazzld/cadence/internal/store"
)

const scheduleColumns = `id, user_id, item_id, interval_index, next_review_at, is_active,
	initial_review_completed, version, created_at, updated_at`

// PostgresScheduleStore implements the store.ScheduleStore interface
// using a PostgreSQL database as the storage backend.
type PostgresScheduleStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresScheduleStore creates a new PostgreSQL implementation of the ScheduleStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresScheduleStore(db store.DBTX, logger *slog.Logger) *PostgresScheduleStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresScheduleStore{
		db:     db,
		logger: logger.With(slog.String("component", "schedule_store")),
	}
}

// Ensure PostgresScheduleStore implements store.ScheduleStore interface
var _ store.ScheduleStore = (*PostgresScheduleStore)(nil)

// Create implements store.ScheduleStore.Create
func (s *PostgresScheduleStore) Create(ctx context.Context, schedule *domain.Schedule) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := schedule.Validate(); err != nil {
		log.Warn("schedule validation failed during create",
			slog.String("error", err.Error()),
			slog.String("schedule_id", schedule.ID.String()))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO review_schedules (` + scheduleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(ctx, query,
		schedule.ID,
		schedule.UserID,
		schedule.ItemID,
		schedule.IntervalIndex,
		schedule.NextReviewAt,
		schedule.IsActive,
		schedule.InitialReviewCompleted,
		schedule.Version,
		schedule.CreatedAt,
		schedule.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Debug("schedule already exists for user and item",
				slog.String("user_id", schedule.UserID.String()),
				slog.String("item_id", schedule.ItemID.String()))
			return store.ErrScheduleExists
		}
		log.Error("failed to create schedule",
			slog.String("error", err.Error()),
			slog.String("schedule_id", schedule.ID.String()))
		return store.NewStoreError("schedule", "create", "failed to insert schedule", MapError(err))
	}

	log.Debug("schedule created",
		slog.String("schedule_id", schedule.ID.String()),
		slog.String("item_id", schedule.ItemID.String()))
	return nil
}

// GetByID implements store.ScheduleStore.GetByID
func (s *PostgresScheduleStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Schedule, error) {
	return s.getOne(ctx, `SELECT `+scheduleColumns+` FROM review_schedules WHERE id = $1`, id)
}

// GetForUpdate implements store.ScheduleStore.GetForUpdate
func (s *PostgresScheduleStore) GetForUpdate(
	ctx context.Context,
	id uuid.UUID,
) (*domain.Schedule, error) {
	return s.getOne(ctx,
		`SELECT `+scheduleColumns+` FROM review_schedules WHERE id = $1 FOR UPDATE`, id)
}

// GetByUserAndItem implements store.ScheduleStore.GetByUserAndItem
func (s *PostgresScheduleStore) GetByUserAndItem(
	ctx context.Context,
	userID, itemID uuid.UUID,
) (*domain.Schedule, error) {
	return s.getOne(ctx,
		`SELECT `+scheduleColumns+` FROM review_schedules WHERE user_id = $1 AND item_id = $2`,
		userID, itemID)
}

// ListByItem implements store.ScheduleStore.ListByItem
func (s *PostgresScheduleStore) ListByItem(
	ctx context.Context,
	itemID uuid.UUID,
) ([]*domain.Schedule, error) {
	return s.list(ctx,
		`SELECT `+scheduleColumns+` FROM review_schedules WHERE item_id = $1 ORDER BY created_at, id`,
		itemID)
}

// ListDue implements store.ScheduleStore.ListDue
func (s *PostgresScheduleStore) ListDue(
	ctx context.Context,
	userID uuid.UUID,
	now time.Time,
	limit, offset int,
) ([]*domain.Schedule, error) {
	var b strings.Builder
	b.WriteString(`SELECT ` + scheduleColumns + `
		FROM review_schedules
		WHERE user_id = $1 AND is_active AND next_review_at <= $2
		ORDER BY next_review_at ASC, item_id ASC`)

	args := []any{userID, now.UTC()}
	if limit > 0 {
		args = append(args, limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}
	if offset > 0 {
		args = append(args, offset)
		fmt.Fprintf(&b, " OFFSET $%d", len(args))
	}

	return s.list(ctx, b.String(), args...)
}

// Update implements store.ScheduleStore.Update
func (s *PostgresScheduleStore) Update(
	ctx context.Context,
	schedule *domain.Schedule,
	expectedVersion int,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := schedule.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	query := `
		UPDATE review_schedules
		SET interval_index = $1,
			next_review_at = $2,
			is_active = $3,
			initial_review_completed = $4,
			version = $5,
			updated_at = $6
		WHERE id = $7 AND version = $8
	`
	result, err := s.db.ExecContext(ctx, query,
		schedule.IntervalIndex,
		schedule.NextReviewAt,
		schedule.IsActive,
		schedule.InitialReviewCompleted,
		schedule.Version,
		schedule.UpdatedAt,
		schedule.ID,
		expectedVersion,
	)
	if err != nil {
		log.Error("failed to update schedule",
			slog.String("error", err.Error()),
			slog.String("schedule_id", schedule.ID.String()))
		return store.NewStoreError("schedule", "update", "failed to update schedule", MapError(err))
	}

	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n > 0 {
		log.Debug("schedule updated",
			slog.String("schedule_id", schedule.ID.String()),
			slog.Int("version", schedule.Version))
		return nil
	}

	// Zero rows: either the row is gone or its version moved on.
	var exists bool
	err = s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM review_schedules WHERE id = $1)`, schedule.ID,
	).Scan(&exists)
	if err != nil {
		return MapError(err)
	}
	if !exists {
		return store.ErrScheduleNotFound
	}

	log.Warn("schedule version conflict",
		slog.String("schedule_id", schedule.ID.String()),
		slog.Int("expected_version", expectedVersion))
	return fmt.Errorf("%w: schedule %s at version %d", store.ErrConflict, schedule.ID, expectedVersion)
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row rowScanner) (*domain.Schedule, error) {
	var sch domain.Schedule
	err := row.Scan(
		&sch.ID,
		&sch.UserID,
		&sch.ItemID,
		&sch.IntervalIndex,
		&sch.NextReviewAt,
		&sch.IsActive,
		&sch.InitialReviewCompleted,
		&sch.Version,
		&sch.CreatedAt,
		&sch.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	sch.NextReviewAt = sch.NextReviewAt.UTC()
	sch.CreatedAt = sch.CreatedAt.UTC()
	sch.UpdatedAt = sch.UpdatedAt.UTC()
	return &sch, nil
}

func (s *PostgresScheduleStore) getOne(
	ctx context.Context,
	query string,
	args ...any,
) (*domain.Schedule, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	sch, err := scanSchedule(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrScheduleNotFound
		}
		log.Error("failed to get schedule", slog.String("error", err.Error()))
		return nil, store.NewStoreError("schedule", "get", "failed to query schedule", MapError(err))
	}
	return sch, nil
}

func (s *PostgresScheduleStore) list(
	ctx context.Context,
	query string,
	args ...any,
) ([]*domain.Schedule, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to list schedules", slog.String("error", err.Error()))
		return nil, store.NewStoreError("schedule", "list", "failed to query schedules", MapError(err))
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	schedules := []*domain.Schedule{}
	for rows.Next() {
		sch, err := scanSchedule(rows)
		if err != nil {
			return nil, MapError(err)
		}
		schedules = append(schedules, sch)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return schedules, nil
}
