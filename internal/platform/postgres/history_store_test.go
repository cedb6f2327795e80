package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/cadence/internal/domain"
	"github.com/phrazzld/cadence/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var historyRowColumns = []string{
	"id", "schedule_id", "user_id", "item_id", "outcome", "time_spent_seconds", "notes", "recorded_at",
}

func TestPostgresHistoryStore_Append(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("with time spent", func(t *testing.T) {
		db, mock := newMockDB(t)
		s := NewPostgresHistoryStore(db, nil)
		spent := 42
		rec, err := domain.NewHistoryRecord(testSchedule(t), domain.ReviewOutcomeRemembered, &spent, "easy", now)
		require.NoError(t, err)

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO review_history")).
			WithArgs(rec.ID, rec.ScheduleID, rec.UserID, rec.ItemID, "remembered", 42, "easy", now).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, s.Append(context.Background(), rec))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("without time spent stores null", func(t *testing.T) {
		db, mock := newMockDB(t)
		s := NewPostgresHistoryStore(db, nil)
		rec, err := domain.NewHistoryRecord(testSchedule(t), domain.ReviewOutcomeForgotten, nil, "", now)
		require.NoError(t, err)

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO review_history")).
			WithArgs(rec.ID, rec.ScheduleID, rec.UserID, rec.ItemID, "forgotten", nil, "", now).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, s.Append(context.Background(), rec))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid record", func(t *testing.T) {
		db, mock := newMockDB(t)
		s := NewPostgresHistoryStore(db, nil)
		rec := &domain.HistoryRecord{
			ID:         uuid.New(),
			ScheduleID: uuid.New(),
			UserID:     uuid.New(),
			ItemID:     uuid.New(),
			Outcome:    domain.ReviewOutcome("meh"),
			RecordedAt: now,
		}

		err := s.Append(context.Background(), rec)
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
		assert.ErrorIs(t, err, domain.ErrInvalidReviewOutcome)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("foreign key violation", func(t *testing.T) {
		db, mock := newMockDB(t)
		s := NewPostgresHistoryStore(db, nil)
		rec, err := domain.NewHistoryRecord(testSchedule(t), domain.ReviewOutcomePartial, nil, "", now)
		require.NoError(t, err)

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO review_history")).
			WillReturnError(newPgError(foreignKeyViolationCode))

		err = s.Append(context.Background(), rec)
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
		var storeErr *store.StoreError
		require.ErrorAs(t, err, &storeErr)
		assert.Equal(t, "history_record", storeErr.Entity)
		assert.Equal(t, "append", storeErr.Operation)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresHistoryStore_List(t *testing.T) {
	userID := uuid.New()
	itemID := uuid.New()
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 7)

	t.Run("all filters", func(t *testing.T) {
		db, mock := newMockDB(t)
		s := NewPostgresHistoryStore(db, nil)

		rows := sqlmock.NewRows(historyRowColumns).
			AddRow(uuid.NewString(), uuid.NewString(), userID.String(), itemID.String(),
				"remembered", int64(12), "", from.Add(time.Hour)).
			AddRow(uuid.NewString(), uuid.NewString(), userID.String(), itemID.String(),
				"partial", nil, "hard", from.Add(2*time.Hour))

		mock.ExpectQuery(regexp.QuoteMeta(
			"WHERE user_id = $1 AND item_id = $2 AND recorded_at >= $3 AND recorded_at < $4 "+
				"ORDER BY recorded_at ASC, id ASC LIMIT $5")).
			WithArgs(userID, itemID, from, to, 10).
			WillReturnRows(rows)

		got, err := s.List(context.Background(), store.HistoryFilter{
			UserID: userID,
			ItemID: &itemID,
			From:   &from,
			To:     &to,
			Limit:  10,
		})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, domain.ReviewOutcomeRemembered, got[0].Outcome)
		require.NotNil(t, got[0].TimeSpentSeconds)
		assert.Equal(t, 12, *got[0].TimeSpentSeconds)
		assert.Nil(t, got[1].TimeSpentSeconds)
		assert.Equal(t, "hard", got[1].Notes)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("user only", func(t *testing.T) {
		db, mock := newMockDB(t)
		s := NewPostgresHistoryStore(db, nil)

		mock.ExpectQuery(`WHERE user_id = \$1 ORDER BY recorded_at ASC, id ASC$`).
			WithArgs(userID).
			WillReturnRows(sqlmock.NewRows(historyRowColumns))

		got, err := s.List(context.Background(), store.HistoryFilter{UserID: userID})
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
