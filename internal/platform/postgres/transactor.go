package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/phrazzld/cadence/internal/store"
)

// Transactor implements store.Transactor by running the callback inside a
// database transaction and handing it stores bound to that transaction.
type Transactor struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewTransactor creates a Transactor over db.
// If logger is nil, a default logger will be used.
func NewTransactor(db *sql.DB, logger *slog.Logger) *Transactor {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Transactor{db: db, logger: logger}
}

var _ store.Transactor = (*Transactor)(nil)

// WithinTx implements store.Transactor.WithinTx
func (t *Transactor) WithinTx(
	ctx context.Context,
	fn func(ctx context.Context, schedules store.ScheduleStore, history store.HistoryStore) error,
) error {
	return store.RunInTransaction(ctx, t.db, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx,
			NewPostgresScheduleStore(tx, t.logger),
			NewPostgresHistoryStore(tx, t.logger),
		)
	})
}
