package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunInTransaction(t *testing.T) {
	fnErr := errors.New("function failed")

	tests := []struct {
		name        string
		setupMock   func(mock sqlmock.Sqlmock)
		fn          TxFn
		wantErr     error
		wantContain []string
	}{
		{
			name: "commits on success",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectCommit()
			},
			fn: func(ctx context.Context, tx *sql.Tx) error { return nil },
		},
		{
			name: "rolls back on function error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectRollback()
			},
			fn:      func(ctx context.Context, tx *sql.Tx) error { return fnErr },
			wantErr: fnErr,
		},
		{
			name: "begin failure",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin().WillReturnError(errors.New("begin transaction failed"))
			},
			fn:          func(ctx context.Context, tx *sql.Tx) error { return nil },
			wantErr:     ErrTransactionFailed,
			wantContain: []string{"begin transaction", "begin transaction failed"},
		},
		{
			name: "commit failure",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectCommit().WillReturnError(errors.New("commit failed"))
			},
			fn:          func(ctx context.Context, tx *sql.Tx) error { return nil },
			wantErr:     ErrTransactionFailed,
			wantContain: []string{"commit transaction", "commit failed"},
		},
		{
			name: "rollback failure keeps original error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectRollback().WillReturnError(errors.New("rollback failed"))
			},
			fn:          func(ctx context.Context, tx *sql.Tx) error { return fnErr },
			wantErr:     fnErr,
			wantContain: []string{"function failed", "rollback also failed: rollback failed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer func() { _ = db.Close() }()

			tt.setupMock(mock)

			err = RunInTransaction(context.Background(), db, tt.fn)
			if tt.wantErr == nil && len(tt.wantContain) == 0 {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
				}
				for _, s := range tt.wantContain {
					assert.Contains(t, err.Error(), s)
				}
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRunInTransaction_Panic(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = RunInTransaction(context.Background(), db, func(ctx context.Context, tx *sql.Tx) error {
			panic("test panic")
		})
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
