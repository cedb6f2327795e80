package testdb

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/phrazzld/cadence/internal/config"
	"github.com/phrazzld/cadence/internal/platform/postgres"
)

// SetupTimeout bounds the connection and migration work done by Open.
const SetupTimeout = 30 * time.Second

// DatabaseURL returns DATABASE_URL, falling back to CADENCE_TEST_DB_URL.
func DatabaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	return os.Getenv("CADENCE_TEST_DB_URL")
}

// Open connects to the test database and applies all migrations. The test is
// skipped when no database is configured. The connection closes on cleanup.
func Open(t *testing.T) *sql.DB {
	t.Helper()
	url := DatabaseURL()
	if url == "" {
		t.Skip("DATABASE_URL not set; skipping database test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), SetupTimeout)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := postgres.Open(ctx, config.DatabaseConfig{URL: url, MaxOpenConns: 4, ConnectAttempts: 3}, logger)
	require.NoError(t, err, "failed to connect to %s", postgres.MaskDatabaseURL(url))
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, postgres.Migrate(ctx, db, postgres.MigrateUp, logger), "failed to run migrations")
	return db
}

// WithTx runs fn inside a transaction that is always rolled back.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err, "failed to begin transaction")
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			t.Errorf("failed to roll back test transaction: %v", err)
		}
	}()

	fn(t, tx)
}
