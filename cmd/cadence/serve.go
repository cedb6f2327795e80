package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/phrazzld/cadence/internal/platform/postgres"
	"github.com/phrazzld/cadence/internal/redact"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(c *cli) *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return c.serve(ctx, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending migrations before serving")
	return cmd
}

func (c *cli) serve(ctx context.Context, migrate bool) error {
	db, err := postgres.Open(ctx, c.cfg.Database, c.logger)
	if err != nil {
		return fmt.Errorf("failed to open database: %s", redact.Error(err))
	}
	if migrate {
		if err := postgres.Migrate(ctx, db, postgres.MigrateUp, c.logger); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
	}

	app, err := newApplication(c.cfg, c.logger, db, postgresStorage(db, c.logger))
	if err != nil {
		_ = db.Close()
		return err
	}
	defer app.cleanup()

	if err := app.startSubscriber(ctx); err != nil {
		return err
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", c.cfg.Server.Port),
		Handler:           app.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return runServer(ctx, server, app)
}

// runServer serves until ctx is cancelled or the listener fails, then shuts
// the server down gracefully.
func runServer(ctx context.Context, server *http.Server, app *application) error {
	errCh := make(chan error, 1)
	go func() {
		app.logger.Info("starting server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		app.logger.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	app.logger.Info("server shutdown completed")
	return nil
}
