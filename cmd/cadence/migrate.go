package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/phrazzld/cadence/internal/platform/postgres"
	"github.com/phrazzld/cadence/internal/redact"
)

func newMigrateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status|version]",
		Short:     "Apply or inspect database migrations",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{postgres.MigrateUp, postgres.MigrateDown, postgres.MigrateStatus, postgres.MigrateVersion},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := c.logger.With("command", "migrate", "action", args[0])

			db, err := postgres.Open(ctx, c.cfg.Database, log)
			if err != nil {
				return fmt.Errorf("failed to open database: %s", redact.Error(err))
			}
			defer func() {
				if cerr := db.Close(); cerr != nil {
					log.Error("failed to close database", "error", cerr)
				}
			}()

			if err := postgres.Migrate(ctx, db, args[0], log); err != nil {
				return fmt.Errorf("migration %s failed: %w", args[0], err)
			}
			return nil
		},
	}
}
