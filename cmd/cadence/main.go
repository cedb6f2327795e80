// Package main implements the cadence command: the review scheduling server
// and its operational subcommands.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/phrazzld/cadence/internal/config"
	"github.com/phrazzld/cadence/internal/platform/logger"
)

// cli carries state shared by every subcommand once PersistentPreRunE has run.
type cli struct {
	configFile string
	cfg        *config.Config
	logger     *slog.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "cadence",
		Short:         "Spaced-repetition review scheduling service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.init()
		},
	}
	root.PersistentFlags().StringVar(&c.configFile, "config", "", "config file path (default ./cadence.yaml)")

	root.AddCommand(
		newServeCmd(c),
		newMigrateCmd(c),
		newTokenCmd(c),
	)
	return root
}

// init loads configuration and installs the default logger.
func (c *cli) init() error {
	cfg, err := config.LoadWithFile(c.configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	l, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	c.cfg = cfg
	c.logger = l
	return nil
}
