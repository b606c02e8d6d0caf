package main

import (
	"fmt"
	"log/slog"

	"github.com/phrazzld/taskflow-api/internal/config"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/spf13/cobra"
)

// cliEnv is filled by the root command before any subcommand runs.
type cliEnv struct {
	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	env := &cliEnv{}

	root := &cobra.Command{
		Use:   "taskflow-api",
		Short: "Task management API with dependency-aware scheduling",
		Long: `taskflow-api serves the task management HTTP API.

Configuration is read from config.yaml (working directory or ./config) and
TASKFLOW_* environment variables. Without a subcommand the server starts.`,
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return env.load()
		},
	}

	serve := newServeCmd(env)
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	root.AddCommand(serve, newMigrateCmd(env), newGrantCmd(env))
	return root
}

func (e *cliEnv) load() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	l, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	e.cfg = cfg
	e.logger = l
	return nil
}
