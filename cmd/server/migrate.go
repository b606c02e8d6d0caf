package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/taskflow-api/internal/platform/postgres"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
)

// migrationCommands maps each migrate subcommand to its goose call.
var migrationCommands = map[string]func(ctx context.Context, db *sql.DB) error{
	"up": func(ctx context.Context, db *sql.DB) error {
		return goose.UpContext(ctx, db, postgres.MigrationsDir)
	},
	"down": func(ctx context.Context, db *sql.DB) error {
		return goose.DownContext(ctx, db, postgres.MigrationsDir)
	},
	"status": func(ctx context.Context, db *sql.DB) error {
		return goose.StatusContext(ctx, db, postgres.MigrationsDir)
	},
	"version": func(ctx context.Context, db *sql.DB) error {
		return goose.VersionContext(ctx, db, postgres.MigrationsDir)
	},
	"reset": func(ctx context.Context, db *sql.DB) error {
		return goose.ResetContext(ctx, db, postgres.MigrationsDir)
	},
}

var migrationHelp = map[string]string{
	"up":      "Apply all pending migrations",
	"down":    "Roll back the most recent migration",
	"status":  "Print the status of every migration",
	"version": "Print the current schema version",
	"reset":   "Roll back all migrations",
}

func newMigrateCmd(env *cliEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	for _, name := range []string{"up", "down", "status", "version", "reset"} {
		name := name
		cmd.AddCommand(&cobra.Command{
			Use:   name,
			Short: migrationHelp[name],
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				db, err := openDatabase(cmd.Context(), env.cfg.Database, env.logger)
				if err != nil {
					return err
				}
				defer func() { _ = db.Close() }()
				return runMigration(cmd.Context(), db, name, env.logger)
			},
		})
	}
	return cmd
}

// runMigration runs one goose command against the embedded migrations.
func runMigration(ctx context.Context, db *sql.DB, command string, logger *slog.Logger) error {
	run, ok := migrationCommands[command]
	if !ok {
		return fmt.Errorf("unknown migration command %q", command)
	}

	goose.SetBaseFS(postgres.Migrations)
	goose.SetTableName(postgres.MigrationTableName)
	goose.SetLogger(&slogGooseLogger{logger: logger.With("component", "migrations")})
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}

	logger.Info("running migrations", "command", command)
	if err := run(ctx, db); err != nil {
		logger.Error("migration failed", "command", command, "error", err)
		return fmt.Errorf("migration %s failed: %w", command, err)
	}
	logger.Info("migrations finished", "command", command)
	return nil
}

// slogGooseLogger adapts the goose logger interface to slog.
type slogGooseLogger struct {
	logger *slog.Logger
}

func (l *slogGooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, v...))
}

// Fatalf logs at error level. It does not exit; the failing goose call
// returns its error to the command.
func (l *slogGooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, v...))
}
