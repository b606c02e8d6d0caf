package main

import (
	"fmt"

	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/platform/postgres"
	"github.com/phrazzld/taskflow-api/internal/service"
	"github.com/spf13/cobra"
)

// newGrantCmd adds permissions to an existing user. It is how the first
// administrator is created, since granting over the API already needs
// manage_user.
func newGrantCmd(env *cliEnv) *cobra.Command {
	var (
		email       string
		permissions []string
	)

	cmd := &cobra.Command{
		Use:   "grant",
		Short: "Grant permissions to a registered user",
		Example: `  taskflow-api grant --email admin@example.com --permission root
  taskflow-api grant --email ta@example.com --permission manage_all_task,assign_task`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			perms := make(domain.Permissions, 0, len(permissions))
			for _, p := range permissions {
				perms = append(perms, domain.Permission(p))
			}
			if err := perms.Validate(); err != nil {
				return err
			}

			db, err := openDatabase(cmd.Context(), env.cfg.Database, env.logger)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			users := service.NewUserService(
				postgres.NewPostgresUserStore(db, env.cfg.Auth.BCryptCost, env.logger),
				db,
				env.logger,
			)
			user, err := users.GrantPermissions(cmd.Context(), email, perms)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s now has: %v\n", user.Email, user.Permissions)
			return err
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email of the user to grant permissions to")
	cmd.Flags().StringSliceVar(&permissions, "permission", nil,
		"permission to grant (manage_all_task, manage_user, assign_task, root); repeatable")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("permission")
	return cmd
}
