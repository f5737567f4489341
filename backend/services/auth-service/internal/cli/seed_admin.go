package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"evcharge/backend/services/auth-service/internal/service"
)

func newSeedAdminCommand(connect Connector) *cobra.Command {
	var in service.AdminInput

	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the default admin account if none exists",
		Long: `Create an admin account unless one already exists.

Running it again is safe: when any admin exists the command reports it and changes nothing.`,
		Example: `  # Seed with the default credentials
  authctl seed-admin

  # Seed with custom credentials
  authctl seed-admin --email ops@evcharge.in --password 'change-me-now' --name Ops`,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, release, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			user, created, err := svc.SeedAdmin(cmd.Context(), in)
			if err != nil {
				return fmt.Errorf("failed to seed admin: %w", err)
			}

			out := cmd.OutOrStdout()
			if !created {
				fmt.Fprintf(out, "Admin user already exists: %s (id %d)\n", user.Email, user.ID)
				return nil
			}
			fmt.Fprintf(out, "Admin user created: %s (id %d)\n", user.Email, user.ID)
			if in.Password == "" {
				fmt.Fprintln(out, "Default password in use, change it after first login.")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&in.Email, "email", "", "admin email (default admin@company.com)")
	cmd.Flags().StringVar(&in.Password, "password", "", "admin password (default admin123456)")
	cmd.Flags().StringVar(&in.Name, "name", "", "admin display name (default \"Default Admin\")")
	return cmd
}
