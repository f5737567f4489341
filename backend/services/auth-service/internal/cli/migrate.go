package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCommand(connect Connector) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Long: `Apply the embedded PostgreSQL schema migrations that have not run yet.

Every service shares this schema, so run it once before starting them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, release, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			applied, err := svc.Migrate(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to migrate: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(applied) == 0 {
				fmt.Fprintln(out, "Schema is up to date.")
				return nil
			}
			for _, v := range applied {
				fmt.Fprintf(out, "Applied %s\n", v)
			}
			return nil
		},
	}
}
