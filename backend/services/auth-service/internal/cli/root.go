// Package cli implements authctl, the operator tool for auth-service accounts.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"evcharge/backend/services/auth-service/internal/models"
	"evcharge/backend/services/auth-service/internal/service"
)

// UserAdmin is the account and schema management used by the commands.
type UserAdmin interface {
	SeedAdmin(ctx context.Context, in service.AdminInput) (*models.User, bool, error)
	ListUsers(ctx context.Context, role string) ([]models.User, error)
	// Migrate applies pending schema migrations and returns their versions.
	Migrate(ctx context.Context) ([]string, error)
}

// Connector opens a UserAdmin for one command run. The returned func releases it.
type Connector func(ctx context.Context) (UserAdmin, func(), error)

// NewRootCommand builds the authctl command tree.
func NewRootCommand(connect Connector) *cobra.Command {
	root := &cobra.Command{
		Use:   "authctl",
		Short: "Manage EV charging platform accounts",
		Long: `authctl talks to the auth-service database directly.

It reads the same configuration as auth-service (CONFIG_FILE, AUTH_POSTGRES_DSN).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newMigrateCommand(connect), newSeedAdminCommand(connect), newUsersCommand(connect))
	return root
}
