package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"evcharge/backend/services/auth-service/internal/models"
)

func newUsersCommand(connect Connector) *cobra.Command {
	var role string

	cmd := &cobra.Command{
		Use:   "users",
		Short: "List user accounts",
		Example: `  # All accounts
  authctl users

  # Only admins
  authctl users --role admin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, release, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			users, err := svc.ListUsers(cmd.Context(), role)
			if err != nil {
				return fmt.Errorf("failed to list users: %w", err)
			}
			if len(users) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No users found.")
				return nil
			}

			printUsers(cmd.OutOrStdout(), users)
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", "", "filter by role (user or admin)")
	return cmd
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	adminStyle  = cellStyle.Foreground(lipgloss.Color("212"))
)

func printUsers(w io.Writer, users []models.User) {
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		rows = append(rows, []string{
			strconv.FormatInt(u.ID, 10),
			u.Name,
			u.Email,
			u.Role,
			u.CreatedAt.Format("2006-01-02 15:04"),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		Headers("ID", "NAME", "EMAIL", "ROLE", "CREATED").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 3 && rows[row][3] == "admin":
				return adminStyle
			default:
				return cellStyle
			}
		}).
		Rows(rows...)

	fmt.Fprintln(w, t)
}
