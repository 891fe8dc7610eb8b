package admin

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/terraconstructs/courtbook/cmd/courtctl/cmd/cmdutil"
	"github.com/terraconstructs/courtbook/internal/guard"
	"github.com/terraconstructs/courtbook/internal/roles"
	"github.com/terraconstructs/courtbook/pkg/sdk"
)

// UsersCmd is the parent command for user administration
var UsersCmd = &cobra.Command{
	Use:   "users",
	Short: "Administer users and their roles",
}

var (
	userSearch string
	userFilter string
)

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List users (admin)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cmdutil.Require(cmd, guard.RequireAdmin); err != nil {
			return err
		}
		users, err := cmdutil.App(cmd).Backend.ListUsers(cmd.Context(), userSearch)
		if err != nil {
			return fmt.Errorf("failed to list users: %w", err)
		}
		users, err = sdk.Filter(users, userFilter)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "EMAIL\tNAME\tROLE\tLAST LOGIN")
		for _, u := range users {
			lastLogin := "-"
			if !u.LastLoginAt.IsZero() {
				lastLogin = u.LastLoginAt.Local().Format(time.DateTime)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.Email, u.Name, u.Role, lastLogin)
		}
		w.Flush()
		return nil
	},
}

var userSetRoleCmd = &cobra.Command{
	Use:   "set-role EMAIL ROLE",
	Short: "Change a user's role (admin)",
	Long: `Sets a user's role to user, member or admin. Cached role lookups for that
user are dropped, so the change applies to their next guarded action.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cmdutil.Require(cmd, guard.RequireAdmin); err != nil {
			return err
		}
		role, err := roles.Parse(args[1])
		if err != nil {
			return err
		}
		user, err := cmdutil.App(cmd).Backend.SetRole(cmd.Context(), args[0], role.String())
		if err != nil {
			return fmt.Errorf("failed to set role for %s: %w", args[0], err)
		}
		pterm.Success.Printf("%s is now %s\n", user.Email, user.Role)
		return nil
	},
}

var userRemoveMemberCmd = &cobra.Command{
	Use:   "remove-member EMAIL",
	Short: "End a user's membership (admin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cmdutil.Require(cmd, guard.RequireAdmin); err != nil {
			return err
		}
		user, err := cmdutil.App(cmd).Backend.RemoveMember(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to remove membership for %s: %w", args[0], err)
		}
		pterm.Success.Printf("%s is no longer a member (role %s)\n", user.Email, user.Role)
		return nil
	},
}

func init() {
	UsersCmd.AddCommand(userListCmd)
	UsersCmd.AddCommand(userSetRoleCmd)
	UsersCmd.AddCommand(userRemoveMemberCmd)

	userListCmd.Flags().StringVar(&userSearch, "search", "", "Search term passed to the backend")
	userListCmd.Flags().StringVar(&userFilter, "filter", "", "bexpr filter expression (e.g. role == \"admin\")")
}
