package auth

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/terraconstructs/courtbook/cmd/courtctl/cmd/cmdutil"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cmdutil.App(cmd).Session.SignOut(cmd.Context()); err != nil {
			return fmt.Errorf("failed to sign out: %w", err)
		}
		fmt.Println("Signed out successfully")
		return nil
	},
}
