package auth

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/terraconstructs/courtbook/cmd/courtctl/cmd/cmdutil"
	"github.com/terraconstructs/courtbook/internal/guard"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display authentication status",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cmdutil.Require(cmd, guard.RequireAuth); err != nil {
			return err
		}
		a := cmdutil.App(cmd)
		principal := a.Session.CurrentPrincipal()

		pterm.DefaultSection.Println("Authentication Status")
		pterm.Info.Printf("Signed in as: %s\n", principal.Identifier)
		if !principal.ExpiresAt.IsZero() {
			pterm.Info.Printf("Token expires at: %s\n", principal.ExpiresAt.Format(time.RFC1123))
		}
		pterm.Info.Printf("Credentials file: %s\n", a.Credentials.Path())

		role, err := a.Roles.Resolve(cmd.Context(), principal.Identifier)
		if err != nil {
			return fmt.Errorf("failed to resolve role: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "IDENTIFIER\tNAME\tEMAIL VERIFIED\tROLE")
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", principal.Identifier, principal.DisplayName, principal.EmailVerified, role)
		w.Flush()
		return nil
	},
}
