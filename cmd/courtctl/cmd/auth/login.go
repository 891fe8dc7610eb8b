package auth

import (
	"errors"
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/terraconstructs/courtbook/cmd/courtctl/cmd/cmdutil"
	"github.com/terraconstructs/courtbook/internal/identity"
)

var (
	username string
	password string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the booking service",
	Long: `Signs in with the configured identity provider.

Two methods are supported:
1. Federated sign-in (default): starts a device authorization flow. Open the
   printed link in a browser and enter the code.
2. Password sign-in: pass --username. The password is read from --password,
   COURTBOOK_PASSWORD, or prompted for.

The first federated sign-in of a new account also creates its booking profile.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := cmdutil.App(cmd)
		if p := a.Session.CurrentPrincipal(); p != nil {
			pterm.Info.Printf("Already signed in as %s\n", p.Identifier)
			return nil
		}

		if username != "" {
			secret := password
			if secret == "" {
				secret = os.Getenv("COURTBOOK_PASSWORD")
			}
			if secret == "" {
				var err error
				secret, err = pterm.DefaultInteractiveTextInput.WithMask("*").Show("Password")
				if err != nil {
					return fmt.Errorf("failed to read password: %w", err)
				}
			}
			principal, err := a.Session.SignIn(cmd.Context(), username, secret)
			if err != nil {
				return loginError(err)
			}
			pterm.Success.Printf("Signed in as %s\n", principal.Identifier)
			return nil
		}

		principal, err := a.Session.SignInWithFederatedProvider(cmd.Context())
		if err != nil {
			return loginError(err)
		}
		name := principal.DisplayName
		if name == "" {
			name = principal.Identifier
		}
		pterm.Success.Printf("Signed in as %s (%s)\n", name, principal.Identifier)
		return nil
	},
}

func loginError(err error) error {
	var failure *identity.AuthFailure
	if errors.As(err, &failure) && failure.Kind == identity.FailureBadCredentials {
		return fmt.Errorf("sign-in rejected: check your username and password")
	}
	return err
}

func init() {
	loginCmd.Flags().StringVar(&username, "username", "", "Sign in with a password for this account instead of the device flow")
	loginCmd.Flags().StringVar(&password, "password", "", "Password for --username (prompted for when omitted)")
}
