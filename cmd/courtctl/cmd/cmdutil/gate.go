// Package cmdutil holds helpers shared by courtctl commands.
package cmdutil

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/terraconstructs/courtbook/cmd/courtctl/internal/cliconfig"
	"github.com/terraconstructs/courtbook/internal/app"
	"github.com/terraconstructs/courtbook/internal/guard"
	"github.com/terraconstructs/courtbook/internal/telemetry"
)

// ErrNotSignedIn is returned by Require when the session is signed out.
var ErrNotSignedIn = errors.New("not signed in\n\nPlease run 'courtctl auth login' first")

// ErrForbidden is returned by Require when the principal lacks the role.
var ErrForbidden = errors.New("forbidden")

// App returns the application injected by the root command.
func App(cmd *cobra.Command) *app.App {
	return cliconfig.MustFromContext(cmd.Context()).App
}

// Require blocks until the guard for kind settles and returns nil only when
// it admits the caller.
func Require(cmd *cobra.Command, kind guard.Kind) error {
	a := App(cmd)
	return Gate(cmd.Context(), a.Session, a.Roles, a.GuardMetrics, kind, cmd.CommandPath(), a.Config.Roles.FetchTimeout+5*time.Second)
}

// Gate is Require without the cobra plumbing.
func Gate(ctx context.Context, sessions guard.SessionSource, resolver guard.RoleSource, metrics *telemetry.GuardMetrics, kind guard.Kind, requested string, wait time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	decision, err := guard.WaitSettled(ctx, sessions, resolver, guard.Target{Kind: kind, Requested: requested})
	metrics.RecordDecision(ctx, kind.String(), decision.Outcome.String())
	if err != nil {
		return fmt.Errorf("timed out waiting for the session to load: %w", err)
	}
	if decision.Outcome == guard.Allow {
		return nil
	}
	if decision.Redirect != nil && decision.Redirect.Target == guard.ViewSignIn {
		return ErrNotSignedIn
	}
	required, _ := kind.RequiredRole()
	return fmt.Errorf("%w: %s requires the %s role", ErrForbidden, requested, required)
}
