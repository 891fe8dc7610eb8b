// Package guard decides whether a requested view may be shown, from the
// session state and, for role-gated views, the principal's resolved role.
package guard

import (
	"fmt"

	"github.com/terraconstructs/courtbook/internal/roles"
	"github.com/terraconstructs/courtbook/internal/session"
)

// Kind selects a guard variant.
type Kind uint8

const (
	// RequireAuth admits any signed-in principal.
	RequireAuth Kind = iota
	// RequireAdmin admits signed-in principals whose role is admin.
	RequireAdmin
	// RequireMember admits signed-in principals whose role is member.
	RequireMember
)

func (k Kind) String() string {
	switch k {
	case RequireAdmin:
		return "admin"
	case RequireMember:
		return "member"
	default:
		return "authenticated"
	}
}

// RequiredRole returns the role a Kind gates on; ok is false for RequireAuth.
func (k Kind) RequiredRole() (role roles.Role, ok bool) {
	switch k {
	case RequireAdmin:
		return roles.Admin, true
	case RequireMember:
		return roles.Member, true
	default:
		return roles.User, false
	}
}

// View names a redirect target.
type View string

const (
	ViewSignIn    View = "sign-in"
	ViewForbidden View = "forbidden"
)

// Outcome is the committed result of a guard.
type Outcome uint8

const (
	// Await means a signal has not settled; show the neutral placeholder.
	Await Outcome = iota
	Allow
	Deny
)

func (o Outcome) String() string {
	switch o {
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	default:
		return "await"
	}
}

// RedirectDecision tells a denied visitor where to go. ReturnTo is set for
// sign-in redirects so the sign-in flow can send the visitor back.
type RedirectDecision struct {
	Target   View
	ReturnTo string
}

// Decision is a guard's verdict. Redirect is set only when Outcome is Deny.
type Decision struct {
	Outcome  Outcome
	Redirect *RedirectDecision
}

// Equal reports whether d and other carry the same verdict.
func (d Decision) Equal(other Decision) bool {
	if d.Outcome != other.Outcome {
		return false
	}
	if d.Redirect == nil || other.Redirect == nil {
		return d.Redirect == nil && other.Redirect == nil
	}
	return *d.Redirect == *other.Redirect
}

func (d Decision) String() string {
	if d.Redirect == nil {
		return d.Outcome.String()
	}
	if d.Redirect.ReturnTo != "" {
		return fmt.Sprintf("%s -> %s (return to %s)", d.Outcome, d.Redirect.Target, d.Redirect.ReturnTo)
	}
	return fmt.Sprintf("%s -> %s", d.Outcome, d.Redirect.Target)
}

var (
	awaiting  = Decision{Outcome: Await}
	allowed   = Decision{Outcome: Allow}
	forbidden = Decision{Outcome: Deny, Redirect: &RedirectDecision{Target: ViewForbidden}}
)

func signInRedirect(requested string) Decision {
	return Decision{Outcome: Deny, Redirect: &RedirectDecision{Target: ViewSignIn, ReturnTo: requested}}
}

// Evaluate is the guard decision for a request of location requested. role is
// ignored unless kind gates on a role.
//
// Unresolved sessions and pending roles await. A signed-out visitor is sent to
// sign in by every guard, whatever role may be cached. A failed role fetch
// counts as no elevated role.
func Evaluate(kind Kind, sess session.State, role roles.State, requested string) Decision {
	switch sess.Status {
	case session.Unresolved:
		return awaiting
	case session.SignedOut:
		return signInRedirect(requested)
	}

	required, gated := kind.RequiredRole()
	if !gated {
		return allowed
	}

	switch role.Phase {
	case roles.Ready:
		if role.Role == required {
			return allowed
		}
		return forbidden
	case roles.Failed:
		return forbidden
	default:
		return awaiting
	}
}
