package identity

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/zitadel/oidc/v3/pkg/oidc"
	"golang.org/x/oauth2"
)

// FailureKind classifies why a sign-in did not complete.
type FailureKind int

const (
	// FailureProvider is any provider-side error not covered by the other kinds.
	FailureProvider FailureKind = iota
	// FailureBadCredentials means the provider rejected the secret or grant.
	FailureBadCredentials
	// FailureCancelled means the user abandoned the flow (denied, timed out, or the
	// caller's context ended).
	FailureCancelled
	// FailureNetwork means the provider could not be reached.
	FailureNetwork
)

func (k FailureKind) String() string {
	switch k {
	case FailureBadCredentials:
		return "bad credentials"
	case FailureCancelled:
		return "cancelled"
	case FailureNetwork:
		return "network failure"
	default:
		return "provider error"
	}
}

// AuthFailure is returned by every sign-in operation that did not succeed.
type AuthFailure struct {
	Kind FailureKind
	Err  error
}

func (f *AuthFailure) Error() string {
	return fmt.Sprintf("sign-in failed (%s): %v", f.Kind, f.Err)
}

func (f *AuthFailure) Unwrap() error { return f.Err }

// Classify wraps err in an AuthFailure. A nil err yields nil, and an existing
// AuthFailure is returned as is.
func Classify(err error) *AuthFailure {
	if err == nil {
		return nil
	}
	var existing *AuthFailure
	if errors.As(err, &existing) {
		return existing
	}
	return &AuthFailure{Kind: classifyKind(err), Err: err}
}

func classifyKind(err error) FailureKind {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return FailureCancelled
	}

	var oidcErr *oidc.Error
	if errors.As(err, &oidcErr) {
		switch oidcErr.ErrorType {
		case oidc.AccessDenied, oidc.ExpiredToken:
			return FailureCancelled
		case oidc.InvalidGrant, oidc.InvalidClient, oidc.UnauthorizedClient:
			return FailureBadCredentials
		}
		return FailureProvider
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		switch retrieveErr.ErrorCode {
		case "invalid_grant", "invalid_client", "unauthorized_client":
			return FailureBadCredentials
		case "access_denied", "expired_token":
			return FailureCancelled
		}
		return FailureProvider
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return FailureNetwork
	}
	return FailureProvider
}
