// Package identity defines the identity-provider contract the session core depends
// on and an OIDC implementation of it.
package identity

import (
	"context"
	"time"

	"github.com/terraconstructs/courtbook/pkg/sdk"
)

// Principal is the signed-in visitor as reported by the identity provider.
type Principal struct {
	// Identifier is stable and unique (the email claim when released).
	Identifier  string
	DisplayName string
	// Credential is the opaque bearer token. Empty means the principal cannot
	// make authenticated backend calls.
	Credential    string
	ExpiresAt     time.Time
	EmailVerified bool
}

// HasCredential reports whether p carries a usable bearer credential.
func (p *Principal) HasCredential() bool {
	if p == nil || p.Credential == "" {
		return false
	}
	return p.ExpiresAt.IsZero() || time.Now().Before(p.ExpiresAt)
}

// Provider is the identity provider contract.
//
// OnStateChange registers handler and calls it with the current principal (or nil)
// once the provider knows its state, then again on every change. Notifications are
// delivered one at a time.
type Provider interface {
	SignInWithPassword(ctx context.Context, identifier, secret string) (*Principal, error)
	SignInFederated(ctx context.Context) (*Principal, error)
	SignOut(ctx context.Context) error
	OnStateChange(handler func(*Principal)) (unsubscribe func())
}

// PrincipalFromCredentials maps stored credentials to a Principal.
func PrincipalFromCredentials(creds *sdk.Credentials) *Principal {
	if creds == nil {
		return nil
	}
	return &Principal{
		Identifier:    creds.Identifier(),
		DisplayName:   creds.DisplayName,
		Credential:    creds.AccessToken,
		ExpiresAt:     creds.ExpiresAt,
		EmailVerified: creds.EmailVerified,
	}
}
