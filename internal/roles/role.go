// Package roles resolves the authorization role of a principal from the backend,
// caching answers per identifier and de-duplicating concurrent fetches.
package roles

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/terraconstructs/courtbook/pkg/sdk"
)

// Role is an authorization level. The zero value is User.
type Role uint8

const (
	User Role = iota
	Member
	Admin
)

// ErrUnknownRole is returned by Parse for role names outside the enumeration.
var ErrUnknownRole = errors.New("unknown role")

func (r Role) String() string {
	switch r {
	case User:
		return sdk.RoleUser
	case Member:
		return sdk.RoleMember
	case Admin:
		return sdk.RoleAdmin
	default:
		return fmt.Sprintf("Role(%d)", uint8(r))
	}
}

// Parse maps a backend role name to a Role. An empty name is the default role
// for principals the backend holds no role for.
func Parse(name string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", sdk.RoleUser:
		return User, nil
	case sdk.RoleMember:
		return Member, nil
	case sdk.RoleAdmin:
		return Admin, nil
	default:
		return User, fmt.Errorf("%w %q", ErrUnknownRole, name)
	}
}

// Fetcher asks the backend for an identifier's role.
type Fetcher interface {
	FetchRole(ctx context.Context, identifier string) (Role, error)
}

// FetchFunc adapts a function to Fetcher.
type FetchFunc func(ctx context.Context, identifier string) (Role, error)

// FetchRole implements Fetcher.
func (f FetchFunc) FetchRole(ctx context.Context, identifier string) (Role, error) {
	return f(ctx, identifier)
}

// RoleSource is the backend call a BackendFetcher wraps; *sdk.Client satisfies it.
type RoleSource interface {
	GetRole(ctx context.Context, identifier string) (string, error)
}

// BackendFetcher fetches roles through the backend role endpoint.
type BackendFetcher struct {
	Source RoleSource
}

// FetchRole implements Fetcher.
func (f BackendFetcher) FetchRole(ctx context.Context, identifier string) (Role, error) {
	name, err := f.Source.GetRole(ctx, identifier)
	if err != nil {
		return User, fmt.Errorf("fetch role for %s: %w", identifier, err)
	}
	return Parse(name)
}
