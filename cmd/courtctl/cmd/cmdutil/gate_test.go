package cmdutil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/terraconstructs/courtbook/internal/guard"
	"github.com/terraconstructs/courtbook/internal/identity"
	"github.com/terraconstructs/courtbook/internal/roles"
	"github.com/terraconstructs/courtbook/internal/session"
)

// staticSessions reports one state and never changes.
type staticSessions session.State

func (s staticSessions) Subscribe(handler func(session.State)) func() {
	handler(session.State(s))
	return func() {}
}

func resolverFor(role roles.Role, err error) *roles.Resolver {
	return roles.NewResolver(roles.FetchFunc(func(context.Context, string) (roles.Role, error) {
		return role, err
	}), roles.Options{})
}

func signedIn(id string) staticSessions {
	return staticSessions{Status: session.SignedIn, Principal: &identity.Principal{Identifier: id, Credential: "tok"}}
}

func TestGate(t *testing.T) {
	tests := []struct {
		name     string
		sessions staticSessions
		role     roles.Role
		fetchErr error
		kind     guard.Kind
		want     error
	}{
		{"signed out", staticSessions{Status: session.SignedOut}, roles.Admin, nil, guard.RequireAuth, ErrNotSignedIn},
		{"signed in", signedIn("p@x.com"), roles.User, nil, guard.RequireAuth, nil},
		{"admin allowed", signedIn("root@x.com"), roles.Admin, nil, guard.RequireAdmin, nil},
		{"member wanted admin", signedIn("m@x.com"), roles.Member, nil, guard.RequireAdmin, ErrForbidden},
		{"member allowed", signedIn("m@x.com"), roles.Member, nil, guard.RequireMember, nil},
		{"role fetch failed", signedIn("m@x.com"), roles.User, errors.New("backend down"), guard.RequireMember, ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := resolverFor(tt.role, tt.fetchErr)
			defer resolver.Close()

			err := Gate(context.Background(), tt.sessions, resolver, nil, tt.kind, "courtctl test", time.Second)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestGate_TimesOutWhileUnresolved(t *testing.T) {
	resolver := resolverFor(roles.Admin, nil)
	defer resolver.Close()

	err := Gate(context.Background(), staticSessions{}, resolver, nil, guard.RequireAuth, "courtctl test", 20*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
