package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zitadel/oidc/v3/pkg/oidc"
	"golang.org/x/oauth2"

	"github.com/terraconstructs/courtbook/pkg/sdk"
)

func TestFileStore_RoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.LoadCredentials()
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	creds := &sdk.Credentials{
		AccessToken: "token-1",
		TokenType:   "Bearer",
		ExpiresAt:   time.Now().Add(time.Hour).UTC().Truncate(time.Second),
		Email:       "a@x.com",
	}
	require.NoError(t, store.SaveCredentials(creds))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := store.LoadCredentials()
	require.NoError(t, err)
	assert.Equal(t, creds.AccessToken, loaded.AccessToken)
	assert.Equal(t, "a@x.com", loaded.Identifier())
	assert.True(t, creds.ExpiresAt.Equal(loaded.ExpiresAt))

	require.NoError(t, store.DeleteCredentials())
	require.NoError(t, store.DeleteCredentials(), "deleting twice is not an error")
	_, err = store.LoadCredentials()
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FailureKind
	}{
		{"context cancelled", context.Canceled, FailureCancelled},
		{"deadline", fmt.Errorf("poll: %w", context.DeadlineExceeded), FailureCancelled},
		{"device denied", fmt.Errorf("device authorization failed: %w", &oidc.Error{ErrorType: oidc.AccessDenied}), FailureCancelled},
		{"device expired", &oidc.Error{ErrorType: oidc.ExpiredToken}, FailureCancelled},
		{"oidc invalid grant", &oidc.Error{ErrorType: oidc.InvalidGrant}, FailureBadCredentials},
		{"oauth2 invalid grant", fmt.Errorf("password login failed: %w", &oauth2.RetrieveError{ErrorCode: "invalid_grant"}), FailureBadCredentials},
		{"oauth2 server error", &oauth2.RetrieveError{ErrorCode: "server_error"}, FailureProvider},
		{"network", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, FailureNetwork},
		{"other", errors.New("weird"), FailureProvider},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			failure := Classify(tt.err)
			require.NotNil(t, failure)
			assert.Equal(t, tt.want, failure.Kind)
			assert.ErrorIs(t, failure, tt.err)
		})
	}

	assert.Nil(t, Classify(nil))
	existing := &AuthFailure{Kind: FailureNetwork, Err: errors.New("x")}
	assert.Same(t, existing, Classify(fmt.Errorf("wrapped: %w", existing)))
}

func TestPrincipal_HasCredential(t *testing.T) {
	var none *Principal
	assert.False(t, none.HasCredential())
	assert.False(t, (&Principal{Identifier: "a"}).HasCredential())
	assert.True(t, (&Principal{Identifier: "a", Credential: "t"}).HasCredential())
	assert.True(t, (&Principal{Identifier: "a", Credential: "t", ExpiresAt: time.Now().Add(time.Minute)}).HasCredential())
	assert.False(t, (&Principal{Identifier: "a", Credential: "t", ExpiresAt: time.Now().Add(-time.Minute)}).HasCredential())
}

type recorder struct {
	calls []*Principal
}

func (r *recorder) handle(p *Principal) { r.calls = append(r.calls, p) }

func TestOIDCProvider_RestoreReportsOnce(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.SaveCredentials(&sdk.Credentials{
		AccessToken: "token-1",
		Email:       "a@x.com",
		DisplayName: "Ada",
		ExpiresAt:   time.Now().Add(time.Hour),
	}))

	provider := NewOIDCProvider(OIDCConfig{}, store)
	defer provider.Close()

	rec := &recorder{}
	provider.OnStateChange(rec.handle)
	assert.Empty(t, rec.calls, "no report before the provider knows its state")

	provider.Restore(context.Background())
	require.Len(t, rec.calls, 1)
	require.NotNil(t, rec.calls[0])
	assert.Equal(t, "a@x.com", rec.calls[0].Identifier)
	assert.Equal(t, "token-1", rec.calls[0].Credential)

	late := &recorder{}
	provider.OnStateChange(late.handle)
	require.Len(t, late.calls, 1, "late subscribers get the current state immediately")
	assert.Equal(t, "a@x.com", late.calls[0].Identifier)
}

func TestOIDCProvider_ExpiredWithoutRefreshIsSignedOut(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.SaveCredentials(&sdk.Credentials{
		AccessToken: "old",
		Email:       "a@x.com",
		ExpiresAt:   time.Now().Add(-time.Hour),
	}))

	provider := NewOIDCProvider(OIDCConfig{}, store)
	defer provider.Close()

	rec := &recorder{}
	provider.OnStateChange(rec.handle)
	provider.Restore(context.Background())

	require.Len(t, rec.calls, 1)
	assert.Nil(t, rec.calls[0])
	_, err = store.LoadCredentials()
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestOIDCProvider_SignOut(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.SaveCredentials(&sdk.Credentials{AccessToken: "t", Email: "a@x.com"}))

	provider := NewOIDCProvider(OIDCConfig{}, store)
	defer provider.Close()
	provider.Restore(context.Background())

	rec := &recorder{}
	unsubscribe := provider.OnStateChange(rec.handle)
	require.NoError(t, provider.SignOut(context.Background()))

	require.Len(t, rec.calls, 2)
	assert.NotNil(t, rec.calls[0])
	assert.Nil(t, rec.calls[1])

	unsubscribe()
	require.NoError(t, provider.SignOut(context.Background()))
	assert.Len(t, rec.calls, 2, "unsubscribed handlers are not called")
}

func TestOIDCProvider_SignInWithoutIssuer(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	provider := NewOIDCProvider(OIDCConfig{}, store)
	defer provider.Close()

	_, err = provider.SignInWithPassword(context.Background(), "a@x.com", "secret")
	var failure *AuthFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, FailureProvider, failure.Kind)
}

func TestRefreshDelay(t *testing.T) {
	tests := []struct {
		name     string
		lifetime time.Duration
		leeway   time.Duration
		want     time.Duration
	}{
		{"long lived", time.Hour, time.Minute, 59 * time.Minute},
		{"shorter than leeway", 30 * time.Second, time.Minute, 15 * time.Second},
		{"barely valid", 2 * time.Second, time.Minute, minRefreshInterval},
		{"already expired", -time.Minute, time.Minute, minRefreshInterval},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, refreshDelay(tt.lifetime, tt.leeway))
		})
	}
}

func TestOIDCProvider_DiscoveryRetriedAfterFailure(t *testing.T) {
	var requests atomic.Int32
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/openid-configuration" {
			http.NotFound(w, r)
			return
		}
		if requests.Add(1) == 1 {
			http.Error(w, "issuer restarting", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"issuer":                 srv.URL,
			"authorization_endpoint": srv.URL + "/authorize",
			"token_endpoint":         srv.URL + "/token",
			"jwks_uri":               srv.URL + "/keys",
		})
	}))
	defer srv.Close()

	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	provider := NewOIDCProvider(OIDCConfig{Issuer: srv.URL, ClientID: "courtctl"}, store)
	defer provider.Close()

	_, err = provider.discover(context.Background())
	require.Error(t, err)

	first, err := provider.discover(context.Background())
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := provider.discover(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, int32(2), requests.Load(), "a successful discovery is reused")
}
