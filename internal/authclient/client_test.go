package authclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terraconstructs/courtbook/internal/identity"
	"github.com/terraconstructs/courtbook/pkg/sdk"
)

type mutablePrincipal struct {
	mu sync.Mutex
	p  *identity.Principal
}

func (m *mutablePrincipal) CurrentPrincipal() *identity.Principal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.p
}

func (m *mutablePrincipal) set(p *identity.Principal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.p = p
}

type capture struct {
	hits          atomic.Int32
	mu            sync.Mutex
	authorization [][]string
	requestIDs    []string
}

func (c *capture) auth() [][]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]string(nil), c.authorization...)
}

func (c *capture) ids() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.requestIDs...)
}

func (c *capture) server(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.hits.Add(1)
		c.mu.Lock()
		c.authorization = append(c.authorization, r.Header.Values("Authorization"))
		c.requestIDs = append(c.requestIDs, r.Header.Get(RequestIDHeader))
		c.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"role":"member"}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSend_SignedOutFailsWithoutNetworkCall(t *testing.T) {
	rec := &capture{}
	srv := rec.server(t)
	client := New(srv.URL, &mutablePrincipal{})

	resp, err := client.Send(context.Background(), &sdk.Request{Path: "/users/a@x.com/role", RequiresAuth: true})
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.Zero(t, rec.hits.Load())
}

func TestSend_PrincipalWithoutCredential(t *testing.T) {
	rec := &capture{}
	srv := rec.server(t)

	for name, p := range map[string]*identity.Principal{
		"empty credential":   {Identifier: "a@x.com"},
		"expired credential": {Identifier: "a@x.com", Credential: "old", ExpiresAt: time.Now().Add(-time.Minute)},
	} {
		t.Run(name, func(t *testing.T) {
			client := New(srv.URL, &mutablePrincipal{p: p})
			_, err := client.Send(context.Background(), &sdk.Request{Path: "/bookings", RequiresAuth: true})
			assert.ErrorIs(t, err, ErrUnauthenticated)
		})
	}
	assert.Zero(t, rec.hits.Load())
}

func TestSend_AttachesCredentialOnce(t *testing.T) {
	rec := &capture{}
	srv := rec.server(t)
	client := New(srv.URL, &mutablePrincipal{p: &identity.Principal{Identifier: "a@x.com", Credential: "tok-1"}})

	resp, err := client.Send(context.Background(), &sdk.Request{Path: "/users/a@x.com/role", RequiresAuth: true})
	require.NoError(t, err)
	resp.Body.Close()

	require.Len(t, rec.auth(), 1)
	assert.Equal(t, []string{"Bearer tok-1"}, rec.auth()[0])
	assert.NotEmpty(t, rec.ids()[0])
}

func TestSend_ReadsCredentialAtSendTime(t *testing.T) {
	rec := &capture{}
	srv := rec.server(t)
	principals := &mutablePrincipal{p: &identity.Principal{Identifier: "a@x.com", Credential: "tok-1"}}
	client := New(srv.URL, principals)

	for _, token := range []string{"tok-1", "tok-2"} {
		principals.set(&identity.Principal{Identifier: "a@x.com", Credential: token})
		resp, err := client.Send(context.Background(), &sdk.Request{Path: "/bookings", RequiresAuth: true})
		require.NoError(t, err)
		resp.Body.Close()
	}

	require.Len(t, rec.auth(), 2)
	assert.Equal(t, []string{"Bearer tok-1"}, rec.auth()[0])
	assert.Equal(t, []string{"Bearer tok-2"}, rec.auth()[1])
	assert.NotEqual(t, rec.ids()[0], rec.ids()[1])
}

func TestSend_AnonymousRequestCarriesNoCredential(t *testing.T) {
	rec := &capture{}
	srv := rec.server(t)
	client := New(srv.URL, &mutablePrincipal{p: &identity.Principal{Identifier: "a@x.com", Credential: "tok-1"}})

	resp, err := client.Send(context.Background(), &sdk.Request{Path: "/courts"})
	require.NoError(t, err)
	resp.Body.Close()

	require.Len(t, rec.auth(), 1)
	assert.Empty(t, rec.auth()[0])
}

func TestSend_AsSDKTransport(t *testing.T) {
	rec := &capture{}
	srv := rec.server(t)
	principals := &mutablePrincipal{}
	backend := sdk.NewClient("", sdk.WithTransport(New(srv.URL, principals)))

	_, err := backend.GetRole(context.Background(), "a@x.com")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	principals.set(&identity.Principal{Identifier: "a@x.com", Credential: "tok"})
	role, err := backend.GetRole(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "member", role)
	assert.Equal(t, int32(1), rec.hits.Load())
}
