package guard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terraconstructs/courtbook/internal/identity"
	"github.com/terraconstructs/courtbook/internal/roles"
	"github.com/terraconstructs/courtbook/internal/session"
)

func signedIn(id string) session.State {
	return session.State{Status: session.SignedIn, Principal: &identity.Principal{Identifier: id, Credential: "t"}}
}

var signedOut = session.State{Status: session.SignedOut}

func TestEvaluate(t *testing.T) {
	ready := func(r roles.Role) roles.State { return roles.State{Phase: roles.Ready, Role: r} }
	failed := roles.State{Phase: roles.Failed, Err: errors.New("boom")}
	pending := roles.State{Phase: roles.Pending}

	toSignIn := Decision{Outcome: Deny, Redirect: &RedirectDecision{Target: ViewSignIn, ReturnTo: "/dashboard/x"}}
	toForbidden := Decision{Outcome: Deny, Redirect: &RedirectDecision{Target: ViewForbidden}}
	allow := Decision{Outcome: Allow}
	wait := Decision{Outcome: Await}

	tests := []struct {
		name string
		kind Kind
		sess session.State
		role roles.State
		want Decision
	}{
		{"auth unresolved", RequireAuth, session.State{}, roles.State{}, wait},
		{"admin unresolved with cached admin", RequireAdmin, session.State{}, ready(roles.Admin), wait},
		{"auth signed out", RequireAuth, signedOut, roles.State{}, toSignIn},
		{"admin signed out with cached admin", RequireAdmin, signedOut, ready(roles.Admin), toSignIn},
		{"member signed out with cached member", RequireMember, signedOut, ready(roles.Member), toSignIn},
		{"auth signed in", RequireAuth, signedIn("a@x.com"), roles.State{}, allow},
		{"auth signed in with failed role", RequireAuth, signedIn("a@x.com"), failed, allow},
		{"admin pending", RequireAdmin, signedIn("a@x.com"), pending, wait},
		{"admin no record", RequireAdmin, signedIn("a@x.com"), roles.State{}, wait},
		{"admin ready admin", RequireAdmin, signedIn("a@x.com"), ready(roles.Admin), allow},
		{"admin ready member", RequireAdmin, signedIn("a@x.com"), ready(roles.Member), toForbidden},
		{"admin failed", RequireAdmin, signedIn("a@x.com"), failed, toForbidden},
		{"member pending", RequireMember, signedIn("a@x.com"), pending, wait},
		{"member ready member", RequireMember, signedIn("a@x.com"), ready(roles.Member), allow},
		{"member ready user", RequireMember, signedIn("a@x.com"), ready(roles.User), toForbidden},
		{"member ready admin", RequireMember, signedIn("a@x.com"), ready(roles.Admin), toForbidden},
		{"member failed", RequireMember, signedIn("a@x.com"), failed, toForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.kind, tt.sess, tt.role, "/dashboard/x")
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

type fakeSessions struct {
	mu       sync.Mutex
	state    session.State
	handlers map[int]func(session.State)
	nextID   int
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{handlers: make(map[int]func(session.State))}
}

func (f *fakeSessions) Subscribe(handler func(session.State)) func() {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.handlers[id] = handler
	st := f.state
	f.mu.Unlock()
	handler(st)
	return func() {
		f.mu.Lock()
		delete(f.handlers, id)
		f.mu.Unlock()
	}
}

func (f *fakeSessions) set(st session.State) {
	f.mu.Lock()
	f.state = st
	handlers := make([]func(session.State), 0, len(f.handlers))
	for _, h := range f.handlers {
		handlers = append(handlers, h)
	}
	f.mu.Unlock()
	for _, h := range handlers {
		h(st)
	}
}

type gatedFetcher struct {
	calls atomic.Int32
	gate  chan struct{}
	role  roles.Role
	err   error
}

func (f *gatedFetcher) FetchRole(ctx context.Context, _ string) (roles.Role, error) {
	f.calls.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return roles.User, ctx.Err()
		}
	}
	return f.role, f.err
}

type decisions struct {
	mu   sync.Mutex
	list []Decision
}

func (d *decisions) emit(dec Decision) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.list = append(d.list, dec)
}

func (d *decisions) outcomes() []Outcome {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Outcome, len(d.list))
	for i, dec := range d.list {
		out[i] = dec.Outcome
	}
	return out
}

func (d *decisions) last() Decision {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.list[len(d.list)-1]
}

func TestWatch_MemberPendingThenAllow(t *testing.T) {
	sessions := newFakeSessions()
	fetcher := &gatedFetcher{gate: make(chan struct{}), role: roles.Member}
	resolver := roles.NewResolver(fetcher, roles.Options{})
	defer resolver.Close()

	got := &decisions{}
	stop := Watch(sessions, resolver, Target{Kind: RequireMember, Requested: "/dashboard/member"}, got.emit)
	defer stop()

	sessions.set(signedIn("a@x.com"))
	assert.Equal(t, []Outcome{Await}, got.outcomes())
	assert.Equal(t, roles.Pending, resolver.Peek("a@x.com").Phase)

	close(fetcher.gate)
	require.Eventually(t, func() bool { return len(got.outcomes()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []Outcome{Await, Allow}, got.outcomes(), "never an intermediate forbidden")
	assert.Equal(t, int32(1), fetcher.calls.Load())
}

func TestWatch_SignOutDuringFetchDeniesAndStays(t *testing.T) {
	sessions := newFakeSessions()
	fetcher := &gatedFetcher{gate: make(chan struct{}), role: roles.Admin}
	resolver := roles.NewResolver(fetcher, roles.Options{})
	defer resolver.Close()

	got := &decisions{}
	stop := Watch(sessions, resolver, Target{Kind: RequireAdmin, Requested: "/dashboard/admin"}, got.emit)
	defer stop()

	sessions.set(signedIn("a@x.com"))
	sessions.set(signedOut)
	require.Equal(t, []Outcome{Await, Deny}, got.outcomes())
	assert.Equal(t, ViewSignIn, got.last().Redirect.Target)
	assert.Equal(t, "/dashboard/admin", got.last().Redirect.ReturnTo)

	close(fetcher.gate)
	assert.Never(t, func() bool { return got.last().Outcome != Deny }, 100*time.Millisecond, 5*time.Millisecond)
	assert.Len(t, got.outcomes(), 2)
}

func TestWatch_FailedRoleFetch(t *testing.T) {
	fetcher := &gatedFetcher{err: errors.New("backend returned 500")}
	resolver := roles.NewResolver(fetcher, roles.Options{})
	defer resolver.Close()
	sessions := newFakeSessions()
	sessions.set(signedIn("b@x.com"))

	for _, tc := range []struct {
		kind Kind
		want Outcome
	}{
		{RequireAdmin, Deny},
		{RequireMember, Deny},
		{RequireAuth, Allow},
	} {
		d, err := WaitSettled(context.Background(), sessions, resolver, Target{Kind: tc.kind, Requested: "/x"})
		require.NoError(t, err)
		assert.Equal(t, tc.want, d.Outcome, tc.kind.String())
		if tc.want == Deny {
			assert.Equal(t, ViewForbidden, d.Redirect.Target)
		}
	}
	assert.Equal(t, roles.Failed, resolver.Peek("b@x.com").Phase)
}

func TestWatch_FailureIsNotRetried(t *testing.T) {
	fetcher := &gatedFetcher{err: errors.New("boom")}
	resolver := roles.NewResolver(fetcher, roles.Options{})
	defer resolver.Close()
	sessions := newFakeSessions()

	got := &decisions{}
	stop := Watch(sessions, resolver, Target{Kind: RequireAdmin}, got.emit)
	defer stop()
	sessions.set(signedIn("b@x.com"))

	require.Eventually(t, func() bool { return got.last().Outcome == Deny }, time.Second, 5*time.Millisecond)
	assert.Never(t, func() bool { return fetcher.calls.Load() > 1 }, 100*time.Millisecond, 5*time.Millisecond)
}

func TestWatch_RefetchAfterInvalidation(t *testing.T) {
	fetcher := &gatedFetcher{role: roles.Member}
	resolver := roles.NewResolver(fetcher, roles.Options{})
	defer resolver.Close()
	sessions := newFakeSessions()

	got := &decisions{}
	stop := Watch(sessions, resolver, Target{Kind: RequireAdmin}, got.emit)
	defer stop()
	sessions.set(signedIn("a@x.com"))
	require.Eventually(t, func() bool { return got.last().Outcome == Deny }, time.Second, 5*time.Millisecond)

	// Promoted to admin; the role mutation invalidates the cached record.
	fetcher.role = roles.Admin
	resolver.Invalidate("a@x.com")

	require.Eventually(t, func() bool { return got.last().Outcome == Allow }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(2), fetcher.calls.Load())
	assert.Equal(t, []Outcome{Await, Deny, Await, Allow}, got.outcomes())
}

func TestWatch_SharedFetchAcrossGuards(t *testing.T) {
	fetcher := &gatedFetcher{gate: make(chan struct{}), role: roles.Admin}
	resolver := roles.NewResolver(fetcher, roles.Options{})
	defer resolver.Close()
	sessions := newFakeSessions()

	admin, member := &decisions{}, &decisions{}
	stopAdmin := Watch(sessions, resolver, Target{Kind: RequireAdmin}, admin.emit)
	defer stopAdmin()
	stopMember := Watch(sessions, resolver, Target{Kind: RequireMember}, member.emit)
	defer stopMember()

	sessions.set(signedIn("a@x.com"))
	close(fetcher.gate)

	require.Eventually(t, func() bool {
		return len(admin.outcomes()) == 2 && len(member.outcomes()) == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, Allow, admin.last().Outcome)
	assert.Equal(t, Deny, member.last().Outcome)
	assert.Equal(t, int32(1), fetcher.calls.Load())
}

func TestWatch_NoDecisionAfterStop(t *testing.T) {
	fetcher := &gatedFetcher{gate: make(chan struct{}), role: roles.Admin}
	resolver := roles.NewResolver(fetcher, roles.Options{})
	defer resolver.Close()
	sessions := newFakeSessions()

	got := &decisions{}
	stop := Watch(sessions, resolver, Target{Kind: RequireAdmin}, got.emit)
	sessions.set(signedIn("a@x.com"))
	stop()
	stop()

	close(fetcher.gate)
	sessions.set(signedOut)
	assert.Never(t, func() bool { return len(got.outcomes()) > 1 }, 100*time.Millisecond, 5*time.Millisecond)
	assert.Equal(t, []Outcome{Await}, got.outcomes())
}

func TestCheck_PlaceholderWhileUnsettled(t *testing.T) {
	fetcher := &gatedFetcher{gate: make(chan struct{}), role: roles.Admin}
	resolver := roles.NewResolver(fetcher, roles.Options{})
	defer resolver.Close()
	sessions := newFakeSessions()

	d := Check(context.Background(), sessions, resolver, Target{Kind: RequireAuth}, 20*time.Millisecond)
	assert.Equal(t, Await, d.Outcome, "unresolved session")

	sessions.set(signedIn("a@x.com"))
	d = Check(context.Background(), sessions, resolver, Target{Kind: RequireAdmin}, 20*time.Millisecond)
	assert.Equal(t, Await, d.Outcome, "pending role")

	close(fetcher.gate)
	d = Check(context.Background(), sessions, resolver, Target{Kind: RequireAdmin}, time.Second)
	assert.Equal(t, Allow, d.Outcome)
}

func TestWaitSettled_ContextCancelled(t *testing.T) {
	resolver := roles.NewResolver(&gatedFetcher{}, roles.Options{})
	defer resolver.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	d, err := WaitSettled(ctx, newFakeSessions(), resolver, Target{Kind: RequireAuth})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, Await, d.Outcome)
}

type stubProvider struct {
	mu       sync.Mutex
	handlers map[int]func(*identity.Principal)
	nextID   int
}

func (p *stubProvider) report(principal *identity.Principal) {
	p.mu.Lock()
	handlers := make([]func(*identity.Principal), 0, len(p.handlers))
	for _, h := range p.handlers {
		handlers = append(handlers, h)
	}
	p.mu.Unlock()
	for _, h := range handlers {
		h(principal)
	}
}

func (p *stubProvider) SignInWithPassword(_ context.Context, identifier, _ string) (*identity.Principal, error) {
	principal := &identity.Principal{Identifier: identifier, Credential: "token-" + identifier}
	p.report(principal)
	return principal, nil
}

func (p *stubProvider) SignInFederated(context.Context) (*identity.Principal, error) {
	return nil, errors.New("not supported")
}

func (p *stubProvider) SignOut(context.Context) error {
	p.report(nil)
	return nil
}

func (p *stubProvider) OnStateChange(handler func(*identity.Principal)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.handlers == nil {
		p.handlers = make(map[int]func(*identity.Principal))
	}
	id := p.nextID
	p.nextID++
	p.handlers[id] = handler
	return func() {
		p.mu.Lock()
		delete(p.handlers, id)
		p.mu.Unlock()
	}
}

func TestWatch_SignOutWithLiveStoreDeniesWithoutRefetch(t *testing.T) {
	fetcher := &gatedFetcher{role: roles.Admin}
	resolver := roles.NewResolver(fetcher, roles.Options{})
	defer resolver.Close()

	provider := &stubProvider{}
	store := session.New(provider, session.Options{Roles: resolver})
	store.Start()
	defer store.Close()
	provider.report(nil)

	got := &decisions{}
	stop := Watch(store, resolver, Target{Kind: RequireAdmin, Requested: "/dashboard/admin"}, got.emit)
	defer stop()

	_, err := store.SignIn(context.Background(), "a@x.com", "pw")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return got.last().Outcome == Allow }, time.Second, 5*time.Millisecond)
	require.Equal(t, []Outcome{Deny, Await, Allow}, got.outcomes())

	require.NoError(t, store.SignOut(context.Background()))
	assert.Equal(t, []Outcome{Deny, Await, Allow, Deny}, got.outcomes(), "denied at once, no placeholder")
	assert.Equal(t, ViewSignIn, got.last().Redirect.Target)

	assert.Never(t, func() bool { return len(got.outcomes()) != 4 }, 100*time.Millisecond, 5*time.Millisecond)
	assert.Equal(t, int32(1), fetcher.calls.Load())
	_, cached := resolver.Record("a@x.com")
	assert.False(t, cached, "no role record survives for a signed-out principal")
}
