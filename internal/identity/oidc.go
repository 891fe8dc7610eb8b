package identity

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/zitadel/oidc/v3/pkg/client/rp"

	"github.com/terraconstructs/courtbook/pkg/sdk"
)

// OIDCConfig configures an OIDCProvider.
type OIDCConfig struct {
	Issuer       string
	ClientID     string
	ClientSecret string

	// RefreshLeeway is how long before expiry the access token is refreshed.
	RefreshLeeway time.Duration

	// DevicePrompt shows the device-flow user code. Required for SignInFederated.
	DevicePrompt sdk.DeviceCodePrompt
}

// OIDCProvider implements Provider against an OpenID Connect issuer. Credentials
// are persisted in a CredentialStore so a session survives process restarts.
type OIDCProvider struct {
	cfg   OIDCConfig
	store sdk.CredentialStore

	// rpMu guards relyingParty, which is set only by a successful discovery.
	rpMu         sync.Mutex
	relyingParty rp.RelyingParty

	// deliverMu serialises notifications so handlers see changes one at a time.
	deliverMu sync.Mutex

	mu       sync.Mutex
	resolved bool
	creds    *sdk.Credentials
	handlers map[int]func(*Principal)
	nextID   int
	timer    *time.Timer
	closed   bool
}

var _ Provider = (*OIDCProvider)(nil)

// minRefreshInterval bounds how often the refresh timer fires when the issuer
// grants very short-lived or already expired tokens.
const minRefreshInterval = 5 * time.Second

// NewOIDCProvider creates a provider. Call Restore to load persisted credentials;
// until then the provider has not reported any state.
func NewOIDCProvider(cfg OIDCConfig, store sdk.CredentialStore) *OIDCProvider {
	if cfg.RefreshLeeway <= 0 {
		cfg.RefreshLeeway = time.Minute
	}
	return &OIDCProvider{
		cfg:      cfg,
		store:    store,
		handlers: make(map[int]func(*Principal)),
	}
}

// Restore loads persisted credentials, refreshing them when they have expired,
// and reports the resulting state to every registered handler.
func (p *OIDCProvider) Restore(ctx context.Context) {
	creds, err := p.store.LoadCredentials()
	if err != nil && !errors.Is(err, ErrNotLoggedIn) {
		log.Printf("identity: ignoring unreadable credentials: %v", err)
	}

	if creds != nil && creds.IsExpired() {
		refreshed, err := p.refresh(ctx, creds)
		if err != nil {
			log.Printf("identity: stored session expired and could not be refreshed: %v", err)
			_ = p.store.DeleteCredentials()
			creds = nil
		} else {
			creds = refreshed
		}
	}
	if creds != nil && creds.Identifier() == "" {
		log.Printf("identity: stored credentials carry no identifier; treating as signed out")
		creds = nil
	}

	p.setCredentials(creds)
}

// OnStateChange implements Provider.
func (p *OIDCProvider) OnStateChange(handler func(*Principal)) func() {
	p.deliverMu.Lock()
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.handlers[id] = handler
	resolved := p.resolved
	current := PrincipalFromCredentials(p.creds)
	p.mu.Unlock()
	if resolved {
		handler(current)
	}
	p.deliverMu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.handlers, id)
		p.mu.Unlock()
	}
}

// SignInWithPassword implements Provider.
func (p *OIDCProvider) SignInWithPassword(ctx context.Context, identifier, secret string) (*Principal, error) {
	relyingParty, err := p.discover(ctx)
	if err != nil {
		return nil, Classify(err)
	}
	creds, err := sdk.LoginWithPassword(ctx, relyingParty, identifier, secret)
	if err != nil {
		return nil, Classify(err)
	}
	return p.completeSignIn(creds)
}

// SignInFederated implements Provider using the device authorization flow.
func (p *OIDCProvider) SignInFederated(ctx context.Context) (*Principal, error) {
	relyingParty, err := p.discover(ctx)
	if err != nil {
		return nil, Classify(err)
	}
	creds, err := sdk.LoginWithDeviceCode(ctx, relyingParty, p.cfg.DevicePrompt)
	if err != nil {
		return nil, Classify(err)
	}
	return p.completeSignIn(creds)
}

// SignOut implements Provider. Persisted credentials are removed.
func (p *OIDCProvider) SignOut(ctx context.Context) error {
	if err := p.store.DeleteCredentials(); err != nil {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}
	p.setCredentials(nil)
	return nil
}

// Close stops background refresh. Handlers are not notified.
func (p *OIDCProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

func (p *OIDCProvider) completeSignIn(creds *sdk.Credentials) (*Principal, error) {
	if creds.Identifier() == "" {
		return nil, &AuthFailure{Kind: FailureProvider, Err: errors.New("provider released no subject or email claim")}
	}
	if err := p.store.SaveCredentials(creds); err != nil {
		log.Printf("identity: failed to persist credentials: %v", err)
	}
	p.setCredentials(creds)
	return PrincipalFromCredentials(creds), nil
}

// setCredentials records the new state, reschedules refresh and notifies handlers.
func (p *OIDCProvider) setCredentials(creds *sdk.Credentials) {
	p.deliverMu.Lock()
	defer p.deliverMu.Unlock()

	p.mu.Lock()
	p.resolved = true
	p.creds = creds
	p.scheduleRefreshLocked()
	handlers := make([]func(*Principal), 0, len(p.handlers))
	for _, h := range p.handlers {
		handlers = append(handlers, h)
	}
	p.mu.Unlock()

	principal := PrincipalFromCredentials(creds)
	for _, h := range handlers {
		h(principal)
	}
}

func (p *OIDCProvider) scheduleRefreshLocked() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	if p.closed || p.creds == nil || p.creds.ExpiresAt.IsZero() {
		return
	}
	current := p.creds
	wait := refreshDelay(time.Until(current.ExpiresAt), p.cfg.RefreshLeeway)
	p.timer = time.AfterFunc(wait, func() { p.onRefreshDue(current) })
}

// refreshDelay is how long to wait before refreshing a token that expires in
// lifetime. Tokens shorter-lived than the leeway are refreshed at half their
// lifetime, and never sooner than minRefreshInterval.
func refreshDelay(lifetime, leeway time.Duration) time.Duration {
	wait := lifetime - leeway
	if half := lifetime / 2; wait < half {
		wait = half
	}
	if wait < minRefreshInterval {
		wait = minRefreshInterval
	}
	return wait
}

// onRefreshDue refreshes the credentials that were current when the timer was
// armed. A failed refresh ends the session: the provider reports signed out.
func (p *OIDCProvider) onRefreshDue(due *sdk.Credentials) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	refreshed, err := p.refresh(ctx, due)

	p.mu.Lock()
	stale := p.closed || p.creds != due
	p.mu.Unlock()
	if stale {
		return
	}

	if err != nil {
		log.Printf("identity: session for %s expired: %v", due.Identifier(), err)
		_ = p.store.DeleteCredentials()
		p.setCredentials(nil)
		return
	}
	if err := p.store.SaveCredentials(refreshed); err != nil {
		log.Printf("identity: failed to persist refreshed credentials: %v", err)
	}
	p.setCredentials(refreshed)
}

func (p *OIDCProvider) refresh(ctx context.Context, creds *sdk.Credentials) (*sdk.Credentials, error) {
	if creds.RefreshToken == "" {
		return nil, errors.New("no refresh token")
	}
	relyingParty, err := p.discover(ctx)
	if err != nil {
		return nil, err
	}
	return sdk.RefreshToken(ctx, relyingParty, creds)
}

// discover performs discovery and keeps the first successful result. A failed
// attempt is retried by the next caller.
func (p *OIDCProvider) discover(ctx context.Context) (rp.RelyingParty, error) {
	if p.cfg.Issuer == "" || p.cfg.ClientID == "" {
		return nil, errors.New("OIDC issuer and client ID must be configured")
	}

	p.rpMu.Lock()
	defer p.rpMu.Unlock()
	if p.relyingParty != nil {
		return p.relyingParty, nil
	}
	discoverCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()
	relyingParty, err := sdk.NewRelyingParty(discoverCtx, p.cfg.Issuer, p.cfg.ClientID, p.cfg.ClientSecret)
	if err != nil {
		return nil, err
	}
	p.relyingParty = relyingParty
	return relyingParty, nil
}
