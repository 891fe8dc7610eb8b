// Package app assembles the session core and its collaborators for one process.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/pterm/pterm"
	"github.com/zitadel/oidc/v3/pkg/oidc"

	"github.com/terraconstructs/courtbook/internal/authclient"
	"github.com/terraconstructs/courtbook/internal/config"
	"github.com/terraconstructs/courtbook/internal/identity"
	"github.com/terraconstructs/courtbook/internal/roles"
	"github.com/terraconstructs/courtbook/internal/session"
	"github.com/terraconstructs/courtbook/internal/telemetry"
	"github.com/terraconstructs/courtbook/pkg/sdk"
)

// App holds the process-wide session, role resolver and backend client.
type App struct {
	Config      *config.Config
	Credentials *identity.FileStore
	Identity    *identity.OIDCProvider
	Session     *session.Store
	Roles       *roles.Resolver
	Backend     *sdk.Client
	Transport   *authclient.Client

	GuardMetrics *telemetry.GuardMetrics

	shutdownTelemetry func(context.Context) error
}

// Option customizes New.
type Option func(*options)

type options struct {
	devicePrompt sdk.DeviceCodePrompt
	authOptions  []authclient.Option
}

// WithDevicePrompt sets how the device-flow user code is shown.
func WithDevicePrompt(prompt sdk.DeviceCodePrompt) Option {
	return func(o *options) { o.devicePrompt = prompt }
}

// WithAuthClientOptions passes options to the authenticated request client.
func WithAuthClientOptions(opts ...authclient.Option) Option {
	return func(o *options) { o.authOptions = append(o.authOptions, opts...) }
}

// New wires the application. Nothing is reported to the session until Start.
func New(ctx context.Context, cfg *config.Config, optFns ...Option) (*App, error) {
	o := options{devicePrompt: defaultDevicePrompt}
	for _, fn := range optFns {
		fn(&o)
	}

	shutdown, err := telemetry.Init(ctx, cfg.Observability)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	credentials, err := identity.NewFileStore(cfg.StateDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create credential store: %w", err)
	}
	provider := identity.NewOIDCProvider(identity.OIDCConfig{
		Issuer:        cfg.OIDC.Issuer,
		ClientID:      cfg.OIDC.ClientID,
		ClientSecret:  cfg.OIDC.ClientSecret,
		RefreshLeeway: cfg.OIDC.RefreshLeeway,
		DevicePrompt:  o.devicePrompt,
	}, credentials)

	a := &App{
		Config:            cfg,
		Credentials:       credentials,
		Identity:          provider,
		shutdownTelemetry: shutdown,
	}

	// The transport reads the principal from the session at send time; the
	// session is assigned below.
	a.Transport = authclient.New(cfg.APIURL, authclient.PrincipalFunc(func() *identity.Principal {
		return a.Session.CurrentPrincipal()
	}), o.authOptions...)
	a.Backend = sdk.NewClient(cfg.APIURL, sdk.WithTransport(a.Transport))

	roleMetrics, err := telemetry.NewRoleMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to create role metrics: %w", err)
	}
	authMetrics, err := telemetry.NewAuthMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to create auth metrics: %w", err)
	}
	a.GuardMetrics, err = telemetry.NewGuardMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to create guard metrics: %w", err)
	}

	a.Roles = roles.NewResolver(roles.BackendFetcher{Source: a.Backend}, roles.Options{
		Size:         cfg.Roles.CacheSize,
		TTL:          cfg.Roles.TTL,
		FetchTimeout: cfg.Roles.FetchTimeout,
		Metrics:      roleMetrics,
	})
	a.Backend.OnRoleChanged(a.Roles.Invalidate)

	a.Session = session.New(provider, session.Options{
		Roles:     a.Roles,
		Registrar: a.Backend,
		Metrics:   authMetrics,
	})
	return a, nil
}

// Start attaches the session to the identity provider and restores any
// persisted sign-in. The session leaves Unresolved before Start returns.
func (a *App) Start(ctx context.Context) {
	a.Session.Start()
	a.Identity.Restore(ctx)
}

// Close releases background work in reverse order of construction.
func (a *App) Close(ctx context.Context) error {
	a.Session.Close()
	a.Identity.Close()
	a.Roles.Close()
	var errs []error
	if a.shutdownTelemetry != nil {
		if err := a.shutdownTelemetry(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func defaultDevicePrompt(resp *oidc.DeviceAuthorizationResponse) {
	target := resp.VerificationURIComplete
	if target == "" {
		target = resp.VerificationURI
	}
	pterm.Info.Printf("Open %s and enter code %s\n", target, pterm.Bold.Sprint(resp.UserCode))
	log.Printf("app: waiting for device authorization (expires in %ds)", resp.ExpiresIn)
}
