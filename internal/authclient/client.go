// Package authclient sends backend requests on behalf of the session, attaching
// the signed-in principal's bearer credential to requests that need it.
package authclient

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"golang.org/x/oauth2"

	"github.com/terraconstructs/courtbook/internal/identity"
	"github.com/terraconstructs/courtbook/internal/telemetry"
	"github.com/terraconstructs/courtbook/pkg/sdk"
)

// ErrUnauthenticated is returned, without sending anything, when a request
// requires authentication and the session holds no usable credential.
var ErrUnauthenticated = errors.New("unauthenticated: sign in required")

// RequestIDHeader carries a per-request identifier for backend log correlation.
const RequestIDHeader = "X-Request-Id"

// PrincipalSource yields the current principal. *session.Store satisfies it.
type PrincipalSource interface {
	CurrentPrincipal() *identity.Principal
}

// PrincipalFunc adapts a function to PrincipalSource.
type PrincipalFunc func() *identity.Principal

// CurrentPrincipal implements PrincipalSource.
func (f PrincipalFunc) CurrentPrincipal() *identity.Principal { return f() }

// Options configures a Client.
type Options struct {
	// HTTPClient supplies the base transport and timeout. Defaults to a client
	// with a 30 second timeout over http.DefaultTransport.
	HTTPClient *http.Client
}

// Option mutates Options.
type Option func(*Options)

// WithHTTPClient overrides the base HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *Options) { o.HTTPClient = client }
}

// Client implements sdk.Transport.
type Client struct {
	baseURL    string
	principals PrincipalSource
	anonymous  *http.Client
	authorized *http.Client
}

var _ sdk.Transport = (*Client)(nil)

// New creates a Client for the backend at baseURL.
func New(baseURL string, principals PrincipalSource, optFns ...Option) *Client {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	base := opts.HTTPClient
	if base == nil {
		base = &http.Client{Timeout: 30 * time.Second}
	}
	baseTransport := base.Transport
	if baseTransport == nil {
		baseTransport = http.DefaultTransport
	}

	return &Client{
		baseURL:    baseURL,
		principals: principals,
		anonymous: &http.Client{
			Transport:     baseTransport,
			Timeout:       base.Timeout,
			CheckRedirect: base.CheckRedirect,
		},
		authorized: &http.Client{
			Transport: &oauth2.Transport{
				Source: sessionTokenSource{principals: principals},
				Base:   baseTransport,
			},
			Timeout:       base.Timeout,
			CheckRedirect: base.CheckRedirect,
		},
	}
}

// Send implements sdk.Transport. Requests that require authentication fail
// with ErrUnauthenticated before any I/O when no credential is available;
// otherwise the credential is read at send time and set once as the
// Authorization header.
func (c *Client) Send(ctx context.Context, req *sdk.Request) (*http.Response, error) {
	requestID := uuid.NewString()
	ctx, span := telemetry.StartSpan(ctx, telemetry.TracerAuthClient, "backend.request",
		attribute.String("http.method", req.Method),
		attribute.String("http.route", req.Path),
		attribute.String(telemetry.AttrRequestID, requestID),
		attribute.Bool(telemetry.AttrRequiresAuth, req.RequiresAuth),
	)
	defer span.End()

	client := c.anonymous
	if req.RequiresAuth {
		if !c.principals.CurrentPrincipal().HasCredential() {
			telemetry.RecordError(span, ErrUnauthenticated)
			return nil, ErrUnauthenticated
		}
		client = c.authorized
	}

	httpReq, err := sdk.NewHTTPRequest(ctx, c.baseURL, req)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	httpReq.Header.Set(RequestIDHeader, requestID)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	resp, err := client.Do(httpReq)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	return resp, nil
}

// sessionTokenSource reads the credential from the session on every call, so a
// refreshed credential is used by the next request.
type sessionTokenSource struct {
	principals PrincipalSource
}

func (s sessionTokenSource) Token() (*oauth2.Token, error) {
	p := s.principals.CurrentPrincipal()
	if !p.HasCredential() {
		return nil, ErrUnauthenticated
	}
	return &oauth2.Token{
		AccessToken: p.Credential,
		TokenType:   "Bearer",
		Expiry:      p.ExpiresAt,
	}, nil
}
