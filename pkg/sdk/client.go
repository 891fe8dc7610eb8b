package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// Request describes one backend call. RequiresAuth marks calls that must carry
// the signed-in principal's bearer credential.
type Request struct {
	Method       string
	Path         string
	Query        url.Values
	Body         any
	RequiresAuth bool
}

// Transport sends backend requests. The authenticated request client used by
// courtctl implements it; HTTPTransport is a plain implementation.
type Transport interface {
	Send(ctx context.Context, req *Request) (*http.Response, error)
}

// HTTPTransport sends requests with an http.Client and attaches nothing.
// RequiresAuth is ignored; the wrapped client is expected to authenticate.
type HTTPTransport struct {
	BaseURL    string
	HTTPClient *http.Client
}

// Send implements Transport.
func (t *HTTPTransport) Send(ctx context.Context, req *Request) (*http.Response, error) {
	httpReq, err := NewHTTPRequest(ctx, t.BaseURL, req)
	if err != nil {
		return nil, err
	}
	client := t.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	return client.Do(httpReq)
}

// NewHTTPRequest builds the http.Request for req against baseURL, encoding Body as JSON.
func NewHTTPRequest(ctx context.Context, baseURL string, req *Request) (*http.Request, error) {
	target, err := url.JoinPath(baseURL, req.Path)
	if err != nil {
		return nil, fmt.Errorf("invalid request path %q: %w", req.Path, err)
	}
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	return httpReq, nil
}

// Client provides a high-level interface to the court-booking backend.
type Client struct {
	transport Transport

	mu            sync.RWMutex
	roleListeners []func(identifier string)
}

// ClientOptions configures SDK client construction.
type ClientOptions struct {
	HTTPClient *http.Client
	Transport  Transport
}

// ClientOption mutates ClientOptions.
type ClientOption func(*ClientOptions)

// WithHTTPClient overrides the HTTP client used by the default transport.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(opts *ClientOptions) {
		opts.HTTPClient = client
	}
}

// WithTransport replaces the transport entirely. baseURL is then unused.
func WithTransport(transport Transport) ClientOption {
	return func(opts *ClientOptions) {
		opts.Transport = transport
	}
}

// NewClient creates a backend client for the API at baseURL.
func NewClient(baseURL string, optFns ...ClientOption) *Client {
	opts := ClientOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	transport := opts.Transport
	if transport == nil {
		transport = &HTTPTransport{BaseURL: baseURL, HTTPClient: opts.HTTPClient}
	}
	return &Client{transport: transport}
}

// OnRoleChanged registers fn to be called with the identifier of every principal
// whose role was changed through this client. Role caches subscribe here.
func (c *Client) OnRoleChanged(fn func(identifier string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roleListeners = append(c.roleListeners, fn)
}

func (c *Client) emitRoleChanged(identifier string) {
	c.mu.RLock()
	listeners := append([]func(string){}, c.roleListeners...)
	c.mu.RUnlock()
	for _, fn := range listeners {
		fn(identifier)
	}
}

// do sends req and decodes a successful JSON response into out (when non-nil).
func (c *Client) do(ctx context.Context, req *Request, out any) error {
	resp, err := c.transport.Send(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(req, resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s %s response: %w", req.Method, req.Path, err)
	}
	return nil
}

func escape(segment string) string {
	return url.PathEscape(strings.TrimSpace(segment))
}
