// pkg/sdk/auth.go
package sdk

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/zitadel/oidc/v3/pkg/client/rp"
	"github.com/zitadel/oidc/v3/pkg/client/rp/cli"
	"github.com/zitadel/oidc/v3/pkg/oidc"
	"golang.org/x/oauth2"
)

// DefaultScopes are requested for every interactive login.
var DefaultScopes = []string{oidc.ScopeOpenID, oidc.ScopeProfile, oidc.ScopeEmail, oidc.ScopeOfflineAccess}

// DeviceCodePrompt is invoked with the device authorization response so the caller
// can show the user code and verification URL.
type DeviceCodePrompt func(resp *oidc.DeviceAuthorizationResponse)

// NewRelyingParty performs OIDC discovery against issuer and returns a relying party
// usable by all login flows in this package.
func NewRelyingParty(ctx context.Context, issuer, clientID, clientSecret string) (rp.RelyingParty, error) {
	relyingParty, err := rp.NewRelyingPartyOIDC(
		ctx,
		issuer,
		clientID,
		clientSecret,
		"", // redirectURI - not used for device or password flows
		DefaultScopes,
		rp.WithHTTPClient(defaultHTTPClient()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider at %s: %w", issuer, err)
	}
	return relyingParty, nil
}

// LoginWithDeviceCode runs the OIDC Device Authorization Flow (RFC 8628).
// The user approves the login in a browser; this call polls until the provider
// issues tokens, the user denies, or ctx ends.
func LoginWithDeviceCode(ctx context.Context, relyingParty rp.RelyingParty, prompt DeviceCodePrompt) (*Credentials, error) {
	authResponse, err := rp.DeviceAuthorization(ctx, DefaultScopes, relyingParty, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start device authorization flow: %w", err)
	}

	if prompt != nil {
		prompt(authResponse)
	}

	// OpenBrowser is best effort and reports nothing back.
	if authResponse.VerificationURIComplete != "" {
		cli.OpenBrowser(authResponse.VerificationURIComplete)
	}

	interval := time.Duration(authResponse.Interval) * time.Second
	if interval == 0 {
		interval = 5 * time.Second
	}

	token, err := rp.DeviceAccessToken(ctx, authResponse.DeviceCode, interval, relyingParty)
	if err != nil {
		return nil, fmt.Errorf("device authorization failed: %w", err)
	}

	creds := &Credentials{
		AccessToken:  token.AccessToken,
		TokenType:    token.TokenType,
		RefreshToken: token.RefreshToken,
		IDToken:      token.IDToken,
	}
	if token.ExpiresIn > 0 {
		creds.ExpiresAt = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	}
	fillIdentity(ctx, relyingParty, creds)
	return creds, nil
}

// LoginWithPassword exchanges a username and password for tokens using the
// resource owner password credentials grant.
func LoginWithPassword(ctx context.Context, relyingParty rp.RelyingParty, username, password string) (*Credentials, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, relyingParty.HttpClient())
	token, err := relyingParty.OAuthConfig().PasswordCredentialsToken(ctx, username, password)
	if err != nil {
		return nil, fmt.Errorf("password login failed: %w", err)
	}

	creds := credentialsFromToken(token)
	fillIdentity(ctx, relyingParty, creds)
	if creds.Email == "" && creds.Subject == "" {
		// Providers that release no identity claims still authenticated this username.
		creds.Email = username
	}
	return creds, nil
}

// RefreshToken exchanges a refresh token for a fresh access token. Identity fields
// are carried over from previous, since refresh responses may omit the ID token.
func RefreshToken(ctx context.Context, relyingParty rp.RelyingParty, previous *Credentials) (*Credentials, error) {
	if previous == nil || previous.RefreshToken == "" {
		return nil, fmt.Errorf("no refresh token available")
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, relyingParty.HttpClient())
	tokenSource := relyingParty.OAuthConfig().TokenSource(ctx, &oauth2.Token{
		RefreshToken: previous.RefreshToken,
	})

	newToken, err := tokenSource.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}

	creds := credentialsFromToken(newToken)
	if creds.RefreshToken == "" {
		creds.RefreshToken = previous.RefreshToken
	}
	fillIdentity(ctx, relyingParty, creds)
	if creds.Identifier() == "" {
		creds.Subject = previous.Subject
		creds.Email = previous.Email
		creds.DisplayName = previous.DisplayName
		creds.EmailVerified = previous.EmailVerified
	}
	return creds, nil
}

func credentialsFromToken(token *oauth2.Token) *Credentials {
	creds := &Credentials{
		AccessToken:  token.AccessToken,
		TokenType:    token.TokenType,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
	}
	if idToken, ok := token.Extra("id_token").(string); ok {
		creds.IDToken = idToken
	}
	return creds
}

// fillIdentity copies identity claims into creds. A verified ID token wins;
// otherwise the access token's own claims are used.
func fillIdentity(ctx context.Context, relyingParty rp.RelyingParty, creds *Credentials) {
	if creds.IDToken != "" {
		claims, err := rp.VerifyIDToken[*oidc.IDTokenClaims](ctx, creds.IDToken, relyingParty.IDTokenVerifier())
		if err == nil {
			creds.Subject = claims.Subject
			creds.Email = claims.Email
			creds.DisplayName = claims.Name
			creds.EmailVerified = bool(claims.EmailVerified)
			return
		}
		log.Printf("Warning: failed to verify ID token: %v", err)
	}

	claims, err := ParseAccessTokenClaims(creds.AccessToken)
	if err != nil {
		return
	}
	creds.Subject = claims.Subject
	creds.Email = claims.Email
	creds.DisplayName = claims.Name
	creds.EmailVerified = claims.EmailVerified
}

// defaultHTTPClient returns an HTTP client with reasonable timeout for OIDC operations.
func defaultHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 10 * time.Second,
	}
}
