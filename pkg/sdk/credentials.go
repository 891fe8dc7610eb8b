package sdk

import "time"

// Credentials represents the authentication credentials issued by the identity provider.
type Credentials struct {
	AccessToken   string    `json:"access_token"`
	TokenType     string    `json:"token_type"`
	ExpiresAt     time.Time `json:"expires_at"`
	RefreshToken  string    `json:"refresh_token,omitempty"`
	IDToken       string    `json:"id_token,omitempty"`
	Subject       string    `json:"subject,omitempty"`
	Email         string    `json:"email,omitempty"`
	DisplayName   string    `json:"display_name,omitempty"`
	EmailVerified bool      `json:"email_verified,omitempty"`
}

// IsExpired reports whether the access token is past its expiry.
// Credentials without an expiry never expire.
func (c *Credentials) IsExpired() bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(c.ExpiresAt)
}

// Identifier returns the stable identifier used by the backend for this principal.
// The email claim is preferred; the subject is used when no email was released.
func (c *Credentials) Identifier() string {
	if c.Email != "" {
		return c.Email
	}
	return c.Subject
}

// CredentialStore persists credentials between process runs.
type CredentialStore interface {
	SaveCredentials(credentials *Credentials) error
	LoadCredentials() (*Credentials, error)
	DeleteCredentials() error
}
