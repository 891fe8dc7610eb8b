package sdk

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenClaims are the identity claims a JWT access token may carry.
type AccessTokenClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email,omitempty"`
	Name          string `json:"name,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
}

// ParseAccessTokenClaims reads the claims of a JWT access token without verifying
// its signature. The result is for display and identification only; the backend
// remains responsible for validating the token.
func ParseAccessTokenClaims(accessToken string) (*AccessTokenClaims, error) {
	claims := &AccessTokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}
	return claims, nil
}
