package oauthmodel

import (
	"github.com/jrsteele09/synco-portal/internal/utils"
	"github.com/jrsteele09/synco-portal/users"
)

// TokenResponse is the body returned by /auth/refresh.
type TokenResponse struct {
	// AccessToken is the JWT used to access protected resources.
	// Usage: Authorization: Bearer <access_token>
	// Lifespan: short-lived, the "exp" claim is the authority
	AccessToken *string `json:"access_token,omitempty"`

	// RefreshToken is the long-lived credential. The backend may rotate it on
	// every refresh; when absent the previous refresh token stays in use.
	RefreshToken *string `json:"refresh_token,omitempty"`

	// ExpiresIn is a lifetime hint in seconds
	ExpiresIn int `json:"expires_in,omitempty"`

	// TokenType is "Bearer" when present
	TokenType string `json:"token_type,omitempty"`
}

// SessionResponse is the body returned by /auth/session and /auth/check-session.
type SessionResponse struct {
	User         *users.User `json:"user,omitempty"`
	AccessToken  *string     `json:"access_token,omitempty"`
	RefreshToken *string     `json:"refresh_token,omitempty"`

	// Some deployments nest the token pair instead of returning it flat
	Tokens *TokenResponse `json:"tokens,omitempty"`
}

// Access returns the access token from either the flat or nested form
func (s *SessionResponse) Access() string {
	var nested *string
	if s.Tokens != nil {
		nested = s.Tokens.AccessToken
	}
	return utils.FirstNonZero(utils.Value(s.AccessToken), utils.Value(nested))
}

// Refresh returns the refresh token from either the flat or nested form
func (s *SessionResponse) Refresh() string {
	var nested *string
	if s.Tokens != nil {
		nested = s.Tokens.RefreshToken
	}
	return utils.FirstNonZero(utils.Value(s.RefreshToken), utils.Value(nested))
}
