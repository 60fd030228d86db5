package jwt

import (
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/synco-portal/internal/errors"
	"github.com/jrsteele09/synco-portal/internal/utils"
)

// TokenIntrospection holds the claims read from an access token without
// verifying its signature. It is a hint for avoiding needless network calls
// and must never be used to make an access-control decision.
type TokenIntrospection struct {
	Active bool     `json:"active"`          // False once exp has passed
	Exp    *int64   `json:"exp,omitempty"`   // Expiration
	Iat    *int64   `json:"iat,omitempty"`   // Issued at time
	Sub    *string  `json:"sub,omitempty"`   // Users unique ID
	Email  *string  `json:"email,omitempty"` // Users email
	Roles  []string `json:"roles,omitempty"`
}

// Inspect decodes rawToken's claims at time now. Tokens that cannot be
// parsed, or carry no exp claim, are reported as inactive with an error.
func Inspect(rawToken string, now time.Time) (*TokenIntrospection, error) {
	if strings.TrimSpace(rawToken) == "" {
		return &TokenIntrospection{Active: false}, errors.ErrInvalidToken
	}

	unverifiedToken, _, err := jwtlib.NewParser().ParseUnverified(rawToken, jwtlib.MapClaims{})
	if err != nil {
		return &TokenIntrospection{Active: false}, fmt.Errorf("%w: %v", errors.ErrInvalidToken, err)
	}

	claims, ok := unverifiedToken.Claims.(jwtlib.MapClaims)
	if !ok {
		return &TokenIntrospection{Active: false}, fmt.Errorf("%w: error extracting claims", errors.ErrInvalidToken)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return &TokenIntrospection{Active: false}, fmt.Errorf("%w: %v", errors.ErrInvalidToken, err)
	}
	if exp == nil {
		return &TokenIntrospection{Active: false}, fmt.Errorf("%w: missing exp claim", errors.ErrInvalidToken)
	}

	expInt := exp.Unix()
	result := &TokenIntrospection{
		Active: now.Before(exp.Time),
		Exp:    &expInt,
	}

	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		iatInt := iat.Unix()
		result.Iat = &iatInt
	}
	if sub, _ := claims.GetSubject(); sub != "" {
		result.Sub = &sub
	}
	if email, ok := claims["email"].(string); ok && email != "" {
		result.Email = &email
	}
	result.Roles = utils.ClaimStrings(claims["roles"])
	return result, nil
}

// ExpiresAt returns the exp claim of rawToken
func ExpiresAt(rawToken string) (time.Time, error) {
	info, err := Inspect(rawToken, time.Time{})
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(*info.Exp, 0), nil
}

// IsExpired reports whether rawToken is expired at now. Unparsable tokens
// and tokens without exp count as expired.
func IsExpired(rawToken string, now time.Time) bool {
	info, err := Inspect(rawToken, now)
	if err != nil {
		return true
	}
	return !info.Active
}
