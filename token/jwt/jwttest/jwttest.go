// Package jwttest mints unsigned-for-real tokens for tests. The signing key
// is a constant; nothing in the client verifies signatures.
package jwttest

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var signingKey = []byte("jwttest")

// Mint returns an HS256 token expiring at exp with the given extra claims
func Mint(exp time.Time, extra map[string]any) string {
	claims := jwtlib.MapClaims{
		"sub": uuid.NewString(),
		"iat": exp.Add(-time.Hour).Unix(),
		"exp": exp.Unix(),
		"jti": uuid.NewString(),
	}
	for k, v := range extra {
		claims[k] = v
	}
	return sign(claims)
}

// Valid returns a token expiring an hour after now
func Valid(now time.Time) string {
	return Mint(now.Add(time.Hour), nil)
}

// Expired returns a token that expired a minute before now
func Expired(now time.Time) string {
	return Mint(now.Add(-time.Minute), nil)
}

// WithoutExpiry returns a token that has no exp claim
func WithoutExpiry() string {
	return sign(jwtlib.MapClaims{"sub": uuid.NewString()})
}

func sign(claims jwtlib.MapClaims) string {
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(signingKey)
	if err != nil {
		panic(err)
	}
	return signed
}
