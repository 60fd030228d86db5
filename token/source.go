package token

import (
	"context"

	"github.com/jrsteele09/synco-portal/internal/errors"
	"github.com/jrsteele09/synco-portal/token/jwt"
	"golang.org/x/oauth2"
)

// TokenGetter is the part of Coordinator a Source needs
type TokenGetter interface {
	GetAuthToken(ctx context.Context) (string, error)
}

// Source adapts a TokenGetter to oauth2.TokenSource. Expiry comes from the
// unverified exp claim.
type Source struct {
	ctx    context.Context
	getter TokenGetter
}

var _ oauth2.TokenSource = (*Source)(nil)

func NewSource(ctx context.Context, getter TokenGetter) *Source {
	return &Source{ctx: ctx, getter: getter}
}

func (s *Source) Token() (*oauth2.Token, error) {
	raw, err := s.getter.GetAuthToken(s.ctx)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, errors.ErrSessionNotFound
	}

	tok := &oauth2.Token{AccessToken: raw, TokenType: "Bearer"}
	if exp, err := jwt.ExpiresAt(raw); err == nil {
		tok.Expiry = exp
	}
	return tok, nil
}
