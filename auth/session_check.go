package auth

import (
	"context"

	"github.com/jrsteele09/synco-portal/internal/errors"
	"github.com/jrsteele09/synco-portal/oauthmodel"
	"github.com/jrsteele09/synco-portal/sessions"
	"github.com/jrsteele09/synco-portal/storage"
	"github.com/jrsteele09/synco-portal/token/jwt"
)

// CheckExistingSession asks the backend whether a session exists and
// updates the store to match. Concurrent calls share one network check,
// and within the cooldown after a check the last known state is returned.
//
// A transport or server failure leaves the store untouched and returns
// false with the classified error.
func (s *Service) CheckExistingSession(ctx context.Context) (bool, error) {
	return s.checkSession(ctx, false)
}

// checkResult is the outcome of one session check. accessToken is the token
// the responding endpoint issued, "" when it issued none.
type checkResult struct {
	authenticated bool
	accessToken   string
}

func (s *Service) checkSession(ctx context.Context, force bool) (bool, error) {
	res, err := s.runCheck(ctx, force)
	return res.authenticated, err
}

func (s *Service) runCheck(ctx context.Context, force bool) (checkResult, error) {
	if !force && s.inCheckCooldown() {
		s.metrics.ObserveSessionCheck("cooldown")
		return s.cachedResult(), nil
	}

	flightCtx := context.WithoutCancel(ctx)
	v, err, shared := s.group.Do(flightSessionCheck, func() (any, error) {
		return s.checkFlight(flightCtx, force)
	})
	if shared {
		s.metrics.ObserveSessionCheck("shared")
	}
	return v.(checkResult), err
}

// checkFlight is the single-flight body. The cooldown is checked again
// because a flight may have completed after the caller's own check.
func (s *Service) checkFlight(ctx context.Context, force bool) (checkResult, error) {
	if !force && s.inCheckCooldown() {
		s.metrics.ObserveSessionCheck("cooldown")
		return s.cachedResult(), nil
	}
	defer s.markChecked()
	return s.verify(ctx)
}

// cachedResult reports the last known state without touching the network.
// An expired access token is not handed out.
func (s *Service) cachedResult() checkResult {
	res := checkResult{authenticated: s.store.IsAuthenticated()}
	if access := s.store.AccessToken(); access != "" && !jwt.IsExpired(access, s.nowTime()) {
		res.accessToken = access
	}
	return res
}

func (s *Service) verify(ctx context.Context) (checkResult, error) {
	if refreshToken := s.refreshToken(ctx); refreshToken != "" {
		resp, err := s.backend.CheckSession(ctx, refreshToken)
		switch {
		case err == nil:
			if err := s.populate(ctx, resp); err == nil {
				s.metrics.ObserveSessionCheck("authenticated")
				return checkResult{authenticated: true, accessToken: resp.Access()}, nil
			}
			s.logger.Debug().Msg("check-session returned no user, probing cookie session")
		case errors.Is(err, errors.ErrAuthentication):
			s.logger.Debug().Msg("refresh token rejected, probing cookie session")
		default:
			s.metrics.ObserveSessionCheck("error")
			s.logger.Warn().Err(err).Msg("session check failed")
			return checkResult{}, err
		}
	}

	resp, err := s.backend.Session(ctx)
	if err != nil {
		if errors.Is(err, errors.ErrAuthentication) {
			s.store.ClearAuth()
			s.metrics.ObserveSessionCheck("unauthenticated")
			return checkResult{}, nil
		}
		s.metrics.ObserveSessionCheck("error")
		s.logger.Warn().Err(err).Msg("cookie session lookup failed")
		return checkResult{}, err
	}

	if err := s.populate(ctx, resp); err != nil {
		s.store.ClearAuth()
		s.metrics.ObserveSessionCheck("unauthenticated")
		return checkResult{}, nil
	}
	s.metrics.ObserveSessionCheck("authenticated")
	return checkResult{authenticated: true, accessToken: resp.Access()}, nil
}

// FetchSessionToken reads an access token from the session. It joins any
// session check in flight and honours the check cooldown. It returns ""
// without error when there is no session or the backend issued no token.
func (s *Service) FetchSessionToken(ctx context.Context) (string, error) {
	res, err := s.runCheck(ctx, false)
	if err != nil {
		return "", err
	}
	if !res.authenticated {
		return "", nil
	}
	return res.accessToken, nil
}

// populate writes an authenticated session response through to the store
// and to durable storage
func (s *Service) populate(ctx context.Context, resp *oauthmodel.SessionResponse) error {
	if resp == nil || resp.User == nil {
		return sessions.ErrNoUser
	}
	if err := s.store.SetAuthenticated(resp.User); err != nil {
		return err
	}

	persist := map[string]string{storage.KeyUserEmail: resp.User.Email}
	if access := resp.Access(); access != "" {
		s.store.SetAccessToken(access)
		persist[storage.KeyAccessToken] = access
	}
	if refresh := resp.Refresh(); refresh != "" {
		s.store.SetRefreshToken(refresh)
		persist[storage.KeyRefreshToken] = refresh
	}

	for key, value := range persist {
		if value == "" {
			continue
		}
		if err := s.durable.Set(ctx, key, value); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("persisting session")
		}
	}

	s.logger.Debug().Str("email", resp.User.Email).Msg("session established")
	return nil
}

func (s *Service) refreshToken(ctx context.Context) string {
	if rt := s.store.RefreshToken(); rt != "" {
		return rt
	}
	rt, err := s.durable.Get(ctx, storage.KeyRefreshToken)
	if err != nil {
		s.logger.Warn().Err(err).Msg("reading persisted refresh token")
		return ""
	}
	if rt != "" {
		s.store.SetRefreshToken(rt)
	}
	return rt
}

func (s *Service) inCheckCooldown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.lastCheck.IsZero() && s.nowTime().Sub(s.lastCheck) < s.checkCooldown
}

func (s *Service) markChecked() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastCheck = s.nowTime()
}
