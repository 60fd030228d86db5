package auth

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jrsteele09/synco-portal/internal/errors"
	"github.com/jrsteele09/synco-portal/messages"
	"github.com/jrsteele09/synco-portal/storage"
	"github.com/jrsteele09/synco-portal/token/jwt"
)

// Query parameters the backend appends when redirecting back after login
const (
	ParamLogin   = "login"
	ParamMessage = "message"

	LoginSuccess = "success"
	LoginError   = "error"
)

// StartupStage names the step that decided the outcome of Initialize
type StartupStage string

const (
	StageLoginCallback   StartupStage = "login-callback"
	StageJustLoggedOut   StartupStage = "just-logged-out"
	StageExistingSession StartupStage = "existing-session"
	StageSilentLogin     StartupStage = "silent-login"
	StageUnauthenticated StartupStage = "unauthenticated"
)

// StartupResult reports how Initialize ended
type StartupResult struct {
	Authenticated bool
	Stage         StartupStage
	// Location is the input location with login callback parameters removed
	Location *url.URL
	// LoginURL is set when the user has to log in interactively
	LoginURL string
}

// AttemptSilentLogin asks the backend to restore the Google session for a
// remembered email without prompting. On success a session check runs
// regardless of the cooldown. On failure nothing changes.
func (s *Service) AttemptSilentLogin(ctx context.Context, email string) (bool, error) {
	if email == "" {
		return false, fmt.Errorf("%w: email is required for silent login", errors.ErrInvalidRequest)
	}

	if err := s.backend.Silent(ctx, email); err != nil {
		s.logger.Debug().Err(err).Msg("silent login declined")
		return false, err
	}
	return s.checkSession(ctx, true)
}

// HandleLoginCallback processes the login/message parameters the backend
// appends after an interactive login. It returns whether the session is now
// authenticated, and false when params carry no login result.
func (s *Service) HandleLoginCallback(ctx context.Context, params url.Values) (bool, error) {
	switch params.Get(ParamLogin) {
	case LoginSuccess:
		s.store.SetJustLoggedOut(false)
		s.publish(messages.Message{Type: messages.TypeLoginOK})
		ok, err := s.checkSession(ctx, true)
		if err != nil {
			s.logger.Warn().Err(err).Msg("session check after login failed")
		}
		return ok, err
	case LoginError:
		message := params.Get(ParamMessage)
		if message == "" {
			message = "login failed"
		}
		s.logger.Info().Str("message", message).Msg("interactive login failed")
		s.publish(messages.Message{Type: messages.TypeLoginFailed, Error: message})
		return false, nil
	default:
		return false, nil
	}
}

// StripLoginParams returns a copy of location without the login callback
// parameters
func StripLoginParams(location *url.URL) *url.URL {
	if location == nil {
		return nil
	}
	stripped := *location
	q := stripped.Query()
	q.Del(ParamLogin)
	q.Del(ParamMessage)
	stripped.RawQuery = q.Encode()
	return &stripped
}

// Initialize runs the startup sequence, stopping at the first step that
// settles the session:
//  1. load persisted tokens, discarding an expired access token
//  2. handle a login callback found in location
//  3. honour an explicit logout
//  4. verify an existing session
//  5. attempt silent login for the remembered email
//  6. otherwise report unauthenticated with a login URL
func (s *Service) Initialize(ctx context.Context, location *url.URL) (StartupResult, error) {
	result := StartupResult{Location: StripLoginParams(location)}

	if err := s.loadPersistedTokens(ctx); err != nil {
		return result, err
	}

	if location != nil && location.Query().Get(ParamLogin) != "" {
		if ok, _ := s.HandleLoginCallback(ctx, location.Query()); ok {
			return s.settle(result, StageLoginCallback, true), nil
		}
	}

	if s.store.JustLoggedOut() {
		s.store.SetJustLoggedOut(false)
		return s.settle(result, StageJustLoggedOut, false), nil
	}

	ok, err := s.CheckExistingSession(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("startup session check failed")
	}
	if ok {
		return s.settle(result, StageExistingSession, true), nil
	}

	email, err := s.RememberedEmail(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("reading remembered email")
	}
	if email != "" {
		s.logger.Debug().Bool("session_cookie_hint", s.backend.MayHaveSession()).Msg("attempting silent login")
		if ok, _ := s.AttemptSilentLogin(ctx, email); ok {
			return s.settle(result, StageSilentLogin, true), nil
		}
	}

	return s.settle(result, StageUnauthenticated, false), nil
}

func (s *Service) settle(result StartupResult, stage StartupStage, authenticated bool) StartupResult {
	result.Stage = stage
	result.Authenticated = authenticated
	if !authenticated {
		result.LoginURL = s.LoginURL(false)
	}
	s.logger.Info().Str("stage", string(stage)).Bool("authenticated", authenticated).Msg("startup complete")
	return result
}

func (s *Service) loadPersistedTokens(ctx context.Context) error {
	access, err := s.durable.Get(ctx, storage.KeyAccessToken)
	if err != nil {
		return fmt.Errorf("loading persisted access token: %w", err)
	}
	refresh, err := s.durable.Get(ctx, storage.KeyRefreshToken)
	if err != nil {
		return fmt.Errorf("loading persisted refresh token: %w", err)
	}

	if access != "" && jwt.IsExpired(access, s.nowTime()) {
		s.logger.Debug().Msg("discarding expired access token")
		if err := s.durable.Delete(ctx, storage.KeyAccessToken); err != nil {
			return fmt.Errorf("discarding expired access token: %w", err)
		}
		access = ""
	}

	if access != "" {
		s.store.SetAccessToken(access)
	}
	if refresh != "" {
		s.store.SetRefreshToken(refresh)
	}
	return nil
}
