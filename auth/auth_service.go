package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jrsteele09/synco-portal/backend"
	"github.com/jrsteele09/synco-portal/internal/errors"
	"github.com/jrsteele09/synco-portal/internal/metrics"
	"github.com/jrsteele09/synco-portal/messages"
	"github.com/jrsteele09/synco-portal/sessions"
	"github.com/jrsteele09/synco-portal/storage"
	"github.com/jrsteele09/synco-portal/token"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

const (
	defaultCheckCooldown = 3 * time.Second
	defaultTokenCooldown = 5 * time.Second

	flightSessionCheck = "session-check"
)

// Publisher delivers lifecycle messages to open tabs
type Publisher interface {
	Publish(msg messages.Message) int
}

// Dependencies holds what the Service cannot work without
type Dependencies struct {
	Backend *backend.Client  // Portal backend, cookie jar included
	Store   *sessions.Store  // In-memory session state
	Durable storage.Durable // Tokens and remembered email across restarts
}

// Service owns the session lifecycle: verification against the backend,
// silent re-login, startup, and logout. Token renewal is delegated to a
// token.Coordinator that the Service builds around itself.
type Service struct {
	backend *backend.Client
	store   *sessions.Store
	durable storage.Durable
	tokens  *token.Coordinator

	group         singleflight.Group
	mu            sync.Mutex
	lastCheck     time.Time
	checkCooldown time.Duration
	tokenCooldown time.Duration

	publisher Publisher
	nowTime   func() time.Time
	logger    zerolog.Logger
	metrics   *metrics.Metrics
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// WithCheckCooldown sets how long a completed session check is reused
func WithCheckCooldown(d time.Duration) ServiceOption {
	return func(s *Service) {
		s.checkCooldown = d
	}
}

// WithTokenCooldown sets the coordinator's spacing between token attempts
func WithTokenCooldown(d time.Duration) ServiceOption {
	return func(s *Service) {
		s.tokenCooldown = d
	}
}

func WithPublisher(p Publisher) ServiceOption {
	return func(s *Service) {
		s.publisher = p
	}
}

func WithLogger(logger zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService initializes a new Service with required dependencies.
func NewService(deps Dependencies, options ...ServiceOption) (*Service, error) {
	if deps.Backend == nil {
		return nil, errors.New("[NewService] backend client is required")
	}
	if deps.Store == nil {
		return nil, errors.New("[NewService] session store is required")
	}
	if deps.Durable == nil {
		return nil, errors.New("[NewService] durable storage is required")
	}

	s := &Service{
		backend:       deps.Backend,
		store:         deps.Store,
		durable:       deps.Durable,
		checkCooldown: defaultCheckCooldown,
		tokenCooldown: defaultTokenCooldown,
		nowTime:       time.Now,
		logger:        log.Logger,
	}
	for _, opt := range options {
		opt(s)
	}

	tokens, err := token.NewCoordinator(s.store, s.durable, s.backend,
		token.WithNowFunc(token.NowTimeFunc(s.nowTime)),
		token.WithCooldown(s.tokenCooldown),
		token.WithLogger(s.logger),
		token.WithMetrics(s.metrics),
		token.WithSessionFetcher(s),
		token.WithLogouter(s),
	)
	if err != nil {
		return nil, fmt.Errorf("[NewService] %w", err)
	}
	s.tokens = tokens
	return s, nil
}

// Store exposes the session state for read access
func (s *Service) Store() *sessions.Store {
	return s.store
}

// GetAuthToken returns a usable access token or "" (see token.Coordinator)
func (s *Service) GetAuthToken(ctx context.Context) (string, error) {
	return s.tokens.GetAuthToken(ctx)
}

// TokenSource returns an oauth2.TokenSource over the session. A token is
// reused until shortly before its exp claim, then obtained again through
// GetAuthToken.
func (s *Service) TokenSource(ctx context.Context) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(nil, token.NewSource(ctx, s))
}

// RefreshAccessToken forces a refresh; failure logs the user out
func (s *Service) RefreshAccessToken(ctx context.Context) (string, error) {
	return s.tokens.RefreshAccessToken(ctx)
}

// LoginURL is where the user goes for interactive Google login
func (s *Service) LoginURL(selectAccount bool) string {
	return s.backend.LoginURL(selectAccount)
}

// RememberedEmail returns the email of the last authenticated user, or ""
func (s *Service) RememberedEmail(ctx context.Context) (string, error) {
	return s.durable.Get(ctx, storage.KeyUserEmail)
}

// Logout ends the session everywhere it lives. The backend call and the
// cookie reset are best effort; local state is always cleared.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.backend.Logout(ctx, s.store.AccessToken()); err != nil {
		s.logger.Debug().Err(err).Msg("backend logout failed, clearing local session anyway")
	}

	s.store.Clear()
	durableErr := s.durable.Delete(ctx, storage.SessionKeys...)
	if durableErr != nil {
		s.logger.Error().Err(durableErr).Msg("clearing persisted session")
	}
	s.backend.ResetCookies()
	s.store.SetJustLoggedOut(true)

	s.logger.Info().Msg("logged out")
	if durableErr != nil {
		return fmt.Errorf("clearing persisted session: %w", durableErr)
	}
	return nil
}

func (s *Service) publish(msg messages.Message) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(msg)
}
