package token

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jrsteele09/synco-portal/internal/errors"
	"github.com/jrsteele09/synco-portal/internal/metrics"
	"github.com/jrsteele09/synco-portal/internal/utils"
	"github.com/jrsteele09/synco-portal/oauthmodel"
	"github.com/jrsteele09/synco-portal/sessions"
	"github.com/jrsteele09/synco-portal/storage"
	"github.com/jrsteele09/synco-portal/token/jwt"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const (
	defaultCooldown = 5 * time.Second

	flightToken   = "token"
	flightRefresh = "refresh"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
type NowTimeFunc func() time.Time

// Refresher exchanges a refresh token for a new token pair
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*oauthmodel.TokenResponse, error)
}

// SessionFetcher obtains an access token from the cookie session when no
// refresh token is held. An empty token with no error means "no session".
type SessionFetcher interface {
	FetchSessionToken(ctx context.Context) (string, error)
}

// Logouter tears the session down after an unrecoverable refresh failure
type Logouter interface {
	Logout(ctx context.Context) error
}

// Coordinator hands out access tokens, renewing them when they expire.
// Concurrent callers share one in-flight renewal, and after an attempt
// completes no new attempt is made for the cooldown period.
type Coordinator struct {
	store     *sessions.Store
	durable   storage.Durable
	refresher Refresher
	fetcher   SessionFetcher
	logouter  Logouter

	group       singleflight.Group
	mu          sync.Mutex
	lastAttempt time.Time
	cooldown    time.Duration

	nowFunc NowTimeFunc
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

type CoordinatorOption func(*Coordinator)

func WithNowFunc(nowFunc NowTimeFunc) CoordinatorOption {
	return func(c *Coordinator) {
		c.nowFunc = nowFunc
	}
}

// WithCooldown sets the minimum spacing between token acquisition attempts
func WithCooldown(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		c.cooldown = d
	}
}

func WithLogger(logger zerolog.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) CoordinatorOption {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// WithSessionFetcher sets the fallback used when no refresh token exists
func WithSessionFetcher(f SessionFetcher) CoordinatorOption {
	return func(c *Coordinator) {
		c.fetcher = f
	}
}

// WithLogouter sets what runs when a refresh fails
func WithLogouter(l Logouter) CoordinatorOption {
	return func(c *Coordinator) {
		c.logouter = l
	}
}

func NewCoordinator(store *sessions.Store, durable storage.Durable, refresher Refresher, options ...CoordinatorOption) (*Coordinator, error) {
	if store == nil {
		return nil, errors.New("[NewCoordinator] session store is required")
	}
	if durable == nil {
		return nil, errors.New("[NewCoordinator] durable storage is required")
	}
	if refresher == nil {
		return nil, errors.New("[NewCoordinator] refresher is required")
	}

	c := &Coordinator{
		store:     store,
		durable:   durable,
		refresher: refresher,
		cooldown:  defaultCooldown,
		nowFunc:   time.Now,
		logger:    log.Logger,
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// GetAuthToken returns a usable access token, or "" when none can be had.
// A token whose exp claim has passed is never returned without a renewal
// attempt, except during the cooldown that follows such an attempt.
func (c *Coordinator) GetAuthToken(ctx context.Context) (string, error) {
	if current := c.store.AccessToken(); current != "" && !jwt.IsExpired(current, c.nowFunc()) {
		return current, nil
	}

	// The shared work must not be cancelled by whichever caller started it
	flightCtx := context.WithoutCancel(ctx)
	v, err, _ := c.group.Do(flightToken, func() (any, error) {
		return c.obtainToken(flightCtx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Coordinator) obtainToken(ctx context.Context) (string, error) {
	current := c.store.AccessToken()
	if current != "" && !jwt.IsExpired(current, c.nowFunc()) {
		return current, nil
	}
	if c.inCooldown() {
		c.logger.Debug().Msg("token attempt within cooldown, returning current token")
		return current, nil
	}

	if c.currentRefreshToken(ctx) != "" {
		return c.RefreshAccessToken(ctx)
	}

	defer c.markAttempt()
	if c.fetcher == nil {
		return "", nil
	}
	accessToken, err := c.fetcher.FetchSessionToken(ctx)
	if err != nil {
		return "", fmt.Errorf("fetching session token: %w", err)
	}
	return accessToken, nil
}

// RefreshAccessToken exchanges the refresh token for a new access token.
// A failure logs the user out and returns an error wrapping ErrAuthentication,
// except a transport failure, which leaves the session untouched and is
// returned as ErrConnectivity.
func (c *Coordinator) RefreshAccessToken(ctx context.Context) (string, error) {
	flightCtx := context.WithoutCancel(ctx)
	v, err, _ := c.group.Do(flightRefresh, func() (any, error) {
		defer c.markAttempt()
		return c.refresh(flightCtx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Coordinator) refresh(ctx context.Context) (string, error) {
	refreshToken := c.currentRefreshToken(ctx)
	if refreshToken == "" {
		return "", c.fail(ctx, errors.ErrNoRefreshToken)
	}

	resp, err := c.refresher.Refresh(ctx, refreshToken)
	if err != nil {
		return "", c.fail(ctx, err)
	}

	accessToken := utils.Value(resp.AccessToken)
	if accessToken == "" {
		return "", c.fail(ctx, fmt.Errorf("%w: refresh response has no access token", errors.ErrMalformedPayload))
	}
	newRefreshToken := utils.Value(resp.RefreshToken)

	c.store.SetTokens(accessToken, newRefreshToken)
	if err := c.durable.Set(ctx, storage.KeyAccessToken, accessToken); err != nil {
		c.logger.Warn().Err(err).Msg("persisting access token")
	}
	if newRefreshToken != "" {
		if err := c.durable.Set(ctx, storage.KeyRefreshToken, newRefreshToken); err != nil {
			c.logger.Warn().Err(err).Msg("persisting refresh token")
		}
	}

	c.metrics.ObserveRefresh("ok")
	c.logger.Debug().Msg("access token refreshed")
	return accessToken, nil
}

func (c *Coordinator) fail(ctx context.Context, cause error) error {
	c.metrics.ObserveRefresh("failed")
	if errors.Is(cause, errors.ErrConnectivity) {
		c.logger.Warn().Err(cause).Msg("token refresh unreachable, keeping session")
		return fmt.Errorf("token refresh: %w", cause)
	}
	c.logger.Warn().Err(cause).Msg("token refresh failed, logging out")

	if c.logouter != nil {
		if err := c.logouter.Logout(ctx); err != nil {
			c.logger.Error().Err(err).Msg("logout after refresh failure")
		}
	}
	return fmt.Errorf("%w: token refresh: %w", errors.ErrAuthentication, cause)
}

// currentRefreshToken prefers the in-memory token and falls back to durable
// storage, loading what it finds into the store.
func (c *Coordinator) currentRefreshToken(ctx context.Context) string {
	if rt := c.store.RefreshToken(); rt != "" {
		return rt
	}
	rt, err := c.durable.Get(ctx, storage.KeyRefreshToken)
	if err != nil {
		c.logger.Warn().Err(err).Msg("reading persisted refresh token")
		return ""
	}
	if rt != "" {
		c.store.SetRefreshToken(rt)
	}
	return rt
}

func (c *Coordinator) inCooldown() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.lastAttempt.IsZero() && c.nowFunc().Sub(c.lastAttempt) < c.cooldown
}

func (c *Coordinator) markAttempt() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastAttempt = c.nowFunc()
}
