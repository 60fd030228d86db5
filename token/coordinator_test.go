package token_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/synco-portal/internal/errors"
	"github.com/jrsteele09/synco-portal/internal/utils"
	"github.com/jrsteele09/synco-portal/oauthmodel"
	"github.com/jrsteele09/synco-portal/sessions"
	"github.com/jrsteele09/synco-portal/storage"
	"github.com/jrsteele09/synco-portal/token"
	"github.com/jrsteele09/synco-portal/token/jwt/jwttest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeRefresher struct {
	calls   atomic.Int32
	release chan struct{}
	resp    *oauthmodel.TokenResponse
	err     error
}

func (f *fakeRefresher) Refresh(_ context.Context, _ string) (*oauthmodel.TokenResponse, error) {
	f.calls.Add(1)
	if f.release != nil {
		<-f.release
	}
	return f.resp, f.err
}

type fakeFetcher struct {
	calls atomic.Int32
	token string
}

func (f *fakeFetcher) FetchSessionToken(_ context.Context) (string, error) {
	f.calls.Add(1)
	return f.token, nil
}

type fakeLogouter struct {
	calls atomic.Int32
	store *sessions.Store
}

func (f *fakeLogouter) Logout(_ context.Context) error {
	f.calls.Add(1)
	f.store.Clear()
	return nil
}

type fixture struct {
	clock     *fakeClock
	store     *sessions.Store
	durable   *storage.MemoryStore
	refresher *fakeRefresher
	fetcher   *fakeFetcher
	logouter  *fakeLogouter
	c         *token.Coordinator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		clock:     &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)},
		store:     sessions.NewStore(),
		durable:   storage.NewMemoryStore(),
		refresher: &fakeRefresher{},
		fetcher:   &fakeFetcher{},
	}
	f.logouter = &fakeLogouter{store: f.store}

	c, err := token.NewCoordinator(f.store, f.durable, f.refresher,
		token.WithNowFunc(f.clock.Now),
		token.WithSessionFetcher(f.fetcher),
		token.WithLogouter(f.logouter),
	)
	require.NoError(t, err)
	f.c = c
	return f
}

func TestNewCoordinatorValidation(t *testing.T) {
	_, err := token.NewCoordinator(nil, storage.NewMemoryStore(), &fakeRefresher{})
	require.Error(t, err)
	_, err = token.NewCoordinator(sessions.NewStore(), nil, &fakeRefresher{})
	require.Error(t, err)
	_, err = token.NewCoordinator(sessions.NewStore(), storage.NewMemoryStore(), nil)
	require.Error(t, err)
}

func TestGetAuthTokenReturnsValidTokenWithoutNetwork(t *testing.T) {
	f := newFixture(t)
	valid := jwttest.Valid(f.clock.Now())
	f.store.SetTokens(valid, "r1")

	got, err := f.c.GetAuthToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, valid, got)
	assert.Zero(t, f.refresher.calls.Load())
	assert.Zero(t, f.fetcher.calls.Load())
}

func TestGetAuthTokenRenewsExpiredToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	expired := jwttest.Expired(f.clock.Now())
	fresh := jwttest.Valid(f.clock.Now())
	f.store.SetTokens(expired, "r1")
	f.refresher.resp = &oauthmodel.TokenResponse{AccessToken: utils.Ptr(fresh), RefreshToken: utils.Ptr("r2")}

	got, err := f.c.GetAuthToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, fresh, got)
	assert.Equal(t, int32(1), f.refresher.calls.Load())

	assert.Equal(t, fresh, f.store.AccessToken())
	assert.Equal(t, "r2", f.store.RefreshToken())

	persisted, err := f.durable.Get(ctx, storage.KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, fresh, persisted)
	persisted, err = f.durable.Get(ctx, storage.KeyRefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "r2", persisted)
}

func TestGetAuthTokenUsesPersistedRefreshToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fresh := jwttest.Valid(f.clock.Now())
	require.NoError(t, f.durable.Set(ctx, storage.KeyRefreshToken, "persisted"))
	f.refresher.resp = &oauthmodel.TokenResponse{AccessToken: utils.Ptr(fresh)}

	got, err := f.c.GetAuthToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, fresh, got)
	assert.Equal(t, "persisted", f.store.RefreshToken())
}

func TestGetAuthTokenFallsBackToSession(t *testing.T) {
	f := newFixture(t)
	f.fetcher.token = jwttest.Valid(f.clock.Now())

	got, err := f.c.GetAuthToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, f.fetcher.token, got)
	assert.Zero(t, f.refresher.calls.Load())
}

func TestGetAuthTokenWithNothingReturnsEmpty(t *testing.T) {
	f := newFixture(t)

	got, err := f.c.GetAuthToken(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, int32(1), f.fetcher.calls.Load())
}

func TestGetAuthTokenCooldown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.c.GetAuthToken(ctx)
	require.NoError(t, err)

	f.clock.Advance(4 * time.Second)
	_, err = f.c.GetAuthToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.fetcher.calls.Load(), "second attempt inside cooldown")

	f.clock.Advance(2 * time.Second)
	_, err = f.c.GetAuthToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.fetcher.calls.Load())
}

func TestConcurrentCallersShareOneRefresh(t *testing.T) {
	f := newFixture(t)
	fresh := jwttest.Valid(f.clock.Now())
	f.store.SetTokens(jwttest.Expired(f.clock.Now()), "r1")
	f.refresher.resp = &oauthmodel.TokenResponse{AccessToken: utils.Ptr(fresh)}
	f.refresher.release = make(chan struct{})

	const callers = 8
	var wg sync.WaitGroup
	results := make([]string, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = f.c.GetAuthToken(context.Background())
		}(i)
	}

	require.Eventually(t, func() bool { return f.refresher.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(f.refresher.release)
	wg.Wait()

	assert.Equal(t, int32(1), f.refresher.calls.Load())
	for _, r := range results {
		assert.Equal(t, fresh, r)
	}
}

func TestRefreshFailureLogsOut(t *testing.T) {
	tests := []struct {
		name string
		resp *oauthmodel.TokenResponse
		err  error
	}{
		{"rejected", nil, errors.NewStatusError(401, nil)},
		{"no access token", &oauthmodel.TokenResponse{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.store.SetTokens("a", "r1")
			f.refresher.resp = tt.resp
			f.refresher.err = tt.err

			got, err := f.c.RefreshAccessToken(context.Background())
			require.ErrorIs(t, err, errors.ErrAuthentication)
			assert.Empty(t, got)
			assert.Equal(t, int32(1), f.logouter.calls.Load())
			assert.Empty(t, f.store.AccessToken())
		})
	}
}

func TestRefreshUnreachableKeepsSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.SetTokens("a", "r1")
	require.NoError(t, f.durable.Set(ctx, storage.KeyRefreshToken, "r1"))
	f.refresher.err = errors.ErrConnectivity

	got, err := f.c.RefreshAccessToken(ctx)
	require.ErrorIs(t, err, errors.ErrConnectivity)
	assert.NotErrorIs(t, err, errors.ErrAuthentication)
	assert.Empty(t, got)
	assert.Zero(t, f.logouter.calls.Load())
	assert.Equal(t, "r1", f.store.RefreshToken())

	durable, err := f.durable.Get(ctx, storage.KeyRefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "r1", durable)
}

func TestRefreshWithoutRefreshToken(t *testing.T) {
	f := newFixture(t)

	_, err := f.c.RefreshAccessToken(context.Background())
	require.ErrorIs(t, err, errors.ErrAuthentication)
	require.ErrorIs(t, err, errors.ErrNoRefreshToken)
	assert.Zero(t, f.refresher.calls.Load())
	assert.Equal(t, int32(1), f.logouter.calls.Load())
}
