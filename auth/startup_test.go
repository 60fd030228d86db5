package auth_test

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/jrsteele09/synco-portal/auth"
	"github.com/jrsteele09/synco-portal/backend"
	"github.com/jrsteele09/synco-portal/internal/errors"
	"github.com/jrsteele09/synco-portal/messages"
	"github.com/jrsteele09/synco-portal/storage"
	"github.com/jrsteele09/synco-portal/token/jwt/jwttest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

// cookieSession makes /auth/session succeed only once the silent login
// endpoint has set the session cookie
func cookieSession(f *testFixture) {
	f.backend.handle(backend.RouteSilent, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("email") != testEmail {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: testSessionCookie, Value: "s1", Path: "/"})
	})
	f.backend.handle(backend.RouteSession, func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie(testSessionCookie); err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeSession(w, testEmail, "", "")
	})
}

func TestInitializeWithPersistedRefreshToken(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	require.NoError(t, f.durable.Set(ctx, storage.KeyRefreshToken, testRefreshToken))

	fresh := jwttest.Valid(f.clock.Now())
	f.backend.handle(backend.RouteCheckSession, func(w http.ResponseWriter, r *http.Request) {
		writeSession(w, testEmail, fresh, "")
	})

	result, err := f.service.Initialize(ctx, mustParse(t, "http://localhost/payments"))
	require.NoError(t, err)

	assert.True(t, result.Authenticated)
	assert.Equal(t, auth.StageExistingSession, result.Stage)
	assert.Empty(t, result.LoginURL)
	assert.True(t, f.store.IsAuthenticated())
	assert.Equal(t, fresh, f.store.AccessToken())
	assert.Equal(t, testRefreshToken, f.store.RefreshToken())
}

func TestInitializeWithNothingPersisted(t *testing.T) {
	f := setupTestFixture(t)

	result, err := f.service.Initialize(context.Background(), mustParse(t, "http://localhost/"))
	require.NoError(t, err)

	assert.False(t, result.Authenticated)
	assert.Equal(t, auth.StageUnauthenticated, result.Stage)
	assert.Equal(t, f.service.LoginURL(false), result.LoginURL)
	assert.False(t, f.store.IsAuthenticated())

	assert.Equal(t, 1, f.backend.Hits(backend.RouteSession))
	assert.Equal(t, 1, f.backend.TotalHits())
}

func TestInitializeDiscardsExpiredAccessToken(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	require.NoError(t, f.durable.Set(ctx, storage.KeyAccessToken, jwttest.Expired(f.clock.Now())))

	_, err := f.service.Initialize(ctx, nil)
	require.NoError(t, err)

	assert.Empty(t, f.store.AccessToken())
	persisted, err := f.durable.Get(ctx, storage.KeyAccessToken)
	require.NoError(t, err)
	assert.Empty(t, persisted)
}

func TestInitializeKeepsValidAccessToken(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	valid := jwttest.Valid(f.clock.Now())
	require.NoError(t, f.durable.Set(ctx, storage.KeyAccessToken, valid))

	_, err := f.service.Initialize(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, valid, f.store.AccessToken())
}

func TestInitializeAfterLogoutStopsEarly(t *testing.T) {
	f := setupTestFixture(t)
	f.store.SetJustLoggedOut(true)

	result, err := f.service.Initialize(context.Background(), nil)
	require.NoError(t, err)

	assert.False(t, result.Authenticated)
	assert.Equal(t, auth.StageJustLoggedOut, result.Stage)
	assert.False(t, f.store.JustLoggedOut())
	assert.Zero(t, f.backend.TotalHits())
}

func TestInitializeFallsBackToSilentLogin(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	require.NoError(t, f.durable.Set(ctx, storage.KeyUserEmail, testEmail))
	cookieSession(f)

	result, err := f.service.Initialize(ctx, nil)
	require.NoError(t, err)

	assert.True(t, result.Authenticated)
	assert.Equal(t, auth.StageSilentLogin, result.Stage)
	assert.Equal(t, 1, f.backend.Hits(backend.RouteSilent))
	// One session check before silent login, one forced after it despite the cooldown
	assert.Equal(t, 2, f.backend.Hits(backend.RouteSession))
	assert.Equal(t, testEmail, f.store.User().Email)
}

func TestInitializeSilentLoginDeclined(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	require.NoError(t, f.durable.Set(ctx, storage.KeyUserEmail, testEmail))

	result, err := f.service.Initialize(ctx, nil)
	require.NoError(t, err)

	assert.False(t, result.Authenticated)
	assert.Equal(t, auth.StageUnauthenticated, result.Stage)
	assert.Equal(t, 1, f.backend.Hits(backend.RouteSilent))
	assert.Equal(t, 1, f.backend.Hits(backend.RouteSession))
}

func TestInitializeLoginSuccessCallback(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.handle(backend.RouteSession, func(w http.ResponseWriter, r *http.Request) {
		writeSession(w, testEmail, "", "")
	})
	msgs, cancel := f.hub.Subscribe()
	defer cancel()

	result, err := f.service.Initialize(context.Background(), mustParse(t, "http://localhost/payments?login=success&tab=2"))
	require.NoError(t, err)

	assert.True(t, result.Authenticated)
	assert.Equal(t, auth.StageLoginCallback, result.Stage)
	assert.Equal(t, "tab=2", result.Location.RawQuery)
	assert.Equal(t, "/payments", result.Location.Path)

	select {
	case msg := <-msgs:
		assert.Equal(t, messages.TypeLoginOK, msg.Type)
	case <-time.After(time.Second):
		t.Fatal("expected LOGIN_OK")
	}
}

func TestInitializeLoginErrorCallback(t *testing.T) {
	f := setupTestFixture(t)
	msgs, cancel := f.hub.Subscribe()
	defer cancel()

	result, err := f.service.Initialize(context.Background(), mustParse(t, "http://localhost/?login=error&message=cuenta+no+autorizada"))
	require.NoError(t, err)

	assert.False(t, result.Authenticated)
	assert.Empty(t, result.Location.RawQuery)

	msg := <-msgs
	assert.Equal(t, messages.TypeLoginFailed, msg.Type)
	assert.Equal(t, "cuenta no autorizada", msg.Error)
}

func TestAttemptSilentLogin(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	cookieSession(f)

	_, err := f.service.AttemptSilentLogin(ctx, "")
	require.ErrorIs(t, err, errors.ErrInvalidRequest)

	ok, err := f.service.AttemptSilentLogin(ctx, "other@example.com")
	require.ErrorIs(t, err, errors.ErrAuthentication)
	assert.False(t, ok)
	assert.Zero(t, f.backend.Hits(backend.RouteSession))
	assert.False(t, f.store.IsAuthenticated())

	ok, err = f.service.AttemptSilentLogin(ctx, testEmail)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, f.store.IsAuthenticated())
}

func TestStripLoginParams(t *testing.T) {
	u := mustParse(t, "https://pasesfalsos.com/debts?login=success&message=ok&year=2025")
	stripped := auth.StripLoginParams(u)

	assert.Equal(t, "year=2025", stripped.RawQuery)
	assert.Equal(t, "login=success&message=ok&year=2025", u.RawQuery)
	assert.Nil(t, auth.StripLoginParams(nil))
}
