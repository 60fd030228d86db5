package backend_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jrsteele09/synco-portal/backend"
	"github.com/jrsteele09/synco-portal/internal/errors"
	"github.com/jrsteele09/synco-portal/oauthmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, handler http.Handler) (*backend.Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := backend.New(srv.URL, backend.WithSessionCookieNames("connect.sid"))
	require.NoError(t, err)
	return c, srv
}

func TestNewRejectsRelativeURL(t *testing.T) {
	_, err := backend.New("/api")
	require.Error(t, err)
}

func TestURL(t *testing.T) {
	c, err := backend.New("https://api.example.com/v1/")
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com/v1/auth/session", c.URL(backend.RouteSession, nil))
	assert.Equal(t, "https://api.example.com/v1/auth/google/login", c.LoginURL(false))
	assert.Equal(t, "https://api.example.com/v1/auth/google/login?prompt=select_account", c.LoginURL(true))
}

func TestSessionSendsCookiesAndDecodes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /auth/google/silent", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ana@example.com", r.URL.Query().Get("email"))
		http.SetCookie(w, &http.Cookie{Name: "connect.sid", Value: "s1", Path: "/"})
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /auth/session", func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("connect.sid")
		if err != nil || cookie.Value != "s1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"user":         map[string]any{"email": "ana@example.com"},
			"access_token": "acc",
		})
	})
	c, _ := newClient(t, mux)
	ctx := context.Background()

	assert.False(t, c.MayHaveSession())

	_, err := c.Session(ctx)
	require.ErrorIs(t, err, errors.ErrAuthentication)
	assert.Equal(t, http.StatusUnauthorized, errors.StatusCode(err))

	require.NoError(t, c.Silent(ctx, "ana@example.com"))
	assert.True(t, c.MayHaveSession())

	resp, err := c.Session(ctx)
	require.NoError(t, err)
	assert.Equal(t, "acc", resp.Access())
	assert.Equal(t, "ana@example.com", resp.User.Email)

	c.ResetCookies()
	assert.False(t, c.MayHaveSession())
	_, err = c.Session(ctx)
	require.ErrorIs(t, err, errors.ErrAuthentication)
}

func TestRefreshPostsRefreshToken(t *testing.T) {
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, backend.RouteRefresh, r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req oauthmodel.RefreshRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "r1", req.RefreshToken)

		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "a2", "refresh_token": "r2"})
	}))

	resp, err := c.Refresh(context.Background(), "r1")
	require.NoError(t, err)
	require.NotNil(t, resp.AccessToken)
	assert.Equal(t, "a2", *resp.AccessToken)
	assert.Equal(t, "r2", *resp.RefreshToken)
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		kind   error
	}{
		{"forbidden", http.StatusForbidden, errors.ErrForbidden},
		{"server", http.StatusBadGateway, errors.ErrServer},
		{"teapot", http.StatusTeapot, errors.ErrServer},
		{"unauthorized", http.StatusUnauthorized, errors.ErrAuthentication},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			_, err := c.Session(context.Background())
			require.ErrorIs(t, err, tt.kind)
			assert.Equal(t, tt.status, errors.StatusCode(err))
		})
	}
}

func TestMalformedPayloadIsServerError(t *testing.T) {
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	}))

	_, err := c.Session(context.Background())
	require.ErrorIs(t, err, errors.ErrServer)
	require.ErrorIs(t, err, errors.ErrMalformedPayload)
}

func TestTransportFailureIsConnectivityError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := backend.New(url)
	require.NoError(t, err)

	_, err = c.Session(context.Background())
	require.ErrorIs(t, err, errors.ErrConnectivity)
	assert.Equal(t, 0, errors.StatusCode(err))
}

func TestLogoutSendsBearer(t *testing.T) {
	gotAuth := make(chan string, 1)
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth <- r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))

	require.NoError(t, c.Logout(context.Background(), "acc"))
	assert.Equal(t, "Bearer acc", <-gotAuth)
}
