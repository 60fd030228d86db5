package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/synco-portal/internal/errors"
	"github.com/jrsteele09/synco-portal/oauthmodel"
)

// Auth endpoint paths on the portal backend
const (
	RouteSession      = "/auth/session"
	RouteCheckSession = "/auth/check-session"
	RouteSilent       = "/auth/google/silent"
	RouteLogin        = "/auth/google/login"
	RouteLogout       = "/auth/logout"
	RouteRefresh      = "/auth/refresh"
)

// Client talks to the portal backend. Every request carries the client's
// cookies, the equivalent of a browser fetch with credentials included.
type Client struct {
	baseURL     *url.URL
	http        *http.Client
	jar         *resettableJar
	cookieNames []string
}

type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client. Its Jar is replaced
// by the client's own resettable jar.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = timeout
	}
}

// WithSessionCookieNames sets the cookie names used by MayHaveSession
func WithSessionCookieNames(names ...string) Option {
	return func(c *Client) {
		c.cookieNames = names
	}
}

func New(baseURL string, options ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("[backend New] invalid base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("[backend New] base URL must be absolute: %q", baseURL)
	}

	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: 15 * time.Second},
		jar:     newResettableJar(),
	}
	for _, opt := range options {
		opt(c)
	}
	c.http.Jar = c.jar
	return c, nil
}

// URL resolves path (and optional query) against the backend base URL
func (c *Client) URL(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(c.baseURL.Path, "/") + "/" + strings.TrimLeft(path, "/")
	u.RawQuery = ""
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// Do sends req with the client's cookies. A transport failure is returned
// as ErrConnectivity; HTTP statuses are left to the caller.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrConnectivity, err)
	}
	return resp, nil
}

// Session queries the cookie-credentialed session endpoint
func (c *Client) Session(ctx context.Context) (*oauthmodel.SessionResponse, error) {
	var out oauthmodel.SessionResponse
	if err := c.doJSON(ctx, http.MethodGet, c.URL(RouteSession, nil), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CheckSession validates the session with a refresh token
func (c *Client) CheckSession(ctx context.Context, refreshToken string) (*oauthmodel.SessionResponse, error) {
	var out oauthmodel.SessionResponse
	body := oauthmodel.RefreshRequest{RefreshToken: refreshToken}
	if err := c.doJSON(ctx, http.MethodPost, c.URL(RouteCheckSession, nil), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Silent asks the backend to re-establish the session for a remembered email
// without any interactive prompt. Success means the session cookie is set.
func (c *Client) Silent(ctx context.Context, email string) error {
	q := url.Values{"email": []string{email}}
	return c.doJSON(ctx, http.MethodGet, c.URL(RouteSilent, q), nil, nil)
}

// Refresh exchanges a refresh token for a new token pair
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*oauthmodel.TokenResponse, error) {
	var out oauthmodel.TokenResponse
	body := oauthmodel.RefreshRequest{RefreshToken: refreshToken}
	if err := c.doJSON(ctx, http.MethodPost, c.URL(RouteRefresh, nil), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout invalidates the session cookie server-side. accessToken may be empty.
func (c *Client) Logout(ctx context.Context, accessToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(RouteLogout, nil), nil)
	if err != nil {
		return fmt.Errorf("building logout request: %w", err)
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return checkStatus(resp)
}

// LoginURL is the redirect target for interactive Google login
func (c *Client) LoginURL(selectAccount bool) string {
	var q url.Values
	if selectAccount {
		q = url.Values{"prompt": []string{"select_account"}}
	}
	return c.URL(RouteLogin, q)
}

// ResetCookies drops every cookie the client holds
func (c *Client) ResetCookies() {
	c.jar.Reset()
}

// MayHaveSession reports whether a cookie with one of the known session
// names is present. This is a hint only; the backend is the authority.
func (c *Client) MayHaveSession() bool {
	for _, cookie := range c.jar.Cookies(c.baseURL) {
		for _, name := range c.cookieNames {
			if strings.Contains(cookie.Name, name) {
				return true
			}
		}
	}
	return false
}

func (c *Client) doJSON(ctx context.Context, method, target string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %w: %v", errors.ErrServer, errors.ErrMalformedPayload, err)
	}
	return nil
}

// checkStatus returns a classified StatusError for any non-2xx response
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return errors.NewStatusError(resp.StatusCode, body)
}

// resettableJar lets the client drop all cookies while requests are in flight
type resettableJar struct {
	mu  sync.RWMutex
	jar http.CookieJar
}

func newResettableJar() *resettableJar {
	j, _ := cookiejar.New(nil) // only fails for a bad PublicSuffixList
	return &resettableJar{jar: j}
}

func (r *resettableJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	r.jar.SetCookies(u, cookies)
}

func (r *resettableJar) Cookies(u *url.URL) []*http.Cookie {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.jar.Cookies(u)
}

func (r *resettableJar) Reset() {
	j, _ := cookiejar.New(nil)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jar = j
}
