package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/jrsteele09/synco-portal/backend"
	"github.com/jrsteele09/synco-portal/internal/errors"
	"github.com/jrsteele09/synco-portal/internal/metrics"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultMaxResponseBytes = 10 << 20

// Authenticator supplies tokens and tears the session down when the
// backend keeps refusing them
type Authenticator interface {
	GetAuthToken(ctx context.Context) (string, error)
	RefreshAccessToken(ctx context.Context) (string, error)
	Logout(ctx context.Context) error
}

// Options describes one API call. Body is kept as bytes so the request
// can be sent again after a token refresh.
type Options struct {
	Method      string
	Header      http.Header
	Query       url.Values
	Body        []byte
	ContentType string
}

// Response is a fully read 2xx response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// DecodeJSON unmarshals the body into v
func (r *Response) DecodeJSON(v any) error {
	if len(r.Body) == 0 {
		return fmt.Errorf("%w: %w: empty body", errors.ErrServer, errors.ErrMalformedPayload)
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("%w: %w: %v", errors.ErrServer, errors.ErrMalformedPayload, err)
	}
	return nil
}

// Gateway performs authenticated API calls. A 401 triggers exactly one
// token refresh and one retry; a request is never sent more than twice.
type Gateway struct {
	backend *backend.Client
	auth    Authenticator

	maxResponseBytes int64
	logger           zerolog.Logger
	metrics          *metrics.Metrics
}

type Option func(*Gateway)

func WithLogger(logger zerolog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gateway) {
		g.metrics = m
	}
}

// WithMaxResponseBytes caps how much of a response body is read
func WithMaxResponseBytes(n int64) Option {
	return func(g *Gateway) {
		g.maxResponseBytes = n
	}
}

func New(client *backend.Client, auth Authenticator, options ...Option) (*Gateway, error) {
	if client == nil {
		return nil, errors.New("[gateway New] backend client is required")
	}
	if auth == nil {
		return nil, errors.New("[gateway New] authenticator is required")
	}

	g := &Gateway{
		backend:          client,
		auth:             auth,
		maxResponseBytes: defaultMaxResponseBytes,
		logger:           log.Logger,
	}
	for _, opt := range options {
		opt(g)
	}
	return g, nil
}

// Call sends opts to endpoint, a path relative to the backend base URL.
//
// Errors: ErrConnectivity when no response arrived, ErrAuthentication when
// the backend refused the session twice (the user is logged out),
// ErrForbidden on 403, and ErrServer (as *errors.StatusError) for any other
// non-2xx status.
func (g *Gateway) Call(ctx context.Context, endpoint string, opts Options) (*Response, error) {
	accessToken, err := g.auth.GetAuthToken(ctx)
	if err != nil {
		g.logger.Debug().Err(err).Str("endpoint", endpoint).Msg("no access token, sending with cookies only")
		accessToken = ""
	}

	resp, err := g.send(ctx, endpoint, opts, accessToken)
	if err != nil {
		g.metrics.ObserveGateway("connectivity")
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		g.metrics.IncrementRetry()
		g.logger.Debug().Str("endpoint", endpoint).Msg("unauthorized, refreshing token and retrying")

		accessToken, err = g.auth.RefreshAccessToken(ctx)
		if err != nil {
			g.metrics.ObserveGateway("unauthorized")
			return nil, fmt.Errorf("%s %s: %w", method(opts), endpoint, err)
		}

		resp, err = g.send(ctx, endpoint, opts, accessToken)
		if err != nil {
			g.metrics.ObserveGateway("connectivity")
			return nil, err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			g.metrics.ObserveGateway("unauthorized")
			if err := g.auth.Logout(ctx); err != nil {
				g.logger.Error().Err(err).Msg("logout after repeated 401")
			}
			return nil, fmt.Errorf("%s %s: %w", method(opts), endpoint, errors.NewStatusError(resp.StatusCode, resp.Body))
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := errors.NewStatusError(resp.StatusCode, resp.Body)
		g.metrics.ObserveGateway(outcome(statusErr))
		return nil, fmt.Errorf("%s %s: %w", method(opts), endpoint, statusErr)
	}

	g.metrics.ObserveGateway("ok")
	return resp, nil
}

func (g *Gateway) send(ctx context.Context, endpoint string, opts Options, accessToken string) (*Response, error) {
	var body io.Reader
	if opts.Body != nil {
		body = bytes.NewReader(opts.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method(opts), g.backend.URL(endpoint, opts.Query), body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	for key, values := range opts.Header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if opts.ContentType != "" {
		req.Header.Set("Content-Type", opts.ContentType)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	httpResp, err := g.backend.Do(req)
	if err != nil {
		g.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("request failed")
		return nil, err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, g.maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", errors.ErrConnectivity, err)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
	}, nil
}

func method(opts Options) string {
	if opts.Method == "" {
		return http.MethodGet
	}
	return opts.Method
}

func outcome(err *errors.StatusError) string {
	switch {
	case errors.Is(err, errors.ErrForbidden):
		return "forbidden"
	case err.StatusCode >= 500:
		return "server"
	default:
		return "client"
	}
}
