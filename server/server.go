package server

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/fatih/color"
	"github.com/jrsteele09/synco-portal/auth"
	"github.com/jrsteele09/synco-portal/internal/config"
	"github.com/jrsteele09/synco-portal/internal/metrics"
	"github.com/jrsteele09/synco-portal/messages"
	"github.com/jrsteele09/synco-portal/portal"
	"github.com/jrsteele09/synco-portal/share"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Dependencies are the components the companion server exposes
type Dependencies struct {
	Auth    *auth.Service
	Portal  *portal.Client
	Relay   *share.Relay
	Intake  *share.Intake
	Hub     *messages.Hub
	Metrics *metrics.Metrics
}

type Server struct {
	env          string // Environment (e.g., "DEV", "PROD")
	mux          *http.ServeMux
	routes       []string
	config       config.Config
	paymentRoute string

	auth    *auth.Service
	portal  *portal.Client
	relay   *share.Relay
	intake  *share.Intake
	hub     *messages.Hub
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

func New(cfg config.Config, deps Dependencies) (*Server, error) {
	if deps.Auth == nil {
		return nil, fmt.Errorf("[Server New] auth service is required")
	}
	if deps.Portal == nil {
		return nil, fmt.Errorf("[Server New] portal client is required")
	}
	if deps.Relay == nil || deps.Intake == nil {
		return nil, fmt.Errorf("[Server New] share relay and intake are required")
	}
	if deps.Hub == nil {
		return nil, fmt.Errorf("[Server New] message hub is required")
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}

	s := &Server{
		env:          cfg.GetEnv(),
		mux:          http.NewServeMux(),
		config:       cfg,
		paymentRoute: cfg.GetSharePaymentRoute(),
		auth:         deps.Auth,
		portal:       deps.Portal,
		relay:        deps.Relay,
		intake:       deps.Intake,
		hub:          deps.Hub,
		metrics:      deps.Metrics,
		logger:       log.With().Str("component", "server").Logger(),
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

// Routes lists the registered patterns in registration order
func (s *Server) Routes() []string {
	return append([]string(nil), s.routes...)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			s.logRoute(parts[0], parts[1])
		} else {
			s.logRoute("", parts[0])
		}
	}
}

var methodColors = map[string]*color.Color{
	http.MethodGet:    color.New(color.FgGreen),
	http.MethodPost:   color.New(color.FgBlue),
	http.MethodPut:    color.New(color.FgCyan),
	http.MethodDelete: color.New(color.FgYellow),
	http.MethodPatch:  color.New(color.FgMagenta),
}

func (s *Server) logRoute(method, path string) {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	c, ok := methodColors[method]
	if !ok {
		c = color.New(color.FgHiBlack)
	}
	s.logger.Info().Msgf("[%s] %s", c.Sprint(paddedMethod), path)
}

// originPatterns turns the allowed origins into host patterns for the
// websocket origin check
func (s *Server) originPatterns() []string {
	var patterns []string
	for origin := range s.config.GetAllowedOrigins() {
		u, err := url.Parse(origin)
		if err != nil || u.Host == "" {
			continue
		}
		patterns = append(patterns, u.Host)
	}
	return patterns
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
