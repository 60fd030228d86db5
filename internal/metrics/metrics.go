package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides observability for the session lifecycle and the share relay.
// Each instance owns its registry so several clients can live in one process.
type Metrics struct {
	registry *prometheus.Registry

	TokenRefreshes    *prometheus.CounterVec
	SessionChecks     *prometheus.CounterVec
	GatewayRequests   *prometheus.CounterVec
	GatewayRetries    prometheus.Counter
	SharedFilesStored prometheus.Counter
}

// New creates a new Metrics instance with all client metrics registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		TokenRefreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "synco_token_refreshes_total",
			Help: "Token refresh attempts by result",
		}, []string{"result"}),
		SessionChecks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "synco_session_checks_total",
			Help: "Session verification outcomes (network, cooldown, shared)",
		}, []string{"result"}),
		GatewayRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "synco_gateway_requests_total",
			Help: "Authenticated API calls by outcome",
		}, []string{"outcome"}),
		GatewayRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "synco_gateway_retries_total",
			Help: "Requests retried after a 401 and a forced refresh",
		}),
		SharedFilesStored: factory.NewCounter(prometheus.CounterOpts{
			Name: "synco_shared_files_stored_total",
			Help: "Files captured from the share target",
		}),
	}
}

// ObserveRefresh records a refresh attempt outcome ("ok" or "failed").
// Safe on a nil receiver.
func (m *Metrics) ObserveRefresh(result string) {
	if m == nil {
		return
	}
	m.TokenRefreshes.WithLabelValues(result).Inc()
}

// ObserveSessionCheck records a session check outcome.
func (m *Metrics) ObserveSessionCheck(result string) {
	if m == nil {
		return
	}
	m.SessionChecks.WithLabelValues(result).Inc()
}

// ObserveGateway records the outcome of an authenticated call.
func (m *Metrics) ObserveGateway(outcome string) {
	if m == nil {
		return
	}
	m.GatewayRequests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementRetry() {
	if m == nil {
		return
	}
	m.GatewayRetries.Inc()
}

func (m *Metrics) IncrementSharedFile() {
	if m == nil {
		return
	}
	m.SharedFilesStored.Inc()
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
