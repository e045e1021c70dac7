package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dgellow/login-front/internal/idp"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors. Each instance has its
// own registry so several servers can live in one process.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	loginRedirectsTotal *prometheus.CounterVec
	facebookResults     *prometheus.CounterVec
	facebookFailures    *prometheus.CounterVec
}

// NewMetrics creates and registers all collectors
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "login_front_http_requests_total",
			Help: "HTTP requests handled, by route and status",
		}, []string{"method", "route", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "login_front_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		loginRedirectsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "login_front_login_redirects_total",
			Help: "Logins sent to an identity provider",
		}, []string{"provider"}),
		facebookResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "login_front_facebook_results_total",
			Help: "Completed Facebook login attempts, by result",
		}, []string{"result"}), // result: connected|not_connected
		facebookFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "login_front_facebook_completion_failures_total",
			Help: "Facebook dialog returns that matched no pending attempt",
		}, []string{"reason"}),
	}

	m.registry.MustRegister(
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.loginRedirectsTotal,
		m.facebookResults,
		m.facebookFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveLoginRedirect counts a login sent to provider
func (m *Metrics) ObserveLoginRedirect(provider idp.Provider) {
	m.loginRedirectsTotal.WithLabelValues(provider.String()).Inc()
}

// ObserveFacebookResult counts a completed Facebook attempt. It has the
// signature idp.WithFacebookObserver expects.
func (m *Metrics) ObserveFacebookResult(result idp.FacebookResult) {
	label := "not_connected"
	if result.Connected {
		label = "connected"
	}
	m.facebookResults.WithLabelValues(label).Inc()
}

// ObserveFacebookFailure counts a dialog return that could not be completed
func (m *Metrics) ObserveFacebookFailure(reason string) {
	m.facebookFailures.WithLabelValues(reason).Inc()
}

// NewMetricsMiddleware records request count and latency per route pattern
func NewMetricsMiddleware(m *Metrics) MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := wrapResponseWriter(w)

			next.ServeHTTP(wrapped, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			m.httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.Status())).Inc()
			m.httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}
