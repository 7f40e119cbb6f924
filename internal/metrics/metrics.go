// Package metrics registers the Prometheus instruments and exposes the
// /metrics handler.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	codesIssuedTotal      prometheus.Counter
	exchangesTotal        *prometheus.CounterVec
	consentDecisionsTotal *prometheus.CounterVec
	rotationsTotal        *prometheus.CounterVec
)

// Register initializes all instruments on the default registerer and
// returns the /metrics handler. Idempotent.
func Register() http.Handler {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Requests processed, by method, path and status.",
		}, []string{"method", "path", "status"})

		httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"})

		codesIssuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "oauth_codes_issued_total",
			Help: "Authorization codes minted.",
		})

		exchangesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oauth_token_exchanges_total",
			Help: "Token endpoint outcomes, by grant type and result.",
		}, []string{"grant_type", "result"})

		consentDecisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oauth_consent_decisions_total",
			Help: "Consent screen decisions.",
		}, []string{"action"})

		rotationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oauth_refresh_rotations_total",
			Help: "Refresh token rotations, by result.",
		}, []string{"result"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpRequestDuration,
			codesIssuedTotal,
			exchangesTotal,
			consentDecisionsTotal,
			rotationsTotal,
		)
	})
	return promhttp.Handler()
}

// ObserveRequest records one served request.
func ObserveRequest(method, path string, status int, elapsed time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// CodeIssued counts a minted authorization code.
func CodeIssued() {
	if codesIssuedTotal != nil {
		codesIssuedTotal.Inc()
	}
}

// Exchange counts a token endpoint outcome. result is "ok" or the OAuth
// error code.
func Exchange(grantType, result string) {
	if exchangesTotal != nil {
		exchangesTotal.WithLabelValues(grantType, result).Inc()
	}
}

// ConsentDecision counts an approve/deny.
func ConsentDecision(action string) {
	if consentDecisionsTotal != nil {
		consentDecisionsTotal.WithLabelValues(action).Inc()
	}
}

// Rotation counts a refresh rotation outcome.
func Rotation(result string) {
	if rotationsTotal != nil {
		rotationsTotal.WithLabelValues(result).Inc()
	}
}
