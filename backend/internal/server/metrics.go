package server

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics holds the Prometheus instruments exposed on /metrics. A private
// registry keeps process-global state out of tests.
type metrics struct {
	reg *prometheus.Registry

	httpRequests   *prometheus.CounterVec
	contactSubmits *prometheus.CounterVec
	sessionsTotal  *prometheus.CounterVec
	sessionsActive prometheus.Gauge
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &metrics{
		reg: reg,
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "folio_http_requests_total",
			Help: "HTTP requests served, by method and status code.",
		}, []string{"method", "status"}),
		contactSubmits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "folio_contact_submissions_total",
			Help: "Contact form submissions, by outcome.",
		}, []string{"outcome"}),
		sessionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "folio_script_sessions_total",
			Help: "Demo script sessions started, by script id.",
		}, []string{"script"}),
		sessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "folio_script_sessions_active",
			Help: "Demo script sessions currently running.",
		}),
	}
}

func (m *metrics) observeRequest(method string, status int) {
	m.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

func (m *metrics) observeContact(outcome string) {
	m.contactSubmits.WithLabelValues(outcome).Inc()
}

func (m *metrics) sessionStarted(script string) {
	m.sessionsTotal.WithLabelValues(script).Inc()
	m.sessionsActive.Inc()
}

func (m *metrics) sessionEnded() {
	m.sessionsActive.Dec()
}
