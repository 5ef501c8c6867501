// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	Registry      *prometheus.Registry
	CheckIns      *prometheus.CounterVec
	Registrations *prometheus.CounterVec
	HTTPDuration  *prometheus.HistogramVec
}

// New registers the application collectors plus the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		CheckIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tixora_checkins_total",
			Help: "Check-in attempts by outcome.",
		}, []string{"status"}),
		Registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tixora_registrations_total",
			Help: "Registration attempts by outcome.",
		}, []string{"outcome"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tixora_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	m.Registry.MustRegister(
		m.CheckIns,
		m.Registrations,
		m.HTTPDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// CheckIn counts one check-in outcome. A nil receiver is a no-op.
func (m *Metrics) CheckIn(status string) {
	if m == nil {
		return
	}
	m.CheckIns.WithLabelValues(status).Inc()
}

// CheckInN counts n check-ins with the same outcome, as produced by a bulk check-in.
func (m *Metrics) CheckInN(status string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.CheckIns.WithLabelValues(status).Add(float64(n))
}

// Registration counts one registration outcome. A nil receiver is a no-op.
func (m *Metrics) Registration(outcome string) {
	if m == nil {
		return
	}
	m.Registrations.WithLabelValues(outcome).Inc()
}
