// Package metrics exposes Prometheus instrumentation for the API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Onboarding outcomes.
const (
	OutcomeCreated  = "created"
	OutcomeExisting = "existing"
	OutcomeFailed   = "failed"
)

// Metrics holds the registered collectors.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	OnboardingTotal     *prometheus.CounterVec
	AuthzDenialsTotal   *prometheus.CounterVec
	CleanupDeletedTotal prometheus.Counter

	Documents     *prometheus.GaugeVec
	TasksByStatus *prometheus.GaugeVec
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskhub_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "taskhub_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		OnboardingTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskhub_onboarding_total",
				Help: "Account provisioning attempts by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),
		AuthzDenialsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskhub_authz_denials_total",
				Help: "Requests rejected by the role guard or membership check",
			},
			[]string{"operation"},
		),
		CleanupDeletedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "taskhub_oauth_state_cleanup_deleted_total",
				Help: "Expired OAuth state tokens removed by the cleanup job",
			},
		),
		Documents: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "taskhub_documents",
				Help: "Documents per collection, refreshed by the stats job",
			},
			[]string{"collection"},
		),
		TasksByStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "taskhub_tasks_by_status",
				Help: "Tasks per status across all workspaces, refreshed by the stats job",
			},
			[]string{"status"},
		),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.OnboardingTotal,
		m.AuthzDenialsTotal,
		m.CleanupDeletedTotal,
		m.Documents,
		m.TasksByStatus,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}


// Onboarding records one provisioning outcome. Safe on a nil receiver.
func (m *Metrics) Onboarding(provider, outcome string) {
	if m == nil {
		return
	}
	m.OnboardingTotal.WithLabelValues(provider, outcome).Inc()
}

// Denied records an authorization denial. Safe on a nil receiver.
func (m *Metrics) Denied(operation string) {
	if m == nil {
		return
	}
	m.AuthzDenialsTotal.WithLabelValues(operation).Inc()
}

// CleanupDeleted adds n removed OAuth states. Safe on a nil receiver.
func (m *Metrics) CleanupDeleted(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.CleanupDeletedTotal.Add(float64(n))
}

// SetDocuments sets the per-collection document gauges. Safe on a nil
// receiver.
func (m *Metrics) SetDocuments(counts map[string]int64) {
	if m == nil {
		return
	}
	for coll, n := range counts {
		m.Documents.WithLabelValues(coll).Set(float64(n))
	}
}

// SetTasksByStatus sets one gauge per known status; statuses missing from
// counts are set to 0. Safe on a nil receiver.
func (m *Metrics) SetTasksByStatus(statuses []string, counts map[string]int64) {
	if m == nil {
		return
	}
	for _, st := range statuses {
		m.TasksByStatus.WithLabelValues(st).Set(float64(counts[st]))
	}
}

// Middleware records request counts and latency labelled by chi route
// pattern, so path parameters do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
