// Package metrics exposes Prometheus metrics for scoring and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mind-engage/mindengage-norms/internal/instrument"
)

// Manager owns the service metrics on its own registry. It satisfies the
// scoring engine's Observer.
type Manager struct {
	namespace string
	buckets   []float64
	enabled   bool
	registry  *prometheus.Registry

	scoringRequests *prometheus.CounterVec
	scoringDuration *prometheus.HistogramVec
	resolutionMiss  *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	tablesPopulated *prometheus.CounterVec
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "norms",
		buckets:   prometheus.DefBuckets,
		enabled:   true,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}
	m.init()
	return m
}

func (m *Manager) init() {
	auto := promauto.With(m.registry)

	m.scoringRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "scoring_requests_total",
		Help:      "Scoring requests by instrument and outcome (ok, degraded, invalid).",
	}, []string{"instrument", "outcome"})

	m.scoringDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "scoring_duration_seconds",
		Help:      "Scoring latency including table resolution and row reads.",
		Buckets:   m.buckets,
	}, []string{"instrument"})

	m.resolutionMiss = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "resolution_misses_total",
		Help:      "Subscales or requests that fell back to a sentinel classification.",
	}, []string{"instrument", "reason"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route pattern, method and status code.",
	}, []string{"route", "method", "status"})

	m.httpDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route pattern.",
		Buckets:   m.buckets,
	}, []string{"route", "method"})

	m.tablesPopulated = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "tables_populated_total",
		Help:      "Normative tables upserted by the population routine.",
	}, []string{"instrument"})
}

// Registry returns the registry the metrics live on.
func (m *Manager) Registry() *prometheus.Registry { return m.registry }

func (m *Manager) ObserveScore(t instrument.Type, outcome string, d time.Duration) {
	if !m.enabled {
		return
	}
	m.scoringRequests.WithLabelValues(string(t), outcome).Inc()
	m.scoringDuration.WithLabelValues(string(t)).Observe(d.Seconds())
}

func (m *Manager) ResolutionMiss(t instrument.Type, reason string) {
	if !m.enabled {
		return
	}
	m.resolutionMiss.WithLabelValues(string(t), reason).Inc()
}

func (m *Manager) TablePopulated(t instrument.Type) {
	if !m.enabled {
		return
	}
	m.tablesPopulated.WithLabelValues(string(t)).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency keyed by the chi route
// pattern, so path parameters do not explode label cardinality.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.enabled {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
