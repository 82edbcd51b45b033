package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/huangsam/pulse/schema"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of one server. Each server owns its
// registry so tests can build several servers in one process.
type Metrics struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	toggles  *prometheus.CounterVec
	events   *prometheus.CounterVec
	skipped  *prometheus.CounterVec
}

// NewMetrics creates and registers the pulse collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pulse",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pulse",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		toggles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pulse",
			Name:      "panel_toggles_total",
			Help:      "Panel toggles by category and resulting state.",
		}, []string{"category", "enabled"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pulse",
			Name:      "scored_events_total",
			Help:      "In-range events scored, by category.",
		}, []string{"category"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pulse",
			Name:      "skipped_records_total",
			Help:      "Raw records skipped by the normalizer, by reason.",
		}, []string{"reason"}),
	}
	m.registry.MustRegister(m.requests, m.latency, m.toggles, m.events, m.skipped)
	return m
}

// Handler serves the /metrics scrape endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency keyed by the chi route pattern.
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
		m.requests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.latency.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) observeToggle(c schema.Category, enabled bool) {
	m.toggles.WithLabelValues(string(c), strconv.FormatBool(enabled)).Inc()
}

func (m *Metrics) observeScores(scores []schema.CategoryScore) {
	for _, s := range scores {
		m.events.WithLabelValues(string(s.Category)).Add(float64(s.Count))
	}
}

func (m *Metrics) observeReport(report schema.NormalizeReport) {
	if report.Malformed > 0 {
		m.skipped.WithLabelValues("malformed").Add(float64(report.Malformed))
	}
	if report.UnknownCategory > 0 {
		m.skipped.WithLabelValues("unknown_category").Add(float64(report.UnknownCategory))
	}
}
