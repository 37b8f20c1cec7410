// Package metrics exposes Prometheus counters for imports, stage transitions
// and HTTP traffic.
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

	"github.com/JonMunkholm/leadpipe/internal/core"
)

// Metrics holds the collectors. It implements core.Observer.
type Metrics struct {
	gatherer prometheus.Gatherer

	imports        *prometheus.CounterVec
	rowsInserted   *prometheus.CounterVec
	rowsRejected   *prometheus.CounterVec
	importDuration *prometheus.HistogramVec
	transitions    *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

var _ core.Observer = (*Metrics)(nil)

// New registers the collectors with reg.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		gatherer: reg,
		imports: f.NewCounterVec(prometheus.CounterOpts{
			Name: "leadpipe_imports_total",
			Help: "Imports by file format and result code (ok on success).",
		}, []string{"format", "result"}),
		rowsInserted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "leadpipe_import_rows_inserted_total",
			Help: "Leads inserted by imports.",
		}, []string{"format"}),
		rowsRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "leadpipe_import_rows_rejected_total",
			Help: "Rows skipped by imports.",
		}, []string{"format"}),
		importDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "leadpipe_import_duration_seconds",
			Help:    "Duration of successful imports.",
			Buckets: prometheus.DefBuckets,
		}, []string{"format"}),
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "leadpipe_stage_transitions_total",
			Help: "Resolved drag ends by source stage, target stage and outcome.",
		}, []string{"from", "to", "outcome"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// ImportFinished records one import.
func (m *Metrics) ImportFinished(format core.Format, result *core.ImportResult, err error) {
	f := string(format)
	if f == "" {
		f = "unknown"
	}
	if err != nil {
		m.imports.WithLabelValues(f, core.MapError(err).Code).Inc()
		return
	}
	m.imports.WithLabelValues(f, "ok").Inc()
	if result != nil {
		m.rowsInserted.WithLabelValues(f).Add(float64(result.Inserted))
		m.rowsRejected.WithLabelValues(f).Add(float64(len(result.Rejected)))
		m.importDuration.WithLabelValues(f).Observe(result.Duration.Seconds())
	}
}

// TransitionFinished records one drag end.
func (m *Metrics) TransitionFinished(from, to core.Stage, outcome core.Outcome) {
	m.transitions.WithLabelValues(string(from), string(to), string(outcome)).Inc()
}

// TrackLimiter exports the import limiter's occupancy as gauges.
func TrackLimiter(reg prometheus.Registerer, l *core.ImportLimiter) {
	f := promauto.With(reg)
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "leadpipe_imports_active",
		Help: "Imports currently holding a slot.",
	}, func() float64 { return float64(l.Active()) })
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "leadpipe_import_slots_available",
		Help: "Free import slots.",
	}, func() float64 { return float64(l.Available()) })
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Middleware counts requests by chi route pattern so ids in the path do not
// explode the label space.
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
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
