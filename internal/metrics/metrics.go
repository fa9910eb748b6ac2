// Package metrics exposes Prometheus collectors for the HTTP layer and the
// bulk exchange engine. All methods are safe on a nil *Metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "popis"

// Metrics owns a private registry so tests and multiple routers never
// collide on the global one.
type Metrics struct {
	registry *prometheus.Registry

	requests  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	logins    *prometheus.CounterVec
	importRow *prometheus.CounterVec
	imports   *prometheus.CounterVec
	workbooks *prometheus.CounterVec
}

// New creates and registers all collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		logins: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_attempts_total",
			Help:      "Login attempts by result.",
		}, []string{"result"}),
		importRow: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_rows_total",
			Help:      "Spreadsheet rows written by imports, by kind and action.",
		}, []string{"kind", "action"}),
		imports: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "imports_total",
			Help:      "Spreadsheet imports by kind and outcome.",
		}, []string{"kind", "outcome"}),
		workbooks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workbooks_generated_total",
			Help:      "Workbooks generated, by kind.",
		}, []string{"kind"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRequest records one finished HTTP request. Route is the matched
// mux pattern, never the raw path.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, route).Observe(d.Seconds())
}

// LoginAttempt records a login by outcome.
func (m *Metrics) LoginAttempt(ok bool) {
	if m == nil {
		return
	}
	result := "failure"
	if ok {
		result = "success"
	}
	m.logins.WithLabelValues(result).Inc()
}

// ImportApplied records a committed import.
func (m *Metrics) ImportApplied(kind string, created, updated int) {
	if m == nil {
		return
	}
	m.imports.WithLabelValues(kind, "applied").Inc()
	m.importRow.WithLabelValues(kind, "created").Add(float64(created))
	m.importRow.WithLabelValues(kind, "updated").Add(float64(updated))
}

// ImportRejected records an import refused because of row errors.
func (m *Metrics) ImportRejected(kind string) {
	if m == nil {
		return
	}
	m.imports.WithLabelValues(kind, "rejected").Inc()
}

// ImportConflict records an import that lost a race with another import.
func (m *Metrics) ImportConflict(kind string) {
	if m == nil {
		return
	}
	m.imports.WithLabelValues(kind, "conflict").Inc()
}

// WorkbookGenerated records a generated template, export or report.
func (m *Metrics) WorkbookGenerated(kind string) {
	if m == nil {
		return
	}
	m.workbooks.WithLabelValues(kind).Inc()
}
