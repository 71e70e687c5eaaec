package metric

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "statehttpd"

// Registry holds all application metrics.
type Registry struct {
	reg *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	SessionsActive  prometheus.Gauge
	SessionsCreated prometheus.Counter
	AuthFailures    *prometheus.CounterVec
	HandlerPanics   prometheus.Counter
}

// NewRegistry creates a registry with the process and Go collectors
// plus the application metrics.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by dispatch route, method and status.",
		}, []string{"route", "method", "code"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Time from request start to completion.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "sessions",
			Name:      "active",
			Help:      "Sessions held in the session store.",
		}),
		SessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "sessions",
			Name:      "created_total",
			Help:      "Sessions issued since start.",
		}),
		AuthFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "auth",
			Name:      "failures_total",
			Help:      "Rejected authentication attempts by reason.",
		}, []string{"reason"}),
		HandlerPanics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "handler_panics_total",
			Help:      "Endpoint panics recovered at the dispatch boundary.",
		}),
	}

	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.RequestsTotal,
		r.RequestDuration,
		r.SessionsActive,
		r.SessionsCreated,
		r.AuthFailures,
		r.HandlerPanics,
	)
	return r
}

// MustRegister adds extra collectors, e.g. storage engine gauges.
func (r *Registry) MustRegister(cs ...prometheus.Collector) {
	r.reg.MustRegister(cs...)
}

// Gatherer exposes the underlying registry for tests and handlers.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// ObserveRequest records one completed request.
func (r *Registry) ObserveRequest(route, method string, code int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.RequestsTotal.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	r.RequestDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// SetSessions updates the active session gauge.
func (r *Registry) SetSessions(n int) {
	if r == nil {
		return
	}
	r.SessionsActive.Set(float64(n))
}

// SessionCreated counts an issued session.
func (r *Registry) SessionCreated() {
	if r == nil {
		return
	}
	r.SessionsCreated.Inc()
}

// HandlerPanicked counts a recovered endpoint panic.
func (r *Registry) HandlerPanicked() {
	if r == nil {
		return
	}
	r.HandlerPanics.Inc()
}

// AuthFailed counts a rejected authentication.
func (r *Registry) AuthFailed(reason string) {
	if r == nil {
		return
	}
	r.AuthFailures.WithLabelValues(reason).Inc()
}

// Handler returns the exposition handler for this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}
