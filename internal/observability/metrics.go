package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the service's prometheus collectors. A nil *Metrics is a
// valid no-op recorder.
type Metrics struct {
	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	errors      *prometheus.CounterVec
	assignments *prometheus.CounterVec
	cascades    prometheus.Counter
	reconciled  prometheus.Counter
	cache       *prometheus.CounterVec
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "livechat_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"path", "method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "livechat_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "livechat_http_errors_total",
			Help: "HTTP error responses by error code.",
		}, []string{"path", "method", "code"}),
		assignments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "livechat_department_assignments_total",
			Help: "Agent department assignments added or removed.",
		}, []string{"op"}),
		cascades: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "livechat_department_enabled_cascades_total",
			Help: "Department enabled flag changes propagated to assignments.",
		}),
		reconciled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "livechat_department_num_agents_corrections_total",
			Help: "Departments whose numAgents was rewritten by the reconcile worker.",
		}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "livechat_department_cache_lookups_total",
			Help: "Department cache lookups by result.",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.duration, m.errors, m.assignments, m.cascades, m.reconciled, m.cache)
	}
	return m
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(path, method, code).Inc()
}

// RecordAssignments counts roster changes made by one save.
func (m *Metrics) RecordAssignments(added, removed int) {
	if m == nil {
		return
	}
	m.assignments.WithLabelValues("added").Add(float64(added))
	m.assignments.WithLabelValues("removed").Add(float64(removed))
}

// RecordCascade counts one enabled-flag propagation.
func (m *Metrics) RecordCascade() {
	if m == nil {
		return
	}
	m.cascades.Inc()
}

// RecordReconciled counts departments corrected by a reconcile pass.
func (m *Metrics) RecordReconciled(n int) {
	if m == nil {
		return
	}
	m.reconciled.Add(float64(n))
}

// RecordCacheLookup counts a department cache hit or miss.
func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cache.WithLabelValues(result).Inc()
}
