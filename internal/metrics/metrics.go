// Package metrics holds the Prometheus collectors for the submission pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "contact"

// Metrics groups the pipeline collectors.
type Metrics struct {
	Submissions         *prometheus.CounterVec
	NotificationSeconds *prometheus.HistogramVec
	CounterStoreErrors  prometheus.Counter
	AuditErrors         prometheus.Counter
	HTTPRequests        *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Contact form submissions by pipeline outcome.",
		}, []string{"outcome"}),
		NotificationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "notification_duration_seconds",
			Help:      "Time spent handing a notification to the mail transport.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"result"}),
		CounterStoreErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "counter_store_errors_total",
			Help:      "Rate limit store failures (requests were allowed).",
		}),
		AuditErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_errors_total",
			Help:      "Audit sink write failures.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status code.",
		}, []string{"route", "method", "code"}),
	}

	reg.MustRegister(
		m.Submissions,
		m.NotificationSeconds,
		m.CounterStoreErrors,
		m.AuditErrors,
		m.HTTPRequests,
	)
	return m
}

// ObserveSubmission counts one pipeline outcome.
func (m *Metrics) ObserveSubmission(outcome string) {
	m.Submissions.WithLabelValues(outcome).Inc()
}

// ObserveNotification records the duration of a notifier call.
func (m *Metrics) ObserveNotification(d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.NotificationSeconds.WithLabelValues(result).Observe(d.Seconds())
}

// CounterStoreFailed counts a rate limit store failure.
func (m *Metrics) CounterStoreFailed() {
	m.CounterStoreErrors.Inc()
}

// AuditFailed counts an audit sink failure.
func (m *Metrics) AuditFailed() {
	m.AuditErrors.Inc()
}
