// Package metrics holds the Prometheus instruments for the application.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	RegistrationsTotal     *prometheus.CounterVec
	CapacityRejections     *prometheus.CounterVec
	DuplicateRejections    *prometheus.CounterVec
	AuditRecordsWritten    prometheus.Counter
	AuditRecordsDropped    prometheus.Counter
	AuditWriteFailures     prometheus.Counter
	NotificationsEmitted   prometheus.Counter
	RequestDuration        *prometheus.HistogramVec
	AuthorizationDenials   *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics on the given registerer.
// Pass prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RegistrationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "communityhub_registrations_total",
			Help: "Registrations admitted, by subject kind and outcome.",
		}, []string{"kind", "outcome"}),
		CapacityRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "communityhub_capacity_rejections_total",
			Help: "Registration attempts rejected because the subject was full.",
		}, []string{"kind"}),
		DuplicateRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "communityhub_duplicate_rejections_total",
			Help: "Registration attempts rejected as duplicates.",
		}, []string{"kind"}),
		AuditRecordsWritten: factory.NewCounter(prometheus.CounterOpts{
			Name: "communityhub_audit_records_written_total",
			Help: "Audit records durably appended.",
		}),
		AuditRecordsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "communityhub_audit_records_dropped_total",
			Help: "Audit records dropped because the recorder queue was full.",
		}),
		AuditWriteFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "communityhub_audit_write_failures_total",
			Help: "Audit store append failures (contained, never propagated).",
		}),
		NotificationsEmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "communityhub_notifications_emitted_total",
			Help: "Best-effort notifications emitted after state transitions.",
		}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "communityhub_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status class.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
		AuthorizationDenials: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "communityhub_authorization_denials_total",
			Help: "Requests denied by the authorization matrix, by action and kind.",
		}, []string{"action", "kind"}),
	}
}
