package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records login attempts by result (success|invalid_credentials|not_approved|unconfirmed|error).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lms_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// AccessChecks counts capability evaluations and their outcome (allow|deny).
	AccessChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lms_access_checks_total",
			Help: "Total number of role capability checks",
		},
		[]string{"requirement", "result"},
	)

	// Registrations counts signups by requested role and outcome.
	Registrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lms_registrations_total",
			Help: "Total number of registration attempts",
		},
		[]string{"role", "result"},
	)

	// ApprovalDecisions counts instructor request decisions (approved|rejected).
	ApprovalDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lms_approval_decisions_total",
			Help: "Total number of instructor approval decisions",
		},
		[]string{"outcome"},
	)

	// Notifications counts outbound notifications by kind and result (sent|failed|skipped|dropped).
	Notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lms_notifications_total",
			Help: "Total number of notifications handled",
		},
		[]string{"kind", "result"},
	)

	// NotificationQueueDepth tracks notifications waiting for a worker.
	NotificationQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lms_notification_queue_depth",
			Help: "Number of notifications waiting to be delivered",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lms_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
