package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PaymentRequestsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pix_payment_requests_created_total",
		Help: "PIX payment requests created.",
	})

	PaymentTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pix_payment_transitions_total",
		Help: "Committed PIX payment state transitions by target state.",
	}, []string{"to_state"})

	ConfirmationsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pix_confirmations_rejected_total",
		Help: "Rejected confirmation attempts by reason.",
	}, []string{"reason"})

	NotificationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pix_notification_failures_total",
		Help: "Payment confirmation notifications that failed to dispatch.",
	})

	Compensations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pix_confirmation_compensations_total",
		Help: "Compensating actions taken after a rolled back confirmation.",
	}, []string{"outcome"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pix_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)
