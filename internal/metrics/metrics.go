package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tutorhive"

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Current number of HTTP requests being processed",
		},
	)
)

// Ledger metrics
var (
	CreditsDebited = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credits_debited_total",
			Help:      "Total credits debited from parent accounts",
		},
	)

	CreditsCredited = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credits_credited_total",
			Help:      "Total credits credited to parent accounts",
		},
	)

	InsufficientFundsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "insufficient_funds_total",
			Help:      "Total debit attempts rejected for insufficient balance",
		},
	)
)

// Session lifecycle metrics
var (
	SessionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_created_total",
			Help:      "Total tutoring sessions requested",
		},
	)

	SessionTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_transitions_total",
			Help:      "Total session lifecycle transitions by target status",
		},
		[]string{"to"},
	)

	ReviewsSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reviews_submitted_total",
			Help:      "Total session reviews submitted",
		},
	)
)

// Payment fulfillment metrics
var (
	PaymentsFulfilled = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_fulfilled_total",
			Help:      "Total payment confirmations fulfilled (credited)",
		},
	)

	PaymentsDuplicate = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_duplicate_total",
			Help:      "Total payment confirmations skipped as already processed",
		},
	)
)

// Quota gate metrics
var (
	QuotaChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_checks_total",
			Help:      "Total quota checks by feature kind and outcome",
		},
		[]string{"feature", "outcome"},
	)
)
