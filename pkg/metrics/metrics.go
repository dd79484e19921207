// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// EligibilityChecksTotal tracks eligibility evaluations by outcome.
	EligibilityChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_eligibility_checks_total",
			Help: "Eligibility evaluations by resulting status",
		},
		[]string{"status"},
	)

	// ComposeRecipientsTotal tracks compose recipients by outcome.
	ComposeRecipientsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_compose_recipients_total",
			Help: "Compose recipients by outcome (sent, skipped, failed)",
		},
		[]string{"outcome"},
	)

	// MessagesTotal tracks persisted thread messages.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_messages_total",
			Help: "Total thread messages persisted",
		},
		[]string{"brand_id", "direction"},
	)

	// ThreadsTotal tracks threads created.
	ThreadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_threads_total",
			Help: "Total threads created",
		},
		[]string{"brand_id"},
	)

	// DraftDuration tracks LLM draft generation duration.
	DraftDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "outreach_draft_duration_seconds",
			Help:    "Draft assistant generation duration",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 45, 60},
		},
		[]string{"model", "status"},
	)

	// DraftTokensTotal tracks LLM tokens used by the draft assistant.
	DraftTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_draft_tokens_total",
			Help: "Draft assistant tokens processed",
		},
		[]string{"model", "direction"},
	)

	// RelayDispatchesTotal tracks deliveries queued for the email relay.
	RelayDispatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_relay_dispatches_total",
			Help: "Email deliveries queued for the relay",
		},
		[]string{"status"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordEligibility records one eligibility evaluation outcome.
func RecordEligibility(status string) {
	EligibilityChecksTotal.WithLabelValues(status).Inc()
}

// RecordDraft records metrics for one draft assistant call.
func RecordDraft(model, status string, duration float64, tokensIn, tokensOut int) {
	DraftDuration.WithLabelValues(model, status).Observe(duration)
	DraftTokensTotal.WithLabelValues(model, "in").Add(float64(tokensIn))
	DraftTokensTotal.WithLabelValues(model, "out").Add(float64(tokensOut))
}
