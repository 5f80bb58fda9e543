package services

import "github.com/prometheus/client_golang/prometheus"

// Outcome labels for summary_requests_total.
const (
	outcomeSuccess       = "success"
	outcomeMissingKey    = "missing_api_key"
	outcomeUpstreamError = "upstream_error"
	outcomeEmptyResponse = "empty_response"
	outcomeStorageError  = "storage_error"
)

var (
	// summaryRequests counts workflow runs by terminal outcome.
	summaryRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "summary_requests_total",
			Help: "Summarization requests by outcome.",
		},
		[]string{"outcome"},
	)

	// completionLatency observes the upstream call only, excluding storage.
	completionLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "summary_completion_duration_seconds",
			Help:    "Duration of chat-completion calls in seconds.",
			Buckets: []float64{.25, .5, 1, 2, 5, 10, 20, 40, 80},
		},
	)

	// completionTokens accumulates total_tokens reported by the upstream.
	completionTokens = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "summary_completion_tokens_total",
			Help: "Tokens reported by the completion API.",
		},
	)
)

func init() {
	prometheus.MustRegister(summaryRequests, completionLatency, completionTokens)
}
