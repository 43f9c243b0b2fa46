package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the suite's Prometheus metrics on a private registry so
// tests can build as many collectors as they like without duplicate
// registration panics.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics, driven by middleware.
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Record-keeping metrics, counted off the domain event stream.
	IntentTransitions   *prometheus.CounterVec
	DecisionsCommitted  prometheus.Counter
	DecisionsSuperseded prometheus.Counter
	ProposalsSubmitted  *prometheus.CounterVec
	ProposalsReviewed   *prometheus.CounterVec

	// Graph edges raise no events; the REST handler counts them.
	EdgesCreated prometheus.Counter

	// AI metrics, driven by the extraction endpoint.
	ExtractionRuns     *prometheus.CounterVec
	CompletionDuration prometheus.Histogram
}

// NewCollector creates and registers all suite metrics under the given
// namespace.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	intentTransitions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intent_transitions_total",
			Help:      "Total number of intent lifecycle transitions",
		},
		[]string{"from", "to"},
	)

	decisionsCommitted := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_committed_total",
			Help:      "Total number of decisions committed to the ledger",
		},
	)

	decisionsSuperseded := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_superseded_total",
			Help:      "Total number of decisions superseded by a replacement",
		},
	)

	proposalsSubmitted := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proposals_submitted_total",
			Help:      "Total number of AI proposals submitted for review",
		},
		[]string{"type"},
	)

	proposalsReviewed := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proposals_reviewed_total",
			Help:      "Total number of proposals resolved by a reviewer",
		},
		[]string{"outcome"},
	)

	edgesCreated := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "edges_created_total",
			Help:      "Total number of knowledge graph edges created",
		},
	)

	extractionRuns := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extraction_runs_total",
			Help:      "Total number of extraction runs",
		},
		[]string{"status"},
	)

	completionDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "completion_duration_seconds",
			Help:      "Model completion duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	registry.MustRegister(
		httpRequests,
		httpDuration,
		intentTransitions,
		decisionsCommitted,
		decisionsSuperseded,
		proposalsSubmitted,
		proposalsReviewed,
		edgesCreated,
		extractionRuns,
		completionDuration,
	)

	return &Collector{
		registry:            registry,
		HTTPRequests:        httpRequests,
		HTTPDuration:        httpDuration,
		IntentTransitions:   intentTransitions,
		DecisionsCommitted:  decisionsCommitted,
		DecisionsSuperseded: decisionsSuperseded,
		ProposalsSubmitted:  proposalsSubmitted,
		ProposalsReviewed:   proposalsReviewed,
		EdgesCreated:        edgesCreated,
		ExtractionRuns:      extractionRuns,
		CompletionDuration:  completionDuration,
	}
}

// Registry returns the underlying registry for the /metrics handler.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
