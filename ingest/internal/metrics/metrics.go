package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcomes recorded on IngestRequests.
const (
	OutcomeCreated     = "created"
	OutcomeInvalid     = "invalid"
	OutcomeMalformed   = "malformed"
	OutcomeRateLimited = "rate_limited"
	OutcomeError       = "error"
)

var (
	// Ingestion metrics
	IngestRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quieteye_ingest_requests_total",
			Help: "Total number of event submissions by outcome",
		},
		[]string{"outcome"},
	)

	EventsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quieteye_ingest_events_total",
			Help: "Total number of events committed to the store",
		},
		[]string{"event_type"},
	)

	EventBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quieteye_ingest_event_bytes_total",
			Help: "Total bytes of event payloads received",
		},
	)

	ValidationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quieteye_ingest_validation_failures_total",
			Help: "Total number of rejected fields by field name",
		},
		[]string{"field"},
	)

	// Storage metrics
	StorageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quieteye_ingest_storage_duration_seconds",
			Help:    "Duration of event store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	StorageErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quieteye_ingest_storage_errors_total",
			Help: "Total number of event store errors",
		},
		[]string{"op"},
	)

	DatabaseReachable = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "quieteye_ingest_database_reachable",
			Help: "1 if the last health probe reached the database, 0 otherwise",
		},
	)

	// Rate limiting metrics
	RateLimitHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quieteye_ingest_rate_limit_hits_total",
			Help: "Total number of submissions rejected by the per-device rate limit",
		},
	)

	RateLimitErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quieteye_ingest_rate_limit_errors_total",
			Help: "Total number of rate limit checks that failed and were allowed through",
		},
	)

	// Notification metrics
	PublishErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quieteye_ingest_publish_errors_total",
			Help: "Total number of post-commit notifications that failed to publish",
		},
	)
)
