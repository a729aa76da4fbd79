// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API metrics
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taskgraph_api_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskgraph_api_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "taskgraph_api_active_requests",
			Help: "Number of HTTP requests currently being served",
		},
	)

	// Webhook ingestion metrics
	WebhooksReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskgraph_webhook_received_total",
			Help: "Webhooks accepted for asynchronous processing",
		},
		[]string{"provider", "event_kind"},
	)

	WebhooksRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskgraph_webhook_rejected_total",
			Help: "Webhooks rejected before processing, by reason",
		},
		[]string{"provider", "reason"},
	)

	EventsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskgraph_webhook_events_processed_total",
			Help: "Webhook events processed in the background, by outcome",
		},
		[]string{"provider", "event_kind", "status"},
	)

	EventProcessingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taskgraph_webhook_event_processing_seconds",
			Help:    "Time spent processing one webhook event",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider", "event_kind"},
	)

	EventsDeduplicated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "taskgraph_webhook_events_deduplicated_total",
			Help: "Redelivered events dropped by the event bus deduplicator",
		},
	)

	JournalReplayed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "taskgraph_event_journal_replayed_total",
			Help: "Journaled events republished at startup",
		},
	)

	JournalDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "taskgraph_event_journal_dropped_total",
			Help: "Journaled events deleted after exhausting their replays",
		},
	)

	// Graph store metrics
	GraphQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taskgraph_graph_query_duration_seconds",
			Help:    "Duration of Neo4j queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	GraphQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskgraph_graph_query_errors_total",
			Help: "Neo4j queries that failed after retries",
		},
		[]string{"mode", "error_class"},
	)

	GraphRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskgraph_graph_retries_total",
			Help: "Transient Neo4j errors that triggered a retry",
		},
		[]string{"mode"},
	)

	// ClickUp client metrics
	ClickUpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskgraph_clickup_requests_total",
			Help: "Outbound ClickUp API requests",
		},
		[]string{"endpoint", "status_code"},
	)

	ClickUpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taskgraph_clickup_request_duration_seconds",
			Help:    "Duration of ClickUp API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	ClickUpRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "taskgraph_clickup_rate_limited_total",
			Help: "ClickUp responses with HTTP 429",
		},
	)

	// Sync metrics
	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taskgraph_sync_duration_seconds",
			Help:    "Duration of bulk sync runs in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"mode"},
	)

	SyncRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskgraph_sync_runs_total",
			Help: "Bulk sync runs by mode and outcome",
		},
		[]string{"mode", "status"},
	)

	SyncEntities = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskgraph_sync_entities_total",
			Help: "Entities written by bulk sync, by entity type",
		},
		[]string{"entity"},
	)

	SyncErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "taskgraph_sync_errors_total",
			Help: "Per-operation errors recorded during bulk sync",
		},
	)

	SyncListCountMismatches = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "taskgraph_sync_list_count_mismatches",
			Help: "Lists whose stated task count differed from the graph after the last sync",
		},
	)

	SyncLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "taskgraph_sync_last_success_timestamp_seconds",
			Help: "Unix time of the last successful bulk sync",
		},
	)

	// Snapshot metrics
	SnapshotsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "taskgraph_snapshot_created_total",
			Help: "Progress snapshots written",
		},
	)

	SnapshotsPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "taskgraph_snapshot_pruned_total",
			Help: "Progress snapshots removed by retention",
		},
	)

	// Circuit breaker metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Requests through the circuit breaker by result",
		},
		[]string{"name", "result"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current consecutive failures seen by the circuit breaker",
		},
		[]string{"name"},
	)
)

// RecordAPIRequest records one served HTTP request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordWebhookAccepted counts a webhook handed to the event bus.
func RecordWebhookAccepted(provider, kind string) {
	WebhooksReceived.WithLabelValues(provider, kind).Inc()
}

// RecordWebhookRejected counts a webhook refused at the HTTP boundary.
// reason is a short fixed label such as "signature" or "too_large".
func RecordWebhookRejected(provider, reason string) {
	WebhooksRejected.WithLabelValues(provider, reason).Inc()
}

// RecordEventProcessed records the outcome of background event processing.
func RecordEventProcessed(provider, kind, status string, duration time.Duration) {
	EventsProcessed.WithLabelValues(provider, kind, status).Inc()
	EventProcessingDuration.WithLabelValues(provider, kind).Observe(duration.Seconds())
}

// RecordGraphQuery records a Neo4j query. errorClass is empty on success.
func RecordGraphQuery(mode string, duration time.Duration, errorClass string) {
	GraphQueryDuration.WithLabelValues(mode).Observe(duration.Seconds())
	if errorClass != "" {
		GraphQueryErrors.WithLabelValues(mode, errorClass).Inc()
	}
}

// RecordGraphRetry counts a retried transient Neo4j error.
func RecordGraphRetry(mode string) {
	GraphRetries.WithLabelValues(mode).Inc()
}

// RecordClickUpRequest records one outbound ClickUp API call.
func RecordClickUpRequest(endpoint, statusCode string, duration time.Duration) {
	ClickUpRequests.WithLabelValues(endpoint, statusCode).Inc()
	ClickUpRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordSyncRun records a finished bulk sync.
func RecordSyncRun(fullSync bool, duration time.Duration, errorCount int, err error) {
	mode := "incremental"
	if fullSync {
		mode = "full"
	}
	SyncDuration.WithLabelValues(mode).Observe(duration.Seconds())
	SyncErrors.Add(float64(errorCount))

	switch {
	case err != nil:
		SyncRuns.WithLabelValues(mode, "failed").Inc()
	case errorCount > 0:
		SyncRuns.WithLabelValues(mode, "partial").Inc()
		SyncLastSuccess.Set(float64(time.Now().Unix()))
	default:
		SyncRuns.WithLabelValues(mode, "success").Inc()
		SyncLastSuccess.Set(float64(time.Now().Unix()))
	}
}

// RecordSyncEntities adds n written entities of the given type.
func RecordSyncEntities(entity string, n int) {
	if n > 0 {
		SyncEntities.WithLabelValues(entity).Add(float64(n))
	}
}
