// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

// Package metrics defines the Prometheus collectors exported at /metrics.
//
// Collectors are registered with promauto on the default registry and are
// updated through the Record* helpers so call sites stay one line long.
//
// # Metric Families
//
//   - taskgraph_api_*: HTTP request latency, totals and in-flight count
//   - taskgraph_webhook_*: inbound webhooks accepted and rejected, event
//     processing outcomes and latency
//   - taskgraph_graph_*: Neo4j query latency, errors and transient retries
//   - taskgraph_clickup_*: outbound ClickUp API calls and rate limiting
//   - taskgraph_sync_*: bulk import runs, entity counts and list count mismatches
//   - taskgraph_snapshot_*: progress snapshots created and pruned
//   - circuit_breaker_*: gobreaker state and request outcomes
//
// # Example Queries
//
//	# webhook processing failure ratio over 5 minutes
//	sum(rate(taskgraph_webhook_events_processed_total{status="failed"}[5m]))
//	  / sum(rate(taskgraph_webhook_events_processed_total[5m]))
//
//	# p95 graph write latency
//	histogram_quantile(0.95, rate(taskgraph_graph_query_duration_seconds_bucket{mode="write"}[5m]))
package metrics
