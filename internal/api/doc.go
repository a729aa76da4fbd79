// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

// Package api is the HTTP surface of taskgraph, built on chi.
//
// Public routes:
//
//	POST /webhooks/{provider}   webhook ingress, acknowledged before processing
//	GET  /                      service information
//	GET  /health                liveness, always 200 while the process runs
//	GET  /health/ready          readiness, 503 while the graph is unreachable
//	GET  /providers             registered and enabled webhook providers
//	GET  /stats                 per-provider processing counters
//	GET  /metrics               Prometheus exposition
//
// Admin routes under /api/v1/admin require an admin bearer token when
// security.auth_mode is jwt:
//
//	POST /sync                        start a background sync ({"full_sync": bool})
//	GET  /sync/status                 running flag and the last sync result
//	POST /snapshots                   create this week's progress snapshots
//	GET  /snapshots/{list_id}         snapshot history (?weeks=N, default 4)
//	GET  /snapshots/{list_id}/progress
//	GET  /snapshots/{list_id}/velocity (?weeks=N, default 4)
//
// Admin and error responses use the envelope written by ResponseWriter.
// The webhook acknowledgement and the health, providers and stats bodies
// are plain JSON objects.
package api
