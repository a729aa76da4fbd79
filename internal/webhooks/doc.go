// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

// Package webhooks is the provider-agnostic core of webhook ingestion.
//
// A provider (see package webhooks/clickup) turns its own payloads into an
// immutable NormalizedEvent and applies it to the graph. This package owns
// everything around that:
//
//   - ValidateSignature: HMAC-SHA256 verification over the raw body
//   - Registry: static provider registration with lazy, cached construction
//   - Dispatcher: the ordered acceptance pipeline (size, lookup, enabled,
//     signature, JSON, normalize) that ends by handing the event to a Queue
//   - Process: the background step that runs Provider.Process and records
//     the outcome in logs, metrics and provider stats
//
// # Acceptance Order
//
//	size ceiling -> 413
//	provider lookup -> 404
//	provider enabled -> 403
//	signature -> 401
//	JSON well-formed -> 400
//	normalize -> 400
//	enqueue -> 200 (or 500 if the queue is unavailable)
//
// The size check precedes hashing, and the signature check precedes any
// parsing. Processing happens after the HTTP response has been written, so
// its failures are visible only in logs, metrics and GET /stats.
package webhooks
