// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

// Package middleware provides HTTP middleware shared by the API router.
//
//   - RequestID assigns or propagates X-Request-ID and seeds the logging
//     context with request and correlation IDs.
//   - PrometheusMetrics records request latency and status codes, labelled
//     by chi route pattern so /webhooks/{provider} is a single series.
package middleware
