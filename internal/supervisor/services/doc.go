// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

// Package services adapts taskgraph components to suture.Service.
//
//   - HTTPServerService runs an *http.Server and shuts it down gracefully.
//   - ScheduledService drives a Start/Stop scheduler (bulk sync, snapshots).
//   - RouterService runs the event bus consumer until canceled.
//
// Each adapter implements fmt.Stringer so suture logs name the service.
package services
