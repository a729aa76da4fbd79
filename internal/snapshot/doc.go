// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

// Package snapshot records weekly progress per list as ProgressSnapshot
// nodes linked from the list by HAD_PROGRESS_ON.
//
// A snapshot is keyed by list and week (snapshot_{list_id}_{YYYY-MM-DD},
// the date being the Sunday that ends the week in UTC), so running the job
// several times in a week keeps the first snapshot of that week. Old
// snapshots are pruned after snapshot.retention_weeks.
//
// Task statuses are classified case-insensitively: complete, closed and
// done count as completed; a status containing "dev" but not "ready", or
// containing "review", counts as in progress.
package snapshot
