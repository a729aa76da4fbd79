// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

/*
Package importer rebuilds the graph from ClickUp.

A sync walks the configured scope (team, space, target lists), fetches
every task of every list and writes it through the same mirror.Writer the
webhook processor uses. Webhooks keep the graph fresh between syncs; the
importer repairs whatever they missed.

# Sync Modes

A full sync clears the mirrored space first. The clear runs in batches of
sync.batch_size so a large space never needs one huge transaction, and it
stops between batches when the context is canceled. Everything is fetched
before anything is cleared: a ClickUp outage aborts the sync and leaves the
graph as it was.

An incremental sync skips the clear and MERGEs the current state over the
existing graph.

# Steps

 1. Verify graph connectivity (failure aborts)
 2. Resolve the team and space, discover lists, filter to target lists
 3. Fetch tasks per list, including closed tasks and subtasks
 4. Clear the space (full sync only)
 5. Write team, space and lists
 6. Write each task with its assignees, list, status and priority
 7. Link SUBTASK_OF once every task exists
 8. Compare each list's stated task count with the graph

Write failures during steps 5-7 are recorded in SyncStats.Errors and the
sync continues. Count mismatches are diagnostic; with
sync.reconcile_mismatch the affected list is re-imported once.

# Scheduling

Scheduler runs a sync at startup (full when sync.full_sync_on_start is set)
and an incremental sync every sync.interval. TriggerSync runs one on demand
for the admin API. Only one sync runs at a time; a second caller gets
ErrSyncInProgress.

# State

The stats of the last finished sync are kept in a StateStore: badger at
sync.state_path, memory otherwise.
*/
package importer
