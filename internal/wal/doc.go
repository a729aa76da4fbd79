// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

// Package wal journals accepted webhook events in BadgerDB until the event
// consumer has processed them.
//
// The event bus writes an entry before publishing and the consumer confirms
// it afterwards, which deletes it. Entries still pending at startup were
// accepted by a previous process that never finished them; RecoverPending
// republishes them and drops an entry once it has been replayed
// MaxAttempts times.
//
// Entry IDs are UUIDv7, so badger's key order is acceptance order and
// recovery replays events in the order they arrived.
package wal
