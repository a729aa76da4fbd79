// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

/*
Package eventbus carries accepted webhooks from the HTTP handler to
background processing over Watermill.

The webhook handler calls Bus.Enqueue, which publishes an Envelope holding
the provider name and the raw payload. A Consumer subscribes through a
Watermill router and, for each message, re-parses the payload with the
provider from the registry and runs webhooks.Process.

Transports:

	gochannel   in-process, nothing survives a restart (default)
	nats        NATS JetStream with a durable queue-group consumer

Router middleware, outermost first:

	Recoverer       a panicking handler does not stop the router
	confirmJournal  deletes the message's journal entry once it is handled
	Throttle        optional events-per-second ceiling
	Deduplicator    drops redeliveries carrying the same dedup_key within the TTL

With eventbus.wal_path set, Publish writes each envelope to a badger
journal (package wal) before handing it to the transport. Entries left
pending by a previous process are republished once the first consumer is
subscribed.

dedup_key is the event id plus a SHA-256 of the body, so a redelivery of
the same bytes collapses while a different change to the same task passes.
The consumer never asks for redelivery: processing is idempotent and
failures are recorded in provider stats, logs and metrics.
*/
package eventbus
