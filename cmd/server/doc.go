// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

/*
Package main is the entry point for the taskgraph server.

Taskgraph mirrors a ClickUp space into Neo4j. Webhook deliveries keep the
graph current between bulk syncs, and a weekly job records per-list progress
snapshots.

# Application Architecture

The server runs under a Suture v4 supervisor tree:

	RootSupervisor ("taskgraph")
	├── DataSupervisor ("data-layer")
	│   ├── sync-scheduler (startup and interval bulk sync)
	│   └── snapshot-scheduler (weekly snapshots and pruning)
	├── MessagingSupervisor ("messaging-layer")
	│   └── event-consumer (watermill router processing webhook events)
	└── APISupervisor ("api-layer")
	    └── http-server (webhook ingress, health, admin API)

Component initialization order:

 1. Configuration: Koanf v2 defaults, optional config.yaml, environment
 2. Logging: zerolog, bridged to slog for the supervisor and watermill
 3. Graph: Neo4j driver, connectivity check, optional schema bootstrap
 4. ClickUp client, optionally behind a gobreaker circuit breaker
 5. Webhook registry, event bus and consumer
 6. Importer with its badger state store, snapshot manager
 7. HTTP router and server

# Flags

	--issue-token       print a signed admin token and exit
	--subject string    subject claim for --issue-token (default "admin")
	--version           print the version and exit

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server drains for
server.shutdown_timeout, schedulers cancel their running jobs and the event
bus waits for in-flight messages before the graph driver closes.

# Example Usage

	export CLICKUP_API_TOKEN=pk_...
	export CLICKUP_SPACE_ID=90150000
	export CLICKUP_WEBHOOK_SECRET=...
	export NEO4J_URI=bolt://localhost:7687
	export NEO4J_PASSWORD=...
	export AUTH_MODE=jwt
	export JWT_SECRET=$(openssl rand -base64 32)
	./taskgraph
	./taskgraph --issue-token --subject ops
*/
package main
