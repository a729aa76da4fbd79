// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

// Package config loads and validates Taskgraph configuration.
//
// Configuration is layered with koanf, lowest priority first:
//
//  1. Built-in defaults (defaultConfig)
//  2. Optional YAML file (CONFIG_PATH, ./config.yaml, /etc/taskgraph/config.yaml)
//  3. Environment variables, mapped explicitly in envTransformFunc
//
// Unknown environment variables are ignored. Load returns a fully validated
// *Config that main passes to each component constructor; nothing in the
// process reads configuration from a package-level variable.
//
// # Environment Variables
//
//	CLICKUP_API_TOKEN         ClickUp personal API token (required)
//	CLICKUP_TEAM_ID           Workspace to mirror; first workspace when empty
//	CLICKUP_SPACE_ID          Space to mirror (required for sync)
//	CLICKUP_TARGET_LIST_IDS   Comma-separated list IDs; all lists when empty
//	CLICKUP_WEBHOOK_SECRET    HMAC secret for inbound webhooks
//	NEO4J_URI                 bolt:// or neo4j:// URI (default neo4j://localhost:7687)
//	NEO4J_USERNAME            Neo4j user (default neo4j)
//	NEO4J_PASSWORD            Neo4j password (required)
//	EVENTBUS_TRANSPORT        gochannel (default) or nats
//	SYNC_INTERVAL             Incremental resync interval (default 6h)
//	HTTP_PORT                 Listen port (default 8000)
//	AUTH_MODE                 none or jwt for admin routes
//	LOG_LEVEL, LOG_FORMAT     Logging
package config
