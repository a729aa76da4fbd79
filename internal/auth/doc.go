// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

// Package auth guards the admin API with HS256 bearer tokens.
//
// Webhook routes never pass through this package; they are authenticated
// by the provider signature instead. With security.auth_mode=none the
// middleware lets every request through.
//
// Tokens are issued by the server binary (taskgraph --issue-token) and
// carry a subject and a role. Only the admin role may call admin routes.
package auth
