// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

// Package logging provides zerolog-based structured logging for Taskgraph.
//
// A single global logger is configured at startup from the logging section of
// the configuration and shared by every component. Webhook requests carry a
// request ID and a correlation ID through context, so the asynchronous
// processing of an event can be joined back to the HTTP request that accepted
// it.
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//
//	logging.Info().Str("provider", "clickup").Msg("Webhook accepted")
//	logging.Ctx(ctx).Warn().Err(err).Msg("Task re-fetch failed")
//
// # slog Interop
//
// Suture (via sutureslog) and Watermill both log through log/slog. NewSlogLogger
// returns an *slog.Logger that writes into the zerolog pipeline so every
// library shares one output format.
//
// # Sanitization
//
// Values taken from inbound requests are passed through SanitizeValue before
// being logged. Secrets (API tokens, webhook secrets, JWTs) are masked with
// SanitizeToken.
package logging
