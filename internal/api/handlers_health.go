// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/taskgraph/internal/logging"
)

const readinessTimeout = 3 * time.Second

func (rt *Router) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service":           "taskgraph",
		"version":           rt.deps.Version,
		"enabled_providers": rt.deps.Dispatcher.Registry().ListEnabled(),
		"endpoints": map[string]string{
			"health":    "/health",
			"ready":     "/health/ready",
			"providers": "/providers",
			"stats":     "/stats",
			"metrics":   "/metrics",
			"webhooks":  "/webhooks/{provider}",
			"admin":     "/api/v1/admin",
		},
	})
}

// handleHealth is the liveness probe.
func (rt *Router) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"service": "taskgraph",
	})
}

// handleReady reports 503 until the graph answers.
func (rt *Router) handleReady(w http.ResponseWriter, r *http.Request) {
	graphStatus := "connected"
	status := http.StatusOK
	if rt.deps.Graph == nil {
		graphStatus, status = "not_configured", http.StatusServiceUnavailable
	} else {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()
		if err := rt.deps.Graph.VerifyConnectivity(ctx); err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Msg("Readiness check failed")
			graphStatus, status = "unavailable", http.StatusServiceUnavailable
		}
	}

	ready := "ready"
	if status != http.StatusOK {
		ready = "not_ready"
	}
	writeJSON(w, status, map[string]any{
		"status": ready,
		"graph":  graphStatus,
	})
}
