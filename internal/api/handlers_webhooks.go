// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package api

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/taskgraph/internal/logging"
	"github.com/tomtom215/taskgraph/internal/webhooks"
)

// handleWebhook accepts one delivery. The body is read up to one byte past
// the limit so the dispatcher can reject oversized payloads before any
// signature work.
func (rt *Router) handleWebhook(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	d := rt.deps.Dispatcher

	body, err := io.ReadAll(io.LimitReader(r.Body, d.MaxBodyBytes()+1))
	if err != nil {
		NewResponseWriter(w, r).BadRequest("failed to read request body")
		return
	}

	ack, err := d.Accept(r.Context(), provider, body, r.Header)
	if err != nil {
		status := webhooks.HTTPStatus(err)
		log := logging.Ctx(r.Context()).Warn()
		if status >= http.StatusInternalServerError {
			log = logging.Ctx(r.Context()).Error()
		}
		log.Err(err).
			Str("provider", logging.SanitizeValue("provider", provider)).
			Int("status", status).
			Msg("Webhook rejected")
		NewResponseWriter(w, r).Error(status, codeForStatus(status), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, ack)
}

func (rt *Router) handleProviders(w http.ResponseWriter, _ *http.Request) {
	reg := rt.deps.Dispatcher.Registry()
	enabled := reg.ListEnabled()
	writeJSON(w, http.StatusOK, map[string]any{
		"all_providers":     reg.ListRegistered(),
		"enabled_providers": enabled,
		"count":             len(enabled),
	})
}

func (rt *Router) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "operational",
		"providers": rt.deps.Dispatcher.Registry().Stats(),
	})
}
