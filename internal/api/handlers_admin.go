// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/taskgraph/internal/auth"
	"github.com/tomtom215/taskgraph/internal/importer"
	"github.com/tomtom215/taskgraph/internal/logging"
	"github.com/tomtom215/taskgraph/internal/snapshot"
	"github.com/tomtom215/taskgraph/internal/validation"
)

const (
	maxAdminBodyBytes = 4 << 10
	defaultWeeks      = 4
)

// SyncRequest is the body of POST /api/v1/admin/sync. An empty body means
// an incremental sync.
type SyncRequest struct {
	FullSync bool `json:"full_sync"`
}

// listParams are the validated inputs of the snapshot read routes.
type listParams struct {
	ListID string `json:"list_id" validate:"required,entity_id"`
	Weeks  int    `json:"weeks" validate:"min=1,max=104"`
}

func (rt *Router) handleTriggerSync(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if rt.deps.Sync == nil {
		rw.ServiceUnavailable("sync is disabled")
		return
	}

	var req SyncRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, maxAdminBodyBytes))
	if err != nil {
		rw.BadRequest("failed to read request body")
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			rw.BadRequest("invalid JSON body")
			return
		}
	}

	switch err := rt.deps.Sync.TriggerSync(req.FullSync); {
	case errors.Is(err, importer.ErrSyncInProgress):
		rw.Conflict("a sync is already running")
		return
	case errors.Is(err, importer.ErrSchedulerStopped):
		rw.ServiceUnavailable("sync scheduler is not running")
		return
	case err != nil:
		rw.Error(http.StatusInternalServerError, ErrCodeInternalError, "failed to start sync")
		return
	}

	ev := logging.Ctx(r.Context()).Info().Bool("full_sync", req.FullSync)
	if c, ok := auth.ClaimsFromContext(r.Context()); ok {
		ev = ev.Str("subject", c.Subject)
	}
	ev.Msg("Sync triggered through admin API")

	rw.Accepted(map[string]any{"status": "started", "full_sync": req.FullSync})
}

func (rt *Router) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if rt.deps.Sync == nil {
		rw.ServiceUnavailable("sync is disabled")
		return
	}
	last, err := rt.deps.Sync.LastSync(r.Context())
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to load last sync")
		rw.Error(http.StatusInternalServerError, ErrCodeInternalError, "failed to load sync state")
		return
	}
	rw.Success(importer.Summary{Running: rt.deps.Sync.Running(), LastSync: last})
}

func (rt *Router) handleCreateSnapshots(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if rt.deps.Snapshots == nil {
		rw.ServiceUnavailable("snapshots are disabled")
		return
	}
	res, err := rt.deps.Snapshots.CreateWeekly(r.Context())
	if err != nil {
		rw.GraphError(err)
		return
	}
	rw.Success(res)
}

// snapshotParams parses list_id and weeks, writing the error response when
// they are invalid.
func (rt *Router) snapshotParams(rw *ResponseWriter, r *http.Request) (listParams, bool) {
	if rt.deps.Snapshots == nil {
		rw.ServiceUnavailable("snapshots are disabled")
		return listParams{}, false
	}

	p := listParams{ListID: chi.URLParam(r, "list_id"), Weeks: defaultWeeks}
	if raw := r.URL.Query().Get("weeks"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			rw.BadRequest("weeks must be an integer")
			return listParams{}, false
		}
		p.Weeks = n
	}
	if verr := validation.ValidateStruct(&p); verr != nil {
		rw.ValidationError(verr.Error(), verr.Fields())
		return listParams{}, false
	}
	return p, true
}

func (rt *Router) handleSnapshotHistory(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	p, ok := rt.snapshotParams(rw, r)
	if !ok {
		return
	}
	history, err := rt.deps.Snapshots.History(r.Context(), p.ListID, p.Weeks)
	if err != nil {
		rw.GraphError(err)
		return
	}
	rw.Success(map[string]any{"list_id": p.ListID, "weeks": p.Weeks, "snapshots": history})
}

func (rt *Router) handleSnapshotProgress(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	p, ok := rt.snapshotParams(rw, r)
	if !ok {
		return
	}
	report, err := rt.deps.Snapshots.Progress(r.Context(), p.ListID)
	switch {
	case errors.Is(err, snapshot.ErrListNotMirrored):
		rw.NotFound("list " + p.ListID + " is not in the graph")
	case err != nil:
		rw.GraphError(err)
	default:
		rw.Success(report)
	}
}

func (rt *Router) handleSnapshotVelocity(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	p, ok := rt.snapshotParams(rw, r)
	if !ok {
		return
	}
	v, err := rt.deps.Snapshots.Velocity(r.Context(), p.ListID, p.Weeks)
	if err != nil {
		rw.GraphError(err)
		return
	}
	rw.Success(v)
}
