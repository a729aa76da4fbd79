// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/taskgraph/internal/validation"
	"github.com/tomtom215/taskgraph/internal/workload"
)

type userParams struct {
	UserID  string   `json:"user_id" validate:"required,entity_id"`
	ListIDs []string `json:"list_ids" validate:"max=50,dive,entity_id"`
}

type usernameParams struct {
	Username string `json:"username" validate:"required,max=255"`
}

type overdueParams struct {
	UserID string `json:"user_id" validate:"omitempty,entity_id"`
}

// splitList parses a comma-separated query value, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (rt *Router) workloadEnabled(rw *ResponseWriter) bool {
	if rt.deps.Workload == nil {
		rw.ServiceUnavailable("workload queries are disabled")
		return false
	}
	return true
}

func (rt *Router) userParams(rw *ResponseWriter, r *http.Request) (userParams, bool) {
	p := userParams{
		UserID:  chi.URLParam(r, "user_id"),
		ListIDs: splitList(r.URL.Query().Get("list_ids")),
	}
	if verr := validation.ValidateStruct(&p); verr != nil {
		rw.ValidationError(verr.Error(), verr.Fields())
		return userParams{}, false
	}
	return p, true
}

func (rt *Router) handleFindUser(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if !rt.workloadEnabled(rw) {
		return
	}
	p := usernameParams{Username: r.URL.Query().Get("username")}
	if verr := validation.ValidateStruct(&p); verr != nil {
		rw.ValidationError(verr.Error(), verr.Fields())
		return
	}

	user, err := rt.deps.Workload.UserByUsername(r.Context(), p.Username)
	switch {
	case errors.Is(err, workload.ErrUserNotFound):
		rw.NotFound("no user named " + p.Username)
	case err != nil:
		rw.GraphError(err)
	default:
		rw.Success(user)
	}
}

func (rt *Router) handleUserTasks(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if !rt.workloadEnabled(rw) {
		return
	}
	p, ok := rt.userParams(rw, r)
	if !ok {
		return
	}

	tasks, err := rt.deps.Workload.UserTasks(r.Context(), p.UserID, p.ListIDs)
	if err != nil {
		rw.GraphError(err)
		return
	}
	rw.Success(map[string]any{"user_id": p.UserID, "count": len(tasks), "tasks": tasks})
}

func (rt *Router) handleUserSummary(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if !rt.workloadEnabled(rw) {
		return
	}
	p, ok := rt.userParams(rw, r)
	if !ok {
		return
	}

	summary, err := rt.deps.Workload.UserTaskSummary(r.Context(), p.UserID, p.ListIDs)
	switch {
	case errors.Is(err, workload.ErrUserNotFound):
		rw.NotFound("user " + p.UserID + " is not in the graph")
	case err != nil:
		rw.GraphError(err)
	default:
		rw.Success(summary)
	}
}

func (rt *Router) handleOverdueTasks(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if !rt.workloadEnabled(rw) {
		return
	}
	p := overdueParams{UserID: r.URL.Query().Get("user_id")}
	if verr := validation.ValidateStruct(&p); verr != nil {
		rw.ValidationError(verr.Error(), verr.Fields())
		return
	}

	tasks, err := rt.deps.Workload.OverdueTasks(r.Context(), p.UserID)
	if err != nil {
		rw.GraphError(err)
		return
	}
	rw.Success(map[string]any{"count": len(tasks), "tasks": tasks})
}
