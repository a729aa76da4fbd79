// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/taskgraph/internal/auth"
	"github.com/tomtom215/taskgraph/internal/config"
	"github.com/tomtom215/taskgraph/internal/importer"
	"github.com/tomtom215/taskgraph/internal/middleware"
	"github.com/tomtom215/taskgraph/internal/snapshot"
	"github.com/tomtom215/taskgraph/internal/webhooks"
	"github.com/tomtom215/taskgraph/internal/workload"
)

// HealthChecker reports whether the graph database is reachable.
type HealthChecker interface {
	VerifyConnectivity(ctx context.Context) error
}

// SyncController starts background syncs and reports on them.
type SyncController interface {
	TriggerSync(fullSync bool) error
	Running() bool
	LastSync(ctx context.Context) (*importer.SyncStats, error)
}

// SnapshotService creates and reads progress snapshots.
type SnapshotService interface {
	CreateWeekly(ctx context.Context) (*snapshot.Result, error)
	History(ctx context.Context, listID string, weeksBack int) ([]snapshot.Snapshot, error)
	Progress(ctx context.Context, listID string) (*snapshot.ProgressReport, error)
	Velocity(ctx context.Context, listID string, weeks int) (*snapshot.Velocity, error)
}

// WorkloadReader answers per-user task queries.
type WorkloadReader interface {
	UserTasks(ctx context.Context, userID string, listIDs []string) ([]workload.Task, error)
	UserTaskSummary(ctx context.Context, userID string, listIDs []string) (*workload.Summary, error)
	UserByUsername(ctx context.Context, username string) (*workload.User, error)
	OverdueTasks(ctx context.Context, userID string) ([]workload.Task, error)
}

// Deps are the components served by the router. Graph, Sync, Snapshots
// and Workload may be nil; their routes then answer 503.
type Deps struct {
	Config     *config.Config
	Dispatcher *webhooks.Dispatcher
	Graph      HealthChecker
	Sync       SyncController
	Snapshots  SnapshotService
	Workload   WorkloadReader
	Version    string
}

// Router owns the HTTP handlers.
type Router struct {
	deps Deps
	chi  *ChiMiddleware
	auth *auth.Middleware
}

// NewRouter validates deps and prepares the middleware.
func NewRouter(deps Deps) (*Router, error) {
	if deps.Config == nil || deps.Dispatcher == nil {
		return nil, fmt.Errorf("api: config and dispatcher are required")
	}
	authMW, err := auth.NewMiddleware(&deps.Config.Security, denyJSON)
	if err != nil {
		return nil, fmt.Errorf("api: %w", err)
	}
	if deps.Version == "" {
		deps.Version = "dev"
	}
	return &Router{
		deps: deps,
		chi:  NewChiMiddleware(ChiMiddlewareConfigFromSecurity(&deps.Config.Security)),
		auth: authMW,
	}, nil
}

// Handler builds the chi route tree.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(rt.chi.CORS())
	r.Use(middleware.PrometheusMetrics)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).NotFound("route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).Error(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	})

	// Senders retry on failure, so webhook ingress is not rate limited.
	r.Post("/webhooks/{provider}", rt.handleWebhook)

	r.Group(func(r chi.Router) {
		r.Use(rt.chi.RateLimitHealth())
		r.Get("/health", rt.handleHealth)
		r.Get("/health/ready", rt.handleReady)
	})

	r.Group(func(r chi.Router) {
		r.Use(rt.chi.RateLimit())
		r.Get("/", rt.handleRoot)
		r.Get("/providers", rt.handleProviders)
		r.Get("/stats", rt.handleStats)
		r.Handle("/metrics", promhttp.Handler())
	})

	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(rt.chi.RateLimit())
		r.Use(rt.auth.RequireAdmin)

		r.Post("/sync", rt.handleTriggerSync)
		r.Get("/sync/status", rt.handleSyncStatus)

		r.Post("/snapshots", rt.handleCreateSnapshots)
		r.Get("/snapshots/{list_id}", rt.handleSnapshotHistory)
		r.Get("/snapshots/{list_id}/progress", rt.handleSnapshotProgress)
		r.Get("/snapshots/{list_id}/velocity", rt.handleSnapshotVelocity)

		r.Get("/users", rt.handleFindUser)
		r.Get("/users/{user_id}/tasks", rt.handleUserTasks)
		r.Get("/users/{user_id}/summary", rt.handleUserSummary)
		r.Get("/tasks/overdue", rt.handleOverdueTasks)
	})

	return r
}
