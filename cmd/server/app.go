// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/taskgraph/internal/api"
	"github.com/tomtom215/taskgraph/internal/clickup"
	"github.com/tomtom215/taskgraph/internal/config"
	"github.com/tomtom215/taskgraph/internal/eventbus"
	"github.com/tomtom215/taskgraph/internal/graph"
	"github.com/tomtom215/taskgraph/internal/importer"
	"github.com/tomtom215/taskgraph/internal/logging"
	"github.com/tomtom215/taskgraph/internal/snapshot"
	"github.com/tomtom215/taskgraph/internal/supervisor"
	"github.com/tomtom215/taskgraph/internal/supervisor/services"
	"github.com/tomtom215/taskgraph/internal/webhooks"
	clickupwh "github.com/tomtom215/taskgraph/internal/webhooks/clickup"
	"github.com/tomtom215/taskgraph/internal/workload"
)

const startupTimeout = 30 * time.Second

// syncControl exposes the scheduler's triggers and the importer's state
// as one api.SyncController.
type syncControl struct {
	scheduler *importer.Scheduler
	importer  *importer.Importer
}

var _ api.SyncController = syncControl{}

func (s syncControl) TriggerSync(fullSync bool) error { return s.scheduler.TriggerSync(fullSync) }

func (s syncControl) Running() bool { return s.importer.Running() }

func (s syncControl) LastSync(ctx context.Context) (*importer.SyncStats, error) {
	return s.importer.LastSync(ctx)
}

// app holds every long-lived component of the server process.
type app struct {
	cfg *config.Config

	graph    *graph.Store
	schema   *graph.SchemaBootstrap
	bus      *eventbus.Bus
	consumer *eventbus.Consumer
	state    importer.StateStore

	syncScheduler     *importer.Scheduler
	snapshotScheduler *snapshot.Scheduler
	server            *http.Server
}

func newApp(ctx context.Context, cfg *config.Config) (_ *app, err error) {
	a := &app{cfg: cfg}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.graph, err = graph.NewStore(&cfg.Neo4j)
	if err != nil {
		return nil, fmt.Errorf("open graph store: %w", err)
	}
	startCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()
	if err := a.graph.VerifyConnectivity(startCtx); err != nil {
		// The graph may come up after taskgraph; readiness reports it and
		// the schema is ensured in the background once it is reachable.
		logging.Warn().Err(err).Str("uri", cfg.Neo4j.URI).Msg("Neo4j is not reachable yet")
		if cfg.Neo4j.EnsureSchema {
			a.schema = graph.NewSchemaBootstrap(a.graph, cfg.Neo4j.Statuses, cfg.Neo4j.Priorities)
		}
	} else if cfg.Neo4j.EnsureSchema {
		if err := graph.EnsureSchema(startCtx, a.graph, cfg.Neo4j.Statuses, cfg.Neo4j.Priorities); err != nil {
			return nil, fmt.Errorf("ensure graph schema: %w", err)
		}
	}

	source := clickup.NewTaskSource(&cfg.ClickUp)

	registry := webhooks.NewRegistry()
	registry.Register(clickupwh.ProviderName, clickupwh.Factory(cfg, source, a.graph))

	a.bus, err = eventbus.New(cfg.EventBus)
	if err != nil {
		return nil, fmt.Errorf("open event bus: %w", err)
	}
	a.consumer = eventbus.NewConsumer(a.bus, registry)
	dispatcher := webhooks.NewDispatcher(registry, a.bus, cfg.Webhooks.MaxBodyBytes)

	a.state, err = importer.OpenStateStore(cfg.Sync.StatePath)
	if err != nil {
		return nil, fmt.Errorf("open sync state: %w", err)
	}
	imp := importer.New(cfg, source, a.graph, a.state)
	a.syncScheduler = importer.NewScheduler(imp, cfg.Sync)

	snapshots := snapshot.NewManager(a.graph, cfg.ClickUp.TargetListIDs)
	a.snapshotScheduler = snapshot.NewScheduler(snapshots, cfg.Snapshot)

	router, err := api.NewRouter(api.Deps{
		Config:     cfg,
		Dispatcher: dispatcher,
		Graph:      a.graph,
		Sync:       syncControl{scheduler: a.syncScheduler, importer: imp},
		Snapshots:  snapshots,
		Workload:   workload.NewReader(a.graph, cfg.ClickUp.TargetListIDs),
		Version:    version,
	})
	if err != nil {
		return nil, fmt.Errorf("create router: %w", err)
	}

	a.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.Handler(),
		ReadTimeout:       cfg.Server.Timeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}
	return a, nil
}

// addServices registers the supervised services. Disabled schedulers are
// left out; their admin triggers then answer 503.
func (a *app) addServices(tree *supervisor.SupervisorTree) {
	if a.schema != nil {
		tree.AddDataService(services.NewOneShotService("schema-bootstrap", a.schema))
	}
	if a.cfg.Sync.Enabled {
		tree.AddDataService(services.NewScheduledService("sync-scheduler", a.syncScheduler))
	} else {
		logging.Info().Msg("Bulk sync disabled (SYNC_ENABLED=false)")
	}
	if a.cfg.Snapshot.Enabled {
		tree.AddDataService(services.NewScheduledService("snapshot-scheduler", a.snapshotScheduler))
	} else {
		logging.Info().Msg("Weekly snapshots disabled (SNAPSHOT_ENABLED=false)")
	}
	tree.AddMessagingService(services.NewRouterService(a.consumer))
	tree.AddAPIService(services.NewHTTPServerService(a.server, a.cfg.Server.ShutdownTimeout))
}

// Close releases what newApp opened, in reverse order.
func (a *app) Close() {
	if a.bus != nil {
		if err := a.bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}
	if a.state != nil {
		if err := a.state.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing sync state store")
		}
	}
	if a.graph != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.graph.Close(ctx); err != nil {
			logging.Error().Err(err).Msg("Error closing graph store")
		}
	}
}
