// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

/*
Package supervisor runs the long-lived taskgraph services under suture v4.

Services are grouped into three layers so a crash in one restarts only
that layer:

	taskgraph
	├── data-layer
	│   ├── sync-scheduler      (if SYNC_ENABLED)
	│   └── snapshot-scheduler  (if SNAPSHOT_ENABLED)
	├── messaging-layer
	│   └── event-consumer
	└── api-layer
	    └── http-server

Supervisor events are logged through sutureslog with the zerolog-backed
slog handler from internal/logging. The adapters that turn a component
into a suture.Service live in the services subpackage.

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
	    ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddDataService(services.NewScheduledService("sync-scheduler", syncScheduler))
	tree.AddMessagingService(services.NewRouterService(consumer))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	err = tree.Serve(ctx)
*/
package supervisor
