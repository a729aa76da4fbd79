// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

//go:build integration

package graph_test

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/taskgraph/internal/clickup"
	"github.com/tomtom215/taskgraph/internal/graph"
	"github.com/tomtom215/taskgraph/internal/mirror"
	"github.com/tomtom215/taskgraph/internal/testinfra"
)

func TestStoreAgainstNeo4j(t *testing.T) {
	testinfra.SkipIfNoDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	neo, err := testinfra.NewNeo4jContainer(ctx)
	if err != nil {
		t.Fatalf("start neo4j: %v", err)
	}
	defer testinfra.CleanupContainer(t, ctx, neo)

	cfg := neo.Config()
	store, err := graph.NewStore(cfg)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close(ctx)

	if err := store.VerifyConnectivity(ctx); err != nil {
		t.Fatalf("VerifyConnectivity: %v", err)
	}

	// Schema bootstrap runs on every start.
	for i := 0; i < 2; i++ {
		if err := graph.EnsureSchema(ctx, store, cfg.Statuses, cfg.Priorities); err != nil {
			t.Fatalf("EnsureSchema run %d: %v", i+1, err)
		}
	}
	rows, err := store.Read(ctx, "MATCH (s:Status) RETURN count(s) AS n", nil)
	if err != nil {
		t.Fatalf("count statuses: %v", err)
	}
	if got := graph.FirstInt(rows, "n"); got != int64(len(cfg.Statuses)) {
		t.Errorf("status nodes = %d, want %d", got, len(cfg.Statuses))
	}

	w := mirror.NewWriter(store)
	task := &clickup.Task{
		ID:       "86abc",
		Name:     "Wire the importer",
		Status:   clickup.Status{Status: "In Progress"},
		Priority: &clickup.Priority{Priority: "high"},
	}
	if _, err := w.SyncTask(ctx, task); err != nil {
		t.Fatalf("SyncTask: %v", err)
	}
	// A second write must not duplicate the node or its edges.
	if _, err := w.SyncTask(ctx, task); err != nil {
		t.Fatalf("SyncTask again: %v", err)
	}

	rows, err = store.Read(ctx, `
MATCH (t:Task {id: $id})
OPTIONAL MATCH (t)-[:HAS_STATUS]->(s:Status)
OPTIONAL MATCH (t)-[:HAS_PRIORITY]->(p:Priority)
RETURN count(DISTINCT t) AS tasks, collect(DISTINCT s.status) AS statuses, collect(DISTINCT p.priority) AS priorities`,
		map[string]any{"id": task.ID})
	if err != nil {
		t.Fatalf("read task: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if n := graph.Int(rows[0], "tasks"); n != 1 {
		t.Errorf("task nodes = %d, want 1", n)
	}
	if s := graph.Strings(rows[0], "statuses"); len(s) != 1 || s[0] != "in progress" {
		t.Errorf("HAS_STATUS targets = %v", s)
	}
	if p := graph.Strings(rows[0], "priorities"); len(p) != 1 || p[0] != "high" {
		t.Errorf("HAS_PRIORITY targets = %v", p)
	}

	swap, err := w.SetStatus(ctx, task.ID, "complete")
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if !swap.Found || !swap.Linked {
		t.Errorf("SetStatus = %+v, want found and linked", swap)
	}

	deleted, err := w.DeleteTask(ctx, task.ID)
	if err != nil || !deleted {
		t.Fatalf("DeleteTask = %v, %v", deleted, err)
	}
	rows, err = store.Read(ctx, "MATCH (t:Task {id: $id}) RETURN count(t) AS n", map[string]any{"id": task.ID})
	if err != nil {
		t.Fatalf("count after delete: %v", err)
	}
	if n := graph.FirstInt(rows, "n"); n != 0 {
		t.Errorf("task still present after delete")
	}
}
