// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package mirror

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/taskgraph/internal/clickup"
	"github.com/tomtom215/taskgraph/internal/graph"
	"github.com/tomtom215/taskgraph/internal/graph/graphtest"
)

func newGraph(t *testing.T) *graphtest.Graph {
	t.Helper()
	g := graphtest.New()
	g.Seed([]string{"to do", "in progress", "complete"}, []string{"urgent", "high", "normal", "low"})
	mustWrite(t, g, graph.MergeTeam, map[string]any{"id": "team1", "name": "Team"})
	mustWrite(t, g, graph.MergeSpace, map[string]any{"team_id": "team1", "id": "space1", "name": "Space"})
	for _, list := range []string{"list1", "list2"} {
		mustWrite(t, g, graph.MergeList, map[string]any{"space_id": "space1", "id": list, "name": list})
	}
	return g
}

func mustWrite(t *testing.T, g *graphtest.Graph, q string, p map[string]any) {
	t.Helper()
	if _, err := g.Write(context.Background(), q, p); err != nil {
		t.Fatalf("seed write: %v", err)
	}
}

func sampleTask() *clickup.Task {
	points := 3.0
	return &clickup.Task{
		ID:        "t1",
		Name:      "Write docs",
		Status:    clickup.Status{Status: "In Progress"},
		Priority:  &clickup.Priority{Priority: "high"},
		Assignees: []clickup.User{{ID: "u1", Username: "ana"}, {ID: "u2", Username: "bo"}},
		List:      clickup.Ref{ID: "list1"},
		Space:     clickup.Ref{ID: "space1"},
		Points:    &points,
		DueDate:   "1700000000000",
	}
}

func TestTaskParams(t *testing.T) {
	t.Parallel()

	p := TaskParams(sampleTask())
	if p["id"] != "t1" || p["status"] != "In Progress" || p["priority"] != "high" {
		t.Errorf("identity params = %v", p)
	}
	if p["points"] != 3.0 {
		t.Errorf("points = %v", p["points"])
	}
	due, ok := p["due_date"].(time.Time)
	if !ok || !due.Equal(time.UnixMilli(1700000000000)) {
		t.Errorf("due_date = %v", p["due_date"])
	}
	if p["start_date"] != nil || p["parent_id"] != nil {
		t.Errorf("absent values should be nil: start=%v parent=%v", p["start_date"], p["parent_id"])
	}

	noPriority := sampleTask()
	noPriority.Priority = nil
	if got := TaskParams(noPriority)["priority"]; got != nil {
		t.Errorf("priority = %v, want nil", got)
	}
}

func TestSyncTaskWritesNodeAndRelationships(t *testing.T) {
	t.Parallel()

	g := newGraph(t)
	w := NewWriter(g)
	res, err := w.SyncTask(context.Background(), sampleTask())
	if err != nil {
		t.Fatalf("SyncTask() error = %v", err)
	}

	if got := g.Assignees("t1"); strings.Join(got, ",") != "u1,u2" {
		t.Errorf("assignees = %v", got)
	}
	if got := g.TasksInList("list1"); len(got) != 1 || got[0] != "t1" {
		t.Errorf("list1 tasks = %v", got)
	}
	if g.HasStatus["t1"] != "in progress" || g.HasPriority["t1"] != "high" {
		t.Errorf("status=%q priority=%q", g.HasStatus["t1"], g.HasPriority["t1"])
	}
	if res.Relationships != 6 || res.ListID != "list1" || len(res.Unlinked) != 0 {
		t.Errorf("result = %+v", res)
	}
}

func TestSyncTaskIsIdempotent(t *testing.T) {
	t.Parallel()

	g := newGraph(t)
	w := NewWriter(g)
	for i := 0; i < 3; i++ {
		if _, err := w.SyncTask(context.Background(), sampleTask()); err != nil {
			t.Fatalf("SyncTask() #%d error = %v", i, err)
		}
	}
	if len(g.Tasks) != 1 || len(g.Users) != 2 {
		t.Errorf("tasks=%d users=%d, want 1 and 2", len(g.Tasks), len(g.Users))
	}
	if got := g.Assignees("t1"); len(got) != 2 {
		t.Errorf("assignees = %v", got)
	}
}

func TestSyncTaskReplacesRelationships(t *testing.T) {
	t.Parallel()

	g := newGraph(t)
	w := NewWriter(g)
	ctx := context.Background()
	if _, err := w.SyncTask(ctx, sampleTask()); err != nil {
		t.Fatal(err)
	}

	changed := sampleTask()
	changed.Assignees = []clickup.User{{ID: "u3"}}
	changed.List = clickup.Ref{ID: "list2"}
	changed.Status = clickup.Status{Status: "complete"}
	changed.Priority = nil
	if _, err := w.SyncTask(ctx, changed); err != nil {
		t.Fatal(err)
	}

	if got := g.Assignees("t1"); len(got) != 1 || got[0] != "u3" {
		t.Errorf("assignees = %v", got)
	}
	if len(g.TasksInList("list1")) != 0 || len(g.TasksInList("list2")) != 1 {
		t.Errorf("list membership not moved: list1=%v list2=%v", g.TasksInList("list1"), g.TasksInList("list2"))
	}
	if g.HasStatus["t1"] != "complete" {
		t.Errorf("status = %q", g.HasStatus["t1"])
	}
	if _, ok := g.HasPriority["t1"]; ok {
		t.Error("priority edge should be cleared")
	}
}

func TestSyncTaskReportsUnlinkedReferences(t *testing.T) {
	t.Parallel()

	g := newGraph(t)
	task := sampleTask()
	task.Status = clickup.Status{Status: "QA"}
	res, err := NewWriter(g).SyncTask(context.Background(), task)
	if err != nil {
		t.Fatalf("SyncTask() error = %v", err)
	}
	if len(res.Unlinked) != 1 || res.Unlinked[0] != "status:QA" {
		t.Errorf("Unlinked = %v", res.Unlinked)
	}
	if v, _ := g.TaskProp("t1", "status"); v != "QA" {
		t.Errorf("status property = %v, want QA", v)
	}
}

func TestSwapOnMissingTask(t *testing.T) {
	t.Parallel()

	w := NewWriter(newGraph(t))
	ctx := context.Background()

	status, err := w.SetStatus(ctx, "ghost", "complete")
	if err != nil || status.Found {
		t.Errorf("SetStatus() = %+v, %v", status, err)
	}
	ok, err := w.SetDueDate(ctx, "ghost", nil)
	if err != nil || ok {
		t.Errorf("SetDueDate() = %v, %v", ok, err)
	}
	deleted, err := w.DeleteTask(ctx, "ghost")
	if err != nil || deleted {
		t.Errorf("DeleteTask() = %v, %v", deleted, err)
	}
}

func TestLinkParent(t *testing.T) {
	t.Parallel()

	g := newGraph(t)
	w := NewWriter(g)
	ctx := context.Background()

	child := sampleTask()
	child.ID = "child"
	child.Parent = "t1"
	if err := w.UpsertTask(ctx, child); err != nil {
		t.Fatal(err)
	}
	if ok, _ := w.LinkParent(ctx, "child", "t1"); ok {
		t.Error("LinkParent() linked to a missing parent")
	}
	if err := w.UpsertTask(ctx, sampleTask()); err != nil {
		t.Fatal(err)
	}
	if ok, err := w.LinkParent(ctx, "child", "t1"); !ok || err != nil {
		t.Errorf("LinkParent() = %v, %v", ok, err)
	}
	if g.SubtaskOf["child"] != "t1" {
		t.Errorf("SUBTASK_OF = %q", g.SubtaskOf["child"])
	}
}

func TestSeedReferences(t *testing.T) {
	t.Parallel()

	g := graphtest.New()
	task := sampleTask()
	task.Status = clickup.Status{Status: "Blocked", OrderIndex: "4"}
	if err := NewWriter(g).SeedReferences(context.Background(), task); err != nil {
		t.Fatal(err)
	}
	if order, ok := g.Statuses["blocked"]; !ok || order != 4 {
		t.Errorf("status seed = %v, %v", order, ok)
	}
	if _, ok := g.Priorities["high"]; !ok {
		t.Error("priority not seeded")
	}
}

func TestWriterWrapsStoreErrors(t *testing.T) {
	t.Parallel()

	g := newGraph(t)
	boom := errors.New("boom")
	g.Fail = func(q string, _ map[string]any) error {
		if q == graph.ReplaceAssignees {
			return boom
		}
		return nil
	}
	_, err := NewWriter(g).SyncTask(context.Background(), sampleTask())
	if !errors.Is(err, boom) {
		t.Errorf("SyncTask() error = %v, want wrapped boom", err)
	}
}
