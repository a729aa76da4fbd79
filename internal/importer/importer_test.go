// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package importer

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/taskgraph/internal/clickup"
	"github.com/tomtom215/taskgraph/internal/clickup/clickuptest"
	"github.com/tomtom215/taskgraph/internal/config"
	"github.com/tomtom215/taskgraph/internal/graph"
	"github.com/tomtom215/taskgraph/internal/graph/graphtest"
)

type fixture struct {
	cfg    *config.Config
	source *clickuptest.Source
	graph  *graphtest.Graph
}

func testTask(id, list, status, parent string, assignees ...string) clickup.Task {
	t := clickup.Task{
		ID:       id,
		Name:     "Task " + id,
		Status:   clickup.Status{Status: status},
		Priority: &clickup.Priority{Priority: "normal", OrderIndex: "3"},
		List:     clickup.Ref{ID: clickup.FlexString(list)},
		Parent:   clickup.FlexString(parent),
	}
	for _, a := range assignees {
		t.Assignees = append(t.Assignees, clickup.User{ID: clickup.FlexString(a), Username: a})
	}
	return t
}

// newFixture serves team1/space1 with folderless lists list1 (target) and
// list3 (not a target), and list2 (target) inside folder f1. t3 is a
// subtask of t4 and is fetched first.
func newFixture() *fixture {
	src := clickuptest.New()
	src.Teams = []clickup.Team{{ID: "team1", Name: "Acme"}}
	src.Spaces["team1"] = []clickup.Space{{ID: "space1", Name: "Tech"}}
	src.Lists["space1"] = []clickup.List{
		{ID: "list1", Name: "Sprint 1", TaskCount: 3},
		{ID: "list3", Name: "Backlog", TaskCount: 1},
	}
	src.Folders["space1"] = []clickup.Folder{{
		ID:    "f1",
		Name:  "Platform",
		Lists: []clickup.List{{ID: "list2", Name: "Sprint 2", TaskCount: 1}},
	}}
	src.PutTask(testTask("t1", "list1", "to do", "", "u1"))
	src.PutTask(testTask("t2", "list1", "in progress", "", "u1", "u2"))
	src.PutTask(testTask("t3", "list1", "review", "t4"))
	src.PutTask(testTask("t4", "list2", "complete", "", "u2"))
	src.PutTask(testTask("t5", "list3", "to do", ""))

	cfg := &config.Config{
		ClickUp: config.ClickUpConfig{
			TeamID:        "team1",
			SpaceID:       "space1",
			TargetListIDs: []string{"list1", "list2"},
		},
		Sync: config.SyncConfig{
			BatchSize:     2,
			RetryAttempts: 3,
			RetryDelay:    time.Millisecond,
		},
	}
	return &fixture{cfg: cfg, source: src, graph: graphtest.New()}
}

func (f *fixture) importer() *Importer {
	return New(f.cfg, f.source, f.graph, nil)
}

func (f *fixture) addStaleTasks(t *testing.T, ids ...string) {
	t.Helper()
	for _, id := range ids {
		if _, err := f.graph.Write(context.Background(), graph.UpsertTask, map[string]any{"id": id, "space_id": "space1"}); err != nil {
			t.Fatal(err)
		}
	}
}

func TestFullSyncBuildsGraph(t *testing.T) {
	t.Parallel()

	f := newFixture()
	stats, err := f.importer().Sync(context.Background(), true)
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	if len(stats.Errors) != 0 {
		t.Errorf("Errors = %v", stats.Errors)
	}
	if stats.TeamsSynced != 1 || stats.SpacesSynced != 1 || stats.ListsSynced != 2 {
		t.Errorf("hierarchy counts = %d/%d/%d, want 1/1/2", stats.TeamsSynced, stats.SpacesSynced, stats.ListsSynced)
	}
	if stats.TasksSynced != 4 {
		t.Errorf("TasksSynced = %d, want 4", stats.TasksSynced)
	}
	if stats.UsersSynced != 2 {
		t.Errorf("UsersSynced = %d, want 2", stats.UsersSynced)
	}
	if stats.SubtaskRelationshipsCreated != 1 {
		t.Errorf("SubtaskRelationshipsCreated = %d, want 1", stats.SubtaskRelationshipsCreated)
	}
	if len(stats.ListCountMismatches) != 0 {
		t.Errorf("ListCountMismatches = %+v", stats.ListCountMismatches)
	}
	if !stats.FullSync || stats.EndTime.Before(stats.StartTime) {
		t.Errorf("FullSync/EndTime not set: %+v", stats)
	}

	if got := f.graph.TasksInList("list1"); !reflect.DeepEqual(got, []string{"t1", "t2", "t3"}) {
		t.Errorf("list1 tasks = %v", got)
	}
	if got := f.graph.TasksInList("list2"); !reflect.DeepEqual(got, []string{"t4"}) {
		t.Errorf("list2 tasks = %v", got)
	}
	if got := f.graph.Assignees("t2"); !reflect.DeepEqual(got, []string{"u1", "u2"}) {
		t.Errorf("t2 assignees = %v", got)
	}

	f.graph.Lock()
	defer f.graph.Unlock()
	if _, ok := f.graph.Tasks["t5"]; ok {
		t.Error("task of a non-target list was mirrored")
	}
	if _, ok := f.graph.Lists["list3"]; ok {
		t.Error("non-target list was mirrored")
	}
	if f.graph.SubtaskOf["t3"] != "t4" {
		t.Errorf("SUBTASK_OF t3 = %q, want t4", f.graph.SubtaskOf["t3"])
	}
	if f.graph.HasStatus["t4"] != "complete" {
		t.Errorf("HAS_STATUS t4 = %q", f.graph.HasStatus["t4"])
	}
	if f.graph.HasPriority["t1"] != "normal" {
		t.Errorf("HAS_PRIORITY t1 = %q", f.graph.HasPriority["t1"])
	}
	if f.graph.Lists["list2"]["folder_id"] != "f1" {
		t.Errorf("list2 folder_id = %v", f.graph.Lists["list2"]["folder_id"])
	}
	if f.graph.HasSpace["space1"] != "team1" || f.graph.ContainsList["list1"] != "space1" {
		t.Error("team/space/list edges missing")
	}
}

func TestFullSyncConverges(t *testing.T) {
	t.Parallel()

	f := newFixture()
	imp := f.importer()
	if _, err := imp.Sync(context.Background(), true); err != nil {
		t.Fatal(err)
	}
	first := f.graph.TasksInList("list1")

	f.addStaleTasks(t, "gone")
	stats, err := imp.Sync(context.Background(), true)
	if err != nil {
		t.Fatal(err)
	}
	if stats.NodesCleared == 0 {
		t.Error("second full sync cleared nothing")
	}
	if got := f.graph.TasksInList("list1"); !reflect.DeepEqual(got, first) {
		t.Errorf("list1 after resync = %v, want %v", got, first)
	}
	if _, ok := f.graph.TaskProp("gone", "id"); ok {
		t.Error("full sync kept a task ClickUp no longer has")
	}
	if got := f.graph.Assignees("t1"); !reflect.DeepEqual(got, []string{"u1"}) {
		t.Errorf("t1 assignees = %v", got)
	}
}

func TestIncrementalSyncKeepsExistingNodes(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.addStaleTasks(t, "kept")
	stats, err := f.importer().Sync(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	if stats.FullSync || stats.NodesCleared != 0 {
		t.Errorf("incremental sync cleared: %+v", stats)
	}
	if f.graph.CountCalls(graph.ClearTasks) != 0 {
		t.Error("incremental sync ran a clear query")
	}
	if _, ok := f.graph.TaskProp("kept", "id"); !ok {
		t.Error("incremental sync removed an existing task")
	}
	if stats.TasksSynced != 4 {
		t.Errorf("TasksSynced = %d", stats.TasksSynced)
	}
}

func TestClearRunsInBatches(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.addStaleTasks(t, "s1", "s2", "s3", "s4", "s5")
	if _, err := f.importer().Sync(context.Background(), true); err != nil {
		t.Fatal(err)
	}

	// 2 + 2 + 1, then an empty batch ends the loop.
	if got := f.graph.CountCalls(graph.ClearTasks); got != 4 {
		t.Errorf("ClearTasks ran %d times, want 4", got)
	}
	for _, c := range f.graph.Calls() {
		if c.Query == graph.ClearTasks && c.Params["batch_size"] != 2 {
			t.Errorf("batch_size = %v", c.Params["batch_size"])
		}
	}
}

func TestClearStopsWhenCanceled(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.addStaleTasks(t, "s1", "s2", "s3", "s4", "s5")
	ctx, cancel := context.WithCancel(context.Background())
	f.graph.Fail = func(query string, _ map[string]any) error {
		if query == graph.ClearTasks {
			cancel()
		}
		return nil
	}

	_, err := f.importer().Sync(ctx, true)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Sync() error = %v, want context.Canceled", err)
	}
	if got := f.graph.CountCalls(graph.ClearTasks); got != 1 {
		t.Errorf("ClearTasks ran %d times after cancel, want 1", got)
	}
	if f.graph.CountCalls(graph.UpsertTask) != 5 {
		t.Error("rebuild started after a canceled clear")
	}
}

func TestSyncInProgress(t *testing.T) {
	t.Parallel()

	f := newFixture()
	entered := make(chan struct{})
	release := make(chan struct{})
	var once atomic.Bool
	f.source.Fail = func(method, _ string) error {
		if method == "GetTeams" && once.CompareAndSwap(false, true) {
			close(entered)
			<-release
		}
		return nil
	}
	imp := f.importer()

	done := make(chan error, 1)
	go func() {
		_, err := imp.Sync(context.Background(), true)
		done <- err
	}()
	<-entered

	if !imp.Running() {
		t.Error("Running() = false during sync")
	}
	if _, err := imp.Sync(context.Background(), false); !errors.Is(err, ErrSyncInProgress) {
		t.Errorf("concurrent Sync() error = %v, want ErrSyncInProgress", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first Sync() error = %v", err)
	}
	if imp.Running() {
		t.Error("Running() = true after sync")
	}
}

func TestGraphUnavailableAborts(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.graph.Unreachable = errors.New("connection refused")
	stats, err := f.importer().Sync(context.Background(), true)
	if !errors.Is(err, ErrGraphUnavailable) {
		t.Fatalf("Sync() error = %v, want ErrGraphUnavailable", err)
	}
	if f.source.Calls("GetTeams") != 0 {
		t.Error("ClickUp was queried with the graph down")
	}
	if stats == nil || len(stats.Errors) != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestSourceFailureLeavesGraphUntouched(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.addStaleTasks(t, "old")
	f.source.Fail = func(method, id string) error {
		if method == "GetTasks" && id == "list2" {
			return &clickup.APIError{StatusCode: http.StatusForbidden, Message: "no access"}
		}
		return nil
	}

	_, err := f.importer().Sync(context.Background(), true)
	if err == nil {
		t.Fatal("Sync() error = nil")
	}
	if got := f.source.Calls("GetTasks"); got != 2 {
		t.Errorf("GetTasks calls = %d, want 2 (client errors are not retried)", got)
	}
	if f.graph.CountCalls(graph.ClearTasks) != 0 {
		t.Error("graph was cleared before the fetch failed")
	}
	if _, ok := f.graph.TaskProp("old", "id"); !ok {
		t.Error("existing task removed by an aborted sync")
	}
}

func TestSourceTransientFailuresAreRetried(t *testing.T) {
	t.Parallel()

	f := newFixture()
	var calls atomic.Int32
	f.source.Fail = func(method, _ string) error {
		if method == "GetTeams" && calls.Add(1) <= 2 {
			return &clickup.APIError{StatusCode: http.StatusServiceUnavailable, Message: "down"}
		}
		return nil
	}

	if _, err := f.importer().Sync(context.Background(), true); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if got := f.source.Calls("GetTeams"); got != 3 {
		t.Errorf("GetTeams calls = %d, want 3", got)
	}
}

func TestRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"server error", &clickup.APIError{StatusCode: 502}, true},
		{"rate limited", &clickup.APIError{StatusCode: 429}, true},
		{"not found", &clickup.APIError{StatusCode: 404}, false},
		{"unauthorized", &clickup.APIError{StatusCode: 401}, false},
		{"canceled", context.Canceled, false},
		{"network", errors.New("connection reset"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := retryable(tt.err); got != tt.want {
				t.Errorf("retryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestWriteFailureIsRecorded(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.graph.Fail = func(query string, params map[string]any) error {
		if query == graph.UpsertTask && params["id"] == "t2" {
			return errors.New("constraint violation")
		}
		return nil
	}

	stats, err := f.importer().Sync(context.Background(), true)
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if stats.TasksSynced != 3 {
		t.Errorf("TasksSynced = %d, want 3", stats.TasksSynced)
	}
	if len(stats.Errors) != 1 || !strings.Contains(stats.Errors[0], "sync task t2") {
		t.Errorf("Errors = %v", stats.Errors)
	}
	// list1 states 3 tasks but only 2 made it.
	if len(stats.ListCountMismatches) != 1 || stats.ListCountMismatches[0].GraphCount != 2 {
		t.Errorf("ListCountMismatches = %+v", stats.ListCountMismatches)
	}
}

func TestCountMismatchIsDiagnostic(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.source.Lists["space1"][0].TaskCount = 5

	stats, err := f.importer().Sync(context.Background(), true)
	if err != nil {
		t.Fatal(err)
	}
	want := []ListCountMismatch{{ListID: "list1", ListName: "Sprint 1", SourceCount: 5, GraphCount: 3}}
	if !reflect.DeepEqual(stats.ListCountMismatches, want) {
		t.Errorf("ListCountMismatches = %+v, want %+v", stats.ListCountMismatches, want)
	}
	if got := f.source.Calls("GetTasks"); got != 2 {
		t.Errorf("GetTasks calls = %d, want 2 without reconciliation", got)
	}
}

func TestCountMismatchReconciles(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.cfg.Sync.ReconcileMismatch = true
	var failed atomic.Bool
	f.graph.Fail = func(query string, params map[string]any) error {
		if query == graph.UpsertTask && params["id"] == "t1" && failed.CompareAndSwap(false, true) {
			return errors.New("deadlock detected")
		}
		return nil
	}

	stats, err := f.importer().Sync(context.Background(), true)
	if err != nil {
		t.Fatal(err)
	}
	if len(stats.ListCountMismatches) != 1 {
		t.Fatalf("ListCountMismatches = %+v", stats.ListCountMismatches)
	}
	m := stats.ListCountMismatches[0]
	if !m.Reconciled || m.GraphCount != 3 {
		t.Errorf("mismatch = %+v, want reconciled at 3", m)
	}
	if got := f.graph.TasksInList("list1"); len(got) != 3 {
		t.Errorf("list1 tasks = %v", got)
	}
}

func TestScopeResolution(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*config.ClickUpConfig)
		wantErr error
	}{
		{"unknown team", func(c *config.ClickUpConfig) { c.TeamID = "nope" }, ErrTeamNotFound},
		{"unknown space", func(c *config.ClickUpConfig) { c.SpaceID = "nope" }, ErrSpaceNotFound},
		{"no matching lists", func(c *config.ClickUpConfig) { c.TargetListIDs = []string{"zzz"} }, ErrNoTargetLists},
		{"first team and space", func(c *config.ClickUpConfig) { c.TeamID, c.SpaceID = "", "" }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture()
			tt.mutate(&f.cfg.ClickUp)
			_, err := f.importer().Sync(context.Background(), true)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Sync() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNoTargetsMirrorsEveryList(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.cfg.ClickUp.TargetListIDs = nil
	stats, err := f.importer().Sync(context.Background(), true)
	if err != nil {
		t.Fatal(err)
	}
	if stats.ListsSynced != 3 || stats.TasksSynced != 5 {
		t.Errorf("lists/tasks = %d/%d, want 3/5", stats.ListsSynced, stats.TasksSynced)
	}
}

func TestFolderListsSkippedWhenTargetsFound(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.cfg.ClickUp.TargetListIDs = []string{"list1"}
	if _, err := f.importer().Sync(context.Background(), true); err != nil {
		t.Fatal(err)
	}
	if got := f.source.Calls("GetFolders"); got != 0 {
		t.Errorf("GetFolders calls = %d, want 0", got)
	}
}

func TestSpaceListFailureFallsBackToFolders(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.source.Fail = func(method, _ string) error {
		if method == "GetSpaceLists" {
			return &clickup.APIError{StatusCode: http.StatusBadRequest, Message: "bad"}
		}
		return nil
	}
	f.cfg.ClickUp.TargetListIDs = []string{"list2"}

	stats, err := f.importer().Sync(context.Background(), true)
	if err != nil {
		t.Fatal(err)
	}
	if stats.ListsSynced != 1 || stats.TasksSynced != 1 {
		t.Errorf("lists/tasks = %d/%d, want 1/1", stats.ListsSynced, stats.TasksSynced)
	}
}

func TestLastSync(t *testing.T) {
	t.Parallel()

	f := newFixture()
	state := NewMemoryStateStore()
	imp := New(f.cfg, f.source, f.graph, state)
	ctx := context.Background()

	last, err := imp.LastSync(ctx)
	if err != nil || last != nil {
		t.Fatalf("LastSync() before sync = %v, %v", last, err)
	}

	if _, err := imp.Sync(ctx, true); err != nil {
		t.Fatal(err)
	}
	last, err = imp.LastSync(ctx)
	if err != nil || last == nil || last.TasksSynced != 4 {
		t.Fatalf("LastSync() = %+v, %v", last, err)
	}

	// A fresh importer in a new process reads the persisted stats.
	restarted := New(f.cfg, f.source, f.graph, state)
	last, err = restarted.LastSync(ctx)
	if err != nil || last == nil || last.TasksSynced != 4 {
		t.Errorf("LastSync() after restart = %+v, %v", last, err)
	}
}
