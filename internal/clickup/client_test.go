// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package clickup

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/taskgraph/internal/config"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(&config.ClickUpConfig{
		APIToken: "pk_test_token",
		BaseURL:  srv.URL,
		Timeout:  5 * time.Second,
	})
	c.baseDelay = time.Millisecond
	return c
}

func TestGetTaskDecodesFlexibleFields(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/task/T1" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "pk_test_token" {
			t.Errorf("Authorization = %q", got)
		}
		fmt.Fprint(w, `{
			"id": "T1",
			"name": "Write importer",
			"status": {"status": "in progress", "color": "#fff", "type": "custom", "orderindex": 1},
			"priority": null,
			"orderindex": "12.0000",
			"assignees": [{"id": 183, "username": "ada", "email": "ada@example.com", "initials": "A"}],
			"parent": null,
			"list": {"id": 901, "name": "Sprint 1"},
			"points": 3,
			"time_estimate": "3600000",
			"due_date": "1700000000000",
			"archived": false
		}`)
	}))

	task, err := c.GetTask(context.Background(), "T1")
	if err != nil {
		t.Fatalf("GetTask() error = %v", err)
	}
	if task.Status.Status != "in progress" || task.Status.OrderIndex != "1" {
		t.Errorf("status = %+v", task.Status)
	}
	if task.PriorityName() != "" {
		t.Errorf("PriorityName() = %q, want empty for null priority", task.PriorityName())
	}
	if task.ParentID() != "" {
		t.Errorf("ParentID() = %q", task.ParentID())
	}
	if len(task.Assignees) != 1 || task.Assignees[0].ID != "183" {
		t.Errorf("assignees = %+v", task.Assignees)
	}
	if task.List.ID != "901" {
		t.Errorf("list id = %q", task.List.ID)
	}
	if task.Points == nil || *task.Points != 3 {
		t.Errorf("points = %v", task.Points)
	}
	if task.TimeEstimate != 3600000 {
		t.Errorf("time_estimate = %d", task.TimeEstimate)
	}
	if due, ok := ParseMillis(task.DueDate); !ok || !due.Equal(time.UnixMilli(1700000000000)) {
		t.Errorf("due date = %v, %v", due, ok)
	}
}

func TestAPIErrorFromBody(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"err":"Task not found, deleted","ECODE":"ITEM_013"}`)
	}))

	_, err := c.GetTask(context.Background(), "gone")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusNotFound || apiErr.Message != "Task not found, deleted" || apiErr.Code != "ITEM_013" {
		t.Errorf("apiErr = %+v", apiErr)
	}
	if !IsNotFound(err) {
		t.Error("IsNotFound() = false")
	}
	if !isClientError(err) {
		t.Error("404 should be a client error")
	}
}

func TestAPIErrorWithoutBody(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := c.GetTeams(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "Bad Gateway" {
		t.Fatalf("error = %v", err)
	}
	if isClientError(err) {
		t.Error("502 is not a client error")
	}
}

func TestRateLimitRetryHonoursRetryAfter(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) <= 2 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"teams":[{"id":"1","name":"Acme"}]}`)
	}))

	teams, err := c.GetTeams(context.Background())
	if err != nil {
		t.Fatalf("GetTeams() error = %v", err)
	}
	if len(teams) != 1 || teams[0].Name != "Acme" {
		t.Errorf("teams = %+v", teams)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestRateLimitGivesUp(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	_, err := c.GetTeams(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("error = %v, want 429 APIError", err)
	}
	if got := calls.Load(); got != maxRateLimitRetries+1 {
		t.Errorf("calls = %d, want %d", got, maxRateLimitRetries+1)
	}
}

func TestGetTasksPaginates(t *testing.T) {
	t.Parallel()

	pageTasks := func(page, n int) []Task {
		out := make([]Task, n)
		for i := range out {
			out[i] = Task{ID: fmt.Sprintf("p%d-%d", page, i)}
		}
		return out
	}

	tests := []struct {
		name      string
		pages     []int
		limit     int
		wantTasks int
		wantCalls int32
	}{
		{"short last page", []int{100, 100, 40}, 0, 240, 3},
		{"empty last page", []int{100, 0}, 0, 100, 2},
		{"limit stops early", []int{100, 100, 100}, 150, 150, 2},
		{"single short page", []int{7}, 0, 7, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var calls atomic.Int32
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				if r.URL.Query().Get("include_closed") != "true" || r.URL.Query().Get("subtasks") != "true" {
					t.Errorf("query = %s", r.URL.RawQuery)
				}
				page, _ := strconv.Atoi(r.URL.Query().Get("page"))
				n := 0
				if page < len(tt.pages) {
					n = tt.pages[page]
				}
				_ = json.NewEncoder(w).Encode(tasksResponse{Tasks: pageTasks(page, n)})
			}))

			tasks, err := c.GetTasks(context.Background(), "L1", TaskQuery{IncludeClosed: true, Subtasks: true, Limit: tt.limit})
			if err != nil {
				t.Fatalf("GetTasks() error = %v", err)
			}
			if len(tasks) != tt.wantTasks {
				t.Errorf("got %d tasks, want %d", len(tasks), tt.wantTasks)
			}
			if calls.Load() != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls.Load(), tt.wantCalls)
			}
		})
	}
}

func TestHierarchyEndpoints(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/team/9/space", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"spaces":[{"id":"S1","name":"Eng"}]}`)
	})
	mux.HandleFunc("/space/S1/folder", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"folders":[{"id":"F1","name":"Q1","task_count":"4"}]}`)
	})
	mux.HandleFunc("/folder/F1/list", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"lists":[{"id":"L1","name":"Sprint","task_count":4}]}`)
	})
	mux.HandleFunc("/space/S1/list", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"lists":[]}`)
	})
	mux.HandleFunc("/list/L1", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"id":"L1","name":"Sprint","task_count":null}`)
	})
	c := newTestClient(t, mux)
	ctx := context.Background()

	spaces, err := c.GetSpaces(ctx, "9")
	if err != nil || len(spaces) != 1 || spaces[0].ID != "S1" {
		t.Fatalf("GetSpaces() = %+v, %v", spaces, err)
	}
	folders, err := c.GetFolders(ctx, "S1")
	if err != nil || len(folders) != 1 || folders[0].TaskCount != 4 {
		t.Fatalf("GetFolders() = %+v, %v", folders, err)
	}
	lists, err := c.GetFolderLists(ctx, "F1")
	if err != nil || len(lists) != 1 || lists[0].TaskCount != 4 {
		t.Fatalf("GetFolderLists() = %+v, %v", lists, err)
	}
	spaceLists, err := c.GetSpaceLists(ctx, "S1")
	if err != nil || len(spaceLists) != 0 {
		t.Fatalf("GetSpaceLists() = %+v, %v", spaceLists, err)
	}
	list, err := c.GetList(ctx, "L1")
	if err != nil || list.TaskCount != 0 {
		t.Fatalf("GetList() = %+v, %v", list, err)
	}
}

func TestFlexStringAndFlexInt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		wantStr string
		wantInt int64
	}{
		{`"abc"`, "abc", -1},
		{`123`, "123", 123},
		{`"42"`, "42", 42},
		{`null`, "", 0},
		{`1.5`, "1.5", 1},
	}
	for _, tt := range tests {
		var s FlexString
		if err := json.Unmarshal([]byte(tt.in), &s); err != nil || s.String() != tt.wantStr {
			t.Errorf("FlexString(%s) = %q, %v", tt.in, s, err)
		}
		if tt.wantInt < 0 {
			continue
		}
		var n FlexInt
		if err := json.Unmarshal([]byte(tt.in), &n); err != nil || int64(n) != tt.wantInt {
			t.Errorf("FlexInt(%s) = %d, %v", tt.in, n, err)
		}
	}
}

func TestCircuitBreakerOpensOnServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	cbc := NewCircuitBreakerClient(c, BreakerSettings{MinRequests: 3, FailureRatio: 0.5, Timeout: time.Hour})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := cbc.GetTask(ctx, "T1"); err == nil {
			t.Fatal("expected failure")
		}
	}
	if cbc.State() != "open" {
		t.Fatalf("State() = %s, want open", cbc.State())
	}

	before := calls.Load()
	if _, err := cbc.GetTask(ctx, "T1"); err == nil {
		t.Fatal("open breaker should reject")
	}
	if calls.Load() != before {
		t.Error("open breaker must not reach the server")
	}
}

func TestCircuitBreakerIgnoresClientErrors(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"err":"not found"}`)
	}))
	cbc := NewCircuitBreakerClient(c, BreakerSettings{MinRequests: 2, FailureRatio: 0.5})

	for i := 0; i < 5; i++ {
		if _, err := cbc.GetTask(context.Background(), "x"); !IsNotFound(err) {
			t.Fatalf("error = %v, want 404", err)
		}
	}
	if cbc.State() != "closed" {
		t.Errorf("State() = %s, want closed", cbc.State())
	}
}

func TestNewTaskSource(t *testing.T) {
	t.Parallel()

	if _, ok := NewTaskSource(&config.ClickUpConfig{}).(*Client); !ok {
		t.Error("breaker disabled should return *Client")
	}
	if _, ok := NewTaskSource(&config.ClickUpConfig{CircuitBreaker: true}).(*CircuitBreakerClient); !ok {
		t.Error("breaker enabled should return *CircuitBreakerClient")
	}
}
