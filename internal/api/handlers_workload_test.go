// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tomtom215/taskgraph/internal/graph/graphtest"
	"github.com/tomtom215/taskgraph/internal/workload"
)

func workloadGraph() *graphtest.Graph {
	g := graphtest.New()
	g.Lock()
	defer g.Unlock()
	g.Users["u1"] = map[string]any{"id": "u1", "username": "ana"}
	g.Tasks["t1"] = map[string]any{"id": "t1", "name": "late", "status": "to do", "list_id": "list1", "due_date": time.Now().Add(-48 * time.Hour)}
	g.Tasks["t2"] = map[string]any{"id": "t2", "name": "later", "status": "to do", "list_id": "list2", "due_date": time.Now().Add(48 * time.Hour)}
	g.AssignedTo["t1"] = map[string]bool{"u1": true}
	g.AssignedTo["t2"] = map[string]bool{"u1": true}
	return g
}

func TestWorkloadRoutes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantCode   string
		wantCount  float64
	}{
		{"find user", "/api/v1/admin/users?username=ANA", http.StatusOK, "", -1},
		{"find user missing", "/api/v1/admin/users?username=cy", http.StatusNotFound, ErrCodeNotFound, -1},
		{"find user without username", "/api/v1/admin/users", http.StatusBadRequest, ErrCodeValidationFailed, -1},
		{"user tasks", "/api/v1/admin/users/u1/tasks", http.StatusOK, "", 2},
		{"user tasks in one list", "/api/v1/admin/users/u1/tasks?list_ids=list2,", http.StatusOK, "", 1},
		{"user tasks bad list id", "/api/v1/admin/users/u1/tasks?list_ids=a%20b", http.StatusBadRequest, ErrCodeValidationFailed, -1},
		{"summary", "/api/v1/admin/users/u1/summary", http.StatusOK, "", -1},
		{"summary unknown user", "/api/v1/admin/users/u9/summary", http.StatusNotFound, ErrCodeNotFound, -1},
		{"overdue", "/api/v1/admin/tasks/overdue", http.StatusOK, "", 1},
		{"overdue for user", "/api/v1/admin/tasks/overdue?user_id=u1", http.StatusOK, "", 1},
		{"overdue bad user id", "/api/v1/admin/tasks/overdue?user_id=a%20b", http.StatusBadRequest, ErrCodeValidationFailed, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			hs := newHarness()
			hs.deps.Workload = workload.NewReader(workloadGraph(), nil)
			w, body := do(t, hs.handler(t), httptest.NewRequest(http.MethodGet, tt.path, nil))
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantCode != "" && errorCode(body) != tt.wantCode {
				t.Errorf("code = %q, want %q", errorCode(body), tt.wantCode)
			}
			if tt.wantCount >= 0 {
				data, _ := body["data"].(map[string]any)
				if data["count"] != tt.wantCount {
					t.Errorf("count = %v, want %v", data["count"], tt.wantCount)
				}
			}
		})
	}
}

func TestWorkloadSummaryBody(t *testing.T) {
	t.Parallel()

	hs := newHarness()
	hs.deps.Workload = workload.NewReader(workloadGraph(), nil)
	w, body := do(t, hs.handler(t), httptest.NewRequest(http.MethodGet, "/api/v1/admin/users/u1/summary", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	data, _ := body["data"].(map[string]any)
	if data["total_tasks"] != float64(2) {
		t.Errorf("total_tasks = %v", data["total_tasks"])
	}
	byStatus, _ := data["by_status"].(map[string]any)
	if byStatus["to do"] != float64(2) {
		t.Errorf("by_status = %v", byStatus)
	}
}

func TestWorkloadRoutesUnavailable(t *testing.T) {
	t.Parallel()

	for _, path := range []string{
		"/api/v1/admin/users?username=ana",
		"/api/v1/admin/users/u1/tasks",
		"/api/v1/admin/users/u1/summary",
		"/api/v1/admin/tasks/overdue",
	} {
		t.Run(path, func(t *testing.T) {
			t.Parallel()
			w, body := do(t, newHarness().handler(t), httptest.NewRequest(http.MethodGet, path, nil))
			if w.Code != http.StatusServiceUnavailable || errorCode(body) != ErrCodeServiceUnavailable {
				t.Errorf("status = %d code = %q", w.Code, errorCode(body))
			}
		})
	}
}

func TestWorkloadGraphFailure(t *testing.T) {
	t.Parallel()

	g := workloadGraph()
	g.Fail = func(string, map[string]any) error { return errors.New("graph down") }
	hs := newHarness()
	hs.deps.Workload = workload.NewReader(g, nil)

	w, body := do(t, hs.handler(t), httptest.NewRequest(http.MethodGet, "/api/v1/admin/tasks/overdue", nil))
	if w.Code != http.StatusInternalServerError || errorCode(body) != ErrCodeGraphError {
		t.Errorf("status = %d code = %q", w.Code, errorCode(body))
	}
}
