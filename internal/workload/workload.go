// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

// Package workload answers per-user questions from the mirrored graph:
// which tasks a user is assigned, how they break down by status and
// priority, and which open tasks are overdue.
package workload

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/tomtom215/taskgraph/internal/graph"
	"github.com/tomtom215/taskgraph/internal/snapshot"
)

// ErrUserNotFound is returned when no mirrored user matches.
var ErrUserNotFound = errors.New("user not found")

// Task is one assigned or overdue task.
type Task struct {
	ID            string   `json:"task_id"`
	Name          string   `json:"task_name"`
	Status        string   `json:"status"`
	Priority      string   `json:"priority,omitempty"`
	ListID        string   `json:"list_id"`
	DueDate       string   `json:"due_date,omitempty"`
	Description   string   `json:"description,omitempty"`
	URL           string   `json:"url,omitempty"`
	AssignedUsers []string `json:"assigned_users,omitempty"`
}

func taskFromRecord(r graph.Record) Task {
	t := Task{
		ID:          graph.String(r, "task_id"),
		Name:        graph.String(r, "task_name"),
		Status:      graph.String(r, "status"),
		Priority:    graph.String(r, "priority"),
		ListID:      graph.String(r, "list_id"),
		DueDate:     graph.String(r, "due_date"),
		Description: graph.String(r, "description"),
		URL:         graph.String(r, "url"),
	}
	if _, ok := r["assigned_users"]; ok {
		t.AssignedUsers = graph.Strings(r, "assigned_users")
	}
	return t
}

// User identifies a mirrored assignee.
type User struct {
	ID       string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Initials string `json:"initials,omitempty"`
}

// Summary counts a user's tasks. Tasks without a priority are counted
// under "none".
type Summary struct {
	UserID     string           `json:"user_id"`
	TotalTasks int64            `json:"total_tasks"`
	Statuses   []string         `json:"statuses"`
	Priorities []string         `json:"priorities"`
	ByStatus   map[string]int64 `json:"by_status"`
	ByPriority map[string]int64 `json:"by_priority"`
}

// Reader runs the per-user queries.
type Reader struct {
	store graph.GraphStore
	lists []string
	now   func() time.Time
}

// NewReader restricts task reads to listIDs by default; an empty slice
// means every mirrored list.
func NewReader(store graph.GraphStore, listIDs []string) *Reader {
	return &Reader{
		store: store,
		lists: append([]string(nil), listIDs...),
		now:   time.Now,
	}
}

func (r *Reader) scope(listIDs []string) []string {
	if len(listIDs) > 0 {
		return listIDs
	}
	if r.lists == nil {
		return []string{}
	}
	return r.lists
}

// UserTasks returns the tasks assigned to userID in listIDs, or in the
// default lists when listIDs is empty. Dated tasks come first.
func (r *Reader) UserTasks(ctx context.Context, userID string, listIDs []string) ([]Task, error) {
	records, err := r.store.Read(ctx, graph.UserTasks, map[string]any{
		"user_id":  userID,
		"list_ids": r.scope(listIDs),
	})
	if err != nil {
		return nil, fmt.Errorf("tasks of user %s: %w", userID, err)
	}
	tasks := make([]Task, 0, len(records))
	for _, rec := range records {
		tasks = append(tasks, taskFromRecord(rec))
	}
	return tasks, nil
}

// UserTaskSummary counts userID's tasks by status and priority.
func (r *Reader) UserTaskSummary(ctx context.Context, userID string, listIDs []string) (*Summary, error) {
	records, err := r.store.Read(ctx, graph.UserTaskSummary, map[string]any{
		"user_id":  userID,
		"list_ids": r.scope(listIDs),
	})
	if err != nil {
		return nil, fmt.Errorf("task summary of user %s: %w", userID, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}

	rec := records[0]
	s := &Summary{
		UserID:     userID,
		TotalTasks: graph.Int(rec, "total_tasks"),
		ByStatus:   tally(graph.Strings(rec, "statuses")),
		ByPriority: tally(graph.Strings(rec, "priorities")),
	}
	s.Statuses = keys(s.ByStatus)
	s.Priorities = keys(s.ByPriority)
	return s, nil
}

// UserByUsername finds a user by case-insensitive username.
func (r *Reader) UserByUsername(ctx context.Context, username string) (*User, error) {
	records, err := r.store.Read(ctx, graph.UserByUsername, map[string]any{"username": username})
	if err != nil {
		return nil, fmt.Errorf("find user %q: %w", username, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	rec := records[0]
	return &User{
		ID:       graph.String(rec, "user_id"),
		Username: graph.String(rec, "username"),
		Email:    graph.String(rec, "email"),
		Initials: graph.String(rec, "initials"),
	}, nil
}

// OverdueTasks returns open tasks whose due date has passed, oldest first.
// An empty userID covers every assignee.
func (r *Reader) OverdueTasks(ctx context.Context, userID string) ([]Task, error) {
	records, err := r.store.Read(ctx, graph.OverdueTasks, map[string]any{
		"user_id":       userID,
		"now":           r.now().UTC(),
		"done_statuses": snapshot.CompletedStatuses(),
	})
	if err != nil {
		return nil, fmt.Errorf("overdue tasks: %w", err)
	}
	tasks := make([]Task, 0, len(records))
	for _, rec := range records {
		tasks = append(tasks, taskFromRecord(rec))
	}
	return tasks, nil
}

func tally(values []string) map[string]int64 {
	out := make(map[string]int64, len(values))
	for _, v := range values {
		out[v]++
	}
	return out
}

func keys(m map[string]int64) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
