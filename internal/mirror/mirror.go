// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

// Package mirror writes ClickUp tasks into the graph. The webhook processor
// and the bulk importer both go through Writer so a task looks the same no
// matter which path wrote it last.
package mirror

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/tomtom215/taskgraph/internal/clickup"
	"github.com/tomtom215/taskgraph/internal/graph"
)

// SwapResult reports a HAS_STATUS or HAS_PRIORITY replacement.
type SwapResult struct {
	// Found is false when the task is not in the graph.
	Found bool

	// Linked is false when no reference node matched the label.
	Linked bool
}

// TaskResult summarizes SyncTask.
type TaskResult struct {
	TaskID        string
	Users         []string
	ListID        string
	Relationships int

	// Unlinked names the reference labels that had no node, e.g. "status:qa".
	Unlinked []string
}

// Writer applies task mutations through a GraphStore.
type Writer struct {
	store graph.GraphStore
}

// NewWriter returns a Writer over store.
func NewWriter(store graph.GraphStore) *Writer {
	return &Writer{store: store}
}

// Store returns the underlying GraphStore.
func (w *Writer) Store() graph.GraphStore {
	return w.store
}

// TaskParams maps a task to the UpsertTask parameters.
func TaskParams(t *clickup.Task) map[string]any {
	var priority any
	if name := t.PriorityName(); name != "" {
		priority = name
	}
	var points any
	if t.Points != nil {
		points = *t.Points
	}
	var parent any
	if id := t.ParentID(); id != "" {
		parent = id
	}

	return map[string]any{
		"id":            t.ID,
		"name":          t.Name,
		"description":   t.Description,
		"text_content":  t.TextContent,
		"status":        t.Status.Status,
		"priority":      priority,
		"points":        points,
		"due_date":      timeParam(t.DueDate),
		"start_date":    timeParam(t.StartDate),
		"date_created":  timeParam(t.DateCreated),
		"date_updated":  timeParam(t.DateUpdated),
		"date_closed":   timeParam(t.DateClosed),
		"orderindex":    t.OrderIndex.String(),
		"url":           t.URL,
		"custom_id":     t.CustomID,
		"time_estimate": int64(t.TimeEstimate),
		"time_spent":    int64(t.TimeSpent),
		"archived":      t.Archived,
		"list_id":       t.List.ID.String(),
		"space_id":      t.Space.ID.String(),
		"parent_id":     parent,
	}
}

// UserParams maps a user to the MergeUser parameters.
func UserParams(u clickup.User) map[string]any {
	return map[string]any{
		"id":              u.ID.String(),
		"username":        u.Username,
		"email":           u.Email,
		"color":           u.Color,
		"initials":        u.Initials,
		"profile_picture": u.ProfilePicture,
	}
}

func timeParam(m clickup.Millis) any {
	if t, ok := clickup.ParseMillis(m); ok {
		return t
	}
	return nil
}

// UpsertTask writes the task node.
func (w *Writer) UpsertTask(ctx context.Context, t *clickup.Task) error {
	if _, err := w.store.Write(ctx, graph.UpsertTask, TaskParams(t)); err != nil {
		return fmt.Errorf("upsert task %s: %w", t.ID, err)
	}
	return nil
}

// MergeUser writes one user node.
func (w *Writer) MergeUser(ctx context.Context, u clickup.User) error {
	if _, err := w.store.Write(ctx, graph.MergeUser, UserParams(u)); err != nil {
		return fmt.Errorf("merge user %s: %w", u.ID, err)
	}
	return nil
}

// ReplaceAssignees merges users and makes them the task's only assignees.
// It returns the ids of the users written.
func (w *Writer) ReplaceAssignees(ctx context.Context, taskID string, users []clickup.User) ([]string, int, error) {
	ids := make([]string, 0, len(users))
	for _, u := range users {
		if u.ID == "" {
			continue
		}
		if err := w.MergeUser(ctx, u); err != nil {
			return nil, 0, err
		}
		ids = append(ids, u.ID.String())
	}

	s, err := w.store.Write(ctx, graph.ReplaceAssignees, map[string]any{
		"task_id":  taskID,
		"user_ids": ids,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("replace assignees of %s: %w", taskID, err)
	}
	return ids, int(graph.FirstInt(s.Records, "assigned")), nil
}

// MoveToList relinks BELONGS_TO and CONTAINS_TASK. ok is false when the
// task or list is missing from the graph.
func (w *Writer) MoveToList(ctx context.Context, taskID, listID string) (bool, error) {
	s, err := w.store.Write(ctx, graph.ReplaceListMembership, map[string]any{
		"task_id": taskID,
		"list_id": listID,
	})
	if err != nil {
		return false, fmt.Errorf("move %s to list %s: %w", taskID, listID, err)
	}
	return len(s.Records) > 0, nil
}

// SetStatus writes the status and relinks HAS_STATUS.
func (w *Writer) SetStatus(ctx context.Context, taskID, status string) (SwapResult, error) {
	s, err := w.store.Write(ctx, graph.SwapStatus, map[string]any{
		"task_id":    taskID,
		"status":     status,
		"status_key": graph.ReferenceKey(status),
	})
	if err != nil {
		return SwapResult{}, fmt.Errorf("set status of %s: %w", taskID, err)
	}
	return swapResult(s), nil
}

// SetPriority writes the priority and relinks HAS_PRIORITY. An empty
// priority clears both.
func (w *Writer) SetPriority(ctx context.Context, taskID, priority string) (SwapResult, error) {
	var value any
	if priority != "" {
		value = priority
	}
	s, err := w.store.Write(ctx, graph.SwapPriority, map[string]any{
		"task_id":      taskID,
		"priority":     value,
		"priority_key": graph.ReferenceKey(priority),
	})
	if err != nil {
		return SwapResult{}, fmt.Errorf("set priority of %s: %w", taskID, err)
	}
	return swapResult(s), nil
}

func swapResult(s graph.Summary) SwapResult {
	if len(s.Records) == 0 {
		return SwapResult{}
	}
	return SwapResult{Found: true, Linked: graph.Bool(s.Records[0], "linked")}
}

// SetDueDate writes or, for a nil due, clears the due date.
func (w *Writer) SetDueDate(ctx context.Context, taskID string, due *time.Time) (bool, error) {
	var value any
	if due != nil {
		value = due.UTC()
	}
	s, err := w.store.Write(ctx, graph.SetDueDate, map[string]any{
		"task_id":  taskID,
		"due_date": value,
	})
	if err != nil {
		return false, fmt.Errorf("set due date of %s: %w", taskID, err)
	}
	return len(s.Records) > 0, nil
}

// LinkParent points SUBTASK_OF at parentID. ok is false when either task
// is missing.
func (w *Writer) LinkParent(ctx context.Context, taskID, parentID string) (bool, error) {
	s, err := w.store.Write(ctx, graph.LinkSubtask, map[string]any{
		"task_id":   taskID,
		"parent_id": parentID,
	})
	if err != nil {
		return false, fmt.Errorf("link %s to parent %s: %w", taskID, parentID, err)
	}
	return len(s.Records) > 0, nil
}

// DeleteTask detach-deletes the task. Deleting an absent task succeeds
// with deleted=false.
func (w *Writer) DeleteTask(ctx context.Context, taskID string) (bool, error) {
	s, err := w.store.Write(ctx, graph.DeleteTask, map[string]any{"task_id": taskID})
	if err != nil {
		return false, fmt.Errorf("delete task %s: %w", taskID, err)
	}
	return graph.FirstInt(s.Records, "deleted") > 0, nil
}

// SeedReferences merges Status and Priority nodes for the task's labels.
func (w *Writer) SeedReferences(ctx context.Context, t *clickup.Task) error {
	if key := graph.ReferenceKey(t.Status.Status); key != "" {
		if _, err := w.store.Write(ctx, graph.SeedStatus, map[string]any{
			"status": key,
			"order":  orderIndex(t.Status.OrderIndex),
		}); err != nil {
			return fmt.Errorf("seed status %q: %w", key, err)
		}
	}
	if t.Priority != nil {
		if key := graph.ReferenceKey(t.Priority.Priority); key != "" {
			if _, err := w.store.Write(ctx, graph.SeedPriority, map[string]any{
				"priority": key,
				"order":    orderIndex(t.Priority.OrderIndex),
			}); err != nil {
				return fmt.Errorf("seed priority %q: %w", key, err)
			}
		}
	}
	return nil
}

func orderIndex(s clickup.FlexString) int {
	n, err := strconv.Atoi(s.String())
	if err != nil {
		return 0
	}
	return n
}

// SyncTask writes the node and every outgoing relationship except
// SUBTASK_OF, which callers link once the parent is known to exist.
func (w *Writer) SyncTask(ctx context.Context, t *clickup.Task) (*TaskResult, error) {
	res := &TaskResult{TaskID: t.ID}

	if err := w.UpsertTask(ctx, t); err != nil {
		return res, err
	}

	users, assigned, err := w.ReplaceAssignees(ctx, t.ID, t.Assignees)
	if err != nil {
		return res, err
	}
	res.Users = users
	res.Relationships += assigned

	if listID := t.List.ID.String(); listID != "" {
		ok, err := w.MoveToList(ctx, t.ID, listID)
		if err != nil {
			return res, err
		}
		if ok {
			res.ListID = listID
			res.Relationships += 2
		}
	}

	status, err := w.SetStatus(ctx, t.ID, t.Status.Status)
	if err != nil {
		return res, err
	}
	switch {
	case status.Linked:
		res.Relationships++
	case t.Status.Status != "":
		res.Unlinked = append(res.Unlinked, "status:"+t.Status.Status)
	}

	priority, err := w.SetPriority(ctx, t.ID, t.PriorityName())
	if err != nil {
		return res, err
	}
	switch {
	case priority.Linked:
		res.Relationships++
	case t.PriorityName() != "":
		res.Unlinked = append(res.Unlinked, "priority:"+t.PriorityName())
	}

	return res, nil
}
