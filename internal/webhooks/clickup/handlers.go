// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package clickup

import (
	"context"
	"fmt"
	"time"

	clickupapi "github.com/tomtom215/taskgraph/internal/clickup"
	"github.com/tomtom215/taskgraph/internal/logging"
	"github.com/tomtom215/taskgraph/internal/mirror"
	"github.com/tomtom215/taskgraph/internal/webhooks"
)

// fetchTask re-reads authoritative task state. gone is true when ClickUp
// no longer has the task.
func (p *Processor) fetchTask(ctx context.Context, taskID string) (task *clickupapi.Task, gone bool, err error) {
	task, err = p.source.GetTask(ctx, taskID)
	if err != nil {
		if clickupapi.IsNotFound(err) {
			return nil, true, nil
		}
		return nil, false, fmt.Errorf("fetch task %s: %w", taskID, err)
	}
	return task, false, nil
}

// refreshTask mirrors the fetched task and its relationships. A task that
// has disappeared at the source is removed, which is where a later delete
// event would have left the graph anyway.
func (p *Processor) refreshTask(ctx context.Context, taskID string, linkParent bool) (outcome, error) {
	task, gone, err := p.fetchTask(ctx, taskID)
	if err != nil {
		return outcome{}, err
	}
	if gone {
		if _, err := p.writer.DeleteTask(ctx, taskID); err != nil {
			return outcome{}, err
		}
		return outcome{entities: []string{taskID}, notes: []string{"task no longer exists in ClickUp, removed from graph"}}, nil
	}

	res, err := p.writer.SyncTask(ctx, task)
	if err != nil {
		return outcome{}, err
	}

	out := outcome{entities: []string{task.ID}}
	if listID := task.List.ID.String(); listID != "" && res.ListID == "" {
		out.note(fmt.Sprintf("list %s is not in the graph", listID))
	}
	for _, ref := range res.Unlinked {
		out.note("no reference node for " + ref)
	}

	if parentID := task.ParentID(); linkParent && parentID != "" {
		linked, err := p.writer.LinkParent(ctx, task.ID, parentID)
		if err != nil {
			return outcome{}, err
		}
		if linked {
			out.entities = append(out.entities, parentID)
		} else {
			out.note(fmt.Sprintf("parent task %s is not in the graph", parentID))
		}
	}

	if len(out.notes) > 0 {
		logging.Ctx(ctx).Warn().
			Str("task_id", task.ID).
			Strs("notes", out.notes).
			Msg("Task synced with missing references")
	}
	return out, nil
}

func (p *Processor) refreshAssignees(ctx context.Context, taskID string) (outcome, error) {
	task, gone, err := p.fetchTask(ctx, taskID)
	if err != nil {
		return outcome{}, err
	}
	if gone {
		return outcome{notes: []string{"task no longer exists in ClickUp"}}, nil
	}

	users, _, err := p.writer.ReplaceAssignees(ctx, task.ID, task.Assignees)
	if err != nil {
		return outcome{}, err
	}
	return outcome{entities: append([]string{task.ID}, users...)}, nil
}

func (p *Processor) deleteTask(ctx context.Context, taskID string) (outcome, error) {
	deleted, err := p.writer.DeleteTask(ctx, taskID)
	if err != nil {
		return outcome{}, err
	}
	out := outcome{entities: []string{taskID}}
	if !deleted {
		out.note("task was not in the graph")
	}
	return out, nil
}

func (p *Processor) statusChanged(ctx context.Context, evt *webhooks.NormalizedEvent) (outcome, error) {
	item, ok := evt.FindHistory("status")
	if !ok {
		return outcome{notes: []string{"no status change in history"}}, nil
	}
	status, ok := item.AfterValue()
	if !ok {
		return outcome{notes: []string{"status change has no new value"}}, nil
	}
	res, err := p.writer.SetStatus(ctx, evt.AffectedEntityID(), status)
	if err != nil {
		return outcome{}, err
	}
	return swapOutcome(evt.AffectedEntityID(), "status", status, res), nil
}

// priorityChanged clears the priority when ClickUp reports null.
func (p *Processor) priorityChanged(ctx context.Context, evt *webhooks.NormalizedEvent) (outcome, error) {
	item, ok := evt.FindHistory("priority")
	if !ok {
		return outcome{notes: []string{"no priority change in history"}}, nil
	}
	priority := ""
	if !item.AfterIsNull() {
		if priority, ok = item.AfterValue(); !ok {
			return outcome{notes: []string{"priority change has no usable value"}}, nil
		}
	}
	res, err := p.writer.SetPriority(ctx, evt.AffectedEntityID(), priority)
	if err != nil {
		return outcome{}, err
	}
	return swapOutcome(evt.AffectedEntityID(), "priority", priority, res), nil
}

func swapOutcome(taskID, field, value string, res mirror.SwapResult) outcome {
	if !res.Found {
		return outcome{notes: []string{"task is not in the graph"}}
	}
	out := outcome{entities: []string{taskID}}
	if !res.Linked && value != "" {
		out.note(fmt.Sprintf("no reference node for %s:%s", field, value))
	}
	return out
}

// dueDateChanged writes epoch-millisecond dates. Null clears the date; a
// value that does not parse leaves the graph untouched.
func (p *Processor) dueDateChanged(ctx context.Context, evt *webhooks.NormalizedEvent) (outcome, error) {
	item, ok := evt.FindHistory("due_date")
	if !ok {
		return outcome{notes: []string{"no due date change in history"}}, nil
	}

	var due *time.Time
	if !item.AfterIsNull() {
		raw, _ := item.AfterValue()
		parsed, ok := clickupapi.ParseMillis(clickupapi.Millis(raw))
		if !ok {
			logging.Ctx(ctx).Warn().
				Str("task_id", evt.AffectedEntityID()).
				Str("value", logging.SanitizeValue("due_date", raw)).
				Msg("Ignoring malformed due date")
			return outcome{notes: []string{"malformed due date ignored"}}, nil
		}
		due = &parsed
	}

	found, err := p.writer.SetDueDate(ctx, evt.AffectedEntityID(), due)
	if err != nil {
		return outcome{}, err
	}
	if !found {
		return outcome{notes: []string{"task is not in the graph"}}, nil
	}
	return outcome{entities: []string{evt.AffectedEntityID()}}, nil
}

// moved prefers the list id from history and falls back to the fetched
// task's list.
func (p *Processor) moved(ctx context.Context, evt *webhooks.NormalizedEvent) (outcome, error) {
	taskID := evt.AffectedEntityID()

	listID := ""
	for _, field := range []string{"list_id", "section"} {
		if item, ok := evt.FindHistory(field); ok {
			if v, ok := item.AfterValue(); ok {
				listID = v
				break
			}
		}
	}
	if listID == "" {
		task, gone, err := p.fetchTask(ctx, taskID)
		if err != nil {
			return outcome{}, err
		}
		if gone {
			return outcome{notes: []string{"task no longer exists in ClickUp"}}, nil
		}
		listID = task.List.ID.String()
	}
	if listID == "" {
		return outcome{notes: []string{"destination list unknown"}}, nil
	}

	ok, err := p.writer.MoveToList(ctx, taskID, listID)
	if err != nil {
		return outcome{}, err
	}
	if !ok {
		return outcome{notes: []string{fmt.Sprintf("task or list %s is not in the graph", listID)}}, nil
	}
	return outcome{entities: []string{taskID, listID}}, nil
}

func (p *Processor) commentPosted(ctx context.Context, evt *webhooks.NormalizedEvent) (outcome, error) {
	logging.Ctx(ctx).Info().
		Str("task_id", evt.AffectedEntityID()).
		Str("event_id", evt.EventID()).
		Msg("Comment posted on task")
	return outcome{}, nil
}
