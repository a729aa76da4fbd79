// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package clickup

import (
	"context"
	"errors"

	clickupapi "github.com/tomtom215/taskgraph/internal/clickup"
	"github.com/tomtom215/taskgraph/internal/graph"
	"github.com/tomtom215/taskgraph/internal/keylock"
	"github.com/tomtom215/taskgraph/internal/mirror"
	"github.com/tomtom215/taskgraph/internal/webhooks"
)

// outcome is what one handler changed. notes are soft failures or
// no-op reasons surfaced in the result message.
type outcome struct {
	entities []string
	notes    []string
}

func (o *outcome) note(msg string) {
	o.notes = append(o.notes, msg)
}

// Processor applies ClickUp events to the graph. Events for the same task
// are serialized; different tasks proceed concurrently.
type Processor struct {
	source clickupapi.TaskSource
	writer *mirror.Writer
	locks  *keylock.Map
}

// NewProcessor returns a processor that re-fetches from source and writes
// to store.
func NewProcessor(source clickupapi.TaskSource, store graph.GraphStore) *Processor {
	return &Processor{
		source: source,
		writer: mirror.NewWriter(store),
		locks:  keylock.New(),
	}
}

// Handle dispatches on the raw ClickUp event name.
func (p *Processor) Handle(ctx context.Context, evt *webhooks.NormalizedEvent) (outcome, error) {
	taskID := evt.AffectedEntityID()
	unlock := p.locks.Lock(taskID)
	defer unlock()

	switch evt.SourceEvent() {
	case EventTaskCreated, EventSubtaskCreated:
		return p.refreshTask(ctx, taskID, true)
	case EventTaskUpdated, EventSubtaskUpdated:
		return p.refreshTask(ctx, taskID, false)
	case EventTaskAssigneeUpdated:
		return p.refreshAssignees(ctx, taskID)
	case EventTaskDeleted, EventSubtaskDeleted:
		return p.deleteTask(ctx, taskID)
	case EventTaskStatusUpdated:
		return p.statusChanged(ctx, evt)
	case EventTaskPriorityUpdated:
		return p.priorityChanged(ctx, evt)
	case EventTaskDueDateUpdated:
		return p.dueDateChanged(ctx, evt)
	case EventTaskMoved:
		return p.moved(ctx, evt)
	case EventTaskCommentPosted:
		return p.commentPosted(ctx, evt)
	default:
		return outcome{notes: []string{"event type not handled"}}, nil
	}
}

// errorType classifies a processing failure for result metadata.
func errorType(err error) string {
	var apiErr *clickupapi.APIError
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "context"
	case clickupapi.IsCircuitOpen(err):
		return "circuit_open"
	case errors.As(err, &apiErr):
		return "clickup_api"
	default:
		return "graph_" + graph.ErrorClass(err)
	}
}
