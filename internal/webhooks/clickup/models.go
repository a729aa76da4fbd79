// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package clickup

import (
	"strings"
	"time"

	"github.com/goccy/go-json"

	clickupapi "github.com/tomtom215/taskgraph/internal/clickup"
	"github.com/tomtom215/taskgraph/internal/validation"
	"github.com/tomtom215/taskgraph/internal/webhooks"
)

// ProviderName is the path segment ClickUp posts to.
const ProviderName = "clickup"

// ClickUp webhook event names.
const (
	EventTaskCreated         = "taskCreated"
	EventTaskUpdated         = "taskUpdated"
	EventTaskDeleted         = "taskDeleted"
	EventTaskStatusUpdated   = "taskStatusUpdated"
	EventTaskAssigneeUpdated = "taskAssigneeUpdated"
	EventTaskDueDateUpdated  = "taskDueDateUpdated"
	EventTaskPriorityUpdated = "taskPriorityUpdated"
	EventTaskMoved           = "taskMoved"
	EventTaskCommentPosted   = "taskCommentPosted"
	EventSubtaskCreated      = "subtaskCreated"
	EventSubtaskUpdated      = "subtaskUpdated"
	EventSubtaskDeleted      = "subtaskDeleted"
)

// eventKinds maps ClickUp event names to normalized kinds. Anything absent
// is KindOther.
var eventKinds = map[string]webhooks.EventKind{
	EventTaskCreated:         webhooks.KindCreated,
	EventTaskUpdated:         webhooks.KindUpdated,
	EventTaskDeleted:         webhooks.KindDeleted,
	EventTaskStatusUpdated:   webhooks.KindStatusChanged,
	EventTaskAssigneeUpdated: webhooks.KindAssigned,
	EventTaskDueDateUpdated:  webhooks.KindUpdated,
	EventTaskPriorityUpdated: webhooks.KindUpdated,
	EventTaskMoved:           webhooks.KindUpdated,
	EventTaskCommentPosted:   webhooks.KindCommentCreated,
	EventSubtaskCreated:      webhooks.KindCreated,
	EventSubtaskUpdated:      webhooks.KindUpdated,
	EventSubtaskDeleted:      webhooks.KindDeleted,
}

// supportedEvents is in ClickUp documentation order.
var supportedEvents = []string{
	EventTaskCreated,
	EventTaskUpdated,
	EventTaskDeleted,
	EventTaskStatusUpdated,
	EventTaskAssigneeUpdated,
	EventTaskDueDateUpdated,
	EventTaskPriorityUpdated,
	EventTaskMoved,
	EventTaskCommentPosted,
	EventSubtaskCreated,
	EventSubtaskUpdated,
	EventSubtaskDeleted,
}

// KindOf returns the normalized kind for a ClickUp event name.
func KindOf(event string) webhooks.EventKind {
	if kind, ok := eventKinds[event]; ok {
		return kind
	}
	return webhooks.KindOther
}

// WebhookEvent is the body ClickUp posts.
type WebhookEvent struct {
	Event        string          `json:"event" validate:"required"`
	TaskID       string          `json:"task_id" validate:"required"`
	WebhookID    string          `json:"webhook_id" validate:"required"`
	HistoryItems []historyItem   `json:"history_items"`
	Task         json.RawMessage `json:"task,omitempty"`
	Before       json.RawMessage `json:"before,omitempty"`
	After        json.RawMessage `json:"after,omitempty"`
}

// historyItem tolerates numeric ids and dates.
type historyItem struct {
	ID     clickupapi.FlexString `json:"id"`
	Field  string                `json:"field"`
	Date   clickupapi.FlexString `json:"date"`
	Before json.RawMessage       `json:"before"`
	After  json.RawMessage       `json:"after"`
}

// EventID is deterministic per webhook and task so redeliveries share it.
func EventID(webhookID, taskID string) string {
	return "clickup_" + webhookID + "_" + taskID
}

// Normalize parses a raw ClickUp payload. received is used as the
// timestamp when no history item carries a date.
func Normalize(raw []byte, received time.Time) (*webhooks.NormalizedEvent, error) {
	var evt WebhookEvent
	if err := json.Unmarshal(raw, &evt); err != nil {
		return nil, webhooks.NewValidationError("Invalid ClickUp payload: "+err.Error(), ProviderName, "")
	}

	if verr := validation.ValidateStruct(&evt); verr != nil {
		return nil, webhooks.NewValidationError("Invalid ClickUp payload: "+verr.Error(),
			ProviderName, EventID(evt.WebhookID, evt.TaskID))
	}

	history := make([]webhooks.HistoryItem, len(evt.HistoryItems))
	timestamp := time.Time{}
	for i, item := range evt.HistoryItems {
		history[i] = webhooks.HistoryItem{
			ID:     item.ID.String(),
			Field:  item.Field,
			Date:   item.Date.String(),
			Before: item.Before,
			After:  item.After,
		}
		if ts := history[i].Time(); ts.After(timestamp) {
			timestamp = ts
		}
	}
	if timestamp.IsZero() {
		timestamp = received.UTC()
	}

	return webhooks.NewNormalizedEvent(webhooks.EventParams{
		Provider:    ProviderName,
		Kind:        KindOf(evt.Event),
		EventID:     EventID(evt.WebhookID, evt.TaskID),
		SourceEvent: evt.Event,
		Timestamp:   timestamp,
		EntityID:    evt.TaskID,
		EntityType:  "task",
		History:     history,
		RawPayload:  raw,
	}), nil
}

// WebhookID recovers the webhook id from a normalized event id.
func WebhookID(evt *webhooks.NormalizedEvent) string {
	id, ok := strings.CutPrefix(evt.EventID(), "clickup_")
	if !ok {
		return ""
	}
	id, ok = strings.CutSuffix(id, "_"+evt.AffectedEntityID())
	if !ok {
		return ""
	}
	return id
}
