// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package clickup

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/taskgraph/internal/webhooks"
)

var received = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

func TestKindOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		event string
		want  webhooks.EventKind
	}{
		{EventTaskCreated, webhooks.KindCreated},
		{EventSubtaskCreated, webhooks.KindCreated},
		{EventTaskUpdated, webhooks.KindUpdated},
		{EventTaskMoved, webhooks.KindUpdated},
		{EventTaskPriorityUpdated, webhooks.KindUpdated},
		{EventTaskDueDateUpdated, webhooks.KindUpdated},
		{EventTaskDeleted, webhooks.KindDeleted},
		{EventSubtaskDeleted, webhooks.KindDeleted},
		{EventTaskStatusUpdated, webhooks.KindStatusChanged},
		{EventTaskAssigneeUpdated, webhooks.KindAssigned},
		{EventTaskCommentPosted, webhooks.KindCommentCreated},
		{"listCreated", webhooks.KindOther},
		{"", webhooks.KindOther},
	}
	for _, tt := range tests {
		if got := KindOf(tt.event); got != tt.want {
			t.Errorf("KindOf(%q) = %q, want %q", tt.event, got, tt.want)
		}
	}

	for _, ev := range supportedEvents {
		if KindOf(ev) == webhooks.KindOther {
			t.Errorf("supported event %q maps to other", ev)
		}
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	raw := []byte(`{
		"event": "taskStatusUpdated",
		"task_id": "abc1",
		"webhook_id": "wh-9",
		"history_items": [
			{"id": 1, "field": "status", "date": "1700000000000", "after": {"status": "complete"}},
			{"id": "2", "field": "assignee", "date": 1700000005000, "after": null}
		]
	}`)

	evt, err := Normalize(raw, received)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	if evt.Provider() != ProviderName || evt.Kind() != webhooks.KindStatusChanged {
		t.Errorf("provider/kind = %q/%q", evt.Provider(), evt.Kind())
	}
	if evt.EventID() != "clickup_wh-9_abc1" {
		t.Errorf("EventID() = %q", evt.EventID())
	}
	if evt.SourceEvent() != EventTaskStatusUpdated || evt.AffectedEntityID() != "abc1" || evt.AffectedEntityType() != "task" {
		t.Errorf("source=%q entity=%q type=%q", evt.SourceEvent(), evt.AffectedEntityID(), evt.AffectedEntityType())
	}
	if want := time.UnixMilli(1700000005000).UTC(); !evt.Timestamp().Equal(want) {
		t.Errorf("Timestamp() = %v, want newest history date %v", evt.Timestamp(), want)
	}

	item, ok := evt.FindHistory("status")
	if !ok || item.ID != "1" {
		t.Fatalf("FindHistory(status) = %+v, %v", item, ok)
	}
	if v, ok := item.AfterValue(); !ok || v != "complete" {
		t.Errorf("AfterValue() = %q, %v", v, ok)
	}
	if string(evt.RawPayload()) != string(raw) {
		t.Error("RawPayload() does not match the input")
	}
	if got := WebhookID(evt); got != "wh-9" {
		t.Errorf("WebhookID() = %q", got)
	}
}

func TestNormalizeFallsBackToReceiveTime(t *testing.T) {
	t.Parallel()

	evt, err := Normalize([]byte(`{"event":"taskCreated","task_id":"t","webhook_id":"w"}`), received)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if !evt.Timestamp().Equal(received) {
		t.Errorf("Timestamp() = %v, want %v", evt.Timestamp(), received)
	}
	if len(evt.History()) != 0 {
		t.Errorf("History() = %v, want empty", evt.History())
	}
}

func TestNormalizeRejectsBadPayloads(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		wantMsg string
	}{
		{"malformed", `{"event":`, "Invalid ClickUp payload"},
		{"wrong type", `{"event": 5, "task_id": "t", "webhook_id": "w"}`, "Invalid ClickUp payload"},
		{"missing task", `{"event":"taskCreated","webhook_id":"w"}`, "task_id is required"},
		{"missing webhook", `{"event":"taskCreated","task_id":"t"}`, "webhook_id is required"},
		{"missing event", `{"task_id":"t","webhook_id":"w"}`, "event is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Normalize([]byte(tt.raw), received)
			var valErr *webhooks.ValidationError
			if !errors.As(err, &valErr) {
				t.Fatalf("Normalize() error = %v, want ValidationError", err)
			}
			if valErr.Provider != ProviderName {
				t.Errorf("Provider = %q", valErr.Provider)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want %q", err, tt.wantMsg)
			}
			if webhooks.HTTPStatus(err) != 400 {
				t.Errorf("HTTPStatus() = %d, want 400", webhooks.HTTPStatus(err))
			}
		})
	}
}

func TestNormalizeIsStableAcrossRedelivery(t *testing.T) {
	t.Parallel()

	raw := []byte(`{"event":"taskUpdated","task_id":"t1","webhook_id":"w1"}`)
	a, err := Normalize(raw, received)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Normalize(raw, received.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if a.EventID() != b.EventID() {
		t.Errorf("event ids differ: %q vs %q", a.EventID(), b.EventID())
	}
}
