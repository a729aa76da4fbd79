// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package webhooks

import (
	"bytes"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// EventKind is the provider-independent classification of an event.
type EventKind string

// The closed set of event kinds. Unknown provider events map to KindOther.
const (
	KindCreated        EventKind = "created"
	KindUpdated        EventKind = "updated"
	KindDeleted        EventKind = "deleted"
	KindStatusChanged  EventKind = "status_changed"
	KindAssigned       EventKind = "assigned"
	KindCommentCreated EventKind = "comment_created"
	KindOther          EventKind = "other"
)

// ParseEventKind returns the kind named by s, or KindOther.
func ParseEventKind(s string) EventKind {
	switch k := EventKind(s); k {
	case KindCreated, KindUpdated, KindDeleted, KindStatusChanged, KindAssigned, KindCommentCreated:
		return k
	default:
		return KindOther
	}
}

func (k EventKind) String() string {
	return string(k)
}

// HistoryItem is one field-level change reported by the provider. Before and
// After are kept as raw JSON; processors read only the fields they need.
type HistoryItem struct {
	ID     string          `json:"id"`
	Field  string          `json:"field"`
	Date   string          `json:"date"`
	Before json.RawMessage `json:"before"`
	After  json.RawMessage `json:"after"`
}

// AfterValue extracts the new value of the change. It accepts
// {"value": x}, the status/priority object shapes ClickUp sends
// ({"status": "..."}, {"priority": "..."}), or a bare scalar. ok is false
// when no usable value is present, including an explicit null.
func (h HistoryItem) AfterValue() (value string, ok bool) {
	return rawValue(h.After)
}

// AfterIsNull reports whether the change cleared the field.
func (h HistoryItem) AfterIsNull() bool {
	trimmed := bytes.TrimSpace(h.After)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// Time parses Date (epoch milliseconds). The zero time is returned when Date
// is absent or malformed.
func (h HistoryItem) Time() time.Time {
	ms, err := strconv.ParseInt(h.Date, 10, 64)
	if err != nil || ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func rawValue(raw json.RawMessage) (string, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", false
	}

	if trimmed[0] == '{' {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return "", false
		}
		for _, key := range []string{"value", "status", "priority", "id"} {
			if inner, found := obj[key]; found {
				if v, ok := scalar(inner); ok {
					return v, true
				}
			}
		}
		return "", false
	}
	return scalar(trimmed)
}

func scalar(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, s != ""
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}
	return "", false
}

// EventParams are the inputs to NewNormalizedEvent.
type EventParams struct {
	Provider    string
	Kind        EventKind
	EventID     string
	SourceEvent string
	Timestamp   time.Time
	EntityID    string
	EntityType  string
	History     []HistoryItem
	RawPayload  []byte
}

// NormalizedEvent is the immutable, provider-agnostic form of a webhook.
// Slices handed to or returned from it are copies.
type NormalizedEvent struct {
	provider    string
	kind        EventKind
	eventID     string
	sourceEvent string
	timestamp   time.Time
	entityID    string
	entityType  string
	history     []HistoryItem
	raw         []byte
}

// NewNormalizedEvent builds an event, copying History and RawPayload.
func NewNormalizedEvent(p EventParams) *NormalizedEvent {
	history := make([]HistoryItem, len(p.History))
	copy(history, p.History)
	return &NormalizedEvent{
		provider:    p.Provider,
		kind:        ParseEventKind(string(p.Kind)),
		eventID:     p.EventID,
		sourceEvent: p.SourceEvent,
		timestamp:   p.Timestamp,
		entityID:    p.EntityID,
		entityType:  p.EntityType,
		history:     history,
		raw:         bytes.Clone(p.RawPayload),
	}
}

// Provider is the name of the provider that produced the event.
func (e *NormalizedEvent) Provider() string { return e.provider }

// Kind is the normalized event kind.
func (e *NormalizedEvent) Kind() EventKind { return e.kind }

// EventID is deterministic for a given provider delivery and entity.
func (e *NormalizedEvent) EventID() string { return e.eventID }

// SourceEvent is the raw provider event name, e.g. "taskMoved".
func (e *NormalizedEvent) SourceEvent() string { return e.sourceEvent }

// Timestamp is when the change happened, or when it was received.
func (e *NormalizedEvent) Timestamp() time.Time { return e.timestamp }

// AffectedEntityID is the source-system ID of the changed entity.
func (e *NormalizedEvent) AffectedEntityID() string { return e.entityID }

// AffectedEntityType is the kind of entity, e.g. "task".
func (e *NormalizedEvent) AffectedEntityType() string { return e.entityType }

// History returns a copy of the field-level change items.
func (e *NormalizedEvent) History() []HistoryItem {
	out := make([]HistoryItem, len(e.history))
	copy(out, e.history)
	return out
}

// FindHistory returns the first history item for field.
func (e *NormalizedEvent) FindHistory(field string) (HistoryItem, bool) {
	for _, item := range e.history {
		if item.Field == field {
			return item, true
		}
	}
	return HistoryItem{}, false
}

// RawPayload returns a copy of the original request body.
func (e *NormalizedEvent) RawPayload() []byte {
	return bytes.Clone(e.raw)
}
