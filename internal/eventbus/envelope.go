// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package eventbus

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/taskgraph/internal/webhooks"
)

// Message metadata keys.
const (
	MetaProvider  = "provider"
	MetaEventID   = "event_id"
	MetaEventKind = "event_kind"
	MetaDedupKey  = "dedup_key"
	MetaRequestID = "request_id"

	// MetaJournalEntry is the wal entry confirmed once the message is handled.
	MetaJournalEntry = "journal_entry"
)

// ErrInvalidEnvelope is returned for messages that cannot be decoded.
var ErrInvalidEnvelope = errors.New("invalid event envelope")

// Envelope is the bus payload. The raw body is carried instead of the
// normalized event so the consumer rebuilds an immutable event itself.
type Envelope struct {
	Provider   string          `json:"provider"`
	EventID    string          `json:"event_id"`
	EventKind  string          `json:"event_kind"`
	Payload    json.RawMessage `json:"payload"`
	ReceivedAt time.Time       `json:"received_at"`
}

// EnvelopeFor wraps a normalized event.
func EnvelopeFor(evt *webhooks.NormalizedEvent) *Envelope {
	return &Envelope{
		Provider:   evt.Provider(),
		EventID:    evt.EventID(),
		EventKind:  evt.Kind().String(),
		Payload:    evt.RawPayload(),
		ReceivedAt: time.Now().UTC(),
	}
}

// DedupKey identifies a delivery: same event id and same bytes.
func (e *Envelope) DedupKey() string {
	sum := sha256.Sum256(e.Payload)
	return e.EventID + ":" + hex.EncodeToString(sum[:])
}

// ToMessage encodes the envelope as a Watermill message.
func (e *Envelope) ToMessage() (*message.Message, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	msg := message.NewMessage(uuid.NewString(), data)
	msg.Metadata.Set(MetaProvider, e.Provider)
	msg.Metadata.Set(MetaEventID, e.EventID)
	msg.Metadata.Set(MetaEventKind, e.EventKind)
	msg.Metadata.Set(MetaDedupKey, e.DedupKey())
	return msg, nil
}

// DecodeEnvelope reads an envelope from a message.
func DecodeEnvelope(msg *message.Message) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	if env.Provider == "" || len(env.Payload) == 0 {
		return nil, fmt.Errorf("%w: missing provider or payload", ErrInvalidEnvelope)
	}
	return &env, nil
}
