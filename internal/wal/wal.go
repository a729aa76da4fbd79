// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package wal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/taskgraph/internal/logging"
)

var (
	ErrClosed        = errors.New("wal is closed")
	ErrNilEvent      = errors.New("event cannot be nil")
	ErrEmptyEntryID  = errors.New("entry id cannot be empty")
	ErrEntryNotFound = errors.New("wal entry not found")
)

const prefixPending = "pending:"

// Entry is one journaled event.
type Entry struct {
	ID            string          `json:"id"`
	Payload       json.RawMessage `json:"payload"`
	CreatedAt     time.Time       `json:"created_at"`
	Attempts      int             `json:"attempts"`
	LastAttemptAt time.Time       `json:"last_attempt_at,omitempty"`
	LastError     string          `json:"last_error,omitempty"`
}

// UnmarshalPayload decodes the journaled event into v.
func (e *Entry) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// Stats are process-lifetime counters.
type Stats struct {
	Writes   int64
	Confirms int64
	Replays  int64
	Dropped  int64
}

// BadgerWAL is the badger-backed journal.
type BadgerWAL struct {
	db *badger.DB

	writes   atomic.Int64
	confirms atomic.Int64
	replays  atomic.Int64
	dropped  atomic.Int64

	mu     sync.RWMutex
	closed bool
}

// Open opens or creates the journal at path with synchronous writes.
func Open(path string) (*BadgerWAL, error) {
	if path == "" {
		return nil, fmt.Errorf("wal path is required")
	}
	opts := badger.DefaultOptions(path).WithSyncWrites(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open wal at %s: %w", path, err)
	}
	logging.Info().Str("path", path).Msg("Event journal opened")
	return &BadgerWAL{db: db}, nil
}

// OpenInMemory returns a journal that lives only as long as the process.
func OpenInMemory() (*BadgerWAL, error) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("open in-memory wal: %w", err)
	}
	return &BadgerWAL{db: db}, nil
}

func (w *BadgerWAL) checkOpen() error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return ErrClosed
	}
	return nil
}

// Write journals event as JSON and returns the entry ID.
func (w *BadgerWAL) Write(_ context.Context, event any) (string, error) {
	if err := w.checkOpen(); err != nil {
		return "", err
	}
	if event == nil {
		return "", ErrNilEvent
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate entry id: %w", err)
	}
	entry := &Entry{ID: id.String(), Payload: payload, CreatedAt: time.Now().UTC()}
	if err := w.put(entry); err != nil {
		return "", err
	}
	w.writes.Add(1)
	return entry.ID, nil
}

func (w *BadgerWAL) put(entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	if err := w.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(prefixPending+entry.ID), data)
	}); err != nil {
		return fmt.Errorf("write entry %s: %w", entry.ID, err)
	}
	return nil
}

// Confirm deletes a processed entry.
func (w *BadgerWAL) Confirm(_ context.Context, entryID string) error {
	if err := w.checkOpen(); err != nil {
		return err
	}
	if entryID == "" {
		return ErrEmptyEntryID
	}
	key := []byte(prefixPending + entryID)
	err := w.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrEntryNotFound
			}
			return err
		}
		return txn.Delete(key)
	})
	if err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			return err
		}
		return fmt.Errorf("confirm entry %s: %w", entryID, err)
	}
	w.confirms.Add(1)
	return nil
}

// GetPending returns every unconfirmed entry in acceptance order.
func (w *BadgerWAL) GetPending(ctx context.Context) ([]*Entry, error) {
	if err := w.checkOpen(); err != nil {
		return nil, err
	}

	var entries []*Entry
	err := w.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(prefixPending)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var entry Entry
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			}); err != nil {
				logging.Warn().Err(err).Str("key", string(it.Item().Key())).Msg("Skipping unreadable journal entry")
				continue
			}
			entries = append(entries, &entry)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterate pending entries: %w", err)
	}
	return entries, nil
}

// Stats returns the counters.
func (w *BadgerWAL) Stats() Stats {
	return Stats{
		Writes:   w.writes.Load(),
		Confirms: w.confirms.Load(),
		Replays:  w.replays.Load(),
		Dropped:  w.dropped.Load(),
	}
}

// RunGC reclaims value log space. badger.ErrNoRewrite means nothing to do.
func (w *BadgerWAL) RunGC() error {
	if err := w.checkOpen(); err != nil {
		return err
	}
	err := w.db.RunValueLogGC(0.5)
	if errors.Is(err, badger.ErrNoRewrite) {
		return nil
	}
	return err
}

// Close closes the database. Later calls return nil.
func (w *BadgerWAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return w.db.Close()
}
