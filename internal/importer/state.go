// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package importer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

const lastSyncKey = "sync:clickup:last"

// StateStore keeps the stats of the last finished sync.
type StateStore interface {
	// Save replaces the stored stats.
	Save(ctx context.Context, stats *SyncStats) error

	// Load returns the stored stats, or nil when nothing was saved.
	Load(ctx context.Context) (*SyncStats, error)

	Close() error
}

// BadgerStateStore implements StateStore on BadgerDB so the last sync
// survives restarts.
type BadgerStateStore struct {
	db   *badger.DB
	owns bool
}

// NewBadgerStateStore uses an already open database. Close leaves it open.
func NewBadgerStateStore(db *badger.DB) *BadgerStateStore {
	return &BadgerStateStore{db: db}
}

// OpenBadgerStateStore opens (or creates) a database at path.
func OpenBadgerStateStore(path string) (*BadgerStateStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open sync state at %s: %w", path, err)
	}
	return &BadgerStateStore{db: db, owns: true}, nil
}

// Save implements StateStore.
func (s *BadgerStateStore) Save(_ context.Context, stats *SyncStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshal sync stats: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(lastSyncKey), data)
	})
}

// Load implements StateStore.
func (s *BadgerStateStore) Load(_ context.Context) (*SyncStats, error) {
	var stats *SyncStats

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(lastSyncKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			stats = &SyncStats{}
			return json.Unmarshal(val, stats)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("load sync state: %w", err)
	}
	return stats, nil
}

// Close closes the database if the store opened it.
func (s *BadgerStateStore) Close() error {
	if !s.owns {
		return nil
	}
	return s.db.Close()
}

// MemoryStateStore implements StateStore in memory.
type MemoryStateStore struct {
	mu    sync.Mutex
	stats *SyncStats
}

// NewMemoryStateStore returns an empty store.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{}
}

// Save implements StateStore.
func (s *MemoryStateStore) Save(_ context.Context, stats *SyncStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = stats.clone()
	return nil
}

// Load implements StateStore.
func (s *MemoryStateStore) Load(_ context.Context) (*SyncStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stats == nil {
		return nil, nil
	}
	return s.stats.clone(), nil
}

// Close implements StateStore.
func (s *MemoryStateStore) Close() error { return nil }

// OpenStateStore returns a badger store at path, or a memory store when
// path is empty.
func OpenStateStore(path string) (StateStore, error) {
	if path == "" {
		return NewMemoryStateStore(), nil
	}
	return OpenBadgerStateStore(path)
}
