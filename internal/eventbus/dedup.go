// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package eventbus

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/tomtom215/taskgraph/internal/metrics"
)

const defaultDedupCapacity = 10000

type dedupEntry struct {
	key       string
	expiresAt time.Time
}

// Deduplicator is a bounded LRU of recently seen keys with a TTL. It
// implements middleware.ExpiringKeyRepository.
type Deduplicator struct {
	mu       sync.Mutex
	ttl      time.Duration
	capacity int
	order    *list.List
	items    map[string]*list.Element
	now      func() time.Time
}

var _ middleware.ExpiringKeyRepository = (*Deduplicator)(nil)

// NewDeduplicator remembers up to capacity keys for ttl each.
func NewDeduplicator(ttl time.Duration, capacity int) *Deduplicator {
	if capacity <= 0 {
		capacity = defaultDedupCapacity
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Deduplicator{
		ttl:      ttl,
		capacity: capacity,
		order:    list.New(),
		items:    make(map[string]*list.Element, capacity),
		now:      time.Now,
	}
}

// IsDuplicate reports whether key was seen within the TTL and records it
// when it was not.
func (d *Deduplicator) IsDuplicate(_ context.Context, key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if el, ok := d.items[key]; ok {
		entry := el.Value.(*dedupEntry)
		if now.Before(entry.expiresAt) {
			d.order.MoveToFront(el)
			metrics.EventsDeduplicated.Inc()
			return true, nil
		}
		d.order.Remove(el)
		delete(d.items, key)
	}

	d.items[key] = d.order.PushFront(&dedupEntry{key: key, expiresAt: now.Add(d.ttl)})
	for d.order.Len() > d.capacity {
		oldest := d.order.Back()
		d.order.Remove(oldest)
		delete(d.items, oldest.Value.(*dedupEntry).key)
	}
	return false, nil
}

// Len returns the number of remembered keys, expired ones included.
func (d *Deduplicator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.order.Len()
}
