// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package graph

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/tomtom215/taskgraph/internal/logging"
)

// SchemaBootstrap runs EnsureSchema in the background until it succeeds
// once. It covers a graph that was unreachable when the process started.
type SchemaBootstrap struct {
	store      GraphStore
	statuses   []string
	priorities []string

	initialDelay time.Duration
	maxDelay     time.Duration

	done atomic.Bool
}

// NewSchemaBootstrap prepares a bootstrap for store.
func NewSchemaBootstrap(store GraphStore, statuses, priorities []string) *SchemaBootstrap {
	return &SchemaBootstrap{
		store:        store,
		statuses:     statuses,
		priorities:   priorities,
		initialDelay: time.Second,
		maxDelay:     time.Minute,
	}
}

// Done reports whether the schema has been ensured.
func (b *SchemaBootstrap) Done() bool { return b.done.Load() }

// Run retries EnsureSchema until it succeeds or ctx is done. It returns
// nil once the schema is in place, and immediately when it already is.
func (b *SchemaBootstrap) Run(ctx context.Context) error {
	if b.Done() {
		return nil
	}

	delays := backoff.NewExponentialBackOff()
	delays.InitialInterval = b.initialDelay
	delays.MaxInterval = b.maxDelay

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, EnsureSchema(ctx, b.store, b.statuses, b.priorities)
	},
		backoff.WithBackOff(delays),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			logging.Warn().Err(err).Dur("retry_in", next).Msg("Graph schema not ensured yet")
		}),
	)
	if err != nil {
		return fmt.Errorf("ensure graph schema: %w", err)
	}
	b.done.Store(true)
	return nil
}
