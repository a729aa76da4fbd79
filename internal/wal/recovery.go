// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package wal

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/taskgraph/internal/logging"
	"github.com/tomtom215/taskgraph/internal/metrics"
)

// Publisher republishes a recovered entry.
type Publisher interface {
	PublishEntry(ctx context.Context, entry *Entry) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, entry *Entry) error

// PublishEntry implements Publisher.
func (f PublisherFunc) PublishEntry(ctx context.Context, entry *Entry) error {
	return f(ctx, entry)
}

// RecoveryResult summarizes RecoverPending.
type RecoveryResult struct {
	TotalPending int
	Replayed     int
	Failed       int
	Dropped      int
	Duration     time.Duration
}

// RecoverPending republishes the entries accepted before cutoff. An entry
// already replayed maxAttempts times is deleted instead. The attempt is
// recorded before publishing, so an event that crashes the process is
// eventually dropped. Replayed entries stay pending until confirmed.
func (w *BadgerWAL) RecoverPending(ctx context.Context, publisher Publisher, cutoff time.Time, maxAttempts int) (*RecoveryResult, error) {
	if publisher == nil {
		return nil, fmt.Errorf("publisher cannot be nil")
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	start := time.Now()

	pending, err := w.GetPending(ctx)
	if err != nil {
		return nil, err
	}
	res := &RecoveryResult{}

	for _, entry := range pending {
		if !entry.CreatedAt.Before(cutoff) {
			continue
		}
		res.TotalPending++

		if entry.Attempts >= maxAttempts {
			if err := w.Confirm(ctx, entry.ID); err != nil {
				return res, err
			}
			w.dropped.Add(1)
			metrics.JournalDropped.Inc()
			res.Dropped++
			logging.Warn().
				Str("entry_id", entry.ID).
				Int("attempts", entry.Attempts).
				Str("last_error", entry.LastError).
				Msg("Dropping journaled event after too many replays")
			continue
		}

		entry.Attempts++
		entry.LastAttemptAt = time.Now().UTC()
		if err := w.put(entry); err != nil {
			return res, err
		}

		if err := publisher.PublishEntry(ctx, entry); err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			res.Failed++
			entry.LastError = err.Error()
			if err := w.put(entry); err != nil {
				return res, err
			}
			logging.Warn().Err(err).Str("entry_id", entry.ID).Msg("Journaled event replay failed")
			continue
		}
		w.replays.Add(1)
		metrics.JournalReplayed.Inc()
		res.Replayed++
	}

	res.Duration = time.Since(start)
	if res.TotalPending > 0 {
		logging.Info().
			Int("pending", res.TotalPending).
			Int("replayed", res.Replayed).
			Int("failed", res.Failed).
			Int("dropped", res.Dropped).
			Dur("duration", res.Duration).
			Msg("Journal recovery finished")
	}
	return res, nil
}
