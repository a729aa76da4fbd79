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
	"time"

	"github.com/tomtom215/taskgraph/internal/config"
	"github.com/tomtom215/taskgraph/internal/logging"
)

// ErrSchedulerStopped is returned by TriggerSync when the scheduler is not
// running.
var ErrSchedulerStopped = errors.New("sync scheduler is not running")

// Syncer is the part of Importer the scheduler drives.
type Syncer interface {
	Sync(ctx context.Context, fullSync bool) (*SyncStats, error)
	Running() bool
}

// Scheduler runs the startup sync and the periodic incremental syncs.
type Scheduler struct {
	syncer Syncer
	cfg    config.SyncConfig

	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler for syncer.
func NewScheduler(syncer Syncer, cfg config.SyncConfig) *Scheduler {
	return &Scheduler{syncer: syncer, cfg: cfg}
}

// Start runs the startup sync in the background and, when sync.interval is
// positive, an incremental sync on every tick. It returns immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("sync scheduler is already running")
	}
	s.running = true
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runOnce(s.ctx, s.cfg.FullSyncOnStart, "startup")
		s.loop(s.ctx)
	}()

	logging.Info().
		Bool("full_sync_on_start", s.cfg.FullSyncOnStart).
		Dur("interval", s.cfg.Interval).
		Msg("Sync scheduler started")
	return nil
}

func (s *Scheduler) loop(ctx context.Context) {
	if s.cfg.Interval <= 0 {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, false, "interval")
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, full bool, trigger string) {
	_, err := s.syncer.Sync(ctx, full)
	switch {
	case errors.Is(err, ErrSyncInProgress):
		logging.Info().Str("trigger", trigger).Msg("Skipping sync, another one is running")
	case err != nil && ctx.Err() == nil:
		logging.Error().Err(err).Str("trigger", trigger).Msg("Scheduled sync failed")
	}
}

// TriggerSync starts a sync in the background. It fails fast with
// ErrSyncInProgress when one is already running.
func (s *Scheduler) TriggerSync(full bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return ErrSchedulerStopped
	}
	if s.syncer.Running() {
		return ErrSyncInProgress
	}

	ctx := s.ctx
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runOnce(ctx, full, "manual")
	}()
	return nil
}

// Stop cancels any running sync and waits for the scheduler goroutines.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return fmt.Errorf("sync scheduler is not running")
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	logging.Info().Msg("Sync scheduler stopped")
	return nil
}
