// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package snapshot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/taskgraph/internal/config"
	"github.com/tomtom215/taskgraph/internal/logging"
)

// Job is the part of Manager the scheduler drives.
type Job interface {
	CreateWeekly(ctx context.Context) (*Result, error)
	Prune(ctx context.Context, keepWeeks int) (int, error)
}

// Scheduler creates and prunes snapshots at start and on every
// snapshot.interval tick.
type Scheduler struct {
	job Job
	cfg config.SnapshotConfig

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler for job.
func NewScheduler(job Job, cfg config.SnapshotConfig) *Scheduler {
	return &Scheduler{job: job, cfg: cfg}
}

// Start runs the job once in the background, then on every tick.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("snapshot scheduler is already running")
	}
	s.running = true
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
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
				s.run(ctx)
			}
		}
	}()

	logging.Info().
		Dur("interval", s.cfg.Interval).
		Int("retention_weeks", s.cfg.RetentionWeeks).
		Msg("Snapshot scheduler started")
	return nil
}

func (s *Scheduler) run(ctx context.Context) {
	if _, err := s.job.CreateWeekly(ctx); err != nil && ctx.Err() == nil {
		logging.Error().Err(err).Msg("Weekly snapshot run failed")
	}
	if s.cfg.RetentionWeeks <= 0 {
		return
	}
	if _, err := s.job.Prune(ctx, s.cfg.RetentionWeeks); err != nil && ctx.Err() == nil {
		logging.Error().Err(err).Msg("Snapshot pruning failed")
	}
}

// Stop cancels the running job and waits for it.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return fmt.Errorf("snapshot scheduler is not running")
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	logging.Info().Msg("Snapshot scheduler stopped")
	return nil
}
