// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package services

import (
	"context"
	"fmt"
)

// StartStopManager is a scheduler that runs its own goroutines between
// Start and Stop. *importer.Scheduler and *snapshot.Scheduler satisfy it.
type StartStopManager interface {
	Start(ctx context.Context) error
	Stop() error
}

// ScheduledService supervises a StartStopManager.
type ScheduledService struct {
	manager StartStopManager
	name    string
}

// NewScheduledService wraps manager under name.
func NewScheduledService(name string, manager StartStopManager) *ScheduledService {
	return &ScheduledService{manager: manager, name: name}
}

// Serve starts the manager, blocks until ctx is canceled and stops it.
// A Start failure is returned so suture restarts the service with backoff.
func (s *ScheduledService) Serve(ctx context.Context) error {
	if err := s.manager.Start(ctx); err != nil {
		return fmt.Errorf("%s start failed: %w", s.name, err)
	}

	<-ctx.Done()

	// Stop waits for the manager's goroutines.
	if err := s.manager.Stop(); err != nil {
		return fmt.Errorf("%s stop failed: %w", s.name, err)
	}
	return ctx.Err()
}

// String implements fmt.Stringer for suture logs.
func (s *ScheduledService) String() string {
	return s.name
}
