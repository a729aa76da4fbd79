// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package services

import (
	"context"
	"fmt"

	"github.com/thejerf/suture/v4"
)

// Task is work that finishes. *graph.SchemaBootstrap satisfies it.
type Task interface {
	Run(ctx context.Context) error
}

// OneShotService supervises a Task until it completes once.
type OneShotService struct {
	task Task
	name string
}

// NewOneShotService wraps task under name.
func NewOneShotService(name string, task Task) *OneShotService {
	return &OneShotService{task: task, name: name}
}

// Serve runs the task. Success returns suture.ErrDoNotRestart so the
// supervisor drops the service; a failure is restarted with backoff.
func (s *OneShotService) Serve(ctx context.Context) error {
	err := s.task.Run(ctx)
	switch {
	case err == nil:
		return suture.ErrDoNotRestart
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		return fmt.Errorf("%s failed: %w", s.name, err)
	}
}

// String implements fmt.Stringer for suture logs.
func (s *OneShotService) String() string {
	return s.name
}
