// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package services

import (
	"context"
	"fmt"
)

// MessageConsumer blocks in Run until its context ends. *eventbus.Consumer
// satisfies it.
type MessageConsumer interface {
	Run(ctx context.Context) error
}

// RouterService supervises the event bus consumer.
type RouterService struct {
	consumer MessageConsumer
	name     string
}

// NewRouterService wraps consumer.
func NewRouterService(consumer MessageConsumer) *RouterService {
	return &RouterService{consumer: consumer, name: "event-consumer"}
}

// Serve runs the consumer. An error while ctx is still live means the
// router died and is returned for a restart.
func (s *RouterService) Serve(ctx context.Context) error {
	err := s.consumer.Run(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err == nil {
		return fmt.Errorf("%s stopped unexpectedly", s.name)
	}
	return fmt.Errorf("%s failed: %w", s.name, err)
}

// String implements fmt.Stringer for suture logs.
func (s *RouterService) String() string {
	return s.name
}
