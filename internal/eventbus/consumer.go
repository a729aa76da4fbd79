// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package eventbus

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/tomtom215/taskgraph/internal/logging"
	"github.com/tomtom215/taskgraph/internal/webhooks"
)

const handlerName = "webhook-processor"

// Consumer processes bus messages with the registered providers.
type Consumer struct {
	bus      *Bus
	registry *webhooks.Registry
	dedup    *Deduplicator

	mu     sync.Mutex
	router *message.Router

	// watchers counts readiness goroutines still running.
	watchers atomic.Int32
}

// NewConsumer returns a consumer for bus. The deduplicator outlives router
// restarts so a restart does not forget recent deliveries.
func NewConsumer(bus *Bus, registry *webhooks.Registry) *Consumer {
	c := &Consumer{bus: bus, registry: registry}
	if bus.cfg.DedupEnabled {
		c.dedup = NewDeduplicator(bus.cfg.DedupTTL, defaultDedupCapacity)
	}
	return c
}

func (c *Consumer) newRouter() (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: c.bus.cfg.CloseTimeout}, c.bus.logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}

	router.AddMiddleware(middleware.Recoverer, c.confirmJournal)

	if n := c.bus.cfg.ThrottlePerSecond; n > 0 {
		router.AddMiddleware(middleware.NewThrottle(n, time.Second).Middleware)
	}

	if c.dedup != nil {
		dedup := middleware.Deduplicator{
			KeyFactory: func(msg *message.Message) (string, error) {
				if key := msg.Metadata.Get(MetaDedupKey); key != "" {
					return key, nil
				}
				return msg.UUID, nil
			},
			Repository: c.dedup,
		}
		router.AddMiddleware(dedup.Middleware)
	}

	router.AddConsumerHandler(handlerName, c.bus.Topic(), c.bus.Subscriber(), c.handle)
	return router, nil
}

// Run subscribes and processes messages until ctx is canceled. Each call
// builds a fresh router, so a supervisor may call Run again after a failure.
// Run returns only after its readiness goroutine has exited.
func (c *Consumer) Run(ctx context.Context) error {
	router, err := c.newRouter()
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.router = router
	c.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	watched := make(chan struct{})
	c.watchers.Add(1)
	go func() {
		defer close(watched)
		defer c.watchers.Add(-1)
		select {
		case <-router.Running():
			c.bus.markReady()
			logging.Info().Str("topic", c.bus.Topic()).Msg("Event consumer running")
			c.bus.recoverJournal(runCtx)
		case <-runCtx.Done():
		}
	}()

	err = router.Run(runCtx)
	cancel()
	<-watched
	return err
}

// Running is closed once the current router has subscribed. It returns nil
// before Run.
func (c *Consumer) Running() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.router == nil {
		return nil
	}
	return c.router.Running()
}

// Close stops the current router, waiting up to the close timeout for
// in-flight messages.
func (c *Consumer) Close() error {
	c.mu.Lock()
	router := c.router
	c.mu.Unlock()
	if router == nil {
		return nil
	}
	return router.Close()
}

// confirmJournal sits outside the deduplicator so dropped redeliveries
// are confirmed too.
func (c *Consumer) confirmJournal(h message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		out, err := h(msg)
		if err == nil {
			c.bus.confirm(context.WithoutCancel(msg.Context()), msg)
		}
		return out, err
	}
}

// handle never returns an error: a message that cannot be processed is
// logged and acknowledged.
func (c *Consumer) handle(msg *message.Message) error {
	ctx := logging.ContextWithNewCorrelationID(msg.Context())
	if requestID := msg.Metadata.Get(MetaRequestID); requestID != "" {
		ctx = logging.ContextWithRequestID(ctx, requestID)
	}
	log := logging.Ctx(ctx)

	env, err := DecodeEnvelope(msg)
	if err != nil {
		log.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("Dropping undecodable event")
		return nil
	}

	provider, err := c.registry.Get(env.Provider)
	if err != nil {
		log.Warn().Err(err).Str("provider", env.Provider).Str("event_id", env.EventID).Msg("Dropping event for unavailable provider")
		return nil
	}

	evt, err := provider.Parse(env.Payload)
	if err != nil {
		log.Warn().Err(err).Str("provider", env.Provider).Str("event_id", env.EventID).Msg("Dropping event that no longer parses")
		return nil
	}

	webhooks.Process(ctx, provider, evt)
	return nil
}
