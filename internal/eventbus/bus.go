// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package eventbus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/taskgraph/internal/config"
	"github.com/tomtom215/taskgraph/internal/logging"
	"github.com/tomtom215/taskgraph/internal/wal"
	"github.com/tomtom215/taskgraph/internal/webhooks"
)

// Transport names.
const (
	TransportGoChannel = "gochannel"
	TransportNATS      = "nats"
)

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("event bus closed")

// Journal persists envelopes between publish and processing.
// *wal.BadgerWAL satisfies it.
type Journal interface {
	Write(ctx context.Context, event any) (string, error)
	Confirm(ctx context.Context, entryID string) error
	RecoverPending(ctx context.Context, publisher wal.Publisher, cutoff time.Time, maxAttempts int) (*wal.RecoveryResult, error)
	Close() error
}

// Option configures New.
type Option func(*Bus)

// WithJournal uses j instead of opening eventbus.wal_path.
func WithJournal(j Journal) Option {
	return func(b *Bus) { b.journal = j }
}

// Bus publishes envelopes and exposes the matching subscriber.
type Bus struct {
	cfg        config.EventBusConfig
	publisher  message.Publisher
	subscriber message.Subscriber
	logger     watermill.LoggerAdapter

	// ready is closed once a consumer is subscribed. The in-process
	// transport drops messages published before that.
	ready     chan struct{}
	readyOnce sync.Once

	journal     Journal
	openedAt    time.Time
	recoverOnce sync.Once

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
	closeErr  error
}

var _ webhooks.Queue = (*Bus)(nil)

// New opens the configured transport and, when eventbus.wal_path is set,
// the event journal.
func New(cfg config.EventBusConfig, opts ...Option) (_ *Bus, err error) {
	logger := watermill.NewSlogLogger(logging.NewSlogLogger())
	b := &Bus{cfg: cfg, logger: logger, ready: make(chan struct{}), openedAt: time.Now().UTC()}
	for _, opt := range opts {
		opt(b)
	}
	if b.journal == nil && cfg.WALPath != "" {
		j, err := wal.Open(cfg.WALPath)
		if err != nil {
			return nil, err
		}
		b.journal = j
	}
	defer func() {
		if err != nil && b.journal != nil {
			_ = b.journal.Close()
		}
	}()

	switch cfg.Transport {
	case "", TransportGoChannel:
		ch := gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: cfg.BufferSize,
		}, logger)
		b.publisher, b.subscriber = ch, ch
	case TransportNATS:
		b.publisher, b.subscriber, err = newNATS(cfg, logger)
		if err != nil {
			return nil, err
		}
		b.markReady()
	default:
		return nil, fmt.Errorf("unknown event bus transport %q", cfg.Transport)
	}

	logging.Info().
		Str("transport", b.Transport()).
		Str("topic", cfg.Topic).
		Bool("journal", b.journal != nil).
		Msg("Event bus opened")
	return b, nil
}

func newNATS(cfg config.EventBusConfig, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error) {
	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.NATSURL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: true,
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("create nats publisher: %w", err)
	}

	subscribers := cfg.SubscribersCount
	if subscribers <= 0 {
		subscribers = 1
	}
	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              cfg.NATSURL,
		QueueGroupPrefix: cfg.QueueGroup,
		SubscribersCount: subscribers,
		AckWaitTimeout:   30 * time.Second,
		CloseTimeout:     cfg.CloseTimeout,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: true,
			DurablePrefix: cfg.DurablePrefix,
			SubscribeOptions: []natsgo.SubOpt{
				natsgo.DeliverAll(),
				natsgo.AckExplicit(),
			},
		},
	}, logger)
	if err != nil {
		_ = pub.Close()
		return nil, nil, fmt.Errorf("create nats subscriber: %w", err)
	}
	return pub, sub, nil
}

// Transport returns the transport name in use.
func (b *Bus) Transport() string {
	if b.cfg.Transport == "" {
		return TransportGoChannel
	}
	return b.cfg.Transport
}

// Topic returns the topic events are published on.
func (b *Bus) Topic() string { return b.cfg.Topic }

// Subscriber returns the subscriber side of the transport.
func (b *Bus) Subscriber() message.Subscriber { return b.subscriber }

// Logger returns the Watermill logger adapter.
func (b *Bus) Logger() watermill.LoggerAdapter { return b.logger }

func (b *Bus) markReady() {
	b.readyOnce.Do(func() { close(b.ready) })
}

// Ready is closed once events can be delivered.
func (b *Bus) Ready() <-chan struct{} { return b.ready }

// Enqueue publishes evt for background processing. With the in-process
// transport it waits, bounded by ctx, until a consumer is subscribed.
func (b *Bus) Enqueue(ctx context.Context, evt *webhooks.NormalizedEvent) error {
	return b.Publish(ctx, EnvelopeFor(evt))
}

// Publish sends one envelope. With a journal the envelope is persisted
// first and removed again if the publish fails.
func (b *Bus) Publish(ctx context.Context, env *Envelope) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}

	select {
	case <-b.ready:
	case <-ctx.Done():
		return fmt.Errorf("wait for event consumer: %w", ctx.Err())
	}

	var entryID string
	if b.journal != nil {
		id, err := b.journal.Write(ctx, env)
		if err != nil {
			return fmt.Errorf("journal event %s: %w", env.EventID, err)
		}
		entryID = id
	}

	if err := b.send(ctx, env, entryID); err != nil {
		if entryID != "" {
			if cerr := b.journal.Confirm(context.WithoutCancel(ctx), entryID); cerr != nil {
				logging.Warn().Err(cerr).Str("entry_id", entryID).Msg("Failed to drop journal entry of unpublished event")
			}
		}
		return err
	}
	return nil
}

func (b *Bus) send(ctx context.Context, env *Envelope, entryID string) error {
	msg, err := env.ToMessage()
	if err != nil {
		return err
	}
	if requestID := logging.RequestIDFromContext(ctx); requestID != "" {
		msg.Metadata.Set(MetaRequestID, requestID)
	}
	if entryID != "" {
		msg.Metadata.Set(MetaJournalEntry, entryID)
	}
	if b.Transport() == TransportNATS {
		msg.Metadata.Set(natsgo.MsgIdHdr, env.DedupKey())
	}

	if err := b.publisher.Publish(b.cfg.Topic, msg); err != nil {
		return fmt.Errorf("publish to %s: %w", b.cfg.Topic, err)
	}
	return nil
}

// confirm removes the journal entry of a processed message.
func (b *Bus) confirm(ctx context.Context, msg *message.Message) {
	entryID := msg.Metadata.Get(MetaJournalEntry)
	if b.journal == nil || entryID == "" {
		return
	}
	err := b.journal.Confirm(ctx, entryID)
	if err != nil && !errors.Is(err, wal.ErrEntryNotFound) {
		logging.Warn().Err(err).Str("entry_id", entryID).Msg("Failed to confirm journaled event")
	}
}

// recoverJournal republishes events accepted by a previous process. It
// runs once per Bus, after the first consumer is subscribed.
func (b *Bus) recoverJournal(ctx context.Context) {
	if b.journal == nil {
		return
	}
	b.recoverOnce.Do(func() {
		b.mu.RLock()
		defer b.mu.RUnlock()
		if b.closed {
			return
		}
		replay := wal.PublisherFunc(func(ctx context.Context, entry *wal.Entry) error {
			var env Envelope
			if err := entry.UnmarshalPayload(&env); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
			}
			return b.send(ctx, &env, entry.ID)
		})
		if _, err := b.journal.RecoverPending(ctx, replay, b.openedAt, b.cfg.WALMaxAttempts); err != nil && ctx.Err() == nil {
			logging.Error().Err(err).Msg("Event journal recovery failed")
		}
	})
}

// Close shuts the transport. It is safe to call more than once.
func (b *Bus) Close() error {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		b.closed = true
		b.mu.Unlock()

		var errs []error
		if err := b.publisher.Close(); err != nil {
			errs = append(errs, err)
		}
		if any(b.subscriber) != any(b.publisher) {
			if err := b.subscriber.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if b.journal != nil {
			if err := b.journal.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		b.closeErr = errors.Join(errs...)
		logging.Info().Str("transport", b.Transport()).Msg("Event bus closed")
	})
	return b.closeErr
}
