// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package webhooks

import (
	"context"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/taskgraph/internal/logging"
	"github.com/tomtom215/taskgraph/internal/metrics"
)

// Queue hands accepted events to background processing.
type Queue interface {
	Enqueue(ctx context.Context, evt *NormalizedEvent) error
}

// Ack is the immediate response to an accepted webhook.
type Ack struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Provider  string `json:"provider"`
	EventType string `json:"event_type"`
	EventID   string `json:"event_id"`
}

// Dispatcher runs the ordered acceptance checks for inbound webhooks.
type Dispatcher struct {
	registry     *Registry
	queue        Queue
	maxBodyBytes int64
}

// NewDispatcher creates a dispatcher. maxBodyBytes is the body ceiling.
func NewDispatcher(registry *Registry, queue Queue, maxBodyBytes int64) *Dispatcher {
	return &Dispatcher{registry: registry, queue: queue, maxBodyBytes: maxBodyBytes}
}

// MaxBodyBytes returns the configured body ceiling.
func (d *Dispatcher) MaxBodyBytes() int64 {
	return d.maxBodyBytes
}

// Registry returns the provider registry.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Accept validates and enqueues one webhook delivery. body must be the raw
// request bytes; callers should read at most MaxBodyBytes()+1 bytes so an
// oversized body is still detected here.
func (d *Dispatcher) Accept(ctx context.Context, providerName string, body []byte, headers http.Header) (*Ack, error) {
	ack, err := d.accept(ctx, providerName, body, headers)
	if err != nil {
		metrics.RecordWebhookRejected(metricLabel(d.registry, providerName), RejectReason(err))
		return nil, err
	}
	metrics.RecordWebhookAccepted(providerName, ack.EventType)
	return ack, nil
}

func (d *Dispatcher) accept(ctx context.Context, providerName string, body []byte, headers http.Header) (*Ack, error) {
	log := logging.Ctx(ctx)
	safeName := logging.SanitizeValue("provider", providerName)

	if int64(len(body)) > d.maxBodyBytes {
		log.Warn().Str("provider", safeName).Int("size", len(body)).Int64("limit", d.maxBodyBytes).Msg("Webhook payload too large")
		return nil, NewPayloadTooLargeError(providerName, d.maxBodyBytes)
	}

	provider, err := d.registry.Get(providerName)
	if err != nil {
		log.Warn().Err(err).Str("provider", safeName).Msg("Webhook provider lookup failed")
		return nil, err
	}

	if !provider.Enabled() {
		log.Warn().Str("provider", safeName).Msg("Webhook provider is disabled")
		return nil, NewProviderDisabledError(providerName)
	}

	if !ValidateSignature(body, headers, provider.Secret(), provider.SignatureSpec()) {
		log.Warn().Str("provider", safeName).Msg("Invalid webhook signature")
		return nil, NewSignatureError("Invalid webhook signature", providerName, nil)
	}

	if !json.Valid(body) {
		log.Warn().Str("provider", safeName).Msg("Webhook payload is not valid JSON")
		return nil, NewValidationError("Invalid JSON payload", providerName, "")
	}

	evt, err := provider.Parse(body)
	if err != nil {
		log.Warn().Err(err).Str("provider", safeName).Msg("Webhook validation failed")
		return nil, err
	}

	if err := d.queue.Enqueue(ctx, evt); err != nil {
		log.Error().Err(err).Str("provider", safeName).Str("event_id", evt.EventID()).Msg("Failed to queue webhook event")
		return nil, NewProcessingError("Failed to queue webhook event", providerName, evt.EventID(), err)
	}

	log.Info().
		Str("provider", safeName).
		Str("event_type", evt.Kind().String()).
		Str("source_event", logging.SanitizeValue("event", evt.SourceEvent())).
		Str("entity_id", evt.AffectedEntityID()).
		Str("event_id", evt.EventID()).
		Msg("Webhook event received")

	return &Ack{
		Status:    "success",
		Message:   "Webhook received and queued for processing",
		Provider:  providerName,
		EventType: evt.Kind().String(),
		EventID:   evt.EventID(),
	}, nil
}

// metricLabel keeps arbitrary path segments out of metric labels.
func metricLabel(r *Registry, name string) string {
	for _, registered := range r.ListRegistered() {
		if registered == name {
			return name
		}
	}
	return "unknown"
}
