// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package clickup

import (
	"context"
	"strings"
	"time"

	clickupapi "github.com/tomtom215/taskgraph/internal/clickup"
	"github.com/tomtom215/taskgraph/internal/config"
	"github.com/tomtom215/taskgraph/internal/graph"
	"github.com/tomtom215/taskgraph/internal/webhooks"
)

// Provider is the ClickUp webhook provider.
type Provider struct {
	webhooks.StatsCounter

	settings  config.ProviderSettings
	processor *Processor
	now       func() time.Time
}

var _ webhooks.Provider = (*Provider)(nil)

// New returns a provider that re-fetches tasks from source and mirrors them
// into store.
func New(settings config.ProviderSettings, source clickupapi.TaskSource, store graph.GraphStore) *Provider {
	return &Provider{
		settings:  settings,
		processor: NewProcessor(source, store),
		now:       time.Now,
	}
}

// Factory registers the provider lazily with settings from cfg.
func Factory(cfg *config.Config, source clickupapi.TaskSource, store graph.GraphStore) webhooks.Factory {
	return func() (webhooks.Provider, error) {
		return New(cfg.Provider(ProviderName), source, store), nil
	}
}

func (p *Provider) Name() string { return ProviderName }

func (p *Provider) Enabled() bool { return p.settings.Enabled }

func (p *Provider) Secret() string { return p.settings.Secret }

func (p *Provider) SignatureSpec() webhooks.SignatureSpec { return webhooks.ClickUpSignature }

// SupportedEvents returns a copy of the handled ClickUp event names.
func (p *Provider) SupportedEvents() []string {
	return append([]string(nil), supportedEvents...)
}

// Parse normalizes a raw ClickUp payload.
func (p *Provider) Parse(raw []byte) (*webhooks.NormalizedEvent, error) {
	return Normalize(raw, p.now())
}

// Stats returns the provider's counters.
func (p *Provider) Stats() webhooks.ProviderStats {
	return p.Snapshot(ProviderName, p.Enabled(), p.SupportedEvents())
}

// Process applies evt to the graph and records the outcome.
func (p *Provider) Process(ctx context.Context, evt *webhooks.NormalizedEvent) webhooks.ProcessingResult {
	start := time.Now()
	metadata := map[string]interface{}{
		"event_type": evt.SourceEvent(),
		"task_id":    evt.AffectedEntityID(),
		"webhook_id": WebhookID(evt),
	}

	out, err := p.processor.Handle(ctx, evt)
	result := webhooks.ProcessingResult{
		EntitiesUpdated: out.entities,
		TimingMs:        time.Since(start).Milliseconds(),
		Metadata:        metadata,
	}
	if result.EntitiesUpdated == nil {
		result.EntitiesUpdated = []string{}
	}

	if err != nil {
		metadata["error_type"] = errorType(err)
		result.Status = webhooks.StatusFailed
		result.Message = "Failed to process " + evt.SourceEvent() + " event"
		result.ErrorDetails = err.Error()
		result.EntitiesUpdated = []string{}
	} else {
		result.Status = webhooks.StatusSuccess
		result.Message = "Successfully processed " + evt.SourceEvent() + " event"
		if len(out.notes) > 0 {
			result.Message += " (" + strings.Join(out.notes, "; ") + ")"
		}
	}

	p.Record(result.Status)
	return result
}
