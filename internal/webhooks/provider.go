// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package webhooks

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Provider is the handler bundle for one webhook source.
type Provider interface {
	// Name is the path segment under /webhooks/.
	Name() string

	// Enabled reports the provider's own configuration flag.
	Enabled() bool

	// Secret is the shared HMAC secret. Empty disables verification.
	Secret() string

	// SignatureSpec describes where the provider puts its signature.
	SignatureSpec() SignatureSpec

	// Parse normalizes a raw payload. It returns *ValidationError when the
	// payload is malformed or lacks identity fields.
	Parse(raw []byte) (*NormalizedEvent, error)

	// Process applies the event to the graph. It never panics on bad input
	// and reports every failure in the result.
	Process(ctx context.Context, evt *NormalizedEvent) ProcessingResult

	// SupportedEvents lists the provider event names it understands.
	SupportedEvents() []string

	// Stats returns processing counters.
	Stats() ProviderStats
}

// ProcessingStatus is the outcome of processing one event.
type ProcessingStatus string

const (
	StatusSuccess ProcessingStatus = "success"
	StatusFailed  ProcessingStatus = "failed"
	StatusSkipped ProcessingStatus = "skipped"
)

// ProcessingResult records what processing an event did.
type ProcessingResult struct {
	Status          ProcessingStatus       `json:"status"`
	EntitiesUpdated []string               `json:"entities_updated"`
	Message         string                 `json:"message"`
	ErrorDetails    string                 `json:"error_details,omitempty"`
	TimingMs        int64                  `json:"processing_time_ms"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
}

// ProviderStats is the per-provider view served by GET /stats.
type ProviderStats struct {
	Provider        string     `json:"provider"`
	Enabled         bool       `json:"enabled"`
	EventsProcessed int64      `json:"events_processed"`
	EventsFailed    int64      `json:"events_failed"`
	SuccessRate     float64    `json:"success_rate"`
	LastProcessed   *time.Time `json:"last_processed"`
	SupportedEvents []string   `json:"supported_events"`
}

// StatsCounter is embedded by providers to keep their processing counters.
type StatsCounter struct {
	processed atomic.Int64
	failed    atomic.Int64

	mu   sync.Mutex
	last time.Time
}

// Record counts one processed event. Skipped events count as processed.
func (s *StatsCounter) Record(status ProcessingStatus) {
	if status == StatusFailed {
		s.failed.Add(1)
	} else {
		s.processed.Add(1)
	}
	s.mu.Lock()
	s.last = time.Now().UTC()
	s.mu.Unlock()
}

// Snapshot fills the counter fields of a ProviderStats.
func (s *StatsCounter) Snapshot(name string, enabled bool, supported []string) ProviderStats {
	processed := s.processed.Load()
	failed := s.failed.Load()

	stats := ProviderStats{
		Provider:        name,
		Enabled:         enabled,
		EventsProcessed: processed,
		EventsFailed:    failed,
		SupportedEvents: supported,
	}
	if total := processed + failed; total > 0 {
		stats.SuccessRate = float64(processed) / float64(total) * 100
	}

	s.mu.Lock()
	if !s.last.IsZero() {
		last := s.last
		stats.LastProcessed = &last
	}
	s.mu.Unlock()
	return stats
}
