// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package webhooks

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/taskgraph/internal/logging"
	"github.com/tomtom215/taskgraph/internal/metrics"
)

// StatusRecorder is implemented by providers that embed StatsCounter.
type StatusRecorder interface {
	Record(status ProcessingStatus)
}

// Process runs p.Process for evt in the background path and records the
// outcome. A panic in the provider becomes a failed result and is counted
// against the provider when it implements StatusRecorder.
func Process(ctx context.Context, p Provider, evt *NormalizedEvent) (result ProcessingResult) {
	start := time.Now()
	log := logging.Ctx(ctx)

	defer func() {
		if r := recover(); r != nil {
			result = ProcessingResult{
				Status:       StatusFailed,
				Message:      "provider panicked while processing event",
				ErrorDetails: fmt.Sprint(r),
				TimingMs:     time.Since(start).Milliseconds(),
			}
			if rec, ok := p.(StatusRecorder); ok {
				rec.Record(StatusFailed)
			}
		}

		metrics.RecordEventProcessed(p.Name(), evt.Kind().String(), string(result.Status), time.Since(start))

		if result.Status == StatusFailed {
			e := log.Error().
				Str("provider", p.Name()).
				Str("event_type", evt.Kind().String()).
				Str("event_id", evt.EventID()).
				Str("result_message", result.Message)
			if result.ErrorDetails != "" {
				e = e.Str("error_details", result.ErrorDetails)
			}
			e.Msg("Failed to process webhook event")
			return
		}

		log.Info().
			Str("provider", p.Name()).
			Str("event_type", evt.Kind().String()).
			Str("event_id", evt.EventID()).
			Str("status", string(result.Status)).
			Strs("entities", result.EntitiesUpdated).
			Int64("timing_ms", result.TimingMs).
			Msg("Processed webhook event")
	}()

	return p.Process(ctx, evt)
}
