// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package clickup

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/taskgraph/internal/config"
	"github.com/tomtom215/taskgraph/internal/logging"
	"github.com/tomtom215/taskgraph/internal/metrics"
)

const breakerName = "clickup-api"

// BreakerSettings tunes the circuit breaker. Zero values take the defaults
// from DefaultBreakerSettings.
type BreakerSettings struct {
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	MinRequests  uint32
	FailureRatio float64
}

// DefaultBreakerSettings: 3 half-open probes, 1 minute counting window,
// 2 minutes open, trip at 60% failures over at least 10 requests.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		MaxRequests:  3,
		Interval:     time.Minute,
		Timeout:      2 * time.Minute,
		MinRequests:  10,
		FailureRatio: 0.6,
	}
}

// CircuitBreakerClient wraps a Client so repeated ClickUp outages fail fast.
// 4xx responses other than 429 count as successes for breaker accounting.
type CircuitBreakerClient struct {
	client *Client
	cb     *gobreaker.CircuitBreaker[interface{}]
	name   string
}

// NewCircuitBreakerClient wraps client with a breaker using settings.
func NewCircuitBreakerClient(client *Client, settings BreakerSettings) *CircuitBreakerClient {
	defaults := DefaultBreakerSettings()
	if settings.MaxRequests == 0 {
		settings.MaxRequests = defaults.MaxRequests
	}
	if settings.Interval == 0 {
		settings.Interval = defaults.Interval
	}
	if settings.Timeout == 0 {
		settings.Timeout = defaults.Timeout
	}
	if settings.MinRequests == 0 {
		settings.MinRequests = defaults.MinRequests
	}
	if settings.FailureRatio == 0 {
		settings.FailureRatio = defaults.FailureRatio
	}

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(breakerName).Set(0)

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < settings.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			if ratio >= settings.FailureRatio {
				logging.Warn().
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", ratio*100).
					Msg("[CIRCUIT BREAKER] Opening ClickUp circuit")
				return true
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr, toStr := stateToString(from), stateToString(to)
			logging.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
		IsSuccessful: func(err error) bool {
			return err == nil || isClientError(err) || errors.Is(err, context.Canceled)
		},
	})

	return &CircuitBreakerClient{client: client, cb: cb, name: breakerName}
}

// State returns the breaker state name.
func (cbc *CircuitBreakerClient) State() string {
	return stateToString(cbc.cb.State())
}

// IsCircuitOpen reports whether err is a breaker rejection rather than a
// ClickUp response.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func (cbc *CircuitBreakerClient) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := cbc.cb.Execute(fn)
	if err != nil {
		if IsCircuitOpen(err) {
			metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "rejected").Inc()
			logging.Warn().Err(err).Msg("[CIRCUIT BREAKER] ClickUp request rejected")
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "failure").Inc()
			metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(cbc.name).Set(float64(cbc.cb.Counts().ConsecutiveFailures))
		}
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "success").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(cbc.name).Set(0)
	return result, nil
}

// run executes fn through the breaker and restores its concrete type.
func run[T any](cbc *CircuitBreakerClient, fn func() (T, error)) (T, error) {
	var zero T
	result, err := cbc.execute(func() (interface{}, error) { return fn() })
	if err != nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

func (cbc *CircuitBreakerClient) GetTeams(ctx context.Context) ([]Team, error) {
	return run(cbc, func() ([]Team, error) { return cbc.client.GetTeams(ctx) })
}

func (cbc *CircuitBreakerClient) GetSpaces(ctx context.Context, teamID string) ([]Space, error) {
	return run(cbc, func() ([]Space, error) { return cbc.client.GetSpaces(ctx, teamID) })
}

func (cbc *CircuitBreakerClient) GetSpace(ctx context.Context, spaceID string) (*Space, error) {
	return run(cbc, func() (*Space, error) { return cbc.client.GetSpace(ctx, spaceID) })
}

func (cbc *CircuitBreakerClient) GetFolders(ctx context.Context, spaceID string) ([]Folder, error) {
	return run(cbc, func() ([]Folder, error) { return cbc.client.GetFolders(ctx, spaceID) })
}

func (cbc *CircuitBreakerClient) GetFolderLists(ctx context.Context, folderID string) ([]List, error) {
	return run(cbc, func() ([]List, error) { return cbc.client.GetFolderLists(ctx, folderID) })
}

func (cbc *CircuitBreakerClient) GetSpaceLists(ctx context.Context, spaceID string) ([]List, error) {
	return run(cbc, func() ([]List, error) { return cbc.client.GetSpaceLists(ctx, spaceID) })
}

func (cbc *CircuitBreakerClient) GetList(ctx context.Context, listID string) (*List, error) {
	return run(cbc, func() (*List, error) { return cbc.client.GetList(ctx, listID) })
}

func (cbc *CircuitBreakerClient) GetTask(ctx context.Context, taskID string) (*Task, error) {
	return run(cbc, func() (*Task, error) { return cbc.client.GetTask(ctx, taskID) })
}

// GetTasks walks every page inside a single breaker call so a partially
// paged listing counts as one failure.
func (cbc *CircuitBreakerClient) GetTasks(ctx context.Context, listID string, q TaskQuery) ([]Task, error) {
	return run(cbc, func() ([]Task, error) { return cbc.client.GetTasks(ctx, listID, q) })
}

func (cbc *CircuitBreakerClient) SearchTasks(ctx context.Context, teamID, query string, limit int) ([]Task, error) {
	return run(cbc, func() ([]Task, error) { return cbc.client.SearchTasks(ctx, teamID, query, limit) })
}

// NewTaskSource returns the configured source: the plain client, or the
// client behind a circuit breaker when clickup.circuit_breaker is set.
func NewTaskSource(cfg *config.ClickUpConfig) TaskSource {
	client := NewClient(cfg)
	if !cfg.CircuitBreaker {
		return client
	}
	return NewCircuitBreakerClient(client, DefaultBreakerSettings())
}
