// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package graph

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/tomtom215/taskgraph/internal/logging"
	"github.com/tomtom215/taskgraph/internal/metrics"
)

const maxBackoff = 30 * time.Second

// RetryPolicy bounds transient-error retries. Zero values mean 3 attempts
// starting at one second.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts <= 0 {
		return 3
	}
	return p.MaxAttempts
}

// BackOff returns the delay schedule: InitialDelay doubling per retry,
// capped at 30s, without jitter.
func (p RetryPolicy) BackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialDelay
	if b.InitialInterval <= 0 {
		b.InitialInterval = time.Second
	}
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = maxBackoff
	b.Reset()
	return b
}

// Retry calls fn until it succeeds, fails with a non-transient error, the
// policy is exhausted or ctx is done. mode labels the retry metric.
func Retry(ctx context.Context, policy RetryPolicy, mode string, fn func(context.Context) error) error {
	maxAttempts := policy.attempts()

	var lastErr error
	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := fn(ctx)
		if err == nil {
			return struct{}{}, nil
		}
		lastErr = err
		if !IsTransient(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(policy.BackOff()),
		backoff.WithMaxTries(uint(maxAttempts)),
		backoff.WithNotify(func(err error, delay time.Duration) {
			metrics.RecordGraphRetry(mode)
			logging.Ctx(ctx).Warn().
				Err(err).
				Int("attempt", attempt+1).
				Int("max_attempts", maxAttempts).
				Dur("delay", delay).
				Msg("Transient graph error, retrying")
		}),
	)
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil && lastErr != nil && !errors.Is(lastErr, ctx.Err()):
		return fmt.Errorf("%w (last error: %v)", ctx.Err(), lastErr)
	case IsTransient(err):
		return fmt.Errorf("failed after %d attempts: %w", attempt, err)
	default:
		return err
	}
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if neo4j.IsRetryable(err) || neo4j.IsConnectivityError(err) {
		return true
	}

	var neoErr *neo4j.Neo4jError
	if errors.As(err, &neoErr) {
		return strings.HasPrefix(neoErr.Code, "Neo.TransientError") ||
			neoErr.Code == "Neo.ClientError.Cluster.NotALeader"
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "ServiceUnavailable")
}

// ErrorClass buckets err for the graph error metric. It returns "" for nil.
func ErrorClass(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "context"
	}
	if errors.Is(err, ErrClosed) {
		return "closed"
	}
	var neoErr *neo4j.Neo4jError
	if errors.As(err, &neoErr) {
		switch {
		case strings.HasPrefix(neoErr.Code, "Neo.TransientError"):
			return "transient"
		case strings.HasPrefix(neoErr.Code, "Neo.ClientError"):
			return "client"
		default:
			return "database"
		}
	}
	if IsTransient(err) {
		return "connectivity"
	}
	return "other"
}
