// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/tomtom215/taskgraph/internal/config"
	"github.com/tomtom215/taskgraph/internal/logging"
	"github.com/tomtom215/taskgraph/internal/metrics"
)

// Record is one result row keyed by RETURN alias.
type Record = map[string]any

// Summary reports what a write changed, plus any rows it returned.
type Summary struct {
	Records              []Record
	NodesCreated         int
	NodesDeleted         int
	RelationshipsCreated int
	RelationshipsDeleted int
	PropertiesSet        int
}

// GraphStore executes Cypher. Implementations retry transient failures.
type GraphStore interface {
	Read(ctx context.Context, query string, params map[string]any) ([]Record, error)
	Write(ctx context.Context, query string, params map[string]any) (Summary, error)
	VerifyConnectivity(ctx context.Context) error
}

// ErrClosed is returned after Close.
var ErrClosed = errors.New("graph store closed")

// Store is the Neo4j-backed GraphStore.
type Store struct {
	driver   neo4j.DriverWithContext
	database string
	policy   RetryPolicy
}

var _ GraphStore = (*Store)(nil)

// NewStore opens a driver for cfg. It does not contact the server; call
// VerifyConnectivity for that.
func NewStore(cfg *config.Neo4jConfig) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(
		cfg.URI,
		neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
		func(c *neo4j.Config) {
			// Retry owns transient retries; managed transactions run once.
			c.MaxTransactionRetryTime = 0
			if cfg.MaxConnectionPoolSize > 0 {
				c.MaxConnectionPoolSize = cfg.MaxConnectionPoolSize
			}
			if cfg.ConnectionAcquisitionTimeout > 0 {
				c.ConnectionAcquisitionTimeout = cfg.ConnectionAcquisitionTimeout
			}
			if cfg.MaxConnectionLifetime > 0 {
				c.MaxConnectionLifetime = cfg.MaxConnectionLifetime
			}
		},
	)
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}

	return &Store{
		driver:   driver,
		database: cfg.Database,
		policy: RetryPolicy{
			MaxAttempts:  cfg.MaxRetryAttempts,
			InitialDelay: cfg.RetryInitialDelay,
		},
	}, nil
}

// VerifyConnectivity checks the server is reachable and the credentials work.
func (s *Store) VerifyConnectivity(ctx context.Context) error {
	if s.driver == nil {
		return ErrClosed
	}
	if err := s.driver.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("neo4j connectivity: %w", err)
	}
	return nil
}

// Close releases the driver's connection pool.
func (s *Store) Close(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	err := s.driver.Close(ctx)
	s.driver = nil
	return err
}

// Read runs query in a read transaction and returns all rows.
func (s *Store) Read(ctx context.Context, query string, params map[string]any) ([]Record, error) {
	var records []Record
	err := s.run(ctx, "read", func(ctx context.Context) error {
		session := s.session(ctx, neo4j.AccessModeRead)
		defer session.Close(ctx)

		out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			result, err := tx.Run(ctx, query, params)
			if err != nil {
				return nil, err
			}
			rows, err := result.Collect(ctx)
			if err != nil {
				return nil, err
			}
			return toRecords(rows), nil
		})
		if err != nil {
			return err
		}
		records, _ = out.([]Record)
		return nil
	})
	return records, err
}

// Write runs query in a write transaction and returns its counters and rows.
func (s *Store) Write(ctx context.Context, query string, params map[string]any) (Summary, error) {
	var summary Summary
	err := s.run(ctx, "write", func(ctx context.Context) error {
		session := s.session(ctx, neo4j.AccessModeWrite)
		defer session.Close(ctx)

		out, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			result, err := tx.Run(ctx, query, params)
			if err != nil {
				return nil, err
			}
			rows, err := result.Collect(ctx)
			if err != nil {
				return nil, err
			}
			consumed, err := result.Consume(ctx)
			if err != nil {
				return nil, err
			}
			c := consumed.Counters()
			return Summary{
				Records:              toRecords(rows),
				NodesCreated:         c.NodesCreated(),
				NodesDeleted:         c.NodesDeleted(),
				RelationshipsCreated: c.RelationshipsCreated(),
				RelationshipsDeleted: c.RelationshipsDeleted(),
				PropertiesSet:        c.PropertiesSet(),
			}, nil
		})
		if err != nil {
			return err
		}
		summary, _ = out.(Summary)
		return nil
	})
	return summary, err
}

func (s *Store) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: s.database,
	})
}

func (s *Store) run(ctx context.Context, mode string, fn func(context.Context) error) error {
	if s.driver == nil {
		return ErrClosed
	}
	start := time.Now()
	err := Retry(ctx, s.policy, mode, fn)
	metrics.RecordGraphQuery(mode, time.Since(start), ErrorClass(err))
	if err != nil {
		logging.Ctx(ctx).Debug().Err(err).Str("mode", mode).Str("error_class", ErrorClass(err)).Msg("Graph query failed")
	}
	return err
}

func toRecords(rows []*neo4j.Record) []Record {
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.AsMap())
	}
	return out
}
