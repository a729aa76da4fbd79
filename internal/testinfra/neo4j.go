// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

//go:build integration

package testinfra

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/tomtom215/taskgraph/internal/config"
)

const (
	// DefaultNeo4jImage is the community edition the graph code targets.
	DefaultNeo4jImage = "neo4j:5.26-community"

	neo4jBoltPort = "7687/tcp"
	neo4jHTTPPort = "7474/tcp"

	// DefaultNeo4jPassword is at least 8 characters, as Neo4j 5 requires.
	DefaultNeo4jPassword = "taskgraph-test"
)

// Neo4jContainer is a running single-instance Neo4j.
type Neo4jContainer struct {
	testcontainers.Container
	BoltURI  string
	Password string
}

// Neo4jOption configures NewNeo4jContainer.
type Neo4jOption func(*neo4jConfig)

type neo4jConfig struct {
	image        string
	password     string
	startTimeout time.Duration
}

// WithNeo4jImage overrides DefaultNeo4jImage.
func WithNeo4jImage(image string) Neo4jOption {
	return func(c *neo4jConfig) { c.image = image }
}

// WithNeo4jStartTimeout bounds the wait for the bolt listener.
func WithNeo4jStartTimeout(timeout time.Duration) Neo4jOption {
	return func(c *neo4jConfig) { c.startTimeout = timeout }
}

// NewNeo4jContainer starts Neo4j and waits until bolt accepts connections.
func NewNeo4jContainer(ctx context.Context, opts ...Neo4jOption) (*Neo4jContainer, error) {
	cfg := &neo4jConfig{
		image:        DefaultNeo4jImage,
		password:     DefaultNeo4jPassword,
		startTimeout: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	req := testcontainers.ContainerRequest{
		Image:        cfg.image,
		ExposedPorts: []string{neo4jBoltPort, neo4jHTTPPort},
		Env: map[string]string{
			"NEO4J_AUTH":                         "neo4j/" + cfg.password,
			"NEO4J_server_memory_heap_max__size": "512m",
			"NEO4J_server_memory_pagecache_size": "128m",
		},
		WaitingFor: wait.ForAll(
			wait.ForLog("Started."),
			wait.ForListeningPort(neo4jBoltPort),
		).WithStartupTimeout(cfg.startTimeout),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("create neo4j container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get container host: %w", err)
	}
	port, err := container.MappedPort(ctx, neo4jBoltPort)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get mapped bolt port: %w", err)
	}

	return &Neo4jContainer{
		Container: container,
		BoltURI:   fmt.Sprintf("bolt://%s:%s", host, port.Port()),
		Password:  cfg.password,
	}, nil
}

// Config returns graph settings pointing at the container.
func (c *Neo4jContainer) Config() *config.Neo4jConfig {
	return &config.Neo4jConfig{
		URI:                          c.BoltURI,
		Username:                     "neo4j",
		Password:                     c.Password,
		MaxRetryAttempts:             3,
		RetryInitialDelay:            200 * time.Millisecond,
		MaxConnectionPoolSize:        10,
		ConnectionAcquisitionTimeout: 30 * time.Second,
		MaxConnectionLifetime:        time.Hour,
		EnsureSchema:                 true,
		Statuses:                     []string{"to do", "in progress", "complete"},
		Priorities:                   []string{"urgent", "high", "normal", "low"},
	}
}
