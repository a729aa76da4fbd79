// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package config

import (
	"fmt"
	"strings"
)

// Validate checks that required configuration is present and consistent.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateClickUp,
		c.validateNeo4j,
		c.validateWebhooks,
		c.validateEventBus,
		c.validateSync,
		c.validateSnapshot,
		c.validateServer,
		c.validateSecurity,
		c.validateLogging,
	}
	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateClickUp() error {
	if c.ClickUp.APIToken == "" {
		return fmt.Errorf("CLICKUP_API_TOKEN is required")
	}
	if err := validateBaseURL(c.ClickUp.BaseURL, "CLICKUP_BASE_URL"); err != nil {
		return err
	}
	if c.ClickUp.RequestsPerMinute <= 0 {
		return fmt.Errorf("CLICKUP_REQUESTS_PER_MINUTE must be positive, got %d", c.ClickUp.RequestsPerMinute)
	}
	if c.ClickUp.Timeout <= 0 {
		return fmt.Errorf("CLICKUP_TIMEOUT must be positive")
	}
	if c.Sync.Enabled && c.ClickUp.SpaceID == "" {
		return fmt.Errorf("CLICKUP_SPACE_ID is required when SYNC_ENABLED=true")
	}
	return nil
}

func (c *Config) validateNeo4j() error {
	if err := validateBoltURI(c.Neo4j.URI); err != nil {
		return fmt.Errorf("NEO4J_URI: %w", err)
	}
	if c.Neo4j.Username == "" {
		return fmt.Errorf("NEO4J_USERNAME is required")
	}
	if c.Neo4j.Password == "" {
		return fmt.Errorf("NEO4J_PASSWORD is required")
	}
	if c.Neo4j.MaxRetryAttempts < 1 {
		return fmt.Errorf("NEO4J_MAX_RETRY_ATTEMPTS must be at least 1, got %d", c.Neo4j.MaxRetryAttempts)
	}
	return nil
}

func (c *Config) validateWebhooks() error {
	if c.Webhooks.MaxBodyBytes <= 0 {
		return fmt.Errorf("WEBHOOK_MAX_BODY_BYTES must be positive, got %d", c.Webhooks.MaxBodyBytes)
	}
	return nil
}

func (c *Config) validateEventBus() error {
	switch c.EventBus.Transport {
	case "gochannel":
	case "nats":
		if err := validateNATSURL(c.EventBus.NATSURL); err != nil {
			return fmt.Errorf("EVENTBUS_NATS_URL: %w", err)
		}
	default:
		return fmt.Errorf("EVENTBUS_TRANSPORT must be gochannel or nats, got %q", c.EventBus.Transport)
	}
	if c.EventBus.Topic == "" {
		return fmt.Errorf("EVENTBUS_TOPIC is required")
	}
	if c.EventBus.DedupEnabled && c.EventBus.DedupTTL <= 0 {
		return fmt.Errorf("EVENTBUS_DEDUP_TTL must be positive when deduplication is enabled")
	}
	if c.EventBus.ThrottlePerSecond < 0 {
		return fmt.Errorf("EVENTBUS_THROTTLE_PER_SECOND cannot be negative")
	}
	if c.EventBus.WALPath != "" && c.EventBus.WALMaxAttempts < 1 {
		return fmt.Errorf("EVENTBUS_WAL_MAX_ATTEMPTS must be at least 1 when the journal is enabled")
	}
	return nil
}

func (c *Config) validateSync() error {
	if !c.Sync.Enabled {
		return nil
	}
	if c.Sync.Interval <= 0 {
		return fmt.Errorf("SYNC_INTERVAL must be positive")
	}
	if c.Sync.BatchSize <= 0 {
		return fmt.Errorf("SYNC_BATCH_SIZE must be positive, got %d", c.Sync.BatchSize)
	}
	if c.Sync.RetryAttempts < 1 {
		return fmt.Errorf("SYNC_RETRY_ATTEMPTS must be at least 1, got %d", c.Sync.RetryAttempts)
	}
	if c.Sync.TaskPageLimit < 0 {
		return fmt.Errorf("SYNC_TASK_PAGE_LIMIT cannot be negative")
	}
	return nil
}

func (c *Config) validateSnapshot() error {
	if !c.Snapshot.Enabled {
		return nil
	}
	if c.Snapshot.Interval <= 0 {
		return fmt.Errorf("SNAPSHOT_INTERVAL must be positive")
	}
	if c.Snapshot.RetentionWeeks < 1 {
		return fmt.Errorf("SNAPSHOT_RETENTION_WEEKS must be at least 1, got %d", c.Snapshot.RetentionWeeks)
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	return nil
}

func (c *Config) validateSecurity() error {
	switch c.Security.AuthMode {
	case "none":
	case "jwt":
		if len(c.Security.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 characters when AUTH_MODE=jwt")
		}
	default:
		return fmt.Errorf("AUTH_MODE must be none or jwt, got %q", c.Security.AuthMode)
	}
	if !c.Security.RateLimitDisabled {
		if c.Security.RateLimitReqs <= 0 {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive")
		}
		if c.Security.RateLimitWindow <= 0 {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error, fatal, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
