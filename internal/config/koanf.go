// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order; the first existing file wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/taskgraph/config.yaml",
	"/etc/taskgraph/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultMaxBodyBytes is the webhook body ceiling (10 MiB).
const DefaultMaxBodyBytes int64 = 10 << 20

func defaultConfig() *Config {
	return &Config{
		ClickUp: ClickUpConfig{
			BaseURL:           "https://api.clickup.com/api/v2",
			RequestsPerMinute: 100,
			Timeout:           30 * time.Second,
			CircuitBreaker:    true,
		},
		Neo4j: Neo4jConfig{
			URI:                          "neo4j://localhost:7687",
			Username:                     "neo4j",
			MaxRetryAttempts:             3,
			RetryInitialDelay:            time.Second,
			MaxConnectionPoolSize:        50,
			ConnectionAcquisitionTimeout: 60 * time.Second,
			MaxConnectionLifetime:        time.Hour,
			EnsureSchema:                 true,
			Statuses:                     []string{"to do", "in progress", "review", "complete", "closed"},
			Priorities:                   []string{"urgent", "high", "normal", "low"},
		},
		Webhooks: WebhooksConfig{
			MaxBodyBytes: DefaultMaxBodyBytes,
			Providers: map[string]ProviderSettings{
				"clickup": {Enabled: true},
			},
		},
		EventBus: EventBusConfig{
			Transport:         "gochannel",
			NATSURL:           "nats://127.0.0.1:4222",
			Topic:             "webhooks.events",
			QueueGroup:        "taskgraph",
			DurablePrefix:     "taskgraph-processor",
			SubscribersCount:  1,
			BufferSize:        256,
			DedupEnabled:      true,
			DedupTTL:          5 * time.Minute,
			ThrottlePerSecond: 0,
			CloseTimeout:      30 * time.Second,
			WALMaxAttempts:    5,
		},
		Sync: SyncConfig{
			Enabled:         true,
			Interval:        6 * time.Hour,
			FullSyncOnStart: false,
			BatchSize:       1000,
			RetryAttempts:   3,
			RetryDelay:      time.Second,
		},
		Snapshot: SnapshotConfig{
			Enabled:        true,
			Interval:       24 * time.Hour,
			RetentionWeeks: 12,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Security: SecurityConfig{
			AuthMode:        "none",
			TokenTTL:        24 * time.Hour,
			RateLimitReqs:   300,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// environment variables, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths arrive from the environment as comma-separated strings.
var sliceConfigPaths = []string{
	"clickup.target_list_ids",
	"neo4j.statuses",
	"neo4j.priorities",
	"security.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

var envMappings = map[string]string{
	"clickup_api_token":           "clickup.api_token",
	"clickup_base_url":            "clickup.base_url",
	"clickup_team_id":             "clickup.team_id",
	"clickup_space_id":            "clickup.space_id",
	"clickup_target_list_ids":     "clickup.target_list_ids",
	"clickup_webhook_secret":      "clickup.webhook_secret",
	"clickup_requests_per_minute": "clickup.requests_per_minute",
	"clickup_timeout":             "clickup.timeout",
	"clickup_circuit_breaker":     "clickup.circuit_breaker",

	"neo4j_uri":                            "neo4j.uri",
	"neo4j_username":                       "neo4j.username",
	"neo4j_password":                       "neo4j.password",
	"neo4j_database":                       "neo4j.database",
	"neo4j_max_retry_attempts":             "neo4j.max_retry_attempts",
	"neo4j_retry_initial_delay":            "neo4j.retry_initial_delay",
	"neo4j_max_connection_pool_size":       "neo4j.max_connection_pool_size",
	"neo4j_connection_acquisition_timeout": "neo4j.connection_acquisition_timeout",
	"neo4j_ensure_schema":                  "neo4j.ensure_schema",
	"neo4j_statuses":                       "neo4j.statuses",
	"neo4j_priorities":                     "neo4j.priorities",

	"webhook_max_body_bytes":  "webhooks.max_body_bytes",
	"clickup_webhook_enabled": "webhooks.providers.clickup.enabled",

	"eventbus_transport":           "eventbus.transport",
	"eventbus_nats_url":            "eventbus.nats_url",
	"nats_url":                     "eventbus.nats_url",
	"eventbus_topic":               "eventbus.topic",
	"eventbus_subscribers_count":   "eventbus.subscribers_count",
	"eventbus_dedup_enabled":       "eventbus.dedup_enabled",
	"eventbus_dedup_ttl":           "eventbus.dedup_ttl",
	"eventbus_throttle_per_second": "eventbus.throttle_per_second",
	"eventbus_wal_path":            "eventbus.wal_path",
	"eventbus_wal_max_attempts":    "eventbus.wal_max_attempts",

	"sync_enabled":            "sync.enabled",
	"sync_interval":           "sync.interval",
	"sync_full_on_start":      "sync.full_sync_on_start",
	"sync_batch_size":         "sync.batch_size",
	"sync_retry_attempts":     "sync.retry_attempts",
	"sync_retry_delay":        "sync.retry_delay",
	"sync_task_page_limit":    "sync.task_page_limit",
	"sync_state_path":         "sync.state_path",
	"sync_reconcile_mismatch": "sync.reconcile_mismatch",

	"snapshot_enabled":         "snapshot.enabled",
	"snapshot_interval":        "snapshot.interval",
	"snapshot_retention_weeks": "snapshot.retention_weeks",

	"http_host":        "server.host",
	"http_port":        "server.port",
	"http_timeout":     "server.timeout",
	"shutdown_timeout": "server.shutdown_timeout",

	"auth_mode":           "security.auth_mode",
	"jwt_secret":          "security.jwt_secret",
	"token_ttl":           "security.token_ttl",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps environment variable names to koanf paths.
// Variables not listed in envMappings are dropped.
//
//	CLICKUP_API_TOKEN -> clickup.api_token
//	HTTP_PORT         -> server.port
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

// WatchConfigFile invokes callback whenever the file at path changes.
func WatchConfigFile(path string, callback func()) error {
	return file.Provider(path).Watch(func(_ interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}

// ConfigFile returns the path of the config file Load would read, or "".
func ConfigFile() string {
	return findConfigFile()
}
