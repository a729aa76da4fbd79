// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package config

import "time"

// Config is the complete process configuration.
type Config struct {
	ClickUp  ClickUpConfig  `koanf:"clickup"`
	Neo4j    Neo4jConfig    `koanf:"neo4j"`
	Webhooks WebhooksConfig `koanf:"webhooks"`
	EventBus EventBusConfig `koanf:"eventbus"`
	Sync     SyncConfig     `koanf:"sync"`
	Snapshot SnapshotConfig `koanf:"snapshot"`
	Server   ServerConfig   `koanf:"server"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ClickUpConfig holds the ClickUp REST API settings and the scope that is
// mirrored into the graph.
type ClickUpConfig struct {
	// APIToken is sent verbatim in the Authorization header.
	APIToken string `koanf:"api_token"`

	// BaseURL defaults to https://api.clickup.com/api/v2.
	BaseURL string `koanf:"base_url"`

	// TeamID selects the workspace. Empty means the first workspace the token can see.
	TeamID string `koanf:"team_id"`

	// SpaceID is the space whose lists are mirrored.
	SpaceID string `koanf:"space_id"`

	// TargetListIDs limits the mirrored lists. Empty mirrors every list in the space.
	TargetListIDs []string `koanf:"target_list_ids"`

	// WebhookSecret verifies X-Signature on inbound ClickUp webhooks.
	// Empty disables verification (development only).
	WebhookSecret string `koanf:"webhook_secret"`

	// RequestsPerMinute caps outbound API calls. ClickUp allows 100/min on most plans.
	RequestsPerMinute int `koanf:"requests_per_minute"`

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `koanf:"timeout"`

	// CircuitBreaker enables the gobreaker wrapper around the API client.
	CircuitBreaker bool `koanf:"circuit_breaker"`
}

// Neo4jConfig holds graph database connection settings.
type Neo4jConfig struct {
	URI      string `koanf:"uri"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`

	// Database selects a named database. Empty uses the server default.
	Database string `koanf:"database"`

	// MaxRetryAttempts bounds retries of transient errors per query.
	MaxRetryAttempts int `koanf:"max_retry_attempts"`

	// RetryInitialDelay is doubled after each transient failure.
	RetryInitialDelay time.Duration `koanf:"retry_initial_delay"`

	MaxConnectionPoolSize        int           `koanf:"max_connection_pool_size"`
	ConnectionAcquisitionTimeout time.Duration `koanf:"connection_acquisition_timeout"`
	MaxConnectionLifetime        time.Duration `koanf:"max_connection_lifetime"`

	// EnsureSchema creates constraints and seeds Status/Priority nodes at startup.
	EnsureSchema bool `koanf:"ensure_schema"`

	// Statuses and Priorities seed the reference nodes tasks link to.
	Statuses   []string `koanf:"statuses"`
	Priorities []string `koanf:"priorities"`
}

// WebhooksConfig configures the inbound webhook surface.
type WebhooksConfig struct {
	// MaxBodyBytes is the request size ceiling. Larger bodies get 413.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`

	// Providers holds per-provider enablement and secrets, keyed by provider name.
	Providers map[string]ProviderSettings `koanf:"providers"`
}

// ProviderSettings configures one webhook provider.
type ProviderSettings struct {
	Enabled bool   `koanf:"enabled"`
	Secret  string `koanf:"secret"`
}

// EventBusConfig selects the transport between the webhook handler and the
// background processor.
type EventBusConfig struct {
	// Transport is "gochannel" (in-process) or "nats" (JetStream).
	Transport string `koanf:"transport"`

	NATSURL          string `koanf:"nats_url"`
	Topic            string `koanf:"topic"`
	QueueGroup       string `koanf:"queue_group"`
	DurablePrefix    string `koanf:"durable_prefix"`
	SubscribersCount int    `koanf:"subscribers_count"`

	// BufferSize is the gochannel output buffer.
	BufferSize int64 `koanf:"buffer_size"`

	DedupEnabled bool          `koanf:"dedup_enabled"`
	DedupTTL     time.Duration `koanf:"dedup_ttl"`

	// ThrottlePerSecond limits processed events per second. 0 disables throttling.
	ThrottlePerSecond int64 `koanf:"throttle_per_second"`

	CloseTimeout time.Duration `koanf:"close_timeout"`

	// WALPath is the badger directory journaling accepted events until they
	// are processed. Empty disables the journal.
	WALPath string `koanf:"wal_path"`

	// WALMaxAttempts drops a journaled event after this many replays.
	WALMaxAttempts int `koanf:"wal_max_attempts"`
}

// SyncConfig controls the bulk importer.
type SyncConfig struct {
	Enabled bool `koanf:"enabled"`

	// Interval between incremental (merge-only) resyncs.
	Interval time.Duration `koanf:"interval"`

	// FullSyncOnStart clears and rebuilds the mirrored scope at startup.
	FullSyncOnStart bool `koanf:"full_sync_on_start"`

	// BatchSize bounds the number of nodes deleted per clear transaction.
	BatchSize int `koanf:"batch_size"`

	RetryAttempts int           `koanf:"retry_attempts"`
	RetryDelay    time.Duration `koanf:"retry_delay"`

	// TaskPageLimit caps the number of tasks fetched per list. 0 means no cap.
	TaskPageLimit int `koanf:"task_page_limit"`

	// StatePath is the badger directory for last-sync state. Empty keeps state in memory.
	StatePath string `koanf:"state_path"`

	// ReconcileMismatch re-imports a list once when its stated task count
	// differs from the graph count after a sync.
	ReconcileMismatch bool `koanf:"reconcile_mismatch"`
}

// SnapshotConfig controls the weekly progress snapshot job.
type SnapshotConfig struct {
	Enabled        bool          `koanf:"enabled"`
	Interval       time.Duration `koanf:"interval"`
	RetentionWeeks int           `koanf:"retention_weeks"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`

	// ShutdownTimeout bounds graceful shutdown of the HTTP server.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// SecurityConfig protects the admin routes and shapes inbound traffic.
type SecurityConfig struct {
	// AuthMode is "none" or "jwt". It applies to /api/v1/admin only;
	// webhook routes are authenticated by provider signatures.
	AuthMode  string `koanf:"auth_mode"`
	JWTSecret string `koanf:"jwt_secret"`

	// TokenTTL bounds the lifetime of admin tokens issued by the server.
	TokenTTL time.Duration `koanf:"token_ttl"`

	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`

	CORSOrigins []string `koanf:"cors_origins"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// ListIDSet returns the target list IDs as a lookup set. A nil set means
// every list is in scope.
func (c *ClickUpConfig) ListIDSet() map[string]bool {
	if len(c.TargetListIDs) == 0 {
		return nil
	}
	set := make(map[string]bool, len(c.TargetListIDs))
	for _, id := range c.TargetListIDs {
		set[id] = true
	}
	return set
}

// Provider returns the settings for a named webhook provider. ClickUp falls
// back to clickup.webhook_secret when no provider-specific secret is set.
func (c *Config) Provider(name string) ProviderSettings {
	ps, ok := c.Webhooks.Providers[name]
	if !ok {
		ps = ProviderSettings{}
	}
	if name == "clickup" && ps.Secret == "" {
		ps.Secret = c.ClickUp.WebhookSecret
	}
	return ps
}
