// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration loaded from defaults, an
// optional YAML file and environment variables.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in sensible defaults for all optional settings
//  2. Config File: Optional YAML config file (config.yaml) for persistent settings
//  3. Environment Variables: Override any setting via environment variables
//
// Configuration Categories:
//
//  1. Ingestion:
//     - Relays: upstream relay URLs, keepalive, reconnect backoff, circuit breaker
//     - Event: globally interesting kinds for the initial subscription
//     - Subscription: one filter for all kinds or one filter per kind
//     - Expansion: reference subscriptions opened for newly seen notes and articles
//
//  2. Infrastructure:
//     - Database: dedup store backend (duckdb, sqlite, badger)
//     - Server: read API and live stream
//     - Publish: Watermill fan-out of stored records
//
//  3. Observability:
//     - Logging: Log levels and output formats
//
// A Config returned by Load has passed Validate and is treated as read-only.
type Config struct {
	Relays       RelaysConfig       `koanf:"relays" json:"relays"`
	Event        EventConfig        `koanf:"event" json:"event"`
	Subscription SubscriptionConfig `koanf:"subscription" json:"subscription"`
	Expansion    ExpansionConfig    `koanf:"expansion" json:"expansion"`
	Database     DatabaseConfig     `koanf:"database" json:"database"`
	Server       ServerConfig       `koanf:"server" json:"server"`
	Publish      PublishConfig      `koanf:"publish" json:"publish"`
	Logging      LoggingConfig      `koanf:"logging" json:"logging"`
}

// RelaysConfig holds the upstream relay set and connection behavior.
//
// Environment Variables:
//   - RELAY_URLS: Comma-separated ws:// or wss:// URLs (required)
//   - RELAY_DIAL_TIMEOUT: WebSocket handshake timeout (default: 10s)
//   - RELAY_WRITE_TIMEOUT: Per-frame write deadline (default: 10s)
//   - RELAY_PING_INTERVAL: Keepalive ping period, 0 disables (default: 30s)
//   - RELAY_PONG_WAIT: Read deadline extended by each pong (default: 90s)
//   - RELAY_MAX_MESSAGE_SIZE: Largest accepted frame in bytes (default: 1MiB)
type RelaysConfig struct {
	URLs           []string        `koanf:"urls" json:"urls" validate:"min=1,dive,relayurl"`
	DialTimeout    time.Duration   `koanf:"dial_timeout" json:"dial_timeout" validate:"gt=0"`
	WriteTimeout   time.Duration   `koanf:"write_timeout" json:"write_timeout" validate:"gt=0"`
	PingInterval   time.Duration   `koanf:"ping_interval" json:"ping_interval" validate:"gte=0"`
	PongWait       time.Duration   `koanf:"pong_wait" json:"pong_wait" validate:"gte=0"`
	MaxMessageSize int64           `koanf:"max_message_size" json:"max_message_size" validate:"gte=0"`
	Reconnect      ReconnectConfig `koanf:"reconnect" json:"reconnect"`
	Breaker        BreakerConfig   `koanf:"breaker" json:"breaker"`
}

// ReconnectConfig controls the supervised retry loop around each relay
// session. With Enabled=false a closed primary session is not reopened.
type ReconnectConfig struct {
	Enabled             bool          `koanf:"enabled" json:"enabled"`
	InitialInterval     time.Duration `koanf:"initial_interval" json:"initial_interval" validate:"gt=0"`
	MaxInterval         time.Duration `koanf:"max_interval" json:"max_interval" validate:"gtefield=InitialInterval"`
	Multiplier          float64       `koanf:"multiplier" json:"multiplier" validate:"gte=1"`
	RandomizationFactor float64       `koanf:"randomization_factor" json:"randomization_factor" validate:"gte=0,lte=1"`
}

// BreakerConfig holds the per-relay dial circuit breaker settings.
type BreakerConfig struct {
	Enabled             bool          `koanf:"enabled" json:"enabled"`
	ConsecutiveFailures uint32        `koanf:"consecutive_failures" json:"consecutive_failures" validate:"gte=1"`
	OpenTimeout         time.Duration `koanf:"open_timeout" json:"open_timeout" validate:"gt=0"`
}

// EventConfig holds the kinds requested by the initial subscription on
// every relay.
type EventConfig struct {
	Kinds []uint32 `koanf:"kinds" json:"kinds" validate:"min=1"`
}

// SubscriptionConfig selects the initial filter strategy.
type SubscriptionConfig struct {
	// PerKind sends one REQ per configured kind instead of a single REQ
	// covering all of them. Required when expansion is enabled.
	PerKind bool `koanf:"per_kind" json:"per_kind"`
}

// ExpansionConfig controls reference subscriptions opened for newly
// observed notes and long-form articles.
//
// Environment Variables:
//   - EXPANSION_ENABLED: Enable dynamic expansion (default: true)
//   - EXPANSION_MODE: session (fresh connection per entity) or multiplex (default: session)
//   - EXPANSION_MAX_SESSIONS: Concurrent secondary sessions per relay, 0 = unbounded (default: 256)
//   - EXPANSION_QUEUE_SIZE: Pending requests per relay before drops (default: 1024)
//   - EXPANSION_DEDUP_CAPACITY: Targets remembered per relay (default: 100000)
//   - EXPANSION_DEDUP_TTL: How long a target stays deduplicated, 0 = forever (default: 24h)
//   - EXPANSION_RATE: Spawns per second per relay, 0 = unlimited (default: 20)
//   - EXPANSION_BURST: Spawn burst size (default: 10)
//   - EXPANSION_MAX_RETRIES: Reconnect budget of a secondary session (default: 3)
type ExpansionConfig struct {
	Enabled       bool          `koanf:"enabled" json:"enabled"`
	Mode          string        `koanf:"mode" json:"mode" validate:"oneof=session multiplex"`
	MaxSessions   int           `koanf:"max_sessions" json:"max_sessions" validate:"gte=0"`
	QueueSize     int           `koanf:"queue_size" json:"queue_size" validate:"gte=1"`
	DedupCapacity int           `koanf:"dedup_capacity" json:"dedup_capacity" validate:"gte=1"`
	DedupTTL      time.Duration `koanf:"dedup_ttl" json:"dedup_ttl" validate:"gte=0"`
	Rate          float64       `koanf:"rate" json:"rate" validate:"gte=0"`
	Burst         int           `koanf:"burst" json:"burst" validate:"gte=1"`
	MaxRetries    int           `koanf:"max_retries" json:"max_retries" validate:"gte=0"`
}

// Expansion modes.
const (
	ExpansionModeSession   = "session"
	ExpansionModeMultiplex = "multiplex"
)

// DatabaseConfig holds dedup store settings.
type DatabaseConfig struct {
	Backend     string        `koanf:"backend" json:"backend" validate:"oneof=duckdb sqlite badger"` // duckdb, sqlite or badger
	Path        string        `koanf:"path" json:"path"`                                             // File path, or directory for badger. Empty or ":memory:" = in-memory
	MaxMemory   string        `koanf:"max_memory" json:"max_memory"`                                 // DuckDB memory limit (e.g. "512MB")
	Threads     int           `koanf:"threads" json:"threads" validate:"gte=0"`                      // DuckDB threads (0 = use NumCPU)
	BusyTimeout time.Duration `koanf:"busy_timeout" json:"busy_timeout" validate:"gte=0"`            // SQLite busy_timeout

	// MaintenanceInterval is how often the store is compacted (DuckDB
	// CHECKPOINT, SQLite PRAGMA optimize, Badger value log GC). 0 disables.
	MaintenanceInterval time.Duration `koanf:"maintenance_interval" json:"maintenance_interval" validate:"gte=0"`
}

// Storage backends.
const (
	BackendDuckDB = "duckdb"
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
)

// InMemory reports whether the store should not touch the filesystem.
func (d DatabaseConfig) InMemory() bool {
	return d.Path == "" || d.Path == ":memory:"
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Enabled           bool          `koanf:"enabled" json:"enabled"`
	Host              string        `koanf:"host" json:"host"`
	Port              int           `koanf:"port" json:"port"`
	ReadTimeout       time.Duration `koanf:"read_timeout" json:"read_timeout" validate:"gt=0"`
	WriteTimeout      time.Duration `koanf:"write_timeout" json:"write_timeout" validate:"gt=0"`
	IdleTimeout       time.Duration `koanf:"idle_timeout" json:"idle_timeout" validate:"gt=0"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout" json:"shutdown_timeout" validate:"gt=0"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs" json:"rate_limit_reqs" validate:"gte=1"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" json:"rate_limit_window" validate:"gt=0"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled" json:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins" json:"cors_origins"`
}

// Addr returns the listen address in host:port form.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// PublishConfig controls the Watermill fan-out of newly stored records.
// NATSURL is only used by binaries built with the nats tag.
type PublishConfig struct {
	Enabled bool   `koanf:"enabled" json:"enabled"`
	Topic   string `koanf:"topic" json:"topic"`
	NATSURL string `koanf:"nats_url" json:"nats_url"`
}

// LoggingConfig holds logging configuration.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: true/false - include caller file:line (default: false)
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level" json:"level"`

	// Format is the output format: json or console.
	// Default: json
	Format string `koanf:"format" json:"format" validate:"oneof=json console"`

	// Caller includes caller file and line number in logs.
	// Default: false
	Caller bool `koanf:"caller" json:"caller"`
}

// Load reads configuration with the following precedence (highest to lowest):
//  1. Environment variables
//  2. Config file (config.yaml if exists, or path specified in CONFIG_PATH env var)
//  3. Built-in defaults
//
// See LoadWithKoanf() for the underlying implementation.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

// Redacted returns a copy of c safe to expose over the API. Slices are
// copied so the result can be modified freely.
func (c *Config) Redacted() Config {
	out := *c
	out.Relays.URLs = make([]string, len(c.Relays.URLs))
	for i, u := range c.Relays.URLs {
		out.Relays.URLs[i] = redactURL(u)
	}
	out.Event.Kinds = append([]uint32(nil), c.Event.Kinds...)
	out.Server.CORSOrigins = append([]string(nil), c.Server.CORSOrigins...)
	out.Publish.NATSURL = redactURL(c.Publish.NATSURL)
	return out
}

// String renders a one-line summary suitable for the startup log.
func (c *Config) String() string {
	return fmt.Sprintf("relays=%d kinds=%v backend=%s expansion=%t/%s addr=%s",
		len(c.Relays.URLs), c.Event.Kinds, c.Database.Backend,
		c.Expansion.Enabled, c.Expansion.Mode, c.Server.Addr())
}
