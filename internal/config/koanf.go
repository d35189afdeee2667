// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

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

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/chest/config.yaml",
	"/etc/chest/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Relays: RelaysConfig{
			URLs:           []string{"wss://relay.damus.io", "wss://nos.lol"},
			DialTimeout:    10 * time.Second,
			WriteTimeout:   10 * time.Second,
			PingInterval:   30 * time.Second,
			PongWait:       90 * time.Second,
			MaxMessageSize: 1 << 20,
			Reconnect: ReconnectConfig{
				Enabled:             true,
				InitialInterval:     time.Second,
				MaxInterval:         32 * time.Second,
				Multiplier:          2,
				RandomizationFactor: 0.2,
			},
			Breaker: BreakerConfig{
				Enabled:             true,
				ConsecutiveFailures: 5,
				OpenTimeout:         time.Minute,
			},
		},
		Event: EventConfig{
			Kinds: []uint32{0, 1, 30023, 30024},
		},
		Subscription: SubscriptionConfig{
			PerKind: true,
		},
		Expansion: ExpansionConfig{
			Enabled:       true,
			Mode:          ExpansionModeSession,
			MaxSessions:   256,
			QueueSize:     1024,
			DedupCapacity: 100_000,
			DedupTTL:      24 * time.Hour,
			Rate:          20,
			Burst:         10,
			MaxRetries:    3,
		},
		Database: DatabaseConfig{
			Backend:     BackendDuckDB,
			Path:        "/data/chest.duckdb",
			MaxMemory:   "512MB",
			Threads:     0, // 0 = use runtime.NumCPU()
			BusyTimeout: 5 * time.Second,

			MaintenanceInterval: 10 * time.Minute,
		},
		Server: ServerConfig{
			Enabled:         true,
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Publish: PublishConfig{
			Enabled: true,
			Topic:   "chest_records",
			NATSURL: "nats://127.0.0.1:4222",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in sensible defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
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

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
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

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"relays.urls",
	"event.kinds",
	"server.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars arrive as strings; YAML lists are left untouched.
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
		// An explicitly empty variable clears the list so validation reports it.
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings is the allow-list of environment variables and the koanf
// path each one sets.
var envMappings = map[string]string{
	// Relay mappings
	"relay_urls":             "relays.urls",
	"relay_dial_timeout":     "relays.dial_timeout",
	"relay_write_timeout":    "relays.write_timeout",
	"relay_ping_interval":    "relays.ping_interval",
	"relay_pong_wait":        "relays.pong_wait",
	"relay_max_message_size": "relays.max_message_size",

	"relay_reconnect_enabled": "relays.reconnect.enabled",
	"relay_reconnect_initial": "relays.reconnect.initial_interval",
	"relay_reconnect_max":     "relays.reconnect.max_interval",
	"relay_reconnect_factor":  "relays.reconnect.multiplier",
	"relay_reconnect_jitter":  "relays.reconnect.randomization_factor",
	"relay_breaker_enabled":   "relays.breaker.enabled",
	"relay_breaker_failures":  "relays.breaker.consecutive_failures",
	"relay_breaker_timeout":   "relays.breaker.open_timeout",

	// Event and subscription mappings
	"event_kinds":           "event.kinds",
	"subscription_per_kind": "subscription.per_kind",

	// Expansion mappings
	"expansion_enabled":        "expansion.enabled",
	"expansion_mode":           "expansion.mode",
	"expansion_max_sessions":   "expansion.max_sessions",
	"expansion_queue_size":     "expansion.queue_size",
	"expansion_dedup_capacity": "expansion.dedup_capacity",
	"expansion_dedup_ttl":      "expansion.dedup_ttl",
	"expansion_rate":           "expansion.rate",
	"expansion_burst":          "expansion.burst",
	"expansion_max_retries":    "expansion.max_retries",

	// Database mappings
	"database_backend":    "database.backend",
	"database_path":       "database.path",
	"duckdb_path":         "database.path",
	"duckdb_max_memory":   "database.max_memory",
	"duckdb_threads":      "database.threads",
	"sqlite_busy_timeout": "database.busy_timeout",

	"database_maintenance_interval": "database.maintenance_interval",

	// Server mappings
	"http_enabled":          "server.enabled",
	"http_port":             "server.port",
	"http_host":             "server.host",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_idle_timeout":     "server.idle_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"rate_limit_requests":   "server.rate_limit_reqs",
	"rate_limit_window":     "server.rate_limit_window",
	"disable_rate_limit":    "server.rate_limit_disabled",
	"cors_origins":          "server.cors_origins",

	// Publish mappings
	"publish_enabled": "publish.enabled",
	"publish_topic":   "publish.topic",
	"nats_url":        "publish.nats_url",

	// Logging mappings
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - RELAY_URLS -> relays.urls
//   - EVENT_KINDS -> event.kinds
//   - DUCKDB_PATH -> database.path
//   - HTTP_PORT -> server.port
//
// Unmapped variables return an empty key and are skipped, which keeps
// unrelated environment variables out of the configuration.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
