// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

/*
Package config provides centralized configuration management for Chest.

Configuration is layered with Koanf v2: struct defaults, then an optional
YAML file, then environment variables. The file is taken from CONFIG_PATH or
the first of config.yaml, config.yml, /etc/chest/config.yaml and
/etc/chest/config.yml that exists.

# Example config.yaml

	relays:
	  urls:
	    - wss://relay.damus.io
	    - wss://nos.lol
	  reconnect:
	    enabled: true
	    max_interval: 1m
	event:
	  kinds: [0, 1, 30023, 30024]
	expansion:
	  mode: session
	  max_sessions: 128
	  rate: 10
	database:
	  backend: duckdb
	  path: /data/chest.duckdb
	server:
	  port: 8080

# Environment Variables

Only allow-listed variables are read. List values are comma-separated.

Relays:
  - RELAY_URLS: ws:// or wss:// relay URLs (required)
  - RELAY_DIAL_TIMEOUT, RELAY_WRITE_TIMEOUT, RELAY_PING_INTERVAL, RELAY_PONG_WAIT
  - RELAY_RECONNECT_ENABLED, RELAY_RECONNECT_INITIAL, RELAY_RECONNECT_MAX
  - RELAY_BREAKER_ENABLED, RELAY_BREAKER_FAILURES, RELAY_BREAKER_TIMEOUT

Ingestion:
  - EVENT_KINDS: kinds requested on every relay (default: 0,1,30023,30024)
  - SUBSCRIPTION_PER_KIND: one REQ per kind (default: true)
  - EXPANSION_ENABLED, EXPANSION_MODE, EXPANSION_MAX_SESSIONS, EXPANSION_QUEUE_SIZE
  - EXPANSION_DEDUP_CAPACITY, EXPANSION_DEDUP_TTL, EXPANSION_RATE, EXPANSION_BURST
  - EXPANSION_MAX_RETRIES

Storage:
  - DATABASE_BACKEND: duckdb, sqlite or badger (default: duckdb)
  - DATABASE_PATH (alias DUCKDB_PATH), DUCKDB_MAX_MEMORY, DUCKDB_THREADS
  - SQLITE_BUSY_TIMEOUT

HTTP and publishing:
  - HTTP_ENABLED, HTTP_HOST, HTTP_PORT, HTTP_READ_TIMEOUT, HTTP_WRITE_TIMEOUT
  - RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW, DISABLE_RATE_LIMIT, CORS_ORIGINS
  - PUBLISH_ENABLED, PUBLISH_TOPIC, NATS_URL

Logging:
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER

# Validation

Load returns an error when struct tag rules fail (checked through
internal/validation) or when a semantic check fails: a relay URL that is
not ws/wss, a duplicate relay or kind, an unknown backend or expansion
mode, or expansion enabled with a single combined initial filter.
*/
package config
