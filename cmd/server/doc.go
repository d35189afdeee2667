// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

/*
Package main is the entry point for the Chest server.

Chest keeps long-lived WebSocket sessions to a set of relays, subscribes to
a configured set of event kinds, and archives every received event into a
deduplicating store keyed by event id. Replies, reactions and zaps that
point at other events trigger reference subscriptions so that the referenced
material is archived as well.

# Application Architecture

Every long-running component is a Suture v4 service:

	RootSupervisor ("chest")
	├── DataSupervisor ("data-layer")
	│   └── Store maintenance (CHECKPOINT, PRAGMA optimize or value log GC)
	├── IngestSupervisor ("ingest-layer")
	│   ├── Primary relay sessions (one per configured URL)
	│   └── Expansion workers (secondary sessions or multiplexed filters)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── WebSocket hub (/stream clients)
	│   └── Event bus forwarder (optional, publish.enabled)
	└── APISupervisor ("api-layer")
	    └── HTTP server (read API, /health, /metrics, /stream)

Component initialization order:

 1. Configuration: Koanf v2 with environment variables and config file
 2. Logging: zerolog with JSON/console output modes
 3. Dedup store: DuckDB, SQLite or Badger
 4. Event bus: Watermill GoChannel, or NATS JetStream with -tags nats
 5. Ingestion coordinator: relay clients, pipeline and expanders
 6. Supervisor tree and HTTP server

# Configuration

	RELAY_URLS=wss://relay.damus.io,wss://nos.lol
	EVENT_KINDS=0,1,30023,30024
	EXPANSION_MODE=session          # session or multiplex
	DATABASE_BACKEND=duckdb         # duckdb, sqlite or badger
	DATABASE_PATH=/data/chest.duckdb
	HTTP_PORT=8080
	PUBLISH_ENABLED=true
	LOG_LEVEL=info
	LOG_FORMAT=json

A YAML file is read from CONFIG_PATH or ./config.yaml when present.

# Graceful Shutdown

SIGINT and SIGTERM cancel the root context. Relay sessions close their
subscriptions, the HTTP server drains within server.shutdown_timeout, and
the event bus and store are closed once the tree has stopped. Services that
outlive the timeout are listed in the log.

# Build Tags

	go build ./cmd/server              # in-process event bus
	go build -tags nats ./cmd/server   # NATS JetStream event bus
*/
package main
