// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

/*
Package metrics provides Prometheus metrics collection and export for observability.

All collectors are registered on the default registry through promauto and
are exposed by the API server at /metrics:

	curl http://localhost:8080/metrics

# Available Metrics

Relay Metrics:
  - relay_connects_total: Connection attempts (counter)
    Labels: relay, result
  - relay_sessions_active: Open sessions (gauge)
    Labels: relay, role (primary, secondary)
  - relay_reconnects_total: Session restarts after failure (counter)
    Labels: relay, role
  - relay_messages_received_total: Frames by label (counter)
    Labels: relay, label

Ingestion Metrics:
  - events_received_total: Events read from relays (counter)
    Labels: relay
  - events_dropped_total: Events not stored (counter)
    Labels: reason (unsupported_kind, missing_reference, store_error)
  - events_stored_total: Newly persisted events (counter)
    Labels: category
  - events_duplicate_total: Events already present (counter)
    Labels: category
  - ingest_event_duration_seconds: Classify and persist latency (histogram)

Expansion Metrics:
  - expansion_requested_total, expansion_deduplicated_total (counter)
    Labels: relay
  - expansion_rejected_total (counter)
    Labels: relay, reason
  - expansion_spillover_total: reference filters multiplexed once the
    session cap is full (counter)
    Labels: relay
  - expansion_queue_depth (gauge)
    Labels: relay

Store Metrics:
  - store_operation_duration_seconds (histogram)
    Labels: backend, operation
  - store_errors_total (counter)
    Labels: backend, operation
  - store_conflict_retries_total (counter)
    Labels: backend

Circuit Breaker Metrics:
  - circuit_breaker_state: 0=closed, 1=half-open, 2=open (gauge)
    Labels: name (relay URL)
  - circuit_breaker_requests_total (counter)
    Labels: name, result
  - circuit_breaker_consecutive_failures (gauge)
  - circuit_breaker_state_transitions_total (counter)
    Labels: name, from_state, to_state

API, cache, WebSocket stream and event bus metrics follow the same naming
scheme.

# Example PromQL

Duplicate ratio over five minutes:

	sum(rate(events_duplicate_total[5m]))
	  / (sum(rate(events_stored_total[5m])) + sum(rate(events_duplicate_total[5m])))

Relays currently refusing connections:

	circuit_breaker_state == 2
*/
package metrics
