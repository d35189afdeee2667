// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

/*
Package ingest runs the relay ingestion pipeline.

For every configured relay the Coordinator supervises one primary
subscription that sends the initial kind filters and feeds each received
event through the Pipeline:

	event -> classify -> store.Put -> sinks (event bus, live feed)

A stored or already known note or long-form article is handed to the
Expander, which opens a reference subscription for kinds 7, 9734 and 9735
scoped to that event id. In session mode each subscription gets its own
connection; in multiplex mode the filter is sent on the relay's primary
connection through its Handle. Events arriving on reference subscriptions
are stored but never expanded again.

# Reconnection

Each subscription runs inside a retry loop with exponential backoff and
jitter. On reconnect the full filter set is resubmitted, including
reference filters added in multiplex mode. Primary subscriptions retry
forever; reference sessions stop after expansion.max_retries restarts.
With relays.reconnect.enabled=false a closed session is not reopened.

# Expansion Limits

Per relay:
  - a live set holding every queued, running or multiplexed target, so one
    entity gets one reference subscription
  - a TTL LRU of targets whose reference session has ended
  - a bounded queue; overflow is dropped and logged
  - a token bucket on spawns
  - a cap on concurrent reference sessions; past it the filter is
    multiplexed on the primary connection

The same entity seen on two relays yields a subscription on each.

# Usage

	coord, err := ingest.New(cfg, store, bus)
	if err != nil {
	    return err
	}
	for _, svc := range coord.Services() {
	    tree.AddIngestService(svc)
	}
*/
package ingest
