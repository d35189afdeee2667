// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

// Package eventbus fans newly stored records out over Watermill.
//
// Bus is registered as an ingest sink: every record the dedup store accepts
// is JSON encoded and published on publish.topic. The default transport is
// Watermill's in-process GoChannel. Binaries built with -tags=nats publish
// to NATS JetStream instead, with the event id as Nats-Msg-Id so replays
// are deduplicated by the broker.
//
// Forwarder subscribes to the same topic and hands each record to the live
// feed hub.
package eventbus
