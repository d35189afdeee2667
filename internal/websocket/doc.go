// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

/*
Package websocket serves the live feed of newly stored records.

The API upgrades GET /stream to a websocket and registers a Client with
the Hub. The event bus Forwarder calls Hub.BroadcastRecord for every record
the dedup store accepted, and the hub fans it out:

	{"type": "record", "data": {"event_id": "...", "folder": "notes", ...}}

Clients may restrict the feed with ?folder=notes,replies. A client can send
{"type": "ping"} and gets {"type": "pong"} back. Clients that fall 256
messages behind are disconnected rather than slowing the hub.

The hub runs under suture; on shutdown every client receives a close frame.
*/
package websocket
