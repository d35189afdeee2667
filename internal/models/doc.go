// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

/*
Package models defines the data structures shared across chest.

Key Components:

  - Event: a signed, typed event exactly as a relay delivers it
    (id, pubkey, created_at, kind, tags, content, sig)
  - Tag / Tags: ordered string tuples attached to an event; the first element
    names the tag ("e" references another event)
  - Category: the folder an event is stored under (users, notes, replies,
    reactions, zaps, long)
  - Record: the persisted form of an event, adding its Category and optional
    referenced event identifier

Records are created once at classification time and never mutated. The JSON
encoding of Record is the shape served by the read API:

	{
	  "event_id": "e2", "pubkey": "p2", "created_at": 101, "kind": 7,
	  "content": "+", "sig": "s", "tags": [["e","e1"]],
	  "folder": "reactions", "ref_event": "e1"
	}
*/
package models
