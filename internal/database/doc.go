// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

// Package database provides the dedup store: durable, insert-if-absent
// storage of classified relay events, partitioned by category.
//
// # Overview
//
// Every ingestion task writes through Store.Put and the read API reads
// through the lookup methods. The event id is the only uniqueness
// boundary; the first record stored for an id wins and later arrivals
// report inserted=false without touching the stored row.
//
// # Architecture
//
//   - store.go: Store interface and the Open factory
//   - schema.go: events table, indexes and SQL statements
//   - sql_store.go: database/sql implementation shared by DuckDB and SQLite
//   - duckdb.go: DuckDB backend (default)
//   - sqlite.go: SQLite backend (pure Go, modernc.org/sqlite)
//   - badger.go: embedded key-value backend
//   - errors.go: sentinel errors and driver error classification
//
// # Backends
//
// DuckDB and SQLite store one row per event in the events table:
//
//	event_id   TEXT PRIMARY KEY
//	pubkey     TEXT NOT NULL
//	created_at BIGINT NOT NULL
//	kind       BIGINT NOT NULL
//	content    TEXT NOT NULL
//	sig        TEXT NOT NULL
//	tags       TEXT NOT NULL   -- JSON array of string arrays
//	folder     TEXT NOT NULL   -- users, notes, replies, reactions, zaps, long
//	ref_event  TEXT            -- referenced event id, NULL when none
//
// Inserts use INSERT ... ON CONFLICT (event_id) DO NOTHING and read the
// affected row count. DuckDB transaction conflicts between pooled
// connections are retried with 1ms, 2ms, 4ms backoff.
//
// Badger stores the record JSON under ev:<id> with ordered index keys for
// reference and author listings. Concurrent inserts of one id are settled
// by Badger's optimistic transaction conflict detection.
//
// # Usage
//
//	store, err := database.Open(&cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	inserted, err := store.Put(ctx, rec)
//	reactions, err := store.ListByReference(ctx, models.CategoryReaction, noteID)
package database
