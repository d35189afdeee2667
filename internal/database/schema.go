// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

package database

// schemaStatements create the events table and its lookup indexes. Every
// statement is idempotent so the schema can be applied on each open.
//
// The column set matches the record JSON served by the read API:
// tags holds the JSON-encoded tag list, folder the category label and
// ref_event the optional referenced event id.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS events (
		event_id   TEXT PRIMARY KEY,
		pubkey     TEXT NOT NULL,
		created_at BIGINT NOT NULL,
		kind       BIGINT NOT NULL,
		content    TEXT NOT NULL,
		sig        TEXT NOT NULL,
		tags       TEXT NOT NULL,
		folder     TEXT NOT NULL,
		ref_event  TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_folder_ref ON events (folder, ref_event)`,
	`CREATE INDEX IF NOT EXISTS idx_events_folder_pubkey ON events (folder, pubkey)`,
}

const recordColumns = `event_id, pubkey, created_at, kind, content, sig, tags, folder, ref_event`

const (
	insertRecordSQL = `INSERT INTO events (` + recordColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (event_id) DO NOTHING`

	selectByIDSQL = `SELECT ` + recordColumns + ` FROM events
		WHERE folder = ? AND event_id = ?`

	selectLatestByAuthorSQL = `SELECT ` + recordColumns + ` FROM events
		WHERE folder = ? AND pubkey = ?
		ORDER BY created_at DESC, event_id DESC
		LIMIT 1`

	selectByReferenceAndIDSQL = `SELECT ` + recordColumns + ` FROM events
		WHERE folder = ? AND ref_event = ? AND event_id = ?`

	listByReferenceSQL = `SELECT ` + recordColumns + ` FROM events
		WHERE folder = ? AND ref_event = ?
		ORDER BY created_at, event_id`

	listByAuthorSQL = `SELECT ` + recordColumns + ` FROM events
		WHERE folder = ? AND pubkey = ?
		ORDER BY created_at, event_id`

	existsSQL = `SELECT COUNT(*) FROM events WHERE event_id = ?`

	countSQL = `SELECT COUNT(*) FROM events`
)
