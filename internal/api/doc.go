// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

/*
Package api serves the read side of the archive over HTTP using chi.

Record routes:

	GET /users/{pubkey}           latest metadata of an author
	GET /notes/{id}               one note
	GET /notes/pubkey/{pubkey}    every note by an author, oldest first
	GET /zaps/{id}                one zap request or receipt
	GET /long/{id}                one long-form article
	GET /{folder}/{ref}           replies, reactions or zaps referencing ref
	GET /{folder}/{ref}/{id}      one record of folder referencing ref

Records are returned as stored:

	{"event_id": "...", "pubkey": "...", "created_at": 1700000000, "kind": 1,
	 "content": "...", "sig": "...", "tags": [["e", "..."]],
	 "folder": "replies", "ref_event": "..."}

Misses answer 404 "Event not found", store failures 500 "Internal error",
and listing a folder other than replies, reactions or zaps answers 400
"Invalid folder name". Bodies of errors are plain text.

Operational routes: /config (effective configuration, credentials redacted),
/health, /health/live, /metrics, /stream (websocket live feed, see
internal/websocket) and /swagger/ (Swagger UI over the swag document in
package docs).

Record routes are rate limited per client IP through go-chi/httprate;
every route passes through request ID, CORS and Prometheus middleware.
*/
package api
