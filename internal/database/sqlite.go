// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

package database

import (
	"database/sql"
	"fmt"
	"net/url"

	_ "modernc.org/sqlite"

	"github.com/tomtom215/chest/internal/config"
)

// openSQLite opens a SQLite file in WAL mode. The pool is pinned to one
// connection; SQLite serializes writers anyway and an in-memory database
// lives only as long as its connection.
func openSQLite(cfg *config.DatabaseConfig) (*sqlStore, error) {
	path := cfg.Path
	if cfg.InMemory() {
		path = ":memory:"
	} else if err := ensureParentDir(path); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", sqliteDSN(path, cfg.BusyTimeout.Milliseconds()))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)
	conn.SetConnMaxIdleTime(0)

	s, err := newSQLStore(conn, config.BackendSQLite, "PRAGMA optimize")
	if err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return s, nil
}

func sqliteDSN(path string, busyTimeoutMS int64) string {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeoutMS))
	q.Add("_pragma", "foreign_keys(1)")
	if path != ":memory:" {
		q.Add("_pragma", "journal_mode(WAL)")
		q.Add("_pragma", "synchronous(NORMAL)")
	}
	return "file:" + path + "?" + q.Encode()
}
