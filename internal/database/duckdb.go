// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/chest/internal/config"
)

// openDuckDB opens the default backend. An empty path or ":memory:" opens
// an in-memory database shared by every pooled connection.
func openDuckDB(cfg *config.DatabaseConfig) (*sqlStore, error) {
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	path := cfg.Path
	if cfg.InMemory() {
		path = ""
	} else if err := ensureParentDir(path); err != nil {
		return nil, err
	}

	// Disable auto-install/auto-load to prevent hangs in restricted network environments
	connStr := fmt.Sprintf("%s?threads=%d&autoinstall_known_extensions=false&autoload_known_extensions=false", path, numThreads)
	if path != "" {
		connStr += "&access_mode=read_write"
	}
	if cfg.MaxMemory != "" {
		connStr += "&max_memory=" + cfg.MaxMemory
	}

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	configureDuckDBPool(conn)

	s, err := newSQLStore(conn, config.BackendDuckDB, "CHECKPOINT")
	if err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return s, nil
}

// configureDuckDBPool sets connection pool parameters
// - max_open: NumCPU() for parallelism
// - max_idle: 2 for connection reuse
// - max_lifetime: 1h to prevent stale connections
// - max_idle_time: 5m for idle connection cleanup
func configureDuckDBPool(conn *sql.DB) {
	conn.SetMaxOpenConns(runtime.NumCPU())
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(time.Hour)
	conn.SetConnMaxIdleTime(5 * time.Minute)
}

// ensureParentDir creates the directory holding a database file.
// Use 0750 permissions (owner: rwx, group: rx, other: none) per gosec G301
func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create database directory %s: %w", dir, err)
	}
	return nil
}
