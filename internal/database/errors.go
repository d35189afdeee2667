// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

package database

import (
	"errors"
	"io"
	"strings"
)

var (
	// ErrNotFound is returned by lookups that match no record.
	ErrNotFound = errors.New("record not found")

	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("store closed")

	// ErrInvalidRecord is returned by Put for records without an id or category.
	ErrInvalidRecord = errors.New("invalid record")
)

// maxConflictRetries bounds write retries after a transaction conflict.
const maxConflictRetries = 3

// closeQuietly closes a resource and explicitly ignores any error
// Use this for cleanup operations in error paths where Close() errors are not actionable
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}

// isTransactionConflict checks if an error is a DuckDB transaction conflict
// or a SQLite lock timeout. Both are resolved by retrying the statement.
func isTransactionConflict(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "Transaction conflict") ||
		strings.Contains(errStr, "Conflict on update") ||
		strings.Contains(errStr, "write-write conflict") ||
		strings.Contains(errStr, "database is locked") ||
		strings.Contains(errStr, "SQLITE_BUSY")
}

// isDuplicateKey checks if an error is a primary key violation. It can
// surface when two connections insert the same id concurrently and the
// conflict is only detected at commit.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "Duplicate key") ||
		strings.Contains(errStr, "duplicate key") ||
		strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "PRIMARY KEY or UNIQUE constraint")
}
