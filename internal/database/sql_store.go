// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/chest/internal/metrics"
	"github.com/tomtom215/chest/internal/models"
)

// defaultQueryTimeout applies to calls whose context has no deadline.
const defaultQueryTimeout = 30 * time.Second

// sqlStore implements Store over database/sql. DuckDB and SQLite share it;
// both accept ? placeholders and INSERT ... ON CONFLICT DO NOTHING.
type sqlStore struct {
	conn        *sql.DB
	backend     string
	maintenance string
	closed      atomic.Bool
}

func newSQLStore(conn *sql.DB, backend, maintenance string) (*sqlStore, error) {
	s := &sqlStore{conn: conn, backend: backend, maintenance: maintenance}
	if err := s.initialize(); err != nil {
		return nil, err
	}
	return s, nil
}

// initialize applies the schema.
func (s *sqlStore) initialize() error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultQueryTimeout)
	defer cancel()

	for _, stmt := range schemaStatements {
		if _, err := s.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// ensureContext creates a context with a 30-second timeout if none provided
func (s *sqlStore) ensureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), defaultQueryTimeout)
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		return context.WithTimeout(ctx, defaultQueryTimeout)
	}
	return ctx, func() {}
}

func (s *sqlStore) Backend() string { return s.backend }

// Maintain runs the backend's compaction statement.
func (s *sqlStore) Maintain(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	_, err := s.conn.ExecContext(ctx, s.maintenance)
	metrics.RecordStoreOperation(s.backend, "maintain", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("maintenance: %w", err)
	}
	return nil
}

// Put inserts rec and reports whether the row was new. Transaction
// conflicts are retried with 1ms, 2ms, 4ms backoff; a retry that finds
// the row already present reports false.
func (s *sqlStore) Put(ctx context.Context, rec *models.Record) (inserted bool, err error) {
	if s.closed.Load() {
		return false, ErrClosed
	}
	if err := validateRecord(rec); err != nil {
		return false, err
	}

	start := time.Now()
	defer func() {
		op := "put_duplicate"
		switch {
		case err != nil:
			op = "put_failure"
		case inserted:
			op = "put_inserted"
		}
		metrics.RecordStoreOperation(s.backend, op, time.Since(start), err)
	}()

	tags, err := json.Marshal(rec.Tags)
	if err != nil {
		return false, fmt.Errorf("failed to encode tags: %w", err)
	}

	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		inserted, err := s.insert(ctx, rec, tags)
		if err == nil {
			return inserted, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return false, fmt.Errorf("operation timed out or canceled: %w", ctx.Err())
		}

		if isDuplicateKey(err) {
			return false, nil
		}

		if !isTransactionConflict(err) {
			return false, fmt.Errorf("failed to insert event %s: %w", rec.EventID, err)
		}

		metrics.StoreRetries.WithLabelValues(s.backend).Inc()
		if attempt < maxConflictRetries-1 {
			backoff := time.Millisecond * time.Duration(1<<uint(attempt)) // 1ms, 2ms, 4ms
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return false, ctx.Err()
			}
		}
	}

	// A conflict that outlived the retries may still mean another writer won.
	if exists, err := s.exists(ctx, rec.EventID); err == nil && exists {
		return false, nil
	}
	return false, fmt.Errorf("max retries exceeded inserting event %s: %w", rec.EventID, lastErr)
}

func (s *sqlStore) insert(ctx context.Context, rec *models.Record, tags []byte) (bool, error) {
	var ref sql.NullString
	if rec.Reference != nil {
		ref = sql.NullString{String: *rec.Reference, Valid: true}
	}

	res, err := s.conn.ExecContext(ctx, insertRecordSQL,
		rec.EventID, rec.PubKey, rec.CreatedAt, int64(rec.Kind),
		rec.Content, rec.Sig, string(tags), string(rec.Category), ref)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *sqlStore) exists(ctx context.Context, id string) (bool, error) {
	var n int64
	if err := s.conn.QueryRowContext(ctx, existsSQL, id).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *sqlStore) Get(ctx context.Context, category models.Category, id string) (*models.Record, error) {
	if category == models.CategoryUserMetadata {
		return s.queryOne(ctx, "get", selectLatestByAuthorSQL, string(category), id)
	}
	return s.queryOne(ctx, "get", selectByIDSQL, string(category), id)
}

func (s *sqlStore) GetByReference(ctx context.Context, category models.Category, ref, id string) (*models.Record, error) {
	return s.queryOne(ctx, "get_by_reference", selectByReferenceAndIDSQL, string(category), ref, id)
}

func (s *sqlStore) ListByReference(ctx context.Context, category models.Category, ref string) ([]*models.Record, error) {
	return s.queryMany(ctx, "list_by_reference", listByReferenceSQL, string(category), ref)
}

func (s *sqlStore) ListByAuthor(ctx context.Context, category models.Category, pubkey string) ([]*models.Record, error) {
	return s.queryMany(ctx, "list_by_author", listByAuthorSQL, string(category), pubkey)
}

func (s *sqlStore) Count(ctx context.Context) (int64, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	var n int64
	if err := s.conn.QueryRowContext(ctx, countSQL).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return n, nil
}

func (s *sqlStore) Ping(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()
	return s.conn.PingContext(ctx)
}

// Close closes the connection pool. It is safe to call more than once.
func (s *sqlStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close %s store: %w", s.backend, err)
	}
	return nil
}

func (s *sqlStore) queryOne(ctx context.Context, op, query string, args ...any) (rec *models.Record, err error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	start := time.Now()
	defer func() {
		if errors.Is(err, ErrNotFound) {
			metrics.RecordStoreOperation(s.backend, op, time.Since(start), nil)
			return
		}
		metrics.RecordStoreOperation(s.backend, op, time.Since(start), err)
	}()

	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	rec, err = scanRecord(s.conn.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query event: %w", err)
	}
	return rec, nil
}

func (s *sqlStore) queryMany(ctx context.Context, op, query string, args ...any) (recs []*models.Record, err error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	start := time.Now()
	defer func() { metrics.RecordStoreOperation(s.backend, op, time.Since(start), err) }()

	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer closeQuietly(rows)

	recs = make([]*models.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}
	return recs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.Record, error) {
	var (
		rec    models.Record
		kind   int64
		tags   string
		folder string
		ref    sql.NullString
	)
	if err := row.Scan(&rec.EventID, &rec.PubKey, &rec.CreatedAt, &kind,
		&rec.Content, &rec.Sig, &tags, &folder, &ref); err != nil {
		return nil, err
	}
	rec.Kind = uint32(kind)
	rec.Category = models.Category(folder)
	if ref.Valid {
		r := ref.String
		rec.Reference = &r
	}
	if err := json.Unmarshal([]byte(tags), &rec.Tags); err != nil {
		return nil, fmt.Errorf("event %s has malformed tags: %w", rec.EventID, err)
	}
	if rec.Tags == nil {
		rec.Tags = models.Tags{}
	}
	return &rec, nil
}
