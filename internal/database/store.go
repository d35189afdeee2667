// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

package database

import (
	"context"
	"fmt"

	"github.com/tomtom215/chest/internal/config"
	"github.com/tomtom215/chest/internal/logging"
	"github.com/tomtom215/chest/internal/models"
)

// Store is the dedup store shared by every ingestion task and the read API.
//
// Put is insert-if-absent keyed by event id: the first record for an id
// wins and later records with the same id are ignored. Uniqueness is
// enforced by the backend itself, so concurrent Puts from any number of
// goroutines resolve to exactly one true result per id.
type Store interface {
	// Put persists rec unless a record with the same EventID exists.
	// It reports whether rec was newly inserted.
	Put(ctx context.Context, rec *models.Record) (bool, error)

	// Get returns the record with the given id in category. For
	// CategoryUserMetadata the id is the author key and the most recent
	// metadata event of that author is returned.
	Get(ctx context.Context, category models.Category, id string) (*models.Record, error)

	// GetByReference returns the record id in category that refers to ref.
	GetByReference(ctx context.Context, category models.Category, ref, id string) (*models.Record, error)

	// ListByReference returns every record in category that refers to ref,
	// ordered by created_at then event id.
	ListByReference(ctx context.Context, category models.Category, ref string) ([]*models.Record, error)

	// ListByAuthor returns every record in category written by pubkey,
	// ordered by created_at then event id.
	ListByAuthor(ctx context.Context, category models.Category, pubkey string) ([]*models.Record, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int64, error)

	// Maintain compacts storage. It is safe to call while serving.
	Maintain(ctx context.Context) error

	Ping(ctx context.Context) error
	Backend() string
	Close() error
}

// Open opens the backend selected by cfg and creates its schema.
func Open(cfg *config.DatabaseConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Backend {
	case config.BackendDuckDB, "":
		s, err = openDuckDB(cfg)
	case config.BackendSQLite:
		s, err = openSQLite(cfg)
	case config.BackendBadger:
		s, err = openBadger(cfg)
	default:
		return nil, fmt.Errorf("unknown database backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	path := cfg.Path
	if cfg.InMemory() {
		path = ":memory:"
	}
	logging.Info().
		Str("backend", s.Backend()).
		Str("path", path).
		Msg("Dedup store opened")
	return s, nil
}

// validateRecord rejects records that cannot be keyed or partitioned.
func validateRecord(rec *models.Record) error {
	if rec == nil {
		return fmt.Errorf("%w: nil record", ErrInvalidRecord)
	}
	if rec.EventID == "" {
		return fmt.Errorf("%w: empty event id", ErrInvalidRecord)
	}
	if rec.Category == models.CategoryNone {
		return fmt.Errorf("%w: event %s has no category", ErrInvalidRecord, rec.EventID)
	}
	return nil
}
