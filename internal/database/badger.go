// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/chest/internal/config"
	"github.com/tomtom215/chest/internal/logging"
	"github.com/tomtom215/chest/internal/metrics"
	"github.com/tomtom215/chest/internal/models"
)

// Key layout. Index keys end in the zero-padded created_at and the event
// id so prefix scans come back in created_at, event id order; their value
// is the event id.
//
//	ev:<event_id>                                   record JSON
//	ref:<folder>:<ref_event>:<created_at>:<event_id> event id
//	author:<folder>:<pubkey>:<created_at>:<event_id> event id
const (
	prefixEvent  = "ev:"
	prefixRef    = "ref:"
	prefixAuthor = "author:"
)

// badgerStore implements Store on an embedded Badger database. Put relies
// on Badger's optimistic transactions: two writers racing on the same id
// both read the missing key, and the second commit fails with ErrConflict
// and is retried against the now-present record.
type badgerStore struct {
	db     *badger.DB
	mu     sync.RWMutex
	closed bool
}

func openBadger(cfg *config.DatabaseConfig) (*badgerStore, error) {
	var opts badger.Options
	if cfg.InMemory() {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts.Logger = nil // Suppress BadgerDB logs

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}
	return &badgerStore{db: db}, nil
}

func (s *badgerStore) Backend() string { return config.BackendBadger }

func (s *badgerStore) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

func (s *badgerStore) Put(ctx context.Context, rec *models.Record) (inserted bool, err error) {
	if s.isClosed() {
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
		metrics.RecordStoreOperation(config.BackendBadger, op, time.Since(start), err)
	}()

	data, err := json.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("failed to encode record: %w", err)
	}

	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}

		inserted = false
		err = s.db.Update(func(txn *badger.Txn) error {
			_, getErr := txn.Get(eventKey(rec.EventID))
			if getErr == nil {
				return nil
			}
			if !errors.Is(getErr, badger.ErrKeyNotFound) {
				return getErr
			}

			if err := txn.Set(eventKey(rec.EventID), data); err != nil {
				return err
			}
			id := []byte(rec.EventID)
			if ref := rec.ReferenceID(); ref != "" {
				if err := txn.Set(indexKey(prefixRef, rec.Category, ref, rec.CreatedAt, rec.EventID), id); err != nil {
					return err
				}
			}
			if err := txn.Set(indexKey(prefixAuthor, rec.Category, rec.PubKey, rec.CreatedAt, rec.EventID), id); err != nil {
				return err
			}
			inserted = true
			return nil
		})
		if err == nil {
			return inserted, nil
		}
		if !errors.Is(err, badger.ErrConflict) {
			return false, fmt.Errorf("failed to insert event %s: %w", rec.EventID, err)
		}
		metrics.StoreRetries.WithLabelValues(config.BackendBadger).Inc()
	}
	return false, fmt.Errorf("max retries exceeded inserting event %s: %w", rec.EventID, err)
}

func (s *badgerStore) Get(ctx context.Context, category models.Category, id string) (*models.Record, error) {
	if category == models.CategoryUserMetadata {
		return s.latestByAuthor(ctx, category, id)
	}
	return s.lookup("get", func(txn *badger.Txn) (*models.Record, error) {
		return readRecord(txn, id, category)
	})
}

func (s *badgerStore) GetByReference(ctx context.Context, category models.Category, ref, id string) (*models.Record, error) {
	return s.lookup("get_by_reference", func(txn *badger.Txn) (*models.Record, error) {
		rec, err := readRecord(txn, id, category)
		if err != nil {
			return nil, err
		}
		if rec.ReferenceID() != ref {
			return nil, ErrNotFound
		}
		return rec, nil
	})
}

func (s *badgerStore) latestByAuthor(ctx context.Context, category models.Category, pubkey string) (*models.Record, error) {
	return s.lookup("get", func(txn *badger.Txn) (*models.Record, error) {
		prefix := indexPrefix(prefixAuthor, category, pubkey)

		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration starts at the last key below the seek key.
		seek := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			id, err := it.Item().ValueCopy(nil)
			if err != nil {
				return nil, err
			}
			rec, err := readRecord(txn, string(id), category)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			if rec.PubKey == pubkey {
				return rec, nil
			}
		}
		return nil, ErrNotFound
	})
}

func (s *badgerStore) ListByReference(ctx context.Context, category models.Category, ref string) ([]*models.Record, error) {
	return s.scan(ctx, "list_by_reference", indexPrefix(prefixRef, category, ref), category,
		func(r *models.Record) bool { return r.ReferenceID() == ref })
}

func (s *badgerStore) ListByAuthor(ctx context.Context, category models.Category, pubkey string) ([]*models.Record, error) {
	return s.scan(ctx, "list_by_author", indexPrefix(prefixAuthor, category, pubkey), category,
		func(r *models.Record) bool { return r.PubKey == pubkey })
}

func (s *badgerStore) Count(ctx context.Context) (int64, error) {
	if s.isClosed() {
		return 0, ErrClosed
	}
	var n int64
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefixEvent)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if n%1024 == 0 && ctx.Err() != nil {
				return ctx.Err()
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return n, nil
}

// gcDiscardRatio is the share of stale data a value log file needs before
// it is rewritten.
const gcDiscardRatio = 0.5

// Maintain runs value log GC until no file qualifies or ctx is done.
func (s *badgerStore) Maintain(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	start := time.Now()
	rewritten := 0
	var err error
	for ctx.Err() == nil {
		if err = s.db.RunValueLogGC(gcDiscardRatio); err != nil {
			break
		}
		rewritten++
	}
	if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
		err = nil
	}
	metrics.RecordStoreOperation(config.BackendBadger, "maintain", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("value log GC: %w", err)
	}
	logging.Debug().Int("files_rewritten", rewritten).Msg("Badger value log GC finished")
	return ctx.Err()
}

func (s *badgerStore) Ping(ctx context.Context) error {
	if s.isClosed() || s.db.IsClosed() {
		return ErrClosed
	}
	return nil
}

// Close flushes and closes the database. It is safe to call more than once.
func (s *badgerStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close BadgerDB: %w", err)
	}
	logging.Debug().Msg("Badger dedup store closed")
	return nil
}

func (s *badgerStore) lookup(op string, fn func(txn *badger.Txn) (*models.Record, error)) (rec *models.Record, err error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	start := time.Now()
	defer func() {
		if errors.Is(err, ErrNotFound) {
			metrics.RecordStoreOperation(config.BackendBadger, op, time.Since(start), nil)
			return
		}
		metrics.RecordStoreOperation(config.BackendBadger, op, time.Since(start), err)
	}()

	err = s.db.View(func(txn *badger.Txn) error {
		var viewErr error
		rec, viewErr = fn(txn)
		return viewErr
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query event: %w", err)
	}
	return rec, nil
}

// scan collects the records indexed under prefix. match drops entries whose
// indexed value only shares a prefix with the one requested ("a" and "a:b").
func (s *badgerStore) scan(ctx context.Context, op string, prefix []byte, category models.Category,
	match func(*models.Record) bool) (recs []*models.Record, err error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	start := time.Now()
	defer func() { metrics.RecordStoreOperation(config.BackendBadger, op, time.Since(start), err) }()

	recs = make([]*models.Record, 0)
	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			id, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			rec, err := readRecord(txn, string(id), category)
			if errors.Is(err, ErrNotFound) {
				logging.Warn().Str("event_id", string(id)).Msg("Badger index entry without record")
				continue
			}
			if err != nil {
				return err
			}
			if match(rec) {
				recs = append(recs, rec)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return recs, nil
}

// readRecord loads id and checks it belongs to category.
func readRecord(txn *badger.Txn, id string, category models.Category) (*models.Record, error) {
	item, err := txn.Get(eventKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var rec models.Record
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	}); err != nil {
		return nil, fmt.Errorf("event %s is corrupt: %w", id, err)
	}
	if rec.Category != category {
		return nil, ErrNotFound
	}
	if rec.Tags == nil {
		rec.Tags = models.Tags{}
	}
	return &rec, nil
}

func eventKey(id string) []byte {
	return []byte(prefixEvent + id)
}

func indexPrefix(prefix string, category models.Category, value string) []byte {
	return []byte(prefix + string(category) + ":" + value + ":")
}

// indexKey appends created_at as 20 digits so lexical order is numeric
// order for every non-negative timestamp.
func indexKey(prefix string, category models.Category, value string, createdAt int64, id string) []byte {
	if createdAt < 0 {
		createdAt = 0
	}
	return []byte(fmt.Sprintf("%s%s:%s:%020d:%s", prefix, category, value, createdAt, id))
}
