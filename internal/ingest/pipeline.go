// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

package ingest

import (
	"context"
	"time"

	"github.com/tomtom215/chest/internal/classify"
	"github.com/tomtom215/chest/internal/logging"
	"github.com/tomtom215/chest/internal/metrics"
	"github.com/tomtom215/chest/internal/models"
)

// Store is the write side of the dedup store.
type Store interface {
	Put(ctx context.Context, rec *models.Record) (bool, error)
}

// Sink receives every newly stored record. Publish must not block for long;
// it runs on the session's read goroutine.
type Sink interface {
	Publish(ctx context.Context, rec *models.Record) error
}

// Outcome is what the pipeline did with one event.
type Outcome int

const (
	// OutcomeDropped means the kind is not archived.
	OutcomeDropped Outcome = iota
	// OutcomeRejected means a classification rule failed, e.g. a reaction
	// without an e tag.
	OutcomeRejected
	OutcomeStored
	OutcomeDuplicate
	// OutcomeFailed means the store returned an error; the event is lost.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDropped:
		return "dropped"
	case OutcomeRejected:
		return "rejected"
	case OutcomeStored:
		return "stored"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Pipeline classifies an event and writes it through the store.
type Pipeline struct {
	store Store
	sinks []Sink
}

// NewPipeline returns a pipeline writing to store and notifying sinks of
// new records.
func NewPipeline(store Store, sinks ...Sink) *Pipeline {
	return &Pipeline{store: store, sinks: sinks}
}

// Process handles one event received from relayURL. The returned record is
// nil when the event was dropped or rejected.
func (p *Pipeline) Process(ctx context.Context, relayURL string, ev *models.Event) (*models.Record, Outcome) {
	start := time.Now()
	metrics.EventsReceived.WithLabelValues(relayURL).Inc()

	rec, err := classify.Record(ev)
	if err != nil {
		metrics.EventsDropped.WithLabelValues("missing_reference").Inc()
		logging.Info().
			Str("relay", relayURL).
			Str("event_id", ev.ID).
			Uint64("kind", ev.Kind).
			Err(err).
			Msg("Event dropped")
		return nil, OutcomeRejected
	}
	if rec == nil {
		metrics.EventsDropped.WithLabelValues("unsupported_kind").Inc()
		logging.Debug().
			Str("relay", relayURL).
			Str("event_id", ev.ID).
			Uint64("kind", ev.Kind).
			Msg("Event kind not archived")
		return nil, OutcomeDropped
	}

	inserted, err := p.store.Put(ctx, rec)
	if err != nil {
		metrics.EventsDropped.WithLabelValues("store_error").Inc()
		logging.Error().
			Str("relay", relayURL).
			Str("event_id", rec.EventID).
			Str("folder", rec.Category.String()).
			Err(err).
			Msg("Failed to store event")
		return rec, OutcomeFailed
	}
	metrics.RecordIngest(rec.Category.String(), inserted, time.Since(start))

	if !inserted {
		logging.Debug().
			Str("relay", relayURL).
			Str("event_id", rec.EventID).
			Msg("Event already stored")
		return rec, OutcomeDuplicate
	}

	for _, s := range p.sinks {
		if err := s.Publish(ctx, rec); err != nil {
			logging.Warn().Str("event_id", rec.EventID).Err(err).Msg("Failed to publish stored record")
		}
	}
	return rec, OutcomeStored
}
