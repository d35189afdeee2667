// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

// Package classify maps relay events to storage categories.
//
// Classification is a pure function of the event's kind and tags:
//
//	kind 0            -> users
//	kind 1            -> replies (first "e" tag has a value) or notes
//	kind 7            -> reactions (first "e" tag value required, else dropped with ErrMissingReference)
//	kind 9734, 9735   -> zaps (reference optional)
//	kind 30023, 30024 -> long
//	anything else     -> dropped silently
//
// The configured interest set only shapes the initial relay subscription; it
// never widens or narrows what the classifier accepts.
package classify

import (
	"errors"
	"fmt"

	"github.com/tomtom215/chest/internal/models"
)

// ErrMissingReference is returned for events whose kind requires an "e" tag
// reference that is absent.
var ErrMissingReference = errors.New("missing required e tag reference")

// Result is the outcome of classifying one event.
type Result struct {
	Category  models.Category
	Reference string
}

// Dropped reports whether the event should not be stored.
func (r Result) Dropped() bool {
	return r.Category == models.CategoryNone
}

// Classify returns the category and optional reference for ev.
//
// A non-nil error is only returned for rule violations (a reaction without a
// reference); the Result is then dropped. Unknown kinds produce a dropped
// Result with a nil error.
func Classify(ev *models.Event) (Result, error) {
	switch ev.Kind {
	case models.KindUserMetadata:
		return Result{Category: models.CategoryUserMetadata}, nil

	case models.KindTextNote:
		if ref, ok := ev.ReferencedEvent(); ok {
			return Result{Category: models.CategoryReply, Reference: ref}, nil
		}
		return Result{Category: models.CategoryNote}, nil

	case models.KindReaction:
		ref, ok := ev.ReferencedEvent()
		if !ok {
			return Result{}, fmt.Errorf("reaction %s: %w", ev.ID, ErrMissingReference)
		}
		return Result{Category: models.CategoryReaction, Reference: ref}, nil

	case models.KindZapRequest, models.KindZapReceipt:
		ref, _ := ev.ReferencedEvent()
		return Result{Category: models.CategoryZap, Reference: ref}, nil

	case models.KindLongForm, models.KindLongFormDraft:
		return Result{Category: models.CategoryLongForm}, nil

	default:
		return Result{}, nil
	}
}

// Record classifies ev and builds its persisted form. It returns a nil record
// when the event is dropped.
func Record(ev *models.Event) (*models.Record, error) {
	res, err := Classify(ev)
	if err != nil || res.Dropped() {
		return nil, err
	}
	return models.NewRecord(ev, res.Category, res.Reference), nil
}
