// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

// Package filter builds relay subscription requests.
//
// Two shapes are produced:
//
//	["REQ", "<sub-id>", {"kinds": [0, 1, 7]}]
//	["REQ", "<sub-id>", {"kinds": [7, 9734, 9735], "#e": ["<target-id>"]}]
//
// The second, reference-scoped form is used for dynamic expansion and always
// targets reactions and zaps, whatever kinds the caller asked for.
package filter

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/chest/internal/models"
)

// ReferenceKinds are the kinds requested by every reference-scoped filter.
var ReferenceKinds = []uint32{models.KindReaction, models.KindZapRequest, models.KindZapReceipt}

// Filter is an immutable subscription request.
type Filter struct {
	SubscriptionID string
	Kinds          []uint32
	References     []string
}

// IsReferenceScoped reports whether the filter is restricted to events
// referencing a target identifier.
func (f Filter) IsReferenceScoped() bool {
	return len(f.References) > 0
}

// Target returns the referenced identifier of a reference-scoped filter.
func (f Filter) Target() string {
	if len(f.References) == 0 {
		return ""
	}
	return f.References[0]
}

type filterObject struct {
	Kinds      []uint32 `json:"kinds"`
	References []string `json:"#e,omitempty"`
}

// Request encodes the filter as a REQ message.
func (f Filter) Request() ([]byte, error) {
	kinds := f.Kinds
	if kinds == nil {
		kinds = []uint32{}
	}
	msg := []interface{}{"REQ", f.SubscriptionID, filterObject{Kinds: kinds, References: f.References}}
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode REQ %s: %w", f.SubscriptionID, err)
	}
	return data, nil
}

// CloseRequest encodes the CLOSE message ending this subscription.
func (f Filter) CloseRequest() ([]byte, error) {
	data, err := json.Marshal([]string{"CLOSE", f.SubscriptionID})
	if err != nil {
		return nil, fmt.Errorf("encode CLOSE %s: %w", f.SubscriptionID, err)
	}
	return data, nil
}

// Builder creates filters with fresh subscription identifiers.
type Builder struct {
	newID func() string
}

// NewBuilder returns a Builder that draws random UUIDv4 subscription ids.
func NewBuilder() *Builder {
	return &Builder{newID: uuid.NewString}
}

// NewBuilderWithIDs returns a Builder using gen for subscription ids.
func NewBuilderWithIDs(gen func() string) *Builder {
	return &Builder{newID: gen}
}

// Build returns a filter for kinds. When target is non-empty the filter is
// reference-scoped to target and kinds is ignored in favor of ReferenceKinds.
// Duplicate kinds are collapsed, keeping first-seen order.
func (b *Builder) Build(kinds []uint32, target string) Filter {
	f := Filter{SubscriptionID: b.newID()}
	if target != "" {
		f.Kinds = append([]uint32(nil), ReferenceKinds...)
		f.References = []string{target}
		return f
	}

	seen := make(map[uint32]struct{}, len(kinds))
	f.Kinds = make([]uint32, 0, len(kinds))
	for _, k := range kinds {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		f.Kinds = append(f.Kinds, k)
	}
	return f
}

// Initial returns the filters a primary session opens with: one per kind when
// perKind is set, otherwise a single filter covering every kind.
func (b *Builder) Initial(kinds []uint32, perKind bool) []Filter {
	if !perKind {
		return []Filter{b.Build(kinds, "")}
	}
	all := b.Build(kinds, "")
	filters := make([]Filter, 0, len(all.Kinds))
	for _, k := range all.Kinds {
		filters = append(filters, b.Build([]uint32{k}, ""))
	}
	return filters
}

var defaultBuilder = NewBuilder()

// Build creates a filter using random subscription ids.
func Build(kinds []uint32, target string) Filter {
	return defaultBuilder.Build(kinds, target)
}
