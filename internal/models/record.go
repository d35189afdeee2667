// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

package models

// Category is the storage partition ("folder") an event is classified into.
// The string values are persisted and appear in read API paths.
type Category string

const (
	CategoryNone         Category = ""
	CategoryUserMetadata Category = "users"
	CategoryNote         Category = "notes"
	CategoryReply        Category = "replies"
	CategoryReaction     Category = "reactions"
	CategoryZap          Category = "zaps"
	CategoryLongForm     Category = "long"
)

// Categories lists every storable category.
var Categories = []Category{
	CategoryUserMetadata,
	CategoryNote,
	CategoryReply,
	CategoryReaction,
	CategoryZap,
	CategoryLongForm,
}

// ParseCategory maps a folder name to its Category.
func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories {
		if string(c) == s {
			return c, true
		}
	}
	return CategoryNone, false
}

// IsPrimary reports whether events of this category trigger dynamic expansion.
func (c Category) IsPrimary() bool {
	return c == CategoryNote || c == CategoryLongForm
}

// IsReferenceFolder reports whether records in this category are listed by
// the event they refer to.
func (c Category) IsReferenceFolder() bool {
	return c == CategoryReply || c == CategoryReaction || c == CategoryZap
}

// String implements fmt.Stringer.
func (c Category) String() string {
	if c == CategoryNone {
		return "none"
	}
	return string(c)
}

// Record is a classified event as persisted by the store.
// It is immutable once built; the store keeps the first Record per EventID.
type Record struct {
	EventID   string   `json:"event_id"`
	PubKey    string   `json:"pubkey"`
	CreatedAt int64    `json:"created_at"`
	Kind      uint32   `json:"kind"`
	Content   string   `json:"content"`
	Sig       string   `json:"sig"`
	Tags      Tags     `json:"tags"`
	Category  Category `json:"folder"`
	Reference *string  `json:"ref_event"`
}

// NewRecord builds the persisted form of ev. An empty reference is stored as null.
func NewRecord(ev *Event, category Category, reference string) *Record {
	rec := &Record{
		EventID:   ev.ID,
		PubKey:    ev.PubKey,
		CreatedAt: ev.CreatedAt,
		Kind:      uint32(ev.Kind),
		Content:   ev.Content,
		Sig:       ev.Sig,
		Tags:      ev.Tags,
		Category:  category,
	}
	if rec.Tags == nil {
		rec.Tags = Tags{}
	}
	if reference != "" {
		ref := reference
		rec.Reference = &ref
	}
	return rec
}

// ReferenceID returns the referenced event identifier, or "" when there is none.
func (r *Record) ReferenceID() string {
	if r.Reference == nil {
		return ""
	}
	return *r.Reference
}
