// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

package models

// Well-known event kinds handled by the classifier.
const (
	KindUserMetadata  = 0
	KindTextNote      = 1
	KindReaction      = 7
	KindZapRequest    = 9734
	KindZapReceipt    = 9735
	KindLongForm      = 30023
	KindLongFormDraft = 30024
)

// TagEvent is the tag name that references another event by identifier.
const TagEvent = "e"

// Tag is a single event tag. The first element names the tag's role.
type Tag []string

// Name returns the tag name, or "" for an empty tag.
func (t Tag) Name() string {
	if len(t) == 0 {
		return ""
	}
	return t[0]
}

// Value returns the second element of the tag and whether it is present.
func (t Tag) Value() (string, bool) {
	if len(t) < 2 {
		return "", false
	}
	return t[1], true
}

// Tags is the ordered tag list of an event.
type Tags []Tag

// First returns the first tag with the given name.
func (ts Tags) First(name string) (Tag, bool) {
	for _, t := range ts {
		if t.Name() == name {
			return t, true
		}
	}
	return nil, false
}

// Event is a signed event as delivered by a relay.
//
// The identifier is content-addressed and treated as opaque: it is never
// re-derived, and the signature is never verified.
type Event struct {
	ID        string `json:"id"`
	PubKey    string `json:"pubkey"`
	CreatedAt int64  `json:"created_at"`
	Kind      uint64 `json:"kind"`
	Tags      Tags   `json:"tags"`
	Content   string `json:"content"`
	Sig       string `json:"sig"`
}

// ReferencedEvent returns the value of the first "e" tag, if that tag carries one.
// Only the first "e" tag is consulted; a bare ["e"] yields no reference even if
// a later "e" tag has a value.
func (e *Event) ReferencedEvent() (string, bool) {
	t, ok := e.Tags.First(TagEvent)
	if !ok {
		return "", false
	}
	return t.Value()
}
