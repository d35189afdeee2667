// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

// Package cache provides a bounded, thread-safe LRU cache with TTL.
//
// The ingestion coordinator uses one cache per relay to remember primary
// events whose reference subscription has ended there, so a note seen again
// within the TTL does not open another one. Targets with a running
// subscription are tracked separately and never age out of the cache.
//
//	ended := cache.New[string, time.Time]("expansion", 100_000, 24*time.Hour)
//	ended.Add(noteID, time.Now())
//	if !ended.Contains(noteID) {
//	    // not seen within the TTL: subscribe
//	}
//
// Entries that fall out by capacity or TTL are gone for good.
package cache
