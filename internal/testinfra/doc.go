// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

// Package testinfra provides in-process test doubles for the systems Chest
// talks to.
//
// # Mock Relay
//
// MockRelay runs an httptest server that upgrades every request to a
// websocket and hands the relay side of the connection to the test:
//
//	func TestIngest(t *testing.T) {
//	    relay := testinfra.NewMockRelay(t)
//
//	    go runPipeline(relay.URL())
//
//	    conn := relay.Accept(t, time.Second)
//	    req := conn.ExpectREQ(t, time.Second)
//	    conn.SendEvent(req.SubscriptionID, models.Event{ID: "e1", Kind: 1})
//	}
//
// Frames sent by the client are decoded into Frame values so tests can assert
// on subscription ids, kinds and "#e" references without parsing JSON.
package testinfra
