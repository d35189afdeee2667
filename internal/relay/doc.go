// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

/*
Package relay speaks the relay wire protocol over gorilla/websocket.

A Session owns one connection. It sends REQ frames built by the filter
package, yields EVENT deliveries lazily through Next, and sends CLOSE for
every subscription when closed:

	s := relay.NewSession("wss://relay.example", relay.DefaultOptions())
	if err := s.Connect(ctx); err != nil {
	    return err
	}
	defer s.Close()

	if err := s.SendFilter(ctx, filter.Build([]uint32{1}, "")); err != nil {
	    return err
	}
	for {
	    d, err := s.Next(ctx)
	    if err != nil {
	        return err
	    }
	    handle(d.Event)
	}

Frames that are valid JSON but not EVENT arrays are skipped. Invalid JSON, or
an EVENT body that does not decode, ends the session with ErrMalformedMessage.

Client wraps session creation for one relay with a sony/gobreaker circuit
breaker; BackoffPolicy produces cenkalti/backoff reconnect schedules.
*/
package relay
