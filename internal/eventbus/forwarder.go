// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

package eventbus

import (
	"context"
	"fmt"

	"github.com/tomtom215/chest/internal/models"
)

// Broadcaster receives records read back from the bus.
type Broadcaster interface {
	BroadcastRecord(rec *models.Record)
}

// Forwarder is a supervised service that relays every record on the bus
// to a Broadcaster, typically the live feed hub.
type Forwarder struct {
	bus *Bus
	dst Broadcaster
}

// NewForwarder returns a Forwarder from bus to dst.
func NewForwarder(bus *Bus, dst Broadcaster) *Forwarder {
	return &Forwarder{bus: bus, dst: dst}
}

// Serve implements suture.Service.
func (f *Forwarder) Serve(ctx context.Context) error {
	records, err := f.bus.Subscribe(ctx)
	if err != nil {
		return err
	}
	for rec := range records {
		f.dst.BroadcastRecord(rec)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("event bus subscription to %s ended", f.bus.Topic())
}

// String implements fmt.Stringer for suture logs.
func (f *Forwarder) String() string {
	return "eventbus-forwarder"
}
