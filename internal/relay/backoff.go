// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

package relay

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// BackoffPolicy describes reconnect delays.
type BackoffPolicy struct {
	InitialInterval     time.Duration
	MaxInterval         time.Duration
	Multiplier          float64
	RandomizationFactor float64
}

// DefaultBackoffPolicy doubles from 1s up to 32s with 20% jitter.
func DefaultBackoffPolicy() BackoffPolicy {
	return BackoffPolicy{
		InitialInterval:     time.Second,
		MaxInterval:         32 * time.Second,
		Multiplier:          2,
		RandomizationFactor: 0.2,
	}
}

// New returns a fresh exponential backoff that never gives up on its own.
func (p BackoffPolicy) New() backoff.BackOff {
	def := DefaultBackoffPolicy()
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	if b.InitialInterval <= 0 {
		b.InitialInterval = def.InitialInterval
	}
	b.MaxInterval = p.MaxInterval
	if b.MaxInterval <= 0 {
		b.MaxInterval = def.MaxInterval
	}
	b.Multiplier = p.Multiplier
	if b.Multiplier < 1 {
		b.Multiplier = def.Multiplier
	}
	b.RandomizationFactor = p.RandomizationFactor
	if b.RandomizationFactor < 0 || b.RandomizationFactor > 1 {
		b.RandomizationFactor = def.RandomizationFactor
	}
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
