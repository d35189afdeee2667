// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

package relay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/chest/internal/testinfra"
)

func TestClientOpen(t *testing.T) {
	mock := testinfra.NewMockRelay(t)
	c := NewClient(mock.URL(), testOptions(), BreakerSettings{})

	s, err := c.Open(context.Background())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	mock.Accept(t, wait)
	if s.URL() != mock.URL() {
		t.Errorf("URL() = %q", s.URL())
	}
	if c.BreakerState() != "disabled" {
		t.Errorf("BreakerState() = %q, want disabled", c.BreakerState())
	}
}

func TestClientCircuitBreaker(t *testing.T) {
	mock := testinfra.NewMockRelay(t)
	mock.Reject(true)

	c := NewClient(mock.URL(), testOptions(), BreakerSettings{
		Enabled:             true,
		ConsecutiveFailures: 2,
		OpenTimeout:         100 * time.Millisecond,
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := c.Open(ctx); err == nil || errors.Is(err, ErrCircuitOpen) {
			t.Fatalf("attempt %d: error = %v, want dial failure", i, err)
		}
	}
	if c.BreakerState() != "open" {
		t.Fatalf("BreakerState() = %q, want open", c.BreakerState())
	}

	if _, err := c.Open(ctx); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Open() with open breaker error = %v, want ErrCircuitOpen", err)
	}

	mock.Reject(false)
	time.Sleep(150 * time.Millisecond)

	s, err := c.Open(ctx)
	if err != nil {
		t.Fatalf("Open() after recovery error = %v", err)
	}
	defer s.Close()
	if c.BreakerState() != "closed" {
		t.Errorf("BreakerState() = %q, want closed", c.BreakerState())
	}
}

func TestClientCancelledDialDoesNotTrip(t *testing.T) {
	mock := testinfra.NewMockRelay(t)
	c := NewClient(mock.URL(), testOptions(), BreakerSettings{Enabled: true, ConsecutiveFailures: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Open(ctx); err == nil {
		t.Fatal("Open() with cancelled context succeeded")
	}
	if c.BreakerState() != "closed" {
		t.Errorf("BreakerState() = %q, want closed", c.BreakerState())
	}
}
