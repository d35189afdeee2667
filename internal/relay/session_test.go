// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

package relay

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/tomtom215/chest/internal/filter"
	"github.com/tomtom215/chest/internal/logging"
	"github.com/tomtom215/chest/internal/models"
	"github.com/tomtom215/chest/internal/testinfra"
)

func init() {
	logging.Init(logging.Config{Level: "error", Output: io.Discard})
}

const wait = 2 * time.Second

func testOptions() Options {
	opts := DefaultOptions()
	opts.PingInterval = 0
	opts.PongWait = 0
	return opts
}

func connectedSession(t *testing.T) (*Session, *testinfra.RelayConn, context.Context) {
	t.Helper()
	mock := testinfra.NewMockRelay(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	s := NewSession(mock.URL(), testOptions())
	if err := s.Connect(ctx); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, mock.Accept(t, wait), ctx
}

func TestSessionLifecycle(t *testing.T) {
	mock := testinfra.NewMockRelay(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s := NewSession(mock.URL(), testOptions())
	if s.State() != StateDisconnected {
		t.Fatalf("initial state = %v", s.State())
	}
	if err := s.SendFilter(ctx, filter.Build([]uint32{1}, "")); !errors.Is(err, ErrNotConnected) {
		t.Errorf("SendFilter() before Connect error = %v, want ErrNotConnected", err)
	}

	if err := s.Connect(ctx); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if s.State() != StateConnecting {
		t.Errorf("state after Connect = %v, want connecting", s.State())
	}
	if err := s.Connect(ctx); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Connect() error = %v", err)
	}
	conn := mock.Accept(t, wait)

	f := filter.NewBuilderWithIDs(func() string { return "sub1" }).Build([]uint32{0, 1}, "")
	if err := s.SendFilter(ctx, f); err != nil {
		t.Fatalf("SendFilter() error = %v", err)
	}
	if s.State() != StateSubscribed {
		t.Errorf("state after SendFilter = %v, want subscribed", s.State())
	}
	req := conn.ExpectREQ(t, wait)
	if req.SubscriptionID != "sub1" || len(req.Kinds) != 2 {
		t.Errorf("REQ = %s", req.Raw)
	}

	if err := conn.SendEvent("sub1", models.Event{ID: "e1", Kind: 1}); err != nil {
		t.Fatal(err)
	}
	d, err := s.Next(ctx)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if d.SubscriptionID != "sub1" || d.Event.ID != "e1" {
		t.Errorf("delivery = %+v", d)
	}
	if s.State() != StateStreaming {
		t.Errorf("state after first event = %v, want streaming", s.State())
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	closeFrame := conn.Next(t, wait)
	if closeFrame.Label != "CLOSE" || closeFrame.SubscriptionID != "sub1" {
		t.Errorf("expected CLOSE sub1, got %s", closeFrame.Raw)
	}
	if s.State() != StateClosed {
		t.Errorf("state after Close = %v", s.State())
	}
	if _, err := s.Next(ctx); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Next() after Close error = %v", err)
	}
	if err := s.SendFilter(ctx, f); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("SendFilter() after Close error = %v", err)
	}
	select {
	case <-s.Done():
	default:
		t.Error("Done() not closed")
	}
}

func TestSessionSkipsNonEventFrames(t *testing.T) {
	s, conn, ctx := connectedSession(t)
	if err := s.SendFilter(ctx, filter.Build([]uint32{1}, "")); err != nil {
		t.Fatal(err)
	}
	conn.ExpectREQ(t, wait)

	for _, raw := range []string{
		`{"not":"an array"}`,
		`["NOTICE","hello"]`,
		`["EOSE","x"]`,
		`["EVENT","short"]`,
		`[]`,
	} {
		if err := conn.SendRaw(raw); err != nil {
			t.Fatal(err)
		}
	}
	if err := conn.SendEvent("x", models.Event{ID: "after", Kind: 7}); err != nil {
		t.Fatal(err)
	}

	d, err := s.Next(ctx)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if d.Event.ID != "after" {
		t.Errorf("Next() = %q, want after", d.Event.ID)
	}
}

func TestSessionOrderPreserved(t *testing.T) {
	s, conn, ctx := connectedSession(t)
	ids := []string{"a", "b", "c", "d"}
	for _, id := range ids {
		if err := conn.SendEvent("s", models.Event{ID: id, Kind: 1}); err != nil {
			t.Fatal(err)
		}
	}
	for _, want := range ids {
		d, err := s.Next(ctx)
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		if d.Event.ID != want {
			t.Errorf("Next() = %q, want %q", d.Event.ID, want)
		}
	}
}

func TestSessionMalformedIsFatal(t *testing.T) {
	s, conn, ctx := connectedSession(t)

	if err := conn.SendRaw(`this is not json`); err != nil {
		t.Fatal(err)
	}
	if err := conn.SendEvent("s", models.Event{ID: "never", Kind: 1}); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Next(ctx); !errors.Is(err, ErrMalformedMessage) {
		t.Fatalf("Next() error = %v, want ErrMalformedMessage", err)
	}
	if s.State() != StateClosed {
		t.Errorf("state = %v, want closed", s.State())
	}
	if _, err := s.Next(ctx); !errors.Is(err, ErrMalformedMessage) {
		t.Errorf("subsequent Next() error = %v, want ErrMalformedMessage", err)
	}
}

func TestSessionPeerClose(t *testing.T) {
	t.Run("clean close", func(t *testing.T) {
		s, conn, ctx := connectedSession(t)
		if err := conn.CloseNormal(); err != nil {
			t.Fatal(err)
		}
		if _, err := s.Next(ctx); !errors.Is(err, ErrSessionClosed) {
			t.Errorf("Next() error = %v, want ErrSessionClosed", err)
		}
		if s.State() != StateClosed {
			t.Errorf("state = %v", s.State())
		}
	})

	t.Run("dropped connection", func(t *testing.T) {
		s, conn, ctx := connectedSession(t)
		if err := conn.Drop(); err != nil {
			t.Fatal(err)
		}
		if _, err := s.Next(ctx); err == nil {
			t.Error("Next() error = nil after drop")
		}
		if s.State() != StateClosed {
			t.Errorf("state = %v", s.State())
		}
	})
}

func TestSessionContextCancel(t *testing.T) {
	s, _, _ := connectedSession(t)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := s.Next(ctx)
		errCh <- err
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Next() error = %v, want context.Canceled", err)
		}
	case <-time.After(wait):
		t.Fatal("Next() did not return after cancel")
	}
	if s.State() != StateClosed {
		t.Errorf("state = %v, want closed", s.State())
	}
}

func TestSessionConnectFailure(t *testing.T) {
	mock := testinfra.NewMockRelay(t)
	mock.Reject(true)

	s := NewSession(mock.URL(), testOptions())
	if err := s.Connect(context.Background()); err == nil {
		t.Fatal("Connect() error = nil against rejecting relay")
	}
	if s.State() != StateClosed {
		t.Errorf("state = %v, want closed", s.State())
	}
}

func TestSessionFilters(t *testing.T) {
	s, conn, ctx := connectedSession(t)
	b := filter.NewBuilder()
	sent := []filter.Filter{b.Build([]uint32{1}, ""), b.Build(nil, "target")}
	for _, f := range sent {
		if err := s.SendFilter(ctx, f); err != nil {
			t.Fatal(err)
		}
	}
	conn.ExpectREQ(t, wait)
	ref := conn.ExpectREQ(t, wait)
	if len(ref.References) != 1 || ref.References[0] != "target" {
		t.Errorf("reference REQ = %s", ref.Raw)
	}

	got := s.Filters()
	if len(got) != 2 || got[1].Target() != "target" {
		t.Errorf("Filters() = %+v", got)
	}
}

func TestStateString(t *testing.T) {
	tests := map[State]string{
		StateDisconnected: "disconnected",
		StateConnecting:   "connecting",
		StateSubscribed:   "subscribed",
		StateStreaming:    "streaming",
		StateClosed:       "closed",
		State(42):         "unknown",
	}
	for st, want := range tests {
		if st.String() != want {
			t.Errorf("State(%d).String() = %q, want %q", st, st.String(), want)
		}
	}
}
