// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

package ingest

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/chest/internal/config"
	"github.com/tomtom215/chest/internal/filter"
	"github.com/tomtom215/chest/internal/metrics"
	"github.com/tomtom215/chest/internal/models"
	"github.com/tomtom215/chest/internal/testinfra"
)

var referenceKinds = []uint32{models.KindReaction, models.KindZapRequest, models.KindZapReceipt}

// expectReference waits for a REQ scoped to target on conn.
func expectReference(t *testing.T, conn *testinfra.RelayConn, target string) testinfra.Frame {
	t.Helper()
	f := conn.ExpectREQ(t, wait)
	if !reflect.DeepEqual(f.Kinds, referenceKinds) {
		t.Errorf("reference kinds = %v, want %v", f.Kinds, referenceKinds)
	}
	if !reflect.DeepEqual(f.References, []string{target}) {
		t.Errorf("reference #e = %v, want [%s]", f.References, target)
	}
	return f
}

func TestNew(t *testing.T) {
	store := newMemStore()

	if _, err := New(nil, store); err == nil {
		t.Error("New(nil config) succeeded")
	}
	if _, err := New(testConfig("ws://a"), nil); err == nil {
		t.Error("New(nil store) succeeded")
	}
	if _, err := New(testConfig(), store); err == nil {
		t.Error("New(no relays) succeeded")
	}

	c, err := New(testConfig("ws://a", "ws://b", "ws://a"), store)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if got := c.Relays(); !reflect.DeepEqual(got, []string{"ws://a", "ws://b"}) {
		t.Errorf("Relays() = %v", got)
	}
	if n := len(c.Services()); n != 3 {
		t.Errorf("Services() = %d, want 2 relays + expander", n)
	}
	if _, ok := c.Handle("ws://b"); !ok {
		t.Error("Handle(ws://b) missing")
	}
	if _, ok := c.Handle("ws://c"); ok {
		t.Error("Handle(ws://c) found")
	}

	cfg := testConfig("ws://a")
	cfg.Expansion.Enabled = false
	c, _ = New(cfg, store)
	if n := len(c.Services()); n != 1 {
		t.Errorf("Services() without expansion = %d, want 1", n)
	}
}

func TestInitialFilters(t *testing.T) {
	tests := []struct {
		name    string
		perKind bool
		want    [][]uint32
	}{
		{name: "one filter per kind", perKind: true, want: [][]uint32{{0}, {1}, {30023}}},
		{name: "single filter", perKind: false, want: [][]uint32{{0, 1, 30023}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testinfra.NewMockRelay(t)
			cfg := testConfig(mock.URL())
			cfg.Event.Kinds = []uint32{0, 1, 30023}
			cfg.Subscription.PerKind = tt.perKind
			cfg.Expansion.Enabled = false
			run(t, cfg, newMemStore())

			conn := mock.Accept(t, wait)
			seen := make(map[string]bool)
			for i, kinds := range tt.want {
				f := conn.ExpectREQ(t, wait)
				if !reflect.DeepEqual(f.Kinds, kinds) {
					t.Errorf("REQ %d kinds = %v, want %v", i, f.Kinds, kinds)
				}
				if len(f.References) != 0 {
					t.Errorf("REQ %d has #e %v", i, f.References)
				}
				if seen[f.SubscriptionID] {
					t.Errorf("subscription id %q reused", f.SubscriptionID)
				}
				seen[f.SubscriptionID] = true
			}
			conn.NoFrame(t, 100*time.Millisecond)
		})
	}
}

func TestEndToEndNoteAndReaction(t *testing.T) {
	mock := testinfra.NewMockRelay(t)
	store := newMemStore()
	run(t, testConfig(mock.URL()), store)

	primary := mock.Accept(t, wait)
	sub := primary.ExpectREQ(t, wait)

	if err := primary.SendEvent(sub.SubscriptionID, note("e1")); err != nil {
		t.Fatal(err)
	}
	eventually(t, "note stored", func() bool { _, ok := store.get("e1"); return ok })
	rec, _ := store.get("e1")
	if rec.Category != models.CategoryNote || rec.Reference != nil {
		t.Errorf("e1 = (%s, %v), want (notes, nil)", rec.Category, rec.Reference)
	}

	secondary := mock.Accept(t, wait)
	ref := expectReference(t, secondary, "e1")
	primary.NoFrame(t, 100*time.Millisecond)

	if err := secondary.SendEvent(ref.SubscriptionID, reaction("e2", "e1")); err != nil {
		t.Fatal(err)
	}
	eventually(t, "reaction stored", func() bool { _, ok := store.get("e2"); return ok })
	rec, _ = store.get("e2")
	if rec.Category != models.CategoryReaction || rec.ReferenceID() != "e1" {
		t.Errorf("e2 = (%s, %q), want (reactions, e1)", rec.Category, rec.ReferenceID())
	}
}

func TestReactionWithoutReferenceIsDropped(t *testing.T) {
	mock := testinfra.NewMockRelay(t)
	store := newMemStore()
	run(t, testConfig(mock.URL()), store)

	primary := mock.Accept(t, wait)
	sub := primary.ExpectREQ(t, wait)

	_ = primary.SendEvent(sub.SubscriptionID, reaction("e3", ""))
	_ = primary.SendEvent(sub.SubscriptionID, models.Event{ID: "e4", Kind: 0, Tags: models.Tags{}})
	eventually(t, "metadata stored", func() bool { _, ok := store.get("e4"); return ok })

	if _, ok := store.get("e3"); ok {
		t.Error("reaction without e tag was stored")
	}
	mock.NoConnection(t, 100*time.Millisecond)
}

func TestDuplicateNoteExpandsOnce(t *testing.T) {
	mock := testinfra.NewMockRelay(t)
	store := newMemStore()
	run(t, testConfig(mock.URL()), store)

	primary := mock.Accept(t, wait)
	sub := primary.ExpectREQ(t, wait)

	_ = primary.SendEvent(sub.SubscriptionID, note("e1"))
	_ = primary.SendEvent(sub.SubscriptionID, note("e1"))
	eventually(t, "both puts", func() bool { return store.putCount() == 2 })

	if store.count() != 1 {
		t.Errorf("store size = %d, want 1", store.count())
	}
	expectReference(t, mock.Accept(t, wait), "e1")
	mock.NoConnection(t, 200*time.Millisecond)
}

func TestLongFormExpands(t *testing.T) {
	mock := testinfra.NewMockRelay(t)
	cfg := testConfig(mock.URL())
	cfg.Event.Kinds = []uint32{models.KindLongForm}
	run(t, cfg, newMemStore())

	primary := mock.Accept(t, wait)
	sub := primary.ExpectREQ(t, wait)
	_ = primary.SendEvent(sub.SubscriptionID, models.Event{ID: "article", Kind: models.KindLongForm, Tags: models.Tags{}})

	expectReference(t, mock.Accept(t, wait), "article")
}

func TestSecondaryEventsDoNotExpand(t *testing.T) {
	mock := testinfra.NewMockRelay(t)
	store := newMemStore()
	run(t, testConfig(mock.URL()), store)

	primary := mock.Accept(t, wait)
	sub := primary.ExpectREQ(t, wait)
	_ = primary.SendEvent(sub.SubscriptionID, note("e1"))

	secondary := mock.Accept(t, wait)
	ref := expectReference(t, secondary, "e1")

	// A misbehaving relay answers the reference filter with a note.
	_ = secondary.SendEvent(ref.SubscriptionID, note("stray"))
	eventually(t, "stray note stored", func() bool { _, ok := store.get("stray"); return ok })
	mock.NoConnection(t, 200*time.Millisecond)
}

func TestSameEntityOnTwoRelays(t *testing.T) {
	a := testinfra.NewMockRelay(t)
	b := testinfra.NewMockRelay(t)
	store := newMemStore()
	run(t, testConfig(a.URL(), b.URL()), store)

	for _, m := range []*testinfra.MockRelay{a, b} {
		conn := m.Accept(t, wait)
		sub := conn.ExpectREQ(t, wait)
		_ = conn.SendEvent(sub.SubscriptionID, note("shared"))
	}

	expectReference(t, a.Accept(t, wait), "shared")
	expectReference(t, b.Accept(t, wait), "shared")
	if store.count() != 1 {
		t.Errorf("store size = %d, want 1", store.count())
	}
}

func TestPrimaryReconnectResubmitsFilters(t *testing.T) {
	mock := testinfra.NewMockRelay(t)
	cfg := testConfig(mock.URL())
	cfg.Event.Kinds = []uint32{0, 1}
	cfg.Expansion.Enabled = false
	run(t, cfg, newMemStore())

	first := mock.Accept(t, wait)
	want := []testinfra.Frame{first.ExpectREQ(t, wait), first.ExpectREQ(t, wait)}
	_ = first.Drop()

	second := mock.Accept(t, wait)
	for i := range want {
		got := second.ExpectREQ(t, wait)
		if got.SubscriptionID != want[i].SubscriptionID || !reflect.DeepEqual(got.Kinds, want[i].Kinds) {
			t.Errorf("resubmitted REQ %d = %s, want %s", i, got.Raw, want[i].Raw)
		}
	}

	// A clean close from the relay is also retried.
	_ = second.CloseNormal()
	third := mock.Accept(t, wait)
	third.ExpectREQ(t, wait)
}

func TestPrimaryReconnectAfterDialFailure(t *testing.T) {
	mock := testinfra.NewMockRelay(t)
	mock.Reject(true)
	cfg := testConfig(mock.URL())
	cfg.Expansion.Enabled = false
	store := newMemStore()
	run(t, cfg, store)

	time.Sleep(50 * time.Millisecond)
	mock.Reject(false)

	conn := mock.Accept(t, wait)
	sub := conn.ExpectREQ(t, wait)
	_ = conn.SendEvent(sub.SubscriptionID, note("late"))
	eventually(t, "event after recovery", func() bool { _, ok := store.get("late"); return ok })
}

func TestReconnectDisabled(t *testing.T) {
	mock := testinfra.NewMockRelay(t)
	cfg := testConfig(mock.URL())
	cfg.Relays.Reconnect.Enabled = false
	cfg.Expansion.Mode = config.ExpansionModeMultiplex
	c := run(t, cfg, newMemStore())

	conn := mock.Accept(t, wait)
	conn.ExpectREQ(t, wait)
	_ = conn.Drop()

	mock.NoConnection(t, 200*time.Millisecond)

	h, _ := c.Handle(mock.URL())
	eventually(t, "handle stopped", func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		return errors.Is(h.Subscribe(ctx, filter.Build(nil, "x")), ErrRelayStopped)
	})
	if c.Status().Relays[0].Connected {
		t.Error("Status() reports a terminated relay as connected")
	}
}

func TestSecondaryRetryBudget(t *testing.T) {
	mock := testinfra.NewMockRelay(t)
	cfg := testConfig(mock.URL())
	cfg.Expansion.MaxRetries = 1
	run(t, cfg, newMemStore())

	primary := mock.Accept(t, wait)
	sub := primary.ExpectREQ(t, wait)
	_ = primary.SendEvent(sub.SubscriptionID, note("e1"))

	first := mock.Accept(t, wait)
	ref := expectReference(t, first, "e1")
	_ = first.Drop()

	retry := mock.Accept(t, wait)
	if got := expectReference(t, retry, "e1"); got.SubscriptionID != ref.SubscriptionID {
		t.Errorf("retry subscription = %q, want %q", got.SubscriptionID, ref.SubscriptionID)
	}
	_ = retry.Drop()

	mock.NoConnection(t, 300*time.Millisecond)
}

func TestMaxSessionsCap(t *testing.T) {
	mock := testinfra.NewMockRelay(t)
	cfg := testConfig(mock.URL())
	cfg.Expansion.MaxSessions = 1
	cfg.Expansion.QueueSize = 1
	c := run(t, cfg, newMemStore())
	spilled := testutil.ToFloat64(metrics.ExpansionSpillover.WithLabelValues(mock.URL()))

	primary := mock.Accept(t, wait)
	sub := primary.ExpectREQ(t, wait)
	_ = primary.SendEvent(sub.SubscriptionID, note("n1"))
	first := mock.Accept(t, wait)
	expectReference(t, first, "n1")

	// Past the cap, entities are covered on the primary connection.
	for _, id := range []string{"n2", "n3", "n4"} {
		_ = primary.SendEvent(sub.SubscriptionID, note(id))
		expectReference(t, primary, id)
	}
	mock.NoConnection(t, 200*time.Millisecond)

	if got := c.Status().SecondarySessions; got != 1 {
		t.Errorf("SecondarySessions = %d, want 1", got)
	}
	if d := testutil.ToFloat64(metrics.ExpansionSpillover.WithLabelValues(mock.URL())) - spilled; d != 3 {
		t.Errorf("spillover delta = %v, want 3", d)
	}

	// A repeated entity is not subscribed again on either path.
	_ = primary.SendEvent(sub.SubscriptionID, note("n3"))
	primary.NoFrame(t, 200*time.Millisecond)
}

func TestLiveReferenceOutlivesDedupTTL(t *testing.T) {
	mock := testinfra.NewMockRelay(t)
	cfg := testConfig(mock.URL())
	cfg.Expansion.DedupTTL = 50 * time.Millisecond
	c := run(t, cfg, newMemStore())

	primary := mock.Accept(t, wait)
	sub := primary.ExpectREQ(t, wait)
	_ = primary.SendEvent(sub.SubscriptionID, note("n1"))
	expectReference(t, mock.Accept(t, wait), "n1")

	time.Sleep(100 * time.Millisecond)
	_ = primary.SendEvent(sub.SubscriptionID, note("n1"))
	mock.NoConnection(t, 200*time.Millisecond)

	if got := c.Status().SecondarySessions; got != 1 {
		t.Errorf("SecondarySessions = %d, want 1", got)
	}
}

func TestLiveReferenceSurvivesEviction(t *testing.T) {
	mock := testinfra.NewMockRelay(t)
	cfg := testConfig(mock.URL())
	cfg.Expansion.DedupCapacity = 1
	c := run(t, cfg, newMemStore())

	primary := mock.Accept(t, wait)
	sub := primary.ExpectREQ(t, wait)
	for _, id := range []string{"n1", "n2"} {
		_ = primary.SendEvent(sub.SubscriptionID, note(id))
		expectReference(t, mock.Accept(t, wait), id)
	}
	_ = primary.SendEvent(sub.SubscriptionID, note("n1"))
	mock.NoConnection(t, 200*time.Millisecond)

	if got := c.Status().SecondarySessions; got != 2 {
		t.Errorf("SecondarySessions = %d, want 2", got)
	}
}

func TestMultiplexMode(t *testing.T) {
	mock := testinfra.NewMockRelay(t)
	cfg := testConfig(mock.URL())
	cfg.Expansion.Mode = config.ExpansionModeMultiplex
	store := newMemStore()
	run(t, cfg, store)

	primary := mock.Accept(t, wait)
	initial := primary.ExpectREQ(t, wait)
	_ = primary.SendEvent(initial.SubscriptionID, note("e1"))

	ref := expectReference(t, primary, "e1")
	mock.NoConnection(t, 200*time.Millisecond)

	_ = primary.SendEvent(ref.SubscriptionID, reaction("e2", "e1"))
	eventually(t, "reaction stored", func() bool { _, ok := store.get("e2"); return ok })

	// The reference filter is part of the set resubmitted after a reconnect.
	_ = primary.Drop()
	again := mock.Accept(t, wait)
	if f := again.ExpectREQ(t, wait); f.SubscriptionID != initial.SubscriptionID {
		t.Errorf("first resubmitted REQ = %s", f.Raw)
	}
	if f := expectReference(t, again, "e1"); f.SubscriptionID != ref.SubscriptionID {
		t.Errorf("reference REQ id = %q, want %q", f.SubscriptionID, ref.SubscriptionID)
	}
}

func TestStatus(t *testing.T) {
	mock := testinfra.NewMockRelay(t)
	cfg := testConfig(mock.URL())
	cfg.Event.Kinds = []uint32{0, 1}
	c := run(t, cfg, newMemStore())

	mock.Accept(t, wait).ExpectREQ(t, wait)
	eventually(t, "connected status", func() bool { return c.Status().Relays[0].Connected })

	st := c.Status().Relays[0]
	if st.URL != mock.URL() || st.Filters != 2 || st.Breaker != "disabled" {
		t.Errorf("Status() = %+v", st)
	}
}

func TestSinksReceiveStoredRecords(t *testing.T) {
	mock := testinfra.NewMockRelay(t)
	cfg := testConfig(mock.URL())
	cfg.Expansion.Enabled = false
	sink := &recordingSink{}
	run(t, cfg, newMemStore(), sink)

	conn := mock.Accept(t, wait)
	sub := conn.ExpectREQ(t, wait)
	_ = conn.SendEvent(sub.SubscriptionID, note("a"))
	_ = conn.SendEvent(sub.SubscriptionID, note("a"))
	_ = conn.SendEvent(sub.SubscriptionID, note("b"))

	eventually(t, "two published", func() bool { return len(sink.ids()) == 2 })
	if got := sink.ids(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("published = %v, want [a b]", got)
	}
}
