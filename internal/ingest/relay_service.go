// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

package ingest

import (
	"context"
	"errors"
	"sync"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/chest/internal/filter"
	"github.com/tomtom215/chest/internal/relay"
)

// ErrRelayStopped is returned by Handle.Subscribe after the relay's primary
// service has terminated for good.
var ErrRelayStopped = errors.New("relay service stopped")

// Handle is the only way other tasks reach a relay's primary connection:
// they send it filters to add to the subscription set.
type Handle struct {
	url      string
	filters  chan filter.Filter
	stopped  chan struct{}
	stopOnce sync.Once
}

func newHandle(url string) *Handle {
	return &Handle{
		url:     url,
		filters: make(chan filter.Filter, 64),
		stopped: make(chan struct{}),
	}
}

// URL returns the relay address.
func (h *Handle) URL() string { return h.url }

// Subscribe asks the relay's primary connection to carry f, now and after
// every reconnect. It blocks until the request is accepted.
func (h *Handle) Subscribe(ctx context.Context, f filter.Filter) error {
	select {
	case <-h.stopped:
		return ErrRelayStopped
	default:
	}
	select {
	case h.filters <- f:
		return nil
	case <-h.stopped:
		return ErrRelayStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Handle) stop() {
	h.stopOnce.Do(func() { close(h.stopped) })
}

// relayService is the supervised primary subscription for one relay.
type relayService struct {
	url      string
	handle   *Handle
	loop     *loop
	pipeline *Pipeline
	expander *Expander
}

func newRelayService(client *relay.Client, initial []filter.Filter, p *Pipeline, e *Expander) *relayService {
	r := &relayService{
		url:      client.URL(),
		handle:   newHandle(client.URL()),
		pipeline: p,
		expander: e,
	}
	r.loop = newLoop(client, rolePrimary, newFilterSet(initial), r.handleEvent)
	return r
}

// Serve implements suture.Service. The service returns only when ctx is
// cancelled or, with reconnects disabled, when the session ends; the latter
// tells the supervisor not to restart it.
func (r *relayService) Serve(ctx context.Context) error {
	pumpCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.pump(pumpCtx)
	}()

	err := r.loop.run(ctx)
	cancel()
	wg.Wait()

	if ctx.Err() != nil {
		return ctx.Err()
	}
	r.handle.stop()
	r.loop.log.Warn().Err(err).Msg("Relay subscription terminated")
	return suture.ErrDoNotRestart
}

// String implements fmt.Stringer for suture logs.
func (r *relayService) String() string {
	return "relay:" + r.url
}

// pump moves filters from the handle onto the subscription set.
func (r *relayService) pump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-r.handle.filters:
			if err := r.loop.filters.add(ctx, f); err != nil {
				r.loop.log.Debug().Err(err).Str("subscription_id", f.SubscriptionID).Msg("Filter deferred to next connection")
			}
		}
	}
}

func (r *relayService) handleEvent(ctx context.Context, d relay.Delivery) {
	rec, outcome := r.pipeline.Process(ctx, r.url, d.Event)
	if r.expander == nil {
		return
	}
	if outcome == OutcomeStored || outcome == OutcomeDuplicate {
		r.expander.Observe(r.url, rec)
	}
}
