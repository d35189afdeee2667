// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

package ingest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/chest/internal/cache"
	"github.com/tomtom215/chest/internal/config"
	"github.com/tomtom215/chest/internal/filter"
	"github.com/tomtom215/chest/internal/logging"
	"github.com/tomtom215/chest/internal/metrics"
	"github.com/tomtom215/chest/internal/models"
	"github.com/tomtom215/chest/internal/relay"
)

// expansionRelay is the expansion state of one relay: its dedup registry,
// pending queue, spawn limiter and session cap.
//
// A target is in live from the moment it is queued until its reference
// subscription ends; multiplexed targets stay there for good. seen only
// remembers targets whose subscription has ended, so the TTL and LRU
// bounds never release a running subscription.
type expansionRelay struct {
	client  *relay.Client
	handle  *Handle
	queue   chan string
	sem     chan struct{}
	limiter *rate.Limiter

	mu   sync.Mutex
	live map[string]struct{}
	seen *cache.LRU[string, time.Time]
}

// claim reports whether target is neither live nor recently ended, and
// marks it live if so.
func (r *expansionRelay) claim(target string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.live[target]; ok {
		return false
	}
	if r.seen.Contains(target) {
		return false
	}
	r.live[target] = struct{}{}
	return true
}

// release ends a live target. The target is remembered in seen for the
// dedup TTL.
func (r *expansionRelay) release(target string) {
	r.mu.Lock()
	delete(r.live, target)
	r.mu.Unlock()
	r.seen.Add(target, time.Now())
}

// forget ends a live target without remembering it.
func (r *expansionRelay) forget(target string) {
	r.mu.Lock()
	delete(r.live, target)
	r.mu.Unlock()
}

// liveCount returns the number of queued, running or multiplexed targets.
func (r *expansionRelay) liveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

// Expander opens reference subscriptions for newly observed primary
// entities. Requests pass through the relay's dedup registry and a bounded
// queue; one worker per relay drains it under a spawn rate limit and a cap
// on concurrent secondary sessions.
type Expander struct {
	cfg      config.ExpansionConfig
	policy   relay.BackoffPolicy
	reconn   bool
	builder  *filter.Builder
	pipeline *Pipeline
	relays   map[string]*expansionRelay

	active atomic.Int64
	wg     sync.WaitGroup
}

func newExpander(cfg config.ExpansionConfig, reconnect config.ReconnectConfig, b *filter.Builder, p *Pipeline) *Expander {
	return &Expander{
		cfg: cfg,
		policy: relay.BackoffPolicy{
			InitialInterval:     reconnect.InitialInterval,
			MaxInterval:         reconnect.MaxInterval,
			Multiplier:          reconnect.Multiplier,
			RandomizationFactor: reconnect.RandomizationFactor,
		},
		reconn:   reconnect.Enabled,
		builder:  b,
		pipeline: p,
		relays:   make(map[string]*expansionRelay),
	}
}

// addRelay registers a relay. Only called while the coordinator is built.
func (e *Expander) addRelay(client *relay.Client, h *Handle) {
	r := &expansionRelay{
		client: client,
		handle: h,
		queue:  make(chan string, max(e.cfg.QueueSize, 1)),
		live:   make(map[string]struct{}),
		seen:   cache.New[string, time.Time]("expansion", e.cfg.DedupCapacity, e.cfg.DedupTTL),
	}
	if e.cfg.MaxSessions > 0 {
		r.sem = make(chan struct{}, e.cfg.MaxSessions)
	}
	if e.cfg.Rate > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(e.cfg.Rate), max(e.cfg.Burst, 1))
	}
	e.relays[client.URL()] = r
}

// Observe queues a reference subscription for rec on relayURL unless one
// is already queued, open or recently ended there. It never blocks; when
// the queue is full the request is dropped and the entity may be claimed
// again later.
func (e *Expander) Observe(relayURL string, rec *models.Record) bool {
	if rec == nil || !rec.Category.IsPrimary() {
		return false
	}
	r, ok := e.relays[relayURL]
	if !ok {
		return false
	}
	if !r.claim(rec.EventID) {
		metrics.ExpansionDeduplicated.WithLabelValues(relayURL).Inc()
		return false
	}

	select {
	case r.queue <- rec.EventID:
		metrics.ExpansionRequested.WithLabelValues(relayURL).Inc()
		metrics.ExpansionQueueDepth.WithLabelValues(relayURL).Inc()
		return true
	default:
		r.forget(rec.EventID)
		metrics.ExpansionRejected.WithLabelValues(relayURL, "queue_full").Inc()
		logging.Warn().
			Str("relay", relayURL).
			Str("target", rec.EventID).
			Int("queue_size", cap(r.queue)).
			Msg("Expansion queue full, reference subscription dropped")
		return false
	}
}

// Serve implements suture.Service. Secondary sessions run until ctx is
// cancelled or their retry budget is spent; Serve waits for them before
// returning.
func (e *Expander) Serve(ctx context.Context) error {
	log := logging.WithComponent("expander")
	log.Info().
		Str("mode", e.cfg.Mode).
		Int("relays", len(e.relays)).
		Int("max_sessions", e.cfg.MaxSessions).
		Float64("rate", e.cfg.Rate).
		Msg("Expander started")

	var workers sync.WaitGroup
	for url, r := range e.relays {
		workers.Add(1)
		go func() {
			defer workers.Done()
			e.work(ctx, url, r)
		}()
	}
	workers.Wait()
	e.wg.Wait()
	return ctx.Err()
}

// String implements fmt.Stringer for suture logs.
func (e *Expander) String() string {
	return "expander"
}

// Active returns the number of running secondary sessions.
func (e *Expander) Active() int64 {
	return e.active.Load()
}

// Live returns the number of targets on relayURL with a queued, running or
// multiplexed reference subscription.
func (e *Expander) Live(relayURL string) int {
	if r, ok := e.relays[relayURL]; ok {
		return r.liveCount()
	}
	return 0
}

// Pending returns the number of queued requests on relayURL.
func (e *Expander) Pending(relayURL string) int {
	if r, ok := e.relays[relayURL]; ok {
		return len(r.queue)
	}
	return 0
}

// work drains one relay's queue until ctx is done.
func (e *Expander) work(ctx context.Context, url string, r *expansionRelay) {
	log := logging.ForRelay(url).With().Str("component", "expander").Logger()
	for {
		select {
		case <-ctx.Done():
			e.drain(url, r)
			return
		case target := <-r.queue:
			metrics.ExpansionQueueDepth.WithLabelValues(url).Dec()
			if err := e.start(ctx, r, target); err != nil {
				if ctx.Err() != nil {
					metrics.ExpansionRejected.WithLabelValues(url, "shutdown").Inc()
					e.drain(url, r)
					return
				}
				r.release(target)
				metrics.ExpansionRejected.WithLabelValues(url, "relay_stopped").Inc()
				log.Warn().Str("target", target).Err(err).Msg("Reference subscription not started")
			}
		}
	}
}

// start opens the reference subscription for target. In session mode a full
// session cap sends the filter on the primary connection instead, so the
// entity stays covered.
func (e *Expander) start(ctx context.Context, r *expansionRelay, target string) error {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	f := e.builder.Build(nil, target)
	if e.cfg.Mode == config.ExpansionModeMultiplex {
		return r.handle.Subscribe(ctx, f)
	}

	if r.sem != nil {
		select {
		case r.sem <- struct{}{}:
		default:
			metrics.ExpansionSpillover.WithLabelValues(r.client.URL()).Inc()
			return r.handle.Subscribe(ctx, f)
		}
	}

	e.wg.Add(1)
	e.active.Add(1)
	go func() {
		defer e.wg.Done()
		defer e.active.Add(-1)
		if r.sem != nil {
			defer func() { <-r.sem }()
		}
		e.runSecondary(ctx, r.client, f)
		r.release(target)
	}()
	return nil
}

// runSecondary streams one reference subscription on its own connection.
// Its events are stored but never expanded further.
func (e *Expander) runSecondary(ctx context.Context, client *relay.Client, f filter.Filter) {
	url := client.URL()
	l := newLoop(client, roleSecondary, newFilterSet([]filter.Filter{f}), func(ctx context.Context, d relay.Delivery) {
		e.pipeline.Process(ctx, url, d.Event)
	})
	l.policy = e.policy
	l.reconnect = e.reconn
	l.maxRestarts = e.cfg.MaxRetries
	l.log = logging.ForSubscription(url, f.SubscriptionID).With().Str("role", roleSecondary).Str("target", f.Target()).Logger()

	l.log.Debug().Msg("Reference subscription started")
	err := l.run(ctx)
	if ctx.Err() != nil {
		return
	}
	l.log.Info().Err(err).Msg("Reference subscription ended")
}

// drain discards queued requests on shutdown.
func (e *Expander) drain(url string, r *expansionRelay) {
	for {
		select {
		case <-r.queue:
			metrics.ExpansionQueueDepth.WithLabelValues(url).Dec()
			metrics.ExpansionRejected.WithLabelValues(url, "shutdown").Inc()
		default:
			return
		}
	}
}
