// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tomtom215/chest/internal/filter"
	"github.com/tomtom215/chest/internal/logging"
	"github.com/tomtom215/chest/internal/metrics"
	"github.com/tomtom215/chest/internal/relay"
)

// Session roles, used as metric labels.
const (
	rolePrimary   = "primary"
	roleSecondary = "secondary"
)

// ErrRetriesExhausted is returned when a session closed more often than its
// restart budget allows.
var ErrRetriesExhausted = errors.New("relay session retry budget exhausted")

// filterSet is the subscriptions one logical session carries. It outlives
// individual connections so a reconnect can resubmit every filter.
type filterSet struct {
	mu      sync.Mutex
	filters []filter.Filter
	current *relay.Session
}

func newFilterSet(initial []filter.Filter) *filterSet {
	return &filterSet{filters: append([]filter.Filter(nil), initial...)}
}

// attach makes s the live session and returns the filters it must be sent.
func (fs *filterSet) attach(s *relay.Session) []filter.Filter {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.current = s
	return append([]filter.Filter(nil), fs.filters...)
}

func (fs *filterSet) detach(s *relay.Session) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.current == s {
		fs.current = nil
	}
}

// add records f and sends it on the live session, if any. A send failure
// ends that session; f is still resubmitted after the reconnect.
func (fs *filterSet) add(ctx context.Context, f filter.Filter) error {
	fs.mu.Lock()
	fs.filters = append(fs.filters, f)
	cur := fs.current
	fs.mu.Unlock()

	if cur == nil {
		return nil
	}
	return cur.SendFilter(ctx, f)
}

func (fs *filterSet) len() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return len(fs.filters)
}

func (fs *filterSet) connected() bool {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.current != nil
}

// loop keeps a filterSet subscribed on one relay across reconnects.
type loop struct {
	client    *relay.Client
	role      string
	policy    relay.BackoffPolicy
	reconnect bool
	// maxRestarts bounds reconnects over the loop's lifetime; negative means
	// unlimited.
	maxRestarts int
	filters     *filterSet
	onEvent     func(ctx context.Context, d relay.Delivery)
	log         zerolog.Logger
}

func newLoop(client *relay.Client, role string, fs *filterSet, onEvent func(context.Context, relay.Delivery)) *loop {
	return &loop{
		client:      client,
		role:        role,
		policy:      relay.DefaultBackoffPolicy(),
		reconnect:   true,
		maxRestarts: -1,
		filters:     fs,
		onEvent:     onEvent,
		log:         logging.ForRelay(client.URL()).With().Str("role", role).Logger(),
	}
}

// run returns when ctx is done, when reconnects are disabled and the
// session ends, or when the restart budget is spent.
func (l *loop) run(ctx context.Context) error {
	b := l.policy.New()
	url := l.client.URL()
	restarts := 0

	for {
		connected, err := l.once(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !connected {
			l.log.Warn().Err(err).Msg("Relay connection failed")
		}
		if !l.reconnect {
			return err
		}
		if l.maxRestarts >= 0 && restarts >= l.maxRestarts {
			return fmt.Errorf("%w after %d restarts: %w", ErrRetriesExhausted, restarts, err)
		}
		restarts++

		if connected {
			b.Reset()
		}
		delay := b.NextBackOff()
		metrics.RelayReconnects.WithLabelValues(url, l.role).Inc()
		l.log.Debug().Dur("retry_in", delay).Int("restart", restarts).Msg("Reconnecting to relay")
		if err := relay.Sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// once runs a single connection until it ends. connected reports whether the
// dial succeeded.
func (l *loop) once(ctx context.Context) (connected bool, err error) {
	s, err := l.client.Open(ctx)
	if err != nil {
		return false, err
	}
	url := l.client.URL()
	metrics.TrackSession(url, l.role, true)
	defer metrics.TrackSession(url, l.role, false)
	defer func() { _ = s.Close() }()

	pending := l.filters.attach(s)
	defer l.filters.detach(s)

	for _, f := range pending {
		if err := s.SendFilter(ctx, f); err != nil {
			return true, err
		}
	}

	for {
		d, err := s.Next(ctx)
		if err != nil {
			return true, err
		}
		l.onEvent(ctx, d)
	}
}
