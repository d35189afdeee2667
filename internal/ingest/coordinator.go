// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

package ingest

import (
	"errors"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/chest/internal/config"
	"github.com/tomtom215/chest/internal/filter"
	"github.com/tomtom215/chest/internal/relay"
)

// Coordinator owns one supervised primary subscription per relay and, when
// expansion is enabled, the expander that follows their primary entities.
//
// The relay arena is built once in New and never modified, so lookups need
// no locking. Other tasks talk to a relay only through its Handle.
type Coordinator struct {
	relays   []*relayService
	byURL    map[string]*relayService
	expander *Expander
	pipeline *Pipeline
}

// RelayStatus is a point in time view of one relay.
type RelayStatus struct {
	URL       string `json:"url"`
	Connected bool   `json:"connected"`
	Breaker   string `json:"breaker"`
	Filters   int    `json:"filters"`
	Pending   int    `json:"pending_expansions"`
}

// Status summarizes ingestion for the health endpoint.
type Status struct {
	Relays            []RelayStatus `json:"relays"`
	SecondarySessions int64         `json:"secondary_sessions"`
}

// New builds the coordinator for cfg. Nothing connects until the services
// returned by Services are started.
func New(cfg *config.Config, store Store, sinks ...Sink) (*Coordinator, error) {
	if cfg == nil {
		return nil, errors.New("ingest: nil config")
	}
	if store == nil {
		return nil, errors.New("ingest: nil store")
	}
	if len(cfg.Relays.URLs) == 0 {
		return nil, errors.New("ingest: no relays configured")
	}

	opts := relay.Options{
		HandshakeTimeout: cfg.Relays.DialTimeout,
		WriteTimeout:     cfg.Relays.WriteTimeout,
		PingInterval:     cfg.Relays.PingInterval,
		PongWait:         cfg.Relays.PongWait,
		MaxMessageSize:   cfg.Relays.MaxMessageSize,
	}
	breaker := relay.BreakerSettings{
		Enabled:             cfg.Relays.Breaker.Enabled,
		ConsecutiveFailures: cfg.Relays.Breaker.ConsecutiveFailures,
		OpenTimeout:         cfg.Relays.Breaker.OpenTimeout,
	}
	policy := relay.BackoffPolicy{
		InitialInterval:     cfg.Relays.Reconnect.InitialInterval,
		MaxInterval:         cfg.Relays.Reconnect.MaxInterval,
		Multiplier:          cfg.Relays.Reconnect.Multiplier,
		RandomizationFactor: cfg.Relays.Reconnect.RandomizationFactor,
	}

	c := &Coordinator{
		byURL:    make(map[string]*relayService, len(cfg.Relays.URLs)),
		pipeline: NewPipeline(store, sinks...),
	}
	builder := filter.NewBuilder()
	if cfg.Expansion.Enabled {
		c.expander = newExpander(cfg.Expansion, cfg.Relays.Reconnect, builder, c.pipeline)
	}

	for _, url := range cfg.Relays.URLs {
		if _, dup := c.byURL[url]; dup {
			continue
		}
		client := relay.NewClient(url, opts, breaker)
		initial := builder.Initial(cfg.Event.Kinds, cfg.Subscription.PerKind)

		svc := newRelayService(client, initial, c.pipeline, c.expander)
		svc.loop.policy = policy
		svc.loop.reconnect = cfg.Relays.Reconnect.Enabled

		if c.expander != nil {
			c.expander.addRelay(client, svc.handle)
		}
		c.relays = append(c.relays, svc)
		c.byURL[url] = svc
	}
	return c, nil
}

// Services returns the suture services to supervise: one per relay, then
// the expander if enabled.
func (c *Coordinator) Services() []suture.Service {
	out := make([]suture.Service, 0, len(c.relays)+1)
	for _, r := range c.relays {
		out = append(out, r)
	}
	if c.expander != nil {
		out = append(out, c.expander)
	}
	return out
}

// Handle returns the message handle for a relay.
func (c *Coordinator) Handle(url string) (*Handle, bool) {
	r, ok := c.byURL[url]
	if !ok {
		return nil, false
	}
	return r.handle, true
}

// Relays returns the relay URLs in configuration order.
func (c *Coordinator) Relays() []string {
	out := make([]string, len(c.relays))
	for i, r := range c.relays {
		out[i] = r.url
	}
	return out
}

// Status reports connection state per relay.
func (c *Coordinator) Status() Status {
	st := Status{Relays: make([]RelayStatus, 0, len(c.relays))}
	for _, r := range c.relays {
		rs := RelayStatus{
			URL:       r.url,
			Connected: r.loop.filters.connected(),
			Breaker:   r.loop.client.BreakerState(),
			Filters:   r.loop.filters.len(),
		}
		if c.expander != nil {
			rs.Pending = c.expander.Pending(r.url)
		}
		st.Relays = append(st.Relays, rs)
	}
	if c.expander != nil {
		st.SecondarySessions = c.expander.Active()
	}
	return st
}
