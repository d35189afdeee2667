// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/chest/internal/logging"
	"github.com/tomtom215/chest/internal/metrics"
)

// ErrCircuitOpen is returned by Client.Open while the relay's breaker rejects
// connection attempts.
var ErrCircuitOpen = errors.New("relay circuit breaker open")

// Options configures sessions opened to a relay.
type Options struct {
	HandshakeTimeout  time.Duration
	WriteTimeout      time.Duration
	PingInterval      time.Duration
	PongWait          time.Duration
	MaxMessageSize    int64
	EnableCompression bool
}

// DefaultOptions returns the connection settings used when none are given.
func DefaultOptions() Options {
	return Options{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     10 * time.Second,
		PingInterval:     30 * time.Second,
		PongWait:         90 * time.Second,
		MaxMessageSize:   1 << 20,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = def.HandshakeTimeout
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = def.WriteTimeout
	}
	return o
}

// BreakerSettings configures the per-relay circuit breaker.
type BreakerSettings struct {
	Enabled             bool
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
	HalfOpenRequests    uint32
}

// Client opens sessions to a single relay and tracks its health across
// reconnects.
type Client struct {
	url     string
	opts    Options
	breaker *gobreaker.CircuitBreaker[*Session]
}

// NewClient returns a Client for url. A zero BreakerSettings disables the
// breaker.
func NewClient(url string, opts Options, bs BreakerSettings) *Client {
	c := &Client{url: url, opts: opts}
	if !bs.Enabled {
		return c
	}

	if bs.ConsecutiveFailures == 0 {
		bs.ConsecutiveFailures = 5
	}
	if bs.OpenTimeout <= 0 {
		bs.OpenTimeout = time.Minute
	}
	if bs.HalfOpenRequests == 0 {
		bs.HalfOpenRequests = 1
	}

	metrics.CircuitBreakerState.WithLabelValues(url).Set(0)
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(url).Set(0)

	log := logging.ForRelay(url)
	c.breaker = gobreaker.NewCircuitBreaker[*Session](gobreaker.Settings{
		Name:        url,
		MaxRequests: bs.HalfOpenRequests,
		Timeout:     bs.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= bs.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info().Str("from", stateToString(from)).Str("to", stateToString(to)).Msg("[CIRCUIT BREAKER] State transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, stateToString(from), stateToString(to)).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
		// Shutting down is not a relay failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return c
}

// URL returns the relay address.
func (c *Client) URL() string { return c.url }

// Open dials a new session.
func (c *Client) Open(ctx context.Context) (*Session, error) {
	if c.breaker == nil {
		s := NewSession(c.url, c.opts)
		if err := s.Connect(ctx); err != nil {
			return nil, err
		}
		return s, nil
	}

	s, err := c.breaker.Execute(func() (*Session, error) {
		s := NewSession(c.url, c.opts)
		if err := s.Connect(ctx); err != nil {
			return nil, err
		}
		return s, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(c.url, "rejected").Inc()
			return nil, fmt.Errorf("%w: %s", ErrCircuitOpen, c.url)
		}
		metrics.CircuitBreakerRequests.WithLabelValues(c.url, "failure").Inc()
		metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(c.url).Set(float64(c.breaker.Counts().ConsecutiveFailures))
		return nil, err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(c.url, "success").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(c.url).Set(0)
	return s, nil
}

// BreakerState reports the breaker position, or "disabled".
func (c *Client) BreakerState() string {
	if c.breaker == nil {
		return "disabled"
	}
	return stateToString(c.breaker.State())
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
