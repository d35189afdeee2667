// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/tomtom215/chest/internal/filter"
	"github.com/tomtom215/chest/internal/logging"
	"github.com/tomtom215/chest/internal/metrics"
	"github.com/tomtom215/chest/internal/models"
)

var (
	// ErrSessionClosed is returned once the session has reached StateClosed.
	ErrSessionClosed = errors.New("relay session closed")

	// ErrNotConnected is returned when a filter is sent before Connect succeeded.
	ErrNotConnected = errors.New("relay session not connected")

	// ErrAlreadyStarted is returned when Connect is called twice.
	ErrAlreadyStarted = errors.New("relay session already started")
)

// State is the lifecycle position of a Session.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateSubscribed
	StateStreaming
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateSubscribed:
		return "subscribed"
	case StateStreaming:
		return "streaming"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Delivery is one event received on a subscription.
type Delivery struct {
	SubscriptionID string
	Event          *models.Event
}

// Session is a single websocket connection to one relay.
//
// The lifecycle is Disconnected -> Connecting -> Subscribed -> Streaming ->
// Closed. Closed is terminal; a new Session is needed to reconnect.
//
// One goroutine may call Next while others call SendFilter and Close.
type Session struct {
	url  string
	opts Options
	log  zerolog.Logger

	state     atomic.Int32
	conn      *websocket.Conn
	connected atomic.Bool

	writeMu sync.Mutex

	filtersMu sync.Mutex
	filters   []filter.Filter

	closeOnce sync.Once
	done      chan struct{}
	stopCtx   func() bool
	closeErr  error
}

// NewSession returns a disconnected session for url.
func NewSession(url string, opts Options) *Session {
	return &Session{
		url:  url,
		opts: opts.withDefaults(),
		log:  logging.ForRelay(url),
		done: make(chan struct{}),
	}
}

// URL returns the relay address.
func (s *Session) URL() string { return s.url }

// State returns the current lifecycle state.
func (s *Session) State() State { return State(s.state.Load()) }

// Done is closed when the session reaches StateClosed.
func (s *Session) Done() <-chan struct{} { return s.done }

// Filters returns the filters sent on this session so far.
func (s *Session) Filters() []filter.Filter {
	s.filtersMu.Lock()
	defer s.filtersMu.Unlock()
	return append([]filter.Filter(nil), s.filters...)
}

// Connect dials the relay. The session stays open until ctx is done, Close is
// called, or a read or write fails.
func (s *Session) Connect(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(StateDisconnected), int32(StateConnecting)) {
		return ErrAlreadyStarted
	}

	dialer := websocket.Dialer{
		HandshakeTimeout:  s.opts.HandshakeTimeout,
		EnableCompression: s.opts.EnableCompression,
	}

	s.log.Debug().Msg("Connecting to relay")
	conn, resp, err := dialer.DialContext(ctx, s.url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		s.state.Store(int32(StateClosed))
		s.closeOnce.Do(func() { close(s.done) })
		metrics.RelayConnects.WithLabelValues(s.url, "failure").Inc()
		return fmt.Errorf("dial %s: %w", s.url, err)
	}
	metrics.RelayConnects.WithLabelValues(s.url, "success").Inc()

	if s.State() == StateClosed {
		_ = conn.Close()
		return ErrSessionClosed
	}

	s.conn = conn
	if s.opts.MaxMessageSize > 0 {
		conn.SetReadLimit(s.opts.MaxMessageSize)
	}
	if s.opts.PongWait > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(s.opts.PongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(s.opts.PongWait))
		})
	}

	s.stopCtx = context.AfterFunc(ctx, func() { _ = s.Close() })
	s.connected.Store(true)
	if s.opts.PingInterval > 0 {
		go s.pingLoop()
	}

	s.log.Info().Msg("Connected to relay")
	return nil
}

// SendFilter submits f as a REQ on the open connection.
func (s *Session) SendFilter(ctx context.Context, f filter.Filter) error {
	if s.State() == StateClosed {
		return ErrSessionClosed
	}
	if !s.connected.Load() {
		return ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := f.Request()
	if err != nil {
		return err
	}
	if err := s.write(data); err != nil {
		s.fail(err)
		return fmt.Errorf("send REQ %s: %w", f.SubscriptionID, err)
	}

	s.filtersMu.Lock()
	s.filters = append(s.filters, f)
	s.filtersMu.Unlock()

	s.state.CompareAndSwap(int32(StateConnecting), int32(StateSubscribed))
	s.log.Debug().
		Str("subscription_id", f.SubscriptionID).
		Interface("kinds", f.Kinds).
		Str("target", f.Target()).
		Msg("Subscription sent")
	return nil
}

// Next blocks until the next event arrives. Frames that are not events are
// skipped. A malformed frame, a read error, or the peer closing the
// connection ends the session and is returned as an error; cancelling ctx
// also ends the session.
func (s *Session) Next(ctx context.Context) (Delivery, error) {
	if s.State() == StateClosed {
		return Delivery{}, s.terminalError()
	}
	if !s.connected.Load() {
		return Delivery{}, ErrNotConnected
	}

	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()

	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Delivery{}, ctxErr
			}
			if s.State() == StateClosed {
				return Delivery{}, s.terminalError()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.fail(fmt.Errorf("%w: peer closed connection", ErrSessionClosed))
			} else {
				s.fail(fmt.Errorf("read: %w", err))
			}
			return Delivery{}, s.terminalError()
		}
		if msgType != websocket.TextMessage {
			continue
		}

		msg, err := ParseMessage(data)
		if err != nil {
			s.log.Warn().Err(err).Msg("Malformed relay message")
			s.fail(err)
			return Delivery{}, s.terminalError()
		}
		metrics.RelayMessagesReceived.WithLabelValues(s.url, labelOrOther(msg.Label)).Inc()

		switch msg.Label {
		case LabelEvent:
			if !msg.IsEvent() {
				continue
			}
			s.state.CompareAndSwap(int32(StateSubscribed), int32(StateStreaming))
			s.state.CompareAndSwap(int32(StateConnecting), int32(StateStreaming))
			return Delivery{SubscriptionID: msg.SubscriptionID, Event: msg.Event}, nil
		case LabelNotice:
			s.log.Info().Str("notice", msg.Notice).Msg("Relay notice")
		case LabelClosed:
			s.log.Info().Str("subscription_id", msg.SubscriptionID).Str("reason", msg.Notice).Msg("Relay closed subscription")
		case LabelEOSE:
			s.log.Debug().Str("subscription_id", msg.SubscriptionID).Msg("End of stored events")
		}
	}
}

// Close sends CLOSE for each active subscription, performs the websocket
// close handshake and releases the connection. It is safe to call more
// than once.
func (s *Session) Close() error {
	s.shutdown(nil, true)
	return nil
}

func (s *Session) fail(err error) {
	s.shutdown(err, false)
}

func (s *Session) shutdown(cause error, graceful bool) {
	s.closeOnce.Do(func() {
		s.closeErr = cause
		prev := State(s.state.Swap(int32(StateClosed)))
		if s.stopCtx != nil {
			s.stopCtx()
		}
		close(s.done)

		if !s.connected.Load() {
			return
		}
		if graceful && prev != StateDisconnected {
			for _, f := range s.Filters() {
				if data, err := f.CloseRequest(); err == nil {
					if err := s.write(data); err != nil {
						break
					}
				}
			}
			s.writeMu.Lock()
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(s.opts.WriteTimeout))
			s.writeMu.Unlock()
		}
		_ = s.conn.Close()

		if cause != nil {
			s.log.Warn().Err(cause).Msg("Relay session ended")
		} else {
			s.log.Debug().Msg("Relay session closed")
		}
	})
}

// terminalError is returned by every call made after the session ended.
func (s *Session) terminalError() error {
	if s.closeErr != nil {
		return s.closeErr
	}
	return ErrSessionClosed
}

func (s *Session) write(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.opts.WriteTimeout > 0 {
		_ = s.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
	}
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *Session) pingLoop() {
	ticker := time.NewTicker(s.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.opts.WriteTimeout))
			if err != nil {
				s.fail(fmt.Errorf("ping: %w", err))
				return
			}
		}
	}
}

func labelOrOther(label string) string {
	switch label {
	case LabelEvent, LabelNotice, LabelEOSE, LabelOK, LabelClosed, LabelAuth:
		return label
	default:
		return "other"
	}
}
