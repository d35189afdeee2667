// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

package testinfra

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/chest/internal/models"
)

// MockRelay is an in-process relay for exercising sessions end to end.
// Every accepted connection is delivered on Conns.
type MockRelay struct {
	Server   *httptest.Server
	upgrader websocket.Upgrader
	conns    chan *RelayConn

	reject   atomic.Bool
	accepted atomic.Int32

	mu  sync.Mutex
	all []*RelayConn
}

// NewMockRelay starts a mock relay. It is closed by t.Cleanup.
func NewMockRelay(t testing.TB) *MockRelay {
	t.Helper()

	m := &MockRelay{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns: make(chan *RelayConn, 64),
	}

	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.reject.Load() {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		ws, err := m.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := newRelayConn(ws)
		m.accepted.Add(1)
		m.mu.Lock()
		m.all = append(m.all, c)
		m.mu.Unlock()
		m.conns <- c
	}))

	t.Cleanup(m.Close)
	return m
}

// URL returns the ws:// address of the relay.
func (m *MockRelay) URL() string {
	return "ws" + strings.TrimPrefix(m.Server.URL, "http")
}

// Reject makes subsequent handshakes fail with 503.
func (m *MockRelay) Reject(on bool) {
	m.reject.Store(on)
}

// Accepted returns the number of websocket connections accepted so far.
func (m *MockRelay) Accepted() int {
	return int(m.accepted.Load())
}

// Accept waits for the next client connection.
func (m *MockRelay) Accept(t testing.TB, timeout time.Duration) *RelayConn {
	t.Helper()
	select {
	case c := <-m.conns:
		return c
	case <-time.After(timeout):
		t.Fatalf("no connection to mock relay within %v", timeout)
		return nil
	}
}

// NoConnection fails the test if a client connects within wait.
func (m *MockRelay) NoConnection(t testing.TB, wait time.Duration) {
	t.Helper()
	select {
	case <-m.conns:
		t.Fatal("unexpected connection to mock relay")
	case <-time.After(wait):
	}
}

// Close drops every connection and stops the server.
func (m *MockRelay) Close() {
	m.mu.Lock()
	for _, c := range m.all {
		_ = c.ws.Close()
	}
	m.mu.Unlock()
	m.Server.Close()
}

// Frame is one client-to-relay message.
type Frame struct {
	Label          string
	SubscriptionID string
	Kinds          []uint32
	References     []string
	Raw            []byte
}

type reqFilter struct {
	Kinds      []uint32 `json:"kinds"`
	References []string `json:"#e"`
}

func parseFrame(data []byte) Frame {
	f := Frame{Raw: data}
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil || len(parts) == 0 {
		return f
	}
	_ = json.Unmarshal(parts[0], &f.Label)
	if len(parts) > 1 {
		_ = json.Unmarshal(parts[1], &f.SubscriptionID)
	}
	if f.Label == "REQ" && len(parts) > 2 {
		var rf reqFilter
		_ = json.Unmarshal(parts[2], &rf)
		f.Kinds = rf.Kinds
		f.References = rf.References
	}
	return f
}

// RelayConn is the relay side of one client connection.
type RelayConn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
	frames  chan Frame
	closed  chan struct{}
}

func newRelayConn(ws *websocket.Conn) *RelayConn {
	c := &RelayConn{
		ws:     ws,
		frames: make(chan Frame, 256),
		closed: make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *RelayConn) readLoop() {
	defer close(c.closed)
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		c.frames <- parseFrame(data)
	}
}

// Closed is closed when the client side goes away.
func (c *RelayConn) Closed() <-chan struct{} {
	return c.closed
}

// Next waits for the next frame from the client.
func (c *RelayConn) Next(t testing.TB, timeout time.Duration) Frame {
	t.Helper()
	select {
	case f := <-c.frames:
		return f
	case <-time.After(timeout):
		t.Fatalf("no frame from client within %v", timeout)
		return Frame{}
	}
}

// ExpectREQ waits for the next frame and fails unless it is a REQ.
func (c *RelayConn) ExpectREQ(t testing.TB, timeout time.Duration) Frame {
	t.Helper()
	f := c.Next(t, timeout)
	if f.Label != "REQ" {
		t.Fatalf("expected REQ, got %s", f.Raw)
	}
	return f
}

// NoFrame fails the test if the client sends anything within wait.
func (c *RelayConn) NoFrame(t testing.TB, wait time.Duration) {
	t.Helper()
	select {
	case f := <-c.frames:
		t.Fatalf("unexpected frame %s", f.Raw)
	case <-time.After(wait):
	}
}

// SendEvent writes ["EVENT", subID, ev].
func (c *RelayConn) SendEvent(subID string, ev models.Event) error {
	data, err := json.Marshal([]interface{}{"EVENT", subID, ev})
	if err != nil {
		return err
	}
	return c.SendRaw(string(data))
}

// SendRaw writes a text frame verbatim.
func (c *RelayConn) SendRaw(data string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, []byte(data))
}

// CloseNormal performs a clean close handshake from the relay side.
func (c *RelayConn) CloseNormal() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
	if err := c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)); err != nil {
		return err
	}
	return c.ws.Close()
}

// Drop closes the TCP connection without a close handshake.
func (c *RelayConn) Drop() error {
	return c.ws.Close()
}
