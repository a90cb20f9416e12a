// Palinaria - Article Service with Real-Time Update Fanout
// Copyright 2026 Palinaria contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/palinaria/fullstack-app

// Package client implements the consumer side of the update fanout:
// a reconnecting websocket listener, an ordered article cache that
// folds incoming events, and a TTL-bounded notification queue.
package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/palinaria/fullstack-app/internal/event"
	"github.com/palinaria/fullstack-app/internal/logging"
)

// State describes the manager's connection lifecycle.
type State int

const (
	// StateDisconnected means no socket is open and no dial is in flight.
	StateDisconnected State = iota
	// StateConnecting means a dial attempt is in progress.
	StateConnecting
	// StateOpen means the socket is established and events are flowing.
	StateOpen
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// DefaultReconnectDelay is the fixed pause between a connection loss
// and the next dial attempt.
const DefaultReconnectDelay = 3 * time.Second

const defaultEventBuffer = 64

// ErrAlreadyStarted is returned by Start when the manager is running.
var ErrAlreadyStarted = errors.New("client: manager already started")

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithReconnectDelay overrides the fixed reconnect delay.
func WithReconnectDelay(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.reconnectDelay = d
		}
	}
}

// WithDialer overrides the websocket dialer.
func WithDialer(d *websocket.Dialer) ManagerOption {
	return func(m *Manager) {
		if d != nil {
			m.dialer = d
		}
	}
}

// WithStateListener registers a callback invoked on every state
// transition. The callback runs on the manager's goroutine and must
// not block.
func WithStateListener(fn func(State)) ManagerOption {
	return func(m *Manager) { m.onState = fn }
}

// Manager maintains a single websocket subscription to the server's
// event stream. It dials, reads events, and on any failure waits a
// fixed delay and dials again until its context is canceled. Events
// arrive on the channel returned by Events in receipt order.
type Manager struct {
	url            string
	dialer         *websocket.Dialer
	reconnectDelay time.Duration
	onState        func(State)

	events chan event.Event

	mu      sync.Mutex
	state   State
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewManager creates a manager for the given websocket URL. The
// manager is idle until Start is called.
func NewManager(url string, opts ...ManagerOption) *Manager {
	m := &Manager{
		url:            url,
		dialer:         websocket.DefaultDialer,
		reconnectDelay: DefaultReconnectDelay,
		events:         make(chan event.Event, defaultEventBuffer),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Events returns the channel carrying decoded events in the order they
// were received. The channel is closed after Stop (or context
// cancellation) once the run loop exits.
func (m *Manager) Events() <-chan event.Event {
	return m.events
}

// State reports the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Start launches the run loop. It returns ErrAlreadyStarted if the
// manager is already running.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return ErrAlreadyStarted
	}
	m.started = true

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.run(runCtx)
	return nil
}

// Stop cancels the run loop and waits for it to exit. Safe to call
// multiple times.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	done := m.done
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	changed := m.state != s
	m.state = s
	cb := m.onState
	m.mu.Unlock()

	if changed && cb != nil {
		cb(s)
	}
}

// run is the outer reconnect loop: dial, drain the socket until it
// fails, then pause for the fixed delay and try again.
func (m *Manager) run(ctx context.Context) {
	defer func() {
		m.setState(StateDisconnected)
		close(m.events)
		close(m.done)
	}()

	for {
		if ctx.Err() != nil {
			return
		}

		m.setState(StateConnecting)
		sock, _, err := m.dialer.DialContext(ctx, m.url, nil)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logging.Warn().Err(err).Str("url", m.url).Msg("Event stream dial failed")
			m.setState(StateDisconnected)
			if !m.waitReconnect(ctx) {
				return
			}
			continue
		}

		m.setState(StateOpen)
		logging.Info().Str("url", m.url).Msg("Event stream connected")

		m.readLoop(ctx, sock)
		sock.Close()

		if ctx.Err() != nil {
			return
		}
		m.setState(StateDisconnected)
		logging.Warn().Str("url", m.url).Msg("Event stream lost, reconnecting")
		if !m.waitReconnect(ctx) {
			return
		}
	}
}

// readLoop drains one socket until a read error or context
// cancellation. A close watcher goroutine unblocks ReadMessage when
// the context ends.
func (m *Manager) readLoop(ctx context.Context, sock *websocket.Conn) {
	readDone := make(chan struct{})
	defer close(readDone)

	go func() {
		select {
		case <-ctx.Done():
			sock.Close()
		case <-readDone:
		}
	}()

	for {
		_, payload, err := sock.ReadMessage()
		if err != nil {
			return
		}

		evt, err := event.Parse(payload)
		if err != nil {
			// Malformed frames are discarded so one bad payload cannot
			// wedge the stream.
			logging.Warn().Err(err).Msg("Discarding malformed event payload")
			continue
		}

		select {
		case m.events <- evt:
		case <-ctx.Done():
			return
		}
	}
}

// waitReconnect sleeps for the fixed delay. It returns false when the
// context was canceled during the wait.
func (m *Manager) waitReconnect(ctx context.Context) bool {
	timer := time.NewTimer(m.reconnectDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
