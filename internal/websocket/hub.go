// Palinaria - Article Service with Real-Time Update Fanout
// Copyright 2026 Palinaria contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/palinaria/fullstack-app

package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/palinaria/fullstack-app/internal/event"
	"github.com/palinaria/fullstack-app/internal/logging"
	"github.com/palinaria/fullstack-app/internal/metrics"
)

// broadcastBuffer bounds the number of events queued for fanout before
// the hub starts dropping. Mutations are human-paced; 256 is generous.
const broadcastBuffer = 256

// Hub maintains the set of active connections and broadcasts every
// domain event to them.
type Hub struct {
	conns map[uint64]*Conn

	// Register and Unregister are processed by the run loop so that
	// registry mutations are serialized on a single goroutine.
	Register   chan *Conn
	Unregister chan *Conn

	broadcast chan event.Event
	mu        sync.RWMutex
}

// NewHub creates a hub with an empty registry. The hub does nothing
// until its run loop is started with RunWithContext.
func NewHub() *Hub {
	return &Hub{
		conns:      make(map[uint64]*Conn),
		Register:   make(chan *Conn),
		Unregister: make(chan *Conn),
		broadcast:  make(chan event.Event, broadcastBuffer),
	}
}

// Broadcast queues a domain event for delivery to every open
// connection. The call never blocks: if the fanout queue is full the
// event is dropped with a warning, matching the at-most-once contract.
func (h *Hub) Broadcast(ev event.Event) {
	select {
	case h.broadcast <- ev:
		metrics.WSBroadcastsTotal.WithLabelValues(string(ev.Type)).Inc()
	default:
		logging.Warn().Str("type", string(ev.Type)).Msg("broadcast queue full, dropping event")
	}
}

// RunWithContext runs the hub until the context is canceled. Designed
// for suture supervision: on cancellation all connections are closed
// and ctx.Err() is returned so a supervisor can restart a fresh hub.
//
// Selection is priority based. When several channels are ready Go's
// select picks randomly; checking shutdown, then lifecycle, then
// broadcasts keeps registry state consistent before any delivery.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		// Priority 1: shutdown.
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		default:
		}

		// Priority 2: lifecycle events.
		select {
		case c := <-h.Register:
			h.register(c)
			continue
		case c := <-h.Unregister:
			h.unregister(c)
			continue
		default:
		}

		// Priority 3: block until anything happens.
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		case c := <-h.Register:
			h.register(c)
		case c := <-h.Unregister:
			h.unregister(c)
		case ev := <-h.broadcast:
			h.broadcastToConns(ev)
		}
	}
}

// register adds a connection to the registry. Registering an id that is
// already present replaces the previous entry rather than duplicating
// it; the superseded connection is closed.
func (h *Hub) register(c *Conn) {
	h.mu.Lock()
	if prev, ok := h.conns[c.id]; ok && prev != c {
		close(prev.send)
	}
	h.conns[c.id] = c
	total := len(h.conns)
	h.mu.Unlock()

	metrics.WSConnectedClients.Set(float64(total))
	logging.Info().Uint64("conn_id", c.id).Int("total_clients", total).Msg("websocket client connected")
}

// unregister removes a connection. Unknown connections are a no-op:
// a socket may be removed twice, once by its read pump and once by a
// failed broadcast send.
func (h *Hub) unregister(c *Conn) {
	h.mu.Lock()
	current, ok := h.conns[c.id]
	if ok && current == c {
		delete(h.conns, c.id)
		close(c.send)
	}
	total := len(h.conns)
	h.mu.Unlock()

	if ok {
		metrics.WSConnectedClients.Set(float64(total))
		logging.Info().Uint64("conn_id", c.id).Int("total_clients", total).Msg("websocket client disconnected")
	}
}

// broadcastToConns serializes the event once and delivers the same
// bytes to every connection in the current registry snapshot, in id
// order for deterministic delivery. A full or closed send channel marks
// that connection failed; it is removed and the remaining deliveries
// proceed. Nothing is surfaced to the mutation's caller.
func (h *Hub) broadcastToConns(ev event.Event) {
	data, err := ev.Marshal()
	if err != nil {
		logging.Error().Err(err).Str("type", string(ev.Type)).Msg("failed to serialize event, dropping")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	conns := h.snapshotLocked()

	var toRemove []*Conn
	for _, c := range conns {
		select {
		case c.send <- data:
		default:
			toRemove = append(toRemove, c)
		}
	}

	for _, c := range toRemove {
		close(c.send)
		delete(h.conns, c.id)
		metrics.WSDroppedSendsTotal.Inc()
		logging.Warn().Uint64("conn_id", c.id).Msg("send failed, removing websocket client")
	}
	if len(toRemove) > 0 {
		metrics.WSConnectedClients.Set(float64(len(h.conns)))
	}
}

// snapshotLocked returns the registered connections sorted by id.
// Callers must hold h.mu.
func (h *Hub) snapshotLocked() []*Conn {
	conns := make([]*Conn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	sort.Slice(conns, func(i, j int) bool { return conns[i].id < conns[j].id })
	return conns
}

// shutdown closes every connection and logs the reason. Cancellation is
// the expected path, so ctx.Err() is not logged as an error.
func (h *Hub) shutdown(ctx context.Context) {
	h.mu.Lock()
	closed := len(h.conns)
	for _, c := range h.snapshotLocked() {
		close(c.send)
		delete(h.conns, c.id)
	}
	h.mu.Unlock()

	metrics.WSConnectedClients.Set(0)

	reason := "context_canceled"
	if ctx.Err() == context.DeadlineExceeded {
		reason = "context_deadline"
	}
	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", reason).
		Int("clients_closed", closed).
		Msg("websocket hub stopped")
}

// ClientCount returns the number of registered connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}
