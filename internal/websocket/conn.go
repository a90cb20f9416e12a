// Palinaria - Article Service with Real-Time Update Fanout
// Copyright 2026 Palinaria contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/palinaria/fullstack-app

package websocket

import (
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/palinaria/fullstack-app/internal/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024

	// sendBuffer is the per-connection outbound queue. A connection
	// that falls this far behind is treated as failed and removed.
	sendBuffer = 256
)

// connIDCounter assigns unique, monotonically increasing connection
// ids. Ids double as the registry identity and the deterministic
// broadcast order.
var connIDCounter atomic.Uint64

// Conn is the server-side wrapper around one websocket connection: the
// registry entry plus the read/write pumps that shuttle bytes between
// the socket and the hub.
type Conn struct {
	id   uint64
	hub  *Hub
	sock *websocket.Conn
	send chan []byte
}

// NewConn wraps an upgraded websocket connection.
func NewConn(hub *Hub, sock *websocket.Conn) *Conn {
	return &Conn{
		id:   connIDCounter.Add(1),
		hub:  hub,
		sock: sock,
		send: make(chan []byte, sendBuffer),
	}
}

// ID returns the connection's registry identity.
func (c *Conn) ID() uint64 {
	return c.id
}

// Start begins the read and write pumps. Must be called after the
// connection has been handed to the hub's Register channel.
func (c *Conn) Start() {
	go c.writePump()
	go c.readPump()
}

// readPump consumes inbound frames until the socket errors or closes.
// The push channel carries no client requests; inbound payloads are
// discarded, but reading is required to process close frames and pong
// control messages. Any read error unregisters the connection.
func (c *Conn) readPump() {
	defer func() {
		c.hub.Unregister <- c
		_ = c.sock.Close()
	}()

	c.sock.SetReadLimit(maxMessageSize)
	if err := c.sock.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.sock.SetPongHandler(func(string) error {
		return c.sock.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.sock.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logging.Error().Err(err).Uint64("conn_id", c.id).Msg("unexpected websocket close")
			}
			return
		}
	}
}

// writePump pushes serialized events from the hub to the socket and
// keeps the connection alive with periodic pings.
func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.sock.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			if err := c.sock.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline")
				return
			}
			if !ok {
				// The hub closed this connection's queue.
				_ = c.sock.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.sock.WriteMessage(websocket.TextMessage, data); err != nil {
				logging.Error().Err(err).Uint64("conn_id", c.id).Msg("failed to write event")
				return
			}

		case <-ticker.C:
			if err := c.sock.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.sock.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
