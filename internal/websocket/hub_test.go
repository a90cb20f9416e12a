// Palinaria - Article Service with Real-Time Update Fanout
// Copyright 2026 Palinaria contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/palinaria/fullstack-app

package websocket

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/palinaria/fullstack-app/internal/event"
	"github.com/palinaria/fullstack-app/internal/logging"
	"github.com/palinaria/fullstack-app/internal/models"
)

//nolint:gochecknoinits // init ensures quiet logging for tests
func init() {
	logging.Init(logging.Config{Level: "error", Format: "json", Output: io.Discard})
}

// setupHub starts a hub run loop and returns it with its cancel func.
func setupHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- hub.RunWithContext(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("run loop returned %v, want context.Canceled", err)
			}
		case <-time.After(time.Second):
			t.Error("hub did not stop after cancel")
		}
	})

	time.Sleep(10 * time.Millisecond)
	return hub, cancel
}

// newTestConn creates a registry entry without a real socket. The read
// and write pumps are never started, so the nil socket is never used.
func newTestConn() *Conn {
	return &Conn{id: connIDCounter.Add(1), send: make(chan []byte, sendBuffer)}
}

func registerConn(hub *Hub, c *Conn) {
	hub.Register <- c
	time.Sleep(20 * time.Millisecond)
}

func testEvent() event.Event {
	return event.Created(&models.Article{ID: "a1", Title: "A", Content: "x", Files: []string{}})
}

func TestNewHub(t *testing.T) {
	hub := NewHub()

	if hub.conns == nil {
		t.Error("conns map not initialized")
	}
	if hub.broadcast == nil || hub.Register == nil || hub.Unregister == nil {
		t.Error("channels not initialized")
	}
	if hub.ClientCount() != 0 {
		t.Errorf("new hub has %d clients, want 0", hub.ClientCount())
	}
}

func TestRegisterAndUnregister(t *testing.T) {
	hub, _ := setupHub(t)

	c := newTestConn()
	registerConn(hub, c)
	if got := hub.ClientCount(); got != 1 {
		t.Fatalf("ClientCount() = %d, want 1", got)
	}

	hub.Unregister <- c
	time.Sleep(20 * time.Millisecond)
	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("ClientCount() = %d, want 0", got)
	}

	// The connection's queue must be closed exactly once.
	select {
	case _, ok := <-c.send:
		if ok {
			t.Error("expected send channel to be closed")
		}
	default:
		t.Error("send channel not closed after unregister")
	}
}

func TestUnregisterUnknownConnIsNoOp(t *testing.T) {
	hub, _ := setupHub(t)

	known := newTestConn()
	registerConn(hub, known)

	// A connection the hub never saw; sockets can be removed by several
	// triggers, so this must not panic or disturb the registry.
	hub.Unregister <- newTestConn()
	time.Sleep(20 * time.Millisecond)

	if got := hub.ClientCount(); got != 1 {
		t.Fatalf("ClientCount() = %d, want 1", got)
	}
}

func TestReregisterSameIdentityReplaces(t *testing.T) {
	hub, _ := setupHub(t)

	id := connIDCounter.Add(1)
	first := &Conn{id: id, send: make(chan []byte, 1)}
	second := &Conn{id: id, send: make(chan []byte, 1)}

	registerConn(hub, first)
	registerConn(hub, second)

	if got := hub.ClientCount(); got != 1 {
		t.Fatalf("ClientCount() = %d, want 1 after re-register", got)
	}
	select {
	case _, ok := <-first.send:
		if ok {
			t.Error("superseded connection received data instead of close")
		}
	default:
		t.Error("superseded connection's queue was not closed")
	}

	// The replacement receives broadcasts.
	hub.Broadcast(testEvent())
	select {
	case <-second.send:
	case <-time.After(time.Second):
		t.Error("replacement connection did not receive broadcast")
	}
}

func TestBroadcastDeliversSameBytesToAll(t *testing.T) {
	hub, _ := setupHub(t)

	a, b := newTestConn(), newTestConn()
	registerConn(hub, a)
	registerConn(hub, b)

	hub.Broadcast(testEvent())

	recv := func(c *Conn) []byte {
		select {
		case data := <-c.send:
			return data
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for broadcast")
			return nil
		}
	}

	da, db := recv(a), recv(b)
	if string(da) != string(db) {
		t.Errorf("connections received different payloads: %s vs %s", da, db)
	}

	ev, err := event.Parse(da)
	if err != nil {
		t.Fatalf("Parse(%s) failed: %v", da, err)
	}
	if ev.Type != event.TypeCreated || ev.ID != "a1" {
		t.Errorf("got event %+v, want article_created for a1", ev)
	}
}

func TestBroadcastPartialFailureIsolation(t *testing.T) {
	hub, _ := setupHub(t)

	okA, okB := newTestConn(), newTestConn()
	// An unbuffered queue with no reader behaves like a dead connection.
	dead := &Conn{id: connIDCounter.Add(1), send: make(chan []byte)}

	registerConn(hub, okA)
	registerConn(hub, dead)
	registerConn(hub, okB)

	hub.Broadcast(testEvent())
	time.Sleep(20 * time.Millisecond)

	for _, c := range []*Conn{okA, okB} {
		select {
		case <-c.send:
		default:
			t.Errorf("open connection %d did not receive the event", c.id)
		}
	}

	if got := hub.ClientCount(); got != 2 {
		t.Errorf("ClientCount() = %d, want 2 after failed connection removed", got)
	}
}

func TestBroadcastOrderPerConnection(t *testing.T) {
	hub, _ := setupHub(t)

	c := newTestConn()
	registerConn(hub, c)

	ids := []string{"e1", "e2", "e3"}
	for _, id := range ids {
		hub.Broadcast(event.Deleted(id))
	}

	for _, want := range ids {
		select {
		case data := <-c.send:
			ev, err := event.Parse(data)
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if ev.ID != want {
				t.Errorf("got event for %q, want %q", ev.ID, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for event %q", want)
		}
	}
}

func TestShutdownClosesAllConnections(t *testing.T) {
	hub, cancel := setupHub(t)

	a, b := newTestConn(), newTestConn()
	registerConn(hub, a)
	registerConn(hub, b)

	cancel()
	time.Sleep(20 * time.Millisecond)

	for _, c := range []*Conn{a, b} {
		select {
		case _, ok := <-c.send:
			if ok {
				t.Errorf("connection %d received data instead of close", c.id)
			}
		default:
			t.Errorf("connection %d queue not closed on shutdown", c.id)
		}
	}
	if got := hub.ClientCount(); got != 0 {
		t.Errorf("ClientCount() = %d, want 0 after shutdown", got)
	}
}
