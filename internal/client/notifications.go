// Palinaria - Article Service with Real-Time Update Fanout
// Copyright 2026 Palinaria contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/palinaria/fullstack-app

package client

import (
	"context"
	"sync"
	"time"

	"github.com/palinaria/fullstack-app/internal/event"
)

// DefaultNotificationTTL is how long a notification stays visible
// before it expires.
const DefaultNotificationTTL = 5 * time.Second

// DefaultNotificationCap bounds the queue; pushing past it drops the
// oldest entry.
const DefaultNotificationCap = 256

// Notification is a transient, user-facing record of one event.
type Notification struct {
	Event    event.Event
	Received time.Time
}

// QueueOption configures a NotificationQueue.
type QueueOption func(*NotificationQueue)

// WithTTL overrides the notification lifetime.
func WithTTL(ttl time.Duration) QueueOption {
	return func(q *NotificationQueue) {
		if ttl > 0 {
			q.ttl = ttl
		}
	}
}

// WithCap overrides the queue capacity.
func WithCap(n int) QueueOption {
	return func(q *NotificationQueue) {
		if n > 0 {
			q.cap = n
		}
	}
}

// WithClock overrides the time source, letting tests advance time
// without sleeping.
func WithClock(now func() time.Time) QueueOption {
	return func(q *NotificationQueue) {
		if now != nil {
			q.now = now
		}
	}
}

// NotificationQueue holds transient notifications in arrival order.
// Each entry expires ttl after it was pushed; expiry is evaluated per
// entry, so notifications pushed at different times expire at
// different times. The queue is bounded: at capacity the oldest entry
// is dropped to admit the newest.
type NotificationQueue struct {
	ttl  time.Duration
	cap  int
	now  func() time.Time
	mu   sync.Mutex
	list []Notification
}

// NewNotificationQueue creates an empty queue with the default TTL and
// capacity unless overridden.
func NewNotificationQueue(opts ...QueueOption) *NotificationQueue {
	q := &NotificationQueue{
		ttl: DefaultNotificationTTL,
		cap: DefaultNotificationCap,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Push appends a notification for the event, stamped with the current
// time. At capacity the oldest entry is evicted first.
func (q *NotificationQueue) Push(evt event.Event) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.list) >= q.cap {
		q.list = q.list[1:]
	}
	q.list = append(q.list, Notification{Event: evt, Received: q.now()})
}

// Active returns the unexpired notifications in arrival order,
// pruning expired ones as a side effect.
func (q *NotificationQueue) Active() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pruneLocked()

	out := make([]Notification, len(q.list))
	copy(out, q.list)
	return out
}

// Len reports the number of unexpired notifications.
func (q *NotificationQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pruneLocked()
	return len(q.list)
}

// Sweep removes expired notifications immediately.
func (q *NotificationQueue) Sweep() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pruneLocked()
}

// pruneLocked drops every entry older than ttl. Entries are in arrival
// order, so the survivors form a suffix. Callers hold q.mu.
func (q *NotificationQueue) pruneLocked() {
	cutoff := q.now().Add(-q.ttl)
	i := 0
	for i < len(q.list) && !q.list[i].Received.After(cutoff) {
		i++
	}
	if i > 0 {
		q.list = append(q.list[:0], q.list[i:]...)
	}
}

// Run sweeps the queue periodically until the context is canceled,
// keeping expiry timely even when nothing reads Active.
func (q *NotificationQueue) Run(ctx context.Context) {
	interval := q.ttl / 2
	if interval < 100*time.Millisecond {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			q.Sweep()
		case <-ctx.Done():
			return
		}
	}
}
