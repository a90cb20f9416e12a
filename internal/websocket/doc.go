// Palinaria - Article Service with Real-Time Update Fanout
// Copyright 2026 Palinaria contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/palinaria/fullstack-app

// Package websocket implements the server side of the real-time fanout:
// a connection registry plus a broadcaster that pushes every committed
// article mutation to all live connections.
//
// The Hub owns the registry. Connections register and unregister
// through channels processed by a single run loop, so registry state is
// mutated from exactly one goroutine. Broadcasts serialize each event
// once and deliver the same bytes to every open connection; a failed or
// slow send removes that connection and never aborts delivery to the
// others.
//
// Delivery is fire-and-forget: no acknowledgement, no retry, and no
// replay for clients that were disconnected while an event was emitted.
// Clients that need to heal a gap re-fetch authoritative state over the
// REST API.
package websocket
