// Palinaria - Article Service with Real-Time Update Fanout
// Copyright 2026 Palinaria contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/palinaria/fullstack-app

// Package api provides the HTTP surface of the article service: CRUD
// routes over the store, the websocket upgrade endpoint feeding the
// fanout hub, attachment downloads, health probes and Prometheus
// metrics, all routed through chi.
//
// Every successful POST, PUT or DELETE emits exactly one broadcast
// after the store has committed the mutation. Handler code never
// broadcasts before the store call returns.
package api
