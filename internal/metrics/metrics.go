// Palinaria - Article Service with Real-Time Update Fanout
// Copyright 2026 Palinaria contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/palinaria/fullstack-app

// Package metrics exposes Prometheus instrumentation for the HTTP API
// and the websocket fanout.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API metrics
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "palinaria_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "palinaria_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "palinaria_api_active_requests",
			Help: "Number of API requests currently being served",
		},
	)

	// Websocket fanout metrics
	WSConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "palinaria_ws_connected_clients",
			Help: "Number of currently connected websocket clients",
		},
	)

	WSBroadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "palinaria_ws_broadcasts_total",
			Help: "Total number of broadcast events by type",
		},
		[]string{"type"},
	)

	WSDroppedSendsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "palinaria_ws_dropped_sends_total",
			Help: "Total number of per-connection sends dropped because the connection was slow or closed",
		},
	)

	// Store metrics
	StoreMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "palinaria_store_mutations_total",
			Help: "Total number of committed store mutations by operation",
		},
		[]string{"operation"},
	)
)

// RecordAPIRequest records latency and throughput for one request.
func RecordAPIRequest(method, path, status string, duration time.Duration) {
	APIRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
	APIRequestsTotal.WithLabelValues(method, path, status).Inc()
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(start bool) {
	if start {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
