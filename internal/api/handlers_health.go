// Palinaria - Article Service with Real-Time Update Fanout
// Copyright 2026 Palinaria contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/palinaria/fullstack-app

package api

import (
	"net/http"
	"time"
)

type healthStatus struct {
	Status    string `json:"status"`
	UptimeSec int64  `json:"uptime_seconds"`
	Articles  int    `json:"articles"`
	WSClients int    `json:"ws_clients"`
}

// HealthLive reports process liveness.
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	respondSuccess(w, http.StatusOK, map[string]string{"status": "alive"})
}

// HealthReady reports readiness: the store must answer a read.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if _, err := h.store.Count(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "NOT_READY", "store unavailable", err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Health reports overall service health with basic figures.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	count, err := h.store.Count(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "NOT_READY", "store unavailable", err)
		return
	}
	respondSuccess(w, http.StatusOK, healthStatus{
		Status:    "healthy",
		UptimeSec: int64(time.Since(h.startTime) / time.Second),
		Articles:  count,
		WSClients: h.hub.ClientCount(),
	})
}
