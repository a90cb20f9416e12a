// Palinaria - Article Service with Real-Time Update Fanout
// Copyright 2026 Palinaria contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/palinaria/fullstack-app

package api

import (
	"net/http"
	"time"

	gws "github.com/gorilla/websocket"

	"github.com/palinaria/fullstack-app/internal/config"
	"github.com/palinaria/fullstack-app/internal/files"
	"github.com/palinaria/fullstack-app/internal/logging"
	"github.com/palinaria/fullstack-app/internal/store"
	ws "github.com/palinaria/fullstack-app/internal/websocket"
)

// Handler holds the dependencies of all HTTP handlers.
//
// Methods are split across files:
//   - handlers.go: struct, constructor, websocket upgrade
//   - handlers_articles.go: article CRUD
//   - handlers_health.go: health probes
type Handler struct {
	store     *store.Store
	hub       *ws.Hub
	uploads   *files.Storage
	cfg       *config.Config
	upgrader  gws.Upgrader
	startTime time.Time
}

// NewHandler creates the API handler.
func NewHandler(st *store.Store, hub *ws.Hub, uploads *files.Storage, cfg *config.Config) *Handler {
	return &Handler{
		store:   st,
		hub:     hub,
		uploads: uploads,
		cfg:     cfg,
		upgrader: gws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Connection-level auth is out of scope; the API is CORS
			// limited but the push channel accepts any origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		startTime: time.Now(),
	}
}

// WebSocket upgrades the request and registers the connection with the
// fanout hub. The connection starts receiving the next broadcast; there
// is no replay of earlier events.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	sock, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote an HTTP error to the client.
		logging.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	conn := ws.NewConn(h.hub, sock)
	h.hub.Register <- conn
	conn.Start()
}

// Attachment streams a stored attachment by its identifier.
func (h *Handler) Attachment(w http.ResponseWriter, r *http.Request) {
	id := routeParam(r, "id")

	f, err := h.uploads.Open(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "attachment not found", nil)
		return
	}
	defer func() { _ = f.Close() }()

	http.ServeContent(w, r, id, time.Time{}, f)
}
