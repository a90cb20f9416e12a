// Palinaria - Article Service with Real-Time Update Fanout
// Copyright 2026 Palinaria contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/palinaria/fullstack-app

// Package main is the entry point for the Palinaria article server.
//
// Palinaria is a small content service whose clients stay current
// without polling: every article mutation is broadcast to all
// connected websocket clients the moment it is persisted.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered defaults, YAML file, environment (Koanf v2)
//  2. Database: BadgerDB key-value store for articles
//  3. Uploads: content-sniffed attachment storage on disk
//  4. WebSocket Hub: real-time fanout to connected clients
//  5. HTTP Server: REST API plus the /ws event stream
//
// The hub and the HTTP server each run as a supervised service in a
// suture tree, so a crash in one restarts it without taking down the
// other.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (SERVER_PORT, DATABASE_PATH, LOG_LEVEL, ...)
//   - Config file (config.yaml, or CONFIG_PATH)
//   - Built-in defaults
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM:
//   - Stops accepting new connections
//   - Waits for in-flight requests to complete (shutdown timeout)
//   - Closes websocket clients and the database
//
// # Example Usage
//
//	export SERVER_PORT=3000
//	export DATABASE_PATH=data/articles
//	./palinaria-server
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/palinaria/fullstack-app/internal/api"
	"github.com/palinaria/fullstack-app/internal/config"
	"github.com/palinaria/fullstack-app/internal/files"
	"github.com/palinaria/fullstack-app/internal/logging"
	"github.com/palinaria/fullstack-app/internal/store"
	"github.com/palinaria/fullstack-app/internal/supervisor"
	"github.com/palinaria/fullstack-app/internal/supervisor/services"
	ws "github.com/palinaria/fullstack-app/internal/websocket"
)

func main() {
	// Load configuration first to get logging settings.
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("addr", cfg.Server.Addr()).
		Str("db_path", cfg.Database.Path).
		Bool("db_in_memory", cfg.Database.InMemory).
		Str("uploads_dir", cfg.Uploads.Dir).
		Msg("Configuration loaded")

	var st *store.Store
	if cfg.Database.InMemory {
		st, err = store.OpenInMemory()
	} else {
		st, err = store.Open(cfg.Database.Path)
	}
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open article store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing article store")
		}
	}()
	logging.Info().Msg("Article store opened")

	uploads, err := files.New(cfg.Uploads.Dir, cfg.Uploads.MaxFileSize)
	if err != nil {
		logging.Fatal().Err(err).Str("dir", cfg.Uploads.Dir).Msg("Failed to initialize upload storage")
	}

	hub := ws.NewHub()

	handler := api.NewHandler(st, hub, uploads, cfg)
	router := api.NewRouter(handler, cfg)

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	// Bridge zerolog to slog for sutureslog.
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(httpServer, cfg.Server.ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", cfg.Server.Addr()).Msg("Starting Palinaria")

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Fatal().Err(err).Msg("Supervisor tree exited with error")
	}

	logging.Info().Msg("Shutdown complete")
}
