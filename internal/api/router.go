// Palinaria - Article Service with Real-Time Update Fanout
// Copyright 2026 Palinaria contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/palinaria/fullstack-app

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/palinaria/fullstack-app/internal/config"
	"github.com/palinaria/fullstack-app/internal/middleware"
)

// NewRouter wires all routes with the shared middleware stack.
func NewRouter(h *Handler, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to every route.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Security.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	// Article CRUD. Request timeout and metrics apply here but not to
	// the websocket route, which must stay hijackable and long-lived.
	r.Route("/articles", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(cfg.Server.Timeout))
		r.Use(middleware.PrometheusMetrics)
		if !cfg.Security.RateLimitDisabled {
			r.Use(httprate.LimitByIP(cfg.Security.RateLimitReqs, cfg.Security.RateLimitWindow))
		}

		r.Get("/", h.ListArticles)
		r.Post("/", h.CreateArticle)
		r.Get("/{id}", h.GetArticle)
		r.Put("/{id}", h.UpdateArticle)
		r.Delete("/{id}", h.DeleteArticle)
	})

	// Attachment downloads.
	r.With(middleware.PrometheusMetrics).Get("/uploads/{id}", h.Attachment)

	// Real-time push channel.
	r.Get("/ws", h.WebSocket)

	// Health and observability.
	r.Get("/health", h.Health)
	r.Get("/health/live", h.HealthLive)
	r.Get("/health/ready", h.HealthReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}
