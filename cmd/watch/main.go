// Palinaria - Article Service with Real-Time Update Fanout
// Copyright 2026 Palinaria contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/palinaria/fullstack-app

// Package main is the Palinaria watcher, a terminal client that mirrors
// the server's article list in real time. It seeds its cache from the
// REST API, subscribes to the websocket event stream, folds every
// event into the cached list, and surfaces transient notifications for
// incoming changes. On connection loss it retries with a fixed delay
// and re-fetches the list once reconnected.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/palinaria/fullstack-app/internal/client"
	"github.com/palinaria/fullstack-app/internal/config"
	"github.com/palinaria/fullstack-app/internal/event"
	"github.com/palinaria/fullstack-app/internal/logging"
)

var exampleUsage = strings.TrimSpace(`
  palinaria-watch
  palinaria-watch --server ws://articles.example.net:3000/ws
  RECONNECT_DELAY=1s palinaria-watch
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	var serverURL string

	root := &cobra.Command{
		Use:     "palinaria-watch",
		Short:   "Follow the article service's live event stream",
		Example: exampleUsage,
		Version: getVersion(),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cmd.Flags().Changed("server") {
				cfg.Client.ServerURL = serverURL
			}

			logging.Init(logging.Config{
				Level:  cfg.Logging.Level,
				Format: "console",
				Caller: cfg.Logging.Caller,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return watch(ctx, cfg)
		},
	}

	root.Flags().StringVar(&serverURL, "server", "ws://localhost:3000/ws", "websocket URL of the article service")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// watch runs the reconciliation loop until the context is canceled.
func watch(ctx context.Context, cfg *config.Config) error {
	cache := client.NewCache()
	queue := client.NewNotificationQueue(
		client.WithTTL(cfg.Client.NotificationTTL),
		client.WithCap(cfg.Client.NotificationCap),
	)
	go queue.Run(ctx)

	fetcher := client.NewFetcher(httpBase(cfg.Client.ServerURL))

	// State changes arrive on a channel so the loop below can re-fetch
	// the snapshot on every reconnect. The listener must not block.
	states := make(chan client.State, 8)
	manager := client.NewManager(cfg.Client.ServerURL,
		client.WithReconnectDelay(cfg.Client.ReconnectDelay),
		client.WithStateListener(func(s client.State) {
			select {
			case states <- s:
			default:
			}
		}),
	)
	if err := manager.Start(ctx); err != nil {
		return err
	}
	defer manager.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case s := <-states:
			logging.Info().Stringer("state", s).Msg("Connection state changed")
			// Events broadcast during an outage are gone for good, so
			// each (re)connect heals the cache from a snapshot.
			if s == client.StateOpen {
				seed(ctx, fetcher, cache)
			}

		case evt, ok := <-manager.Events():
			if !ok {
				return nil
			}
			cache.Apply(evt)
			queue.Push(evt)
			printEvent(evt, cache)
		}
	}
}

func seed(ctx context.Context, fetcher *client.Fetcher, cache *client.Cache) {
	articles, err := fetcher.Articles(ctx)
	if err != nil {
		logging.Warn().Err(err).Msg("Snapshot fetch failed, relying on event stream")
		return
	}
	cache.Replace(articles)
	logging.Info().Int("articles", len(articles)).Msg("Article list synchronized")
}

func printEvent(evt event.Event, cache *client.Cache) {
	switch evt.Type {
	case event.TypeCreated:
		logging.Info().Str("id", evt.Article.ID).Str("title", evt.Article.Title).
			Int("total", cache.Len()).Msg("Article created")
	case event.TypeUpdated:
		logging.Info().Str("id", evt.Article.ID).Str("title", evt.Article.Title).
			Msg("Article updated")
	case event.TypeDeleted:
		logging.Info().Str("id", evt.ID).Int("total", cache.Len()).Msg("Article deleted")
	}
}

// httpBase derives the REST base URL from the websocket URL.
func httpBase(wsURL string) string {
	base := strings.TrimSuffix(wsURL, "/ws")
	base = strings.Replace(base, "wss://", "https://", 1)
	return strings.Replace(base, "ws://", "http://", 1)
}
