// Palinaria - Article Service with Real-Time Update Fanout
// Copyright 2026 Palinaria contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/palinaria/fullstack-app

package client

import (
	"sync"

	"github.com/palinaria/fullstack-app/internal/event"
	"github.com/palinaria/fullstack-app/internal/logging"
	"github.com/palinaria/fullstack-app/internal/models"
)

// Cache is the client's reconciled view of the article list. It holds
// articles in display order and folds incoming events into that order:
// creates append, updates replace in place, deletes remove. Both
// server-pushed events and the client's own optimistic mutations flow
// through Apply, so replayed or duplicated events converge to the same
// state.
type Cache struct {
	mu       sync.RWMutex
	order    []string
	articles map[string]models.Article
	viewed   string
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{articles: make(map[string]models.Article)}
}

// Apply folds one event into the cached list.
//
// Created is idempotent: an article already present is replaced in
// place rather than appended, so a replayed create cannot duplicate a
// row. Updated replaces in place when the article is known and
// otherwise materializes it at the end of the list, covering clients
// that connected after the create was broadcast. Deleted removes the
// article and is a no-op for unknown ids.
func (c *Cache) Apply(evt event.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch evt.Type {
	case event.TypeCreated:
		if evt.Article == nil {
			return
		}
		c.upsertLocked(*evt.Article)

	case event.TypeUpdated:
		if evt.Article == nil {
			return
		}
		c.upsertLocked(*evt.Article)

	case event.TypeDeleted:
		c.removeLocked(evt.ID)

	default:
		logging.Warn().Str("type", string(evt.Type)).Msg("Ignoring event of unknown type")
	}
}

// upsertLocked replaces a known article in place or appends an unknown
// one. Callers hold c.mu.
func (c *Cache) upsertLocked(a models.Article) {
	if _, ok := c.articles[a.ID]; ok {
		c.articles[a.ID] = a
		return
	}
	c.articles[a.ID] = a
	c.order = append(c.order, a.ID)
}

// removeLocked drops an article from the map and the order slice, and
// clears the viewed reference when it pointed at the removed article.
// Callers hold c.mu.
func (c *Cache) removeLocked(id string) {
	if _, ok := c.articles[id]; !ok {
		return
	}
	delete(c.articles, id)
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	if c.viewed == id {
		c.viewed = ""
	}
}

// Replace swaps the entire cached list for an authoritative snapshot,
// healing any divergence accumulated while disconnected. Order follows
// the snapshot. A viewed article absent from the snapshot is cleared.
func (c *Cache) Replace(articles []models.Article) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order = c.order[:0]
	c.articles = make(map[string]models.Article, len(articles))
	for _, a := range articles {
		if _, ok := c.articles[a.ID]; ok {
			continue
		}
		c.articles[a.ID] = a
		c.order = append(c.order, a.ID)
	}
	if c.viewed != "" {
		if _, ok := c.articles[c.viewed]; !ok {
			c.viewed = ""
		}
	}
}

// List returns the cached articles in display order. The returned
// slice is a copy.
func (c *Cache) List() []models.Article {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.Article, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.articles[id])
	}
	return out
}

// Get returns the cached article with the given id.
func (c *Cache) Get(id string) (models.Article, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.articles[id]
	return a, ok
}

// Len reports the number of cached articles.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// SetViewed marks an article as the one currently open in a detail
// view. Marking an unknown id is rejected.
func (c *Cache) SetViewed(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.articles[id]; !ok {
		return false
	}
	c.viewed = id
	return true
}

// Viewed returns the currently viewed article, if any. The reference
// is cleared automatically when the article is deleted, so a stale
// detail view cannot survive its subject.
func (c *Cache) Viewed() (models.Article, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.viewed == "" {
		return models.Article{}, false
	}
	a, ok := c.articles[c.viewed]
	return a, ok
}

// ClearViewed drops the viewed reference.
func (c *Cache) ClearViewed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.viewed = ""
}
