// Palinaria - Article Service with Real-Time Update Fanout
// Copyright 2026 Palinaria contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/palinaria/fullstack-app

package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palinaria/fullstack-app/internal/event"
	"github.com/palinaria/fullstack-app/internal/models"
)

func article(id, title string) models.Article {
	return models.Article{ID: id, Title: title, Content: "body of " + title}
}

func articleRef(id, title string) *models.Article {
	a := article(id, title)
	return &a
}

func TestCacheCreateAppendsInOrder(t *testing.T) {
	c := NewCache()
	c.Apply(event.Created(articleRef("a", "first")))
	c.Apply(event.Created(articleRef("b", "second")))
	c.Apply(event.Created(articleRef("c", "third")))

	list := c.List()
	require.Len(t, list, 3)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "b", list[1].ID)
	assert.Equal(t, "c", list[2].ID)
}

func TestCacheCreateIsIdempotent(t *testing.T) {
	c := NewCache()
	c.Apply(event.Created(articleRef("a", "first")))
	c.Apply(event.Created(articleRef("b", "second")))

	// A replayed create must not duplicate the row or move it.
	c.Apply(event.Created(articleRef("a", "first again")))

	list := c.List()
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "first again", list[0].Title)
	assert.Equal(t, "b", list[1].ID)
}

func TestCacheUpdateReplacesInPlace(t *testing.T) {
	c := NewCache()
	c.Apply(event.Created(articleRef("a", "first")))
	c.Apply(event.Created(articleRef("b", "second")))
	c.Apply(event.Created(articleRef("c", "third")))

	c.Apply(event.Updated(articleRef("b", "second revised")))

	list := c.List()
	require.Len(t, list, 3)
	assert.Equal(t, "b", list[1].ID)
	assert.Equal(t, "second revised", list[1].Title)
	assert.Equal(t, "body of second revised", list[1].Content)
}

func TestCacheUpdateUnknownMaterializes(t *testing.T) {
	c := NewCache()
	c.Apply(event.Created(articleRef("a", "first")))

	// A client that connected after the create still learns about the
	// article from its update.
	c.Apply(event.Updated(articleRef("z", "late arrival")))

	list := c.List()
	require.Len(t, list, 2)
	assert.Equal(t, "z", list[1].ID)
}

func TestCacheDeleteRemoves(t *testing.T) {
	c := NewCache()
	c.Apply(event.Created(articleRef("a", "first")))
	c.Apply(event.Created(articleRef("b", "second")))
	c.Apply(event.Created(articleRef("c", "third")))

	c.Apply(event.Deleted("b"))

	list := c.List()
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "c", list[1].ID)

	_, ok := c.Get("b")
	assert.False(t, ok)
}

func TestCacheDeleteUnknownIsNoop(t *testing.T) {
	c := NewCache()
	c.Apply(event.Created(articleRef("a", "first")))
	c.Apply(event.Deleted("nope"))
	assert.Equal(t, 1, c.Len())
}

func TestCacheDeleteClearsViewed(t *testing.T) {
	c := NewCache()
	c.Apply(event.Created(articleRef("a", "first")))
	require.True(t, c.SetViewed("a"))

	_, ok := c.Viewed()
	require.True(t, ok)

	c.Apply(event.Deleted("a"))

	_, ok = c.Viewed()
	assert.False(t, ok)
}

func TestCacheViewedSurvivesUpdate(t *testing.T) {
	c := NewCache()
	c.Apply(event.Created(articleRef("a", "first")))
	require.True(t, c.SetViewed("a"))

	c.Apply(event.Updated(articleRef("a", "first revised")))

	viewed, ok := c.Viewed()
	require.True(t, ok)
	assert.Equal(t, "first revised", viewed.Title)
}

func TestCacheSetViewedUnknownRejected(t *testing.T) {
	c := NewCache()
	assert.False(t, c.SetViewed("ghost"))
}

func TestCacheReplaceHealsDivergence(t *testing.T) {
	c := NewCache()
	c.Apply(event.Created(articleRef("stale", "missed a delete")))
	require.True(t, c.SetViewed("stale"))

	c.Replace([]models.Article{
		article("x", "one"),
		article("y", "two"),
	})

	list := c.List()
	require.Len(t, list, 2)
	assert.Equal(t, "x", list[0].ID)
	assert.Equal(t, "y", list[1].ID)

	// The viewed article vanished from the snapshot.
	_, ok := c.Viewed()
	assert.False(t, ok)
}

func TestCacheEventFoldConverges(t *testing.T) {
	// The same event sequence applied to two caches yields the same
	// list, regardless of interleaved duplicates.
	events := []event.Event{
		event.Created(articleRef("a", "first")),
		event.Created(articleRef("b", "second")),
		event.Updated(articleRef("a", "first v2")),
		event.Created(articleRef("b", "second replay")),
		event.Deleted("a"),
		event.Created(articleRef("c", "third")),
	}

	c1 := NewCache()
	c2 := NewCache()
	for _, evt := range events {
		c1.Apply(evt)
	}
	for _, evt := range events {
		c2.Apply(evt)
		c2.Apply(evt) // duplicated delivery
	}

	assert.Equal(t, c1.List(), c2.List())

	list := c1.List()
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].ID)
	assert.Equal(t, "second replay", list[0].Title)
	assert.Equal(t, "c", list[1].ID)
}
