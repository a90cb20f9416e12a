// Palinaria - Article Service with Real-Time Update Fanout
// Copyright 2026 Palinaria contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/palinaria/fullstack-app

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, CreateInput{Title: "A", Content: "x"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "A", created.Title)
	assert.NotNil(t, created.Files, "files must serialize as an array, not null")

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "x", got.Content)
}

func TestGetUnknownID(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrArticleNotFound)
}

func TestListPreservesCreationOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.Create(ctx, CreateInput{Title: "first", Content: "1"})
	require.NoError(t, err)
	second, err := s.Create(ctx, CreateInput{Title: "second", Content: "2"})
	require.NoError(t, err)
	third, err := s.Create(ctx, CreateInput{Title: "third", Content: "3"})
	require.NoError(t, err)

	// Updating the first article must not move it.
	_, err = s.Update(ctx, first.ID, UpdateInput{Title: "first*", Content: "1"})
	require.NoError(t, err)

	articles, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, articles, 3)
	assert.Equal(t, first.ID, articles[0].ID)
	assert.Equal(t, second.ID, articles[1].ID)
	assert.Equal(t, third.ID, articles[2].ID)
	assert.Equal(t, "first*", articles[0].Title)
}

func TestUpdateKeepsFilesWhenNoneUploaded(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, CreateInput{
		Title: "A", Content: "x", Files: []string{"1-a.png", "2-b.pdf"},
	})
	require.NoError(t, err)

	updated, err := s.Update(ctx, created.ID, UpdateInput{Title: "B", Content: "x"})
	require.NoError(t, err)
	assert.Equal(t, "B", updated.Title)
	assert.Equal(t, []string{"1-a.png", "2-b.pdf"}, updated.Files)

	replaced, err := s.Update(ctx, created.ID, UpdateInput{
		Title: "B", Content: "x", Files: []string{"3-c.jpg"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"3-c.jpg"}, replaced.Files)
}

func TestUpdateUnknownID(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Update(context.Background(), "missing", UpdateInput{Title: "B", Content: "y"})
	assert.ErrorIs(t, err, ErrArticleNotFound)
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, CreateInput{Title: "A", Content: "x"})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, created.ID))

	_, err = s.Get(ctx, created.ID)
	assert.ErrorIs(t, err, ErrArticleNotFound)

	assert.ErrorIs(t, s.Delete(ctx, created.ID), ErrArticleNotFound)
}

func TestCount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = s.Create(ctx, CreateInput{Title: "A", Content: "x"})
	require.NoError(t, err)
	_, err = s.Create(ctx, CreateInput{Title: "B", Content: "y"})
	require.NoError(t, err)

	n, err = s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestOpenOnDisk(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	require.NoError(t, err)

	created, err := s.Create(context.Background(), CreateInput{Title: "A", Content: "x"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Records survive a reopen.
	s2, err := Open(dir)
	require.NoError(t, err)
	defer func() { _ = s2.Close() }()

	got, err := s2.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", got.Title)
}
