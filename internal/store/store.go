// Palinaria - Article Service with Real-Time Update Fanout
// Copyright 2026 Palinaria contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/palinaria/fullstack-app

// Package store persists article records in BadgerDB.
//
// The store is the only component that mutates durable state. Every
// mutation commits inside a single Badger transaction and returns the
// resulting snapshot; callers emit the corresponding domain event only
// after a mutation has returned successfully, never before.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/palinaria/fullstack-app/internal/models"
)

// articleKeyPrefix namespaces article records in Badger.
const articleKeyPrefix = "article:"

// ErrArticleNotFound is returned by Get, Update and Delete when no
// record exists for the given id.
var ErrArticleNotFound = errors.New("article not found")

// Store is a BadgerDB-backed article store.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) a store at the given directory.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens an ephemeral store with no on-disk footprint.
// Used by tests and by the server's --ephemeral mode.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory badger: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateInput holds the fields accepted when creating an article.
type CreateInput struct {
	Title   string
	Content string
	Files   []string
}

// UpdateInput holds the fields accepted when updating an article.
// Files replaces the stored attachment list only when non-empty;
// an update without new uploads keeps the existing attachments.
type UpdateInput struct {
	Title   string
	Content string
	Files   []string
}

// List returns all articles in display order: creation order, stable
// across updates.
func (s *Store) List(ctx context.Context) ([]models.Article, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var articles []models.Article
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(articleKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var a models.Article
				if err := json.Unmarshal(val, &a); err != nil {
					return fmt.Errorf("decode article: %w", err)
				}
				articles = append(articles, a)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Badger iterates in key order; display order is creation order.
	sort.Slice(articles, func(i, j int) bool {
		if !articles[i].CreatedAt.Equal(articles[j].CreatedAt) {
			return articles[i].CreatedAt.Before(articles[j].CreatedAt)
		}
		return articles[i].ID < articles[j].ID
	})
	return articles, nil
}

// Get retrieves a single article by id.
func (s *Store) Get(ctx context.Context, id string) (*models.Article, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var a models.Article
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(articleKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrArticleNotFound
		}
		if err != nil {
			return fmt.Errorf("get article: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &a)
		})
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create stores a new article and returns its snapshot.
func (s *Store) Create(ctx context.Context, in CreateInput) (*models.Article, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	a := models.Article{
		ID:        uuid.New().String(),
		Title:     in.Title,
		Content:   in.Content,
		Files:     normalizeFiles(in.Files),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.put(&a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Update replaces the title and content of an existing article and,
// when new attachments were uploaded, its attachment list. Position in
// display order is preserved because CreatedAt never changes.
func (s *Store) Update(ctx context.Context, id string, in UpdateInput) (*models.Article, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	a.Title = in.Title
	a.Content = in.Content
	if len(in.Files) > 0 {
		a.Files = normalizeFiles(in.Files)
	}
	a.UpdatedAt = time.Now().UTC()

	if err := s.put(a); err != nil {
		return nil, err
	}
	return a, nil
}

// Delete removes an article by id.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(articleKey(id))
	})
}

// Count returns the number of stored articles. Used by health checks.
func (s *Store) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(articleKeyPrefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

func (s *Store) put(a *models.Article) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal article: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(articleKey(a.ID), data)
	})
}

func articleKey(id string) []byte {
	return []byte(articleKeyPrefix + id)
}

// normalizeFiles copies the slice and maps nil to an empty slice so
// stored records always serialize "files" as an array.
func normalizeFiles(files []string) []string {
	out := make([]string, len(files))
	copy(out, files)
	return out
}
