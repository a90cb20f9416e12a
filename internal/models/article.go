// Palinaria - Article Service with Real-Time Update Fanout
// Copyright 2026 Palinaria contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/palinaria/fullstack-app

// Package models defines the shared data types exchanged between the
// store, the HTTP API and the websocket fanout.
package models

import "time"

// Article is a snapshot of an article record at a point in time.
// Two snapshots with the same ID describe the same logical article;
// equality of content is not implied.
//
// Files holds the stored attachment identifiers in upload order. The
// identifiers are opaque to everything except the attachment storage;
// they flow through event payloads unchanged.
type Article struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Files     []string  `json:"files"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy of the article. Snapshots handed to the
// broadcaster must never alias caller-owned slices.
func (a *Article) Clone() *Article {
	if a == nil {
		return nil
	}
	cp := *a
	if a.Files != nil {
		cp.Files = make([]string, len(a.Files))
		copy(cp.Files, a.Files)
	}
	return &cp
}
