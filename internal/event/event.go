// Palinaria - Article Service with Real-Time Update Fanout
// Copyright 2026 Palinaria contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/palinaria/fullstack-app

// Package event defines the domain events broadcast to connected
// clients after a mutation has been committed by the article store.
//
// An Event is immutable once constructed. Created and Updated events
// carry a full article snapshot; Deleted events carry only the id.
package event

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/palinaria/fullstack-app/internal/models"
)

// Type identifies the kind of mutation an event describes.
type Type string

// Wire values for the "type" field of a pushed message.
const (
	TypeCreated Type = "article_created"
	TypeUpdated Type = "article_updated"
	TypeDeleted Type = "article_deleted"
)

// Errors returned by Parse.
var (
	ErrUnknownType    = errors.New("unknown event type")
	ErrMissingArticle = errors.New("event is missing article snapshot")
	ErrMissingID      = errors.New("event is missing article id")
	ErrMalformedEvent = errors.New("malformed event payload")
)

// Event is an immutable record of a committed article mutation.
// Article is non-nil for TypeCreated and TypeUpdated; ID is always set.
type Event struct {
	Type    Type
	ID      string
	Article *models.Article
}

// Created builds an event announcing a newly created article.
func Created(a *models.Article) Event {
	return Event{Type: TypeCreated, ID: a.ID, Article: a.Clone()}
}

// Updated builds an event announcing an updated article.
func Updated(a *models.Article) Event {
	return Event{Type: TypeUpdated, ID: a.ID, Article: a.Clone()}
}

// Deleted builds an event announcing a deleted article. Only the id
// survives deletion, so no snapshot is carried.
func Deleted(id string) Event {
	return Event{Type: TypeDeleted, ID: id}
}

// wireMessage is the JSON shape pushed to clients, one object per message.
type wireMessage struct {
	Type    Type            `json:"type"`
	Article *models.Article `json:"article,omitempty"`
	ID      string          `json:"id,omitempty"`
}

// Marshal serializes the event to its wire form. The broadcaster calls
// this exactly once per event; every connection receives the same bytes.
func (e Event) Marshal() ([]byte, error) {
	msg := wireMessage{Type: e.Type}
	switch e.Type {
	case TypeCreated, TypeUpdated:
		if e.Article == nil {
			return nil, ErrMissingArticle
		}
		msg.Article = e.Article
	case TypeDeleted:
		if e.ID == "" {
			return nil, ErrMissingID
		}
		msg.ID = e.ID
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, e.Type)
	}
	return json.Marshal(msg)
}

// Parse decodes a pushed wire message back into an Event. A failure
// here means the message must be discarded; it never tears down the
// connection.
func Parse(data []byte) (Event, error) {
	var msg wireMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	switch msg.Type {
	case TypeCreated, TypeUpdated:
		if msg.Article == nil || msg.Article.ID == "" {
			return Event{}, ErrMissingArticle
		}
		return Event{Type: msg.Type, ID: msg.Article.ID, Article: msg.Article}, nil
	case TypeDeleted:
		if msg.ID == "" {
			return Event{}, ErrMissingID
		}
		return Event{Type: TypeDeleted, ID: msg.ID}, nil
	default:
		return Event{}, fmt.Errorf("%w: %q", ErrUnknownType, msg.Type)
	}
}
