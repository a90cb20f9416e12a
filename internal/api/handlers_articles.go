// Palinaria - Article Service with Real-Time Update Fanout
// Copyright 2026 Palinaria contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/palinaria/fullstack-app

package api

import (
	"errors"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/palinaria/fullstack-app/internal/event"
	"github.com/palinaria/fullstack-app/internal/files"
	"github.com/palinaria/fullstack-app/internal/logging"
	"github.com/palinaria/fullstack-app/internal/metrics"
	"github.com/palinaria/fullstack-app/internal/store"
	"github.com/palinaria/fullstack-app/internal/validation"
)

// articleRequest is the mutable surface of an article on POST and PUT.
type articleRequest struct {
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"required"`

	uploads []*multipart.FileHeader
}

// ListArticles returns all articles in display order.
func (h *Handler) ListArticles(w http.ResponseWriter, r *http.Request) {
	articles, err := h.store.List(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to list articles", err)
		return
	}
	respondSuccess(w, http.StatusOK, articles)
}

// GetArticle returns a single article by id.
func (h *Handler) GetArticle(w http.ResponseWriter, r *http.Request) {
	id := routeParam(r, "id")

	a, err := h.store.Get(r.Context(), id)
	if errors.Is(err, store.ErrArticleNotFound) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "article not found", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to read article", err)
		return
	}
	respondSuccess(w, http.StatusOK, a)
}

// CreateArticle stores a new article with any uploaded attachments and
// broadcasts article_created once the store has committed.
func (h *Handler) CreateArticle(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseArticleRequest(w, r)
	if !ok {
		return
	}

	ids, ok := h.storeUploads(w, req.uploads)
	if !ok {
		return
	}

	a, err := h.store.Create(r.Context(), store.CreateInput{
		Title:   req.Title,
		Content: req.Content,
		Files:   ids,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to save article", err)
		return
	}

	metrics.StoreMutationsTotal.WithLabelValues("create").Inc()
	h.hub.Broadcast(event.Created(a))
	logging.Info().Str("article_id", a.ID).Msg("article created")
	respondSuccess(w, http.StatusCreated, a)
}

// UpdateArticle replaces an article's title and content and, when new
// attachments were uploaded, its attachment list, then broadcasts
// article_updated.
func (h *Handler) UpdateArticle(w http.ResponseWriter, r *http.Request) {
	id := routeParam(r, "id")

	req, ok := h.parseArticleRequest(w, r)
	if !ok {
		return
	}

	ids, ok := h.storeUploads(w, req.uploads)
	if !ok {
		return
	}

	a, err := h.store.Update(r.Context(), id, store.UpdateInput{
		Title:   req.Title,
		Content: req.Content,
		Files:   ids,
	})
	if errors.Is(err, store.ErrArticleNotFound) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "article not found", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to update article", err)
		return
	}

	metrics.StoreMutationsTotal.WithLabelValues("update").Inc()
	h.hub.Broadcast(event.Updated(a))
	logging.Info().Str("article_id", a.ID).Msg("article updated")
	respondSuccess(w, http.StatusOK, a)
}

// DeleteArticle removes an article and broadcasts article_deleted.
func (h *Handler) DeleteArticle(w http.ResponseWriter, r *http.Request) {
	id := routeParam(r, "id")

	err := h.store.Delete(r.Context(), id)
	if errors.Is(err, store.ErrArticleNotFound) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "article not found", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to delete article", err)
		return
	}

	metrics.StoreMutationsTotal.WithLabelValues("delete").Inc()
	h.hub.Broadcast(event.Deleted(id))
	logging.Info().Str("article_id", id).Msg("article deleted")
	respondSuccess(w, http.StatusOK, map[string]string{"id": id})
}

// parseArticleRequest accepts either a multipart form (the upload path)
// or a JSON body, validates it, and reports false after writing the
// error response.
func (h *Handler) parseArticleRequest(w http.ResponseWriter, r *http.Request) (*articleRequest, bool) {
	req := &articleRequest{}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(h.cfg.Uploads.MaxFileSize); err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "malformed multipart form", err)
			return nil, false
		}
		req.Title = r.FormValue("title")
		req.Content = r.FormValue("content")
		if r.MultipartForm != nil {
			req.uploads = r.MultipartForm.File["files"]
		}
	default:
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "malformed request body", err)
			return nil, false
		}
	}

	if verr := validation.ValidateStruct(req); verr != nil {
		respondAPIError(w, http.StatusBadRequest, verr.ToAPIError())
		return nil, false
	}
	return req, true
}

// storeUploads saves the uploaded attachments and reports false after
// writing the error response.
func (h *Handler) storeUploads(w http.ResponseWriter, headers []*multipart.FileHeader) ([]string, bool) {
	if len(headers) == 0 {
		return nil, true
	}

	ids, err := h.uploads.SaveAll(headers)
	if errors.Is(err, files.ErrUnsupportedType) || errors.Is(err, files.ErrTooLarge) {
		respondError(w, http.StatusBadRequest, "INVALID_ATTACHMENT", err.Error(), nil)
		return nil, false
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to store attachments", err)
		return nil, false
	}
	return ids, true
}
