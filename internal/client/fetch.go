// Palinaria - Article Service with Real-Time Update Fanout
// Copyright 2026 Palinaria contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/palinaria/fullstack-app

package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"github.com/palinaria/fullstack-app/internal/models"
)

// Fetcher retrieves authoritative article snapshots over the REST API,
// used to seed the cache on startup and to heal it after a gap in the
// event stream.
type Fetcher struct {
	baseURL string
	client  *http.Client
}

// NewFetcher creates a fetcher against the given HTTP base URL
// (e.g. http://localhost:3000).
func NewFetcher(baseURL string) *Fetcher {
	return &Fetcher{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// listResponse mirrors the list endpoint's envelope.
type listResponse struct {
	Status string           `json:"status"`
	Data   []models.Article `json:"data"`
}

// Articles fetches the full article list in display order.
func (f *Fetcher) Articles(ctx context.Context) ([]models.Article, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/articles", nil)
	if err != nil {
		return nil, fmt.Errorf("building article list request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching article list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("article list request returned %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("reading article list response: %w", err)
	}

	var envelope listResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decoding article list response: %w", err)
	}
	return envelope.Data, nil
}
