// Palinaria - Article Service with Real-Time Update Fanout
// Copyright 2026 Palinaria contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/palinaria/fullstack-app

package models

import "time"

// APIResponse is the standardized response wrapper used by all HTTP
// endpoints. Status is "success" or "error"; Error is populated only
// when Status is "error".
//
// Example error response:
//
//	{
//	  "status": "error",
//	  "error": {"code": "NOT_FOUND", "message": "article not found"},
//	  "metadata": {"timestamp": "2026-08-28T12:00:00Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata for observability.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
}

// APIError carries a machine-readable code and a human-readable message.
type APIError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}
