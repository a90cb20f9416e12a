// Palinaria - Article Service with Real-Time Update Fanout
// Copyright 2026 Palinaria contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/palinaria/fullstack-app

package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type articleRequest struct {
	Title   string `validate:"required,max=200"`
	Content string `validate:"required"`
}

func TestValidateStructPasses(t *testing.T) {
	assert.Nil(t, ValidateStruct(&articleRequest{Title: "A", Content: "x"}))
}

func TestValidateStructReportsAllFields(t *testing.T) {
	verr := ValidateStruct(&articleRequest{})
	require.NotNil(t, verr)
	assert.Len(t, verr.Fields, 2)
	assert.Contains(t, verr.Error(), "Title is required")
	assert.Contains(t, verr.Error(), "Content is required")
}

func TestToAPIError(t *testing.T) {
	verr := ValidateStruct(&articleRequest{Content: "x"})
	require.NotNil(t, verr)

	apiErr := verr.ToAPIError()
	assert.Equal(t, "VALIDATION_ERROR", apiErr.Code)
	assert.Contains(t, apiErr.Details, "title")
}
