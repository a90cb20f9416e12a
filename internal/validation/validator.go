// Palinaria - Article Service with Real-Time Update Fanout
// Copyright 2026 Palinaria contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/palinaria/fullstack-app

// Package validation provides struct validation using
// go-playground/validator v10 behind a thread-safe singleton.
//
//	type articleRequest struct {
//	    Title   string `validate:"required,max=200"`
//	    Content string `validate:"required"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    // respond with verr.ToAPIError()
//	}
package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/palinaria/fullstack-app/internal/models"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// getValidator returns the singleton instance. The validator caches
// struct metadata, so sharing one instance is both safe and faster.
func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// FieldError describes a single failed field.
type FieldError struct {
	Field string
	Tag   string
	Param string
}

// Error returns a human-readable message for the field.
func (e FieldError) Error() string {
	switch e.Tag {
	case "required":
		return fmt.Sprintf("%s is required", e.Field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", e.Field, e.Param)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", e.Field, e.Param)
	default:
		return fmt.Sprintf("%s failed %s validation", e.Field, e.Tag)
	}
}

// RequestValidationError aggregates all failed fields of one request.
type RequestValidationError struct {
	Fields []FieldError
}

// Error implements the error interface.
func (ve *RequestValidationError) Error() string {
	msgs := make([]string, len(ve.Fields))
	for i, f := range ve.Fields {
		msgs[i] = f.Error()
	}
	return strings.Join(msgs, "; ")
}

// ToAPIError converts the validation failure to the API error envelope.
func (ve *RequestValidationError) ToAPIError() *models.APIError {
	details := make(map[string]string, len(ve.Fields))
	for _, f := range ve.Fields {
		details[strings.ToLower(f.Field)] = f.Error()
	}
	return &models.APIError{
		Code:    "VALIDATION_ERROR",
		Message: ve.Error(),
		Details: details,
	}
}

// ValidateStruct validates v and returns nil on success.
func ValidateStruct(v interface{}) *RequestValidationError {
	err := getValidator().Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		// Non-field error (e.g. passing a non-struct); treat the whole
		// value as invalid rather than panicking.
		return &RequestValidationError{Fields: []FieldError{{Field: "request", Tag: "invalid"}}}
	}

	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{Field: fe.Field(), Tag: fe.Tag(), Param: fe.Param()})
	}
	return &RequestValidationError{Fields: fields}
}
