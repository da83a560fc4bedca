// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package errors provides typed errors shared by the news plugin units and
// the clients they depend on.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrorCode classifies plugin errors for logging and recovery decisions.
type ErrorCode string

const (
	// CodeInternal indicates an internal error.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeInvalidInput indicates the input was invalid.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeTimeout indicates an operation exceeded its time limit.
	CodeTimeout ErrorCode = "TIMEOUT"

	// CodeRateLimit indicates the upstream throttled the request.
	CodeRateLimit ErrorCode = "RATE_LIMITED"

	// CodeNotFound indicates a resource was not found.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeUnauthorized indicates the upstream rejected the credentials.
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// CodeUpstream indicates the news source failed.
	CodeUpstream ErrorCode = "UPSTREAM_ERROR"

	// CodeLLMError indicates a model provider error.
	CodeLLMError ErrorCode = "LLM_ERROR"

	// CodeMemoryError indicates a fact store error.
	CodeMemoryError ErrorCode = "MEMORY_ERROR"

	// CodeDuplicateUnit indicates two units share a name inside one category.
	CodeDuplicateUnit ErrorCode = "DUPLICATE_UNIT"

	// CodeContextLost indicates the caller's context ended mid-operation.
	CodeContextLost ErrorCode = "CONTEXT_LOST"
)

// PluginError is a typed error carrying a code and structured context.
// It can be unwrapped with errors.As.
type PluginError struct {
	Code        ErrorCode
	Message     string
	Err         error
	Context     map[string]any
	Recoverable bool
	StatusCode  int
}

// Error implements the error interface.
func (e *PluginError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the cause.
func (e *PluginError) Unwrap() error {
	return e.Err
}

// MarshalJSON renders the error for structured logs.
func (e *PluginError) MarshalJSON() ([]byte, error) {
	var cause string
	if e.Err != nil {
		cause = e.Err.Error()
	}
	return json.Marshal(struct {
		Code        string         `json:"code"`
		Message     string         `json:"message"`
		Err         string         `json:"error,omitempty"`
		Context     map[string]any `json:"context,omitempty"`
		Recoverable bool           `json:"recoverable"`
		StatusCode  int            `json:"status_code"`
	}{
		Code:        string(e.Code),
		Message:     e.Message,
		Err:         cause,
		Context:     e.Context,
		Recoverable: e.Recoverable,
		StatusCode:  e.StatusCode,
	})
}

// New creates a PluginError with the given code, message and cause.
func New(code ErrorCode, msg string, cause error) *PluginError {
	return &PluginError{
		Code:       code,
		Message:    msg,
		Err:        cause,
		Context:    make(map[string]any),
		StatusCode: codeToStatusCode(code),
	}
}

// WithContext adds a key-value pair to the error context.
func (e *PluginError) WithContext(key string, value any) *PluginError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WithRecoverable marks whether a retry may succeed.
func (e *PluginError) WithRecoverable(recoverable bool) *PluginError {
	e.Recoverable = recoverable
	return e
}

// AsPluginError returns err as a PluginError, wrapping unknown errors as
// CodeInternal. It returns nil for a nil error.
func AsPluginError(err error) *PluginError {
	if err == nil {
		return nil
	}
	var pe *PluginError
	if errors.As(err, &pe) {
		return pe
	}
	return New(CodeInternal, "wrapped error", err)
}

// HasCode reports whether err, or any error it wraps, is a PluginError with code.
func HasCode(err error, code ErrorCode) bool {
	var pe *PluginError
	if !errors.As(err, &pe) {
		return false
	}
	return pe.Code == code
}

// IsRecoverable reports whether err is a PluginError flagged recoverable.
func IsRecoverable(err error) bool {
	var pe *PluginError
	if !errors.As(err, &pe) {
		return false
	}
	return pe.Recoverable
}

func codeToStatusCode(code ErrorCode) int {
	switch code {
	case CodeNotFound:
		return 404
	case CodeUnauthorized:
		return 401
	case CodeInvalidInput, CodeDuplicateUnit:
		return 400
	case CodeTimeout:
		return 408
	case CodeRateLimit:
		return 429
	case CodeUpstream:
		return 502
	default:
		return 500
	}
}
