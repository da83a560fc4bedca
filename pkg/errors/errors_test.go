// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	cause := errors.New("connection reset")
	pe := New(CodeUpstream, "news fetch failed", cause)

	if pe.Code != CodeUpstream {
		t.Errorf("expected CodeUpstream, got %v", pe.Code)
	}
	if pe.Recoverable {
		t.Errorf("expected recoverable to default to false")
	}
	if !errors.Is(pe, cause) {
		t.Errorf("expected errors.Is to reach the cause")
	}
}

func TestError(t *testing.T) {
	tests := []struct {
		name     string
		pe       *PluginError
		expected string
	}{
		{
			name:     "with cause",
			pe:       New(CodeTimeout, "search timed out", errors.New("deadline exceeded")),
			expected: "[TIMEOUT] search timed out: deadline exceeded",
		},
		{
			name:     "without cause",
			pe:       New(CodeDuplicateUnit, "duplicate action", nil),
			expected: "[DUPLICATE_UNIT] duplicate action",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pe.Error(); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestAsPluginError(t *testing.T) {
	if AsPluginError(nil) != nil {
		t.Fatal("expected nil for nil error")
	}

	wrapped := fmt.Errorf("outer: %w", New(CodeRateLimit, "slow down", nil))
	if got := AsPluginError(wrapped); got.Code != CodeRateLimit {
		t.Errorf("expected RATE_LIMITED through wrapping, got %v", got.Code)
	}

	if got := AsPluginError(errors.New("plain")); got.Code != CodeInternal {
		t.Errorf("expected INTERNAL_ERROR for plain errors, got %v", got.Code)
	}
}

func TestHasCodeAndRecoverable(t *testing.T) {
	err := fmt.Errorf("fetch: %w", New(CodeUpstream, "bad gateway", nil).WithRecoverable(true))

	if !HasCode(err, CodeUpstream) {
		t.Error("expected HasCode to match wrapped code")
	}
	if HasCode(err, CodeNotFound) {
		t.Error("expected HasCode to reject other codes")
	}
	if !IsRecoverable(err) {
		t.Error("expected wrapped error to be recoverable")
	}
	if IsRecoverable(errors.New("plain")) {
		t.Error("plain errors are not recoverable")
	}
}

func TestMarshalJSON(t *testing.T) {
	pe := New(CodeLLMError, "extraction failed", errors.New("model offline")).
		WithContext("evaluator", "GET_FACTS").
		WithRecoverable(true)

	data, err := json.Marshal(pe)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if result["code"] != "LLM_ERROR" {
		t.Errorf("expected code LLM_ERROR, got %v", result["code"])
	}
	if result["error"] != "model offline" {
		t.Errorf("expected cause text, got %v", result["error"])
	}
	if result["recoverable"] != true {
		t.Errorf("expected recoverable true")
	}
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		expected int
	}{
		{CodeNotFound, 404},
		{CodeUnauthorized, 401},
		{CodeInvalidInput, 400},
		{CodeDuplicateUnit, 400},
		{CodeTimeout, 408},
		{CodeRateLimit, 429},
		{CodeUpstream, 502},
		{CodeInternal, 500},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := New(tt.code, "test", nil).StatusCode; got != tt.expected {
				t.Errorf("expected status %d, got %d", tt.expected, got)
			}
		})
	}
}
