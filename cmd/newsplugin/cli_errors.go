// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jllopis/kairos-news/pkg/errors"
)

// CLIError wraps PluginError with CLI-specific formatting and hints.
type CLIError struct {
	*errors.PluginError
	Hint string
}

// NewCLIError creates a new CLI error.
func NewCLIError(pe *errors.PluginError, hint string) *CLIError {
	return &CLIError{PluginError: pe, Hint: hint}
}

// Error returns the formatted error message with hints.
func (e *CLIError) Error() string {
	if e.PluginError == nil {
		return "unknown error"
	}
	msg := e.PluginError.Error()
	if e.Hint != "" {
		msg += "\n  Hint: " + e.Hint
	}
	return msg
}

// Unwrap exposes the PluginError to errors.As.
func (e *CLIError) Unwrap() error {
	if e.PluginError == nil {
		return nil
	}
	return e.PluginError
}

// PrintError prints the error with appropriate formatting.
func (e *CLIError) PrintError(asJSON bool) {
	if asJSON {
		payload := map[string]any{"error": map[string]string{
			"code":    string(e.Code),
			"message": e.Message,
			"hint":    e.Hint,
		}}
		_ = json.NewEncoder(os.Stderr).Encode(payload)
		return
	}

	fmt.Fprintf(os.Stderr, "Error [%s]: %s\n", FormatErrorCode(e.Code), e.Message)
	if e.Err != nil {
		fmt.Fprintf(os.Stderr, "  Cause: %v\n", e.Err)
	}
	if e.Hint != "" {
		fmt.Fprintf(os.Stderr, "  Hint: %s\n", e.Hint)
	}
}

// NewInvalidArgumentError creates an invalid argument error with CLI hints.
func NewInvalidArgumentError(arg, reason string) *CLIError {
	pe := errors.New(errors.CodeInvalidInput, fmt.Sprintf("invalid argument: %s", reason), nil).
		WithContext("argument", arg)
	return NewCLIError(pe, "run 'newsplugin help' for usage information")
}

// NewConfigError creates a configuration error with CLI hints.
func NewConfigError(err error, configPath string) *CLIError {
	pe := errors.New(errors.CodeInvalidInput, "configuration error", err).
		WithContext("config_path", configPath)

	hint := "check your configuration values and NEWSPLUGIN_* environment variables"
	if configPath != "" {
		hint = fmt.Sprintf("check %s for syntax errors", configPath)
	}
	return NewCLIError(pe, hint)
}

// NewBackendError wraps a failure to reach a configured backend.
func NewBackendError(err error, backend, addr string) *CLIError {
	pe := errors.New(errors.CodeUpstream, backend+" unavailable", err).
		WithContext("backend", backend).
		WithContext("address", addr).
		WithRecoverable(true)
	return NewCLIError(pe, fmt.Sprintf("check that %s is reachable at %s or pick another backend with --set", backend, addr))
}

// PrintSimpleError prints errors that carry no hint.
func PrintSimpleError(err error, asJSON bool) {
	if asJSON {
		code := "UNKNOWN"
		if pe := errors.AsPluginError(err); pe != nil {
			code = string(pe.Code)
		}
		_ = json.NewEncoder(os.Stderr).Encode(map[string]any{"error": map[string]string{
			"code":    code,
			"message": err.Error(),
		}})
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %s\n", err.Error())
}

// FormatErrorCode returns a user-friendly name for error codes.
func FormatErrorCode(code errors.ErrorCode) string {
	switch code {
	case errors.CodeInternal:
		return "Internal Error"
	case errors.CodeInvalidInput:
		return "Invalid Input"
	case errors.CodeNotFound:
		return "Not Found"
	case errors.CodeUnauthorized:
		return "Unauthorized"
	case errors.CodeTimeout:
		return "Timeout"
	case errors.CodeRateLimit:
		return "Rate Limited"
	case errors.CodeUpstream:
		return "Upstream Error"
	case errors.CodeLLMError:
		return "LLM Error"
	case errors.CodeMemoryError:
		return "Memory Error"
	case errors.CodeDuplicateUnit:
		return "Duplicate Unit"
	case errors.CodeContextLost:
		return "Context Lost"
	default:
		return string(code)
	}
}
