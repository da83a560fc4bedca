// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package plugin defines the contract between a conversational-agent host and
// the behavior units a plugin contributes to it.
//
// A plugin is a Descriptor holding three ordered collections of units:
//
//   - Actions are validated against each incoming message and, when they
//     apply, produce exactly one reply through a host-supplied Callback.
//   - Evaluators run after a turn completes and return Fact records that the
//     host persists through its FactStore.
//   - Providers return a short text fragment that the host injects into the
//     next model invocation.
//
// Units never call each other and never mutate the State they receive.
package plugin

import (
	"context"
)

// ValidateFunc reports whether a unit applies to the given state. It must be
// pure and must not block.
type ValidateFunc func(ctx context.Context, state *State) bool

// Callback receives an action's reply. Actions call it exactly once per
// handled message.
type Callback func(ctx context.Context, content Content) error

// HandlerFunc performs an action. It may block on I/O and should honor ctx.
type HandlerFunc func(ctx context.Context, state *State, callback Callback) error

// EvaluateFunc extracts facts from a finished turn. It returns an empty slice
// when nothing was found.
type EvaluateFunc func(ctx context.Context, state *State) ([]Fact, error)

// ProviderFunc computes a context fragment. It must not block and must not
// panic; failures resolve to "".
type ProviderFunc func(ctx context.Context, state *State) string

// Example is one advisory (role, message) pair shown to the host planner.
type Example struct {
	Role   string `json:"role" yaml:"role"`
	Text   string `json:"text" yaml:"text"`
	Action string `json:"action,omitempty" yaml:"action,omitempty"`
}

// Action is a unit that may answer an incoming message.
type Action struct {
	Name        string
	Similes     []string
	Description string
	Examples    [][]Example
	Validate    ValidateFunc
	Handle      HandlerFunc
}

// Evaluator is a unit that inspects a finished turn.
type Evaluator struct {
	Name        string
	Similes     []string
	Description string
	// AlwaysRun makes the host skip Validate and run the evaluator every turn.
	AlwaysRun bool
	Examples  [][]Example
	Validate  ValidateFunc
	Handle    EvaluateFunc
}

// Provider is a unit that contributes prompt context.
type Provider struct {
	Name        string
	Description string
	Get         ProviderFunc
}

// Content is the reply an action hands to the callback.
type Content struct {
	Text   string `json:"text"`
	Action string `json:"action,omitempty"`
	// Error flags a degraded reply produced after a failure.
	Error bool `json:"error,omitempty"`
	// Sources lists the URLs the reply was built from.
	Sources []string `json:"sources,omitempty"`
}

// FactStore is the host's persistence boundary for evaluator output.
type FactStore interface {
	SaveFacts(ctx context.Context, facts []Fact) error
	ListFacts(ctx context.Context, sessionID string, limit int) ([]Fact, error)
}
