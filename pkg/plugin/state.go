// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package plugin

import (
	"math/rand/v2"
	"strings"
	"time"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// DefaultConversationLength is the history window hosts use when they do not
// configure one.
const DefaultConversationLength = 32

// Message is one conversation entry as seen by the units.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	AuthorID  string    `json:"author_id"` // equals State.AgentID for the agent's own messages
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// State is the host-owned view of the conversation passed into every unit
// call. Units read it and never modify it.
type State struct {
	AgentID   string
	AgentName string
	Bio       string
	SessionID string

	// Message is the message being processed.
	Message Message
	// Recent holds the most recent messages, oldest first, Message included.
	Recent []Message
	// MessageCount is the total number of messages stored for the session.
	MessageCount int
	// ConversationLength is the history window configured by the host.
	ConversationLength int
	// KnownFacts are claims already persisted for the session.
	KnownFacts []string

	Now time.Time
	// Rand is an optional random source. Units that need randomness use it
	// when set so hosts and tests can make them deterministic.
	Rand *rand.Rand
}

// Text returns the current message text, or "" for a nil state.
func (s *State) Text() string {
	if s == nil {
		return ""
	}
	return s.Message.Text
}

// Clock returns Now, falling back to the wall clock.
func (s *State) Clock() time.Time {
	if s == nil || s.Now.IsZero() {
		return time.Now()
	}
	return s.Now
}

// Name returns the agent's display name or a neutral default.
func (s *State) Name() string {
	if s == nil || strings.TrimSpace(s.AgentName) == "" {
		return "The agent"
	}
	return s.AgentName
}

// IntN returns a uniform value in [0,n) from Rand, or from the global
// source when Rand is nil. n must be positive.
func (s *State) IntN(n int) int {
	if s != nil && s.Rand != nil {
		return s.Rand.IntN(n)
	}
	return rand.IntN(n)
}
