// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jllopis/kairos-news/pkg/plugin"
)

// ConversationMemory stores ordered conversation history per session. The
// reference host reads it to build the State handed to units.
type ConversationMemory interface {
	// AppendMessage adds a message to the conversation. Missing ID,
	// SessionID and CreatedAt are filled in.
	AppendMessage(ctx context.Context, sessionID string, msg plugin.Message) error

	// GetRecentMessages retrieves the last N messages for a session, oldest
	// first.
	GetRecentMessages(ctx context.Context, sessionID string, limit int) ([]plugin.Message, error)

	// CountMessages returns the number of stored messages for a session.
	CountMessages(ctx context.Context, sessionID string) (int, error)

	// Clear removes all messages for a session.
	Clear(ctx context.Context, sessionID string) error

	// DeleteOldMessages removes messages older than the given duration.
	DeleteOldMessages(ctx context.Context, sessionID string, olderThan time.Duration) error
}

func stampMessage(sessionID string, msg plugin.Message) plugin.Message {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.SessionID == "" {
		msg.SessionID = sessionID
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	return msg
}

func lastN(messages []plugin.Message, limit int) []plugin.Message {
	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	out := make([]plugin.Message, len(messages))
	copy(out, messages)
	return out
}

func keepNewer(messages []plugin.Message, olderThan time.Duration) []plugin.Message {
	cutoff := time.Now().Add(-olderThan)
	var kept []plugin.Message
	for _, msg := range messages {
		if msg.CreatedAt.After(cutoff) {
			kept = append(kept, msg)
		}
	}
	return kept
}
