// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jllopis/kairos-news/pkg/plugin"
)

// InMemoryConversation implements ConversationMemory with in-memory storage.
// Data is lost on restart.
type InMemoryConversation struct {
	mu       sync.RWMutex
	sessions map[string][]plugin.Message
}

// NewInMemoryConversation creates a new in-memory conversation store.
func NewInMemoryConversation() *InMemoryConversation {
	return &InMemoryConversation{sessions: make(map[string][]plugin.Message)}
}

// AppendMessage adds a message to the conversation.
func (m *InMemoryConversation) AppendMessage(_ context.Context, sessionID string, msg plugin.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionID] = append(m.sessions[sessionID], stampMessage(sessionID, msg))
	return nil
}

// GetRecentMessages retrieves the last N messages for a session.
func (m *InMemoryConversation) GetRecentMessages(_ context.Context, sessionID string, limit int) ([]plugin.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return lastN(m.sessions[sessionID], limit), nil
}

// CountMessages returns the number of messages in a session.
func (m *InMemoryConversation) CountMessages(_ context.Context, sessionID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions[sessionID]), nil
}

// Clear removes all messages for a session.
func (m *InMemoryConversation) Clear(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

// DeleteOldMessages removes messages older than the given duration.
func (m *InMemoryConversation) DeleteOldMessages(_ context.Context, sessionID string, olderThan time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[sessionID]; !ok {
		return nil
	}
	m.sessions[sessionID] = keepNewer(m.sessions[sessionID], olderThan)
	return nil
}

// ListSessions returns all active session IDs.
func (m *InMemoryConversation) ListSessions() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

var _ ConversationMemory = (*InMemoryConversation)(nil)
