// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/jllopis/kairos-news/pkg/plugin"
)

// FileConversation implements ConversationMemory with one JSON file per
// session. The CLI uses it so a session survives across invocations.
type FileConversation struct {
	mu      sync.RWMutex
	baseDir string
}

// NewFileConversation creates a new file-based conversation store.
func NewFileConversation(baseDir string) (*FileConversation, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create conversation directory: %w", err)
	}
	return &FileConversation{baseDir: baseDir}, nil
}

func (f *FileConversation) sessionFile(sessionID string) string {
	// filepath.Base keeps session IDs from escaping baseDir.
	return filepath.Join(f.baseDir, filepath.Base(sessionID)+".json")
}

// AppendMessage adds a message to the conversation.
func (f *FileConversation) AppendMessage(_ context.Context, sessionID string, msg plugin.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	messages, err := f.loadMessages(sessionID)
	if err != nil {
		return fmt.Errorf("failed to load messages: %w", err)
	}
	return f.saveMessages(sessionID, append(messages, stampMessage(sessionID, msg)))
}

// GetRecentMessages retrieves the last N messages for a session.
func (f *FileConversation) GetRecentMessages(_ context.Context, sessionID string, limit int) ([]plugin.Message, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	messages, err := f.loadMessages(sessionID)
	if err != nil {
		return nil, err
	}
	return lastN(messages, limit), nil
}

// CountMessages returns the number of messages in a session.
func (f *FileConversation) CountMessages(_ context.Context, sessionID string) (int, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	messages, err := f.loadMessages(sessionID)
	if err != nil {
		return 0, err
	}
	return len(messages), nil
}

// Clear removes all messages for a session.
func (f *FileConversation) Clear(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := os.Remove(f.sessionFile(sessionID))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// DeleteOldMessages removes messages older than the given duration.
func (f *FileConversation) DeleteOldMessages(_ context.Context, sessionID string, olderThan time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	messages, err := f.loadMessages(sessionID)
	if err != nil || messages == nil {
		return err
	}
	kept := keepNewer(messages, olderThan)
	if len(kept) == 0 {
		return os.Remove(f.sessionFile(sessionID))
	}
	return f.saveMessages(sessionID, kept)
}

// loadMessages returns nil without error for an unknown session.
func (f *FileConversation) loadMessages(sessionID string) ([]plugin.Message, error) {
	data, err := os.ReadFile(f.sessionFile(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var messages []plugin.Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("failed to parse conversation file: %w", err)
	}
	return messages, nil
}

func (f *FileConversation) saveMessages(sessionID string, messages []plugin.Message) error {
	data, err := json.MarshalIndent(messages, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal messages: %w", err)
	}
	return os.WriteFile(f.sessionFile(sessionID), data, 0o644)
}

// ListSessions returns all session IDs with stored conversations.
func (f *FileConversation) ListSessions() ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	entries, err := os.ReadDir(f.baseDir)
	if err != nil {
		return nil, err
	}

	var sessions []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" {
			continue
		}
		sessions = append(sessions, name[:len(name)-len(".json")])
	}
	sort.Strings(sessions)
	return sessions, nil
}

var _ ConversationMemory = (*FileConversation)(nil)
