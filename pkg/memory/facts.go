// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package memory provides the host-side persistence used by the reference
// runtime: fact stores behind plugin.FactStore and conversation history.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jllopis/kairos-news/pkg/plugin"
)

// FactRecaller is implemented by stores that can return facts related to a
// piece of text rather than only the latest ones.
type FactRecaller interface {
	Recall(ctx context.Context, sessionID, text string, limit int) ([]plugin.Fact, error)
}

// InMemoryFacts is an in-process fact store. Data is lost on restart.
type InMemoryFacts struct {
	mu       sync.RWMutex
	sessions map[string][]plugin.Fact
}

// NewInMemoryFacts creates an empty in-memory fact store.
func NewInMemoryFacts() *InMemoryFacts {
	return &InMemoryFacts{sessions: make(map[string][]plugin.Fact)}
}

// SaveFacts appends facts to their sessions. Facts whose ID is already stored
// are skipped.
func (m *InMemoryFacts) SaveFacts(_ context.Context, facts []plugin.Fact) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, f := range facts {
		f = stampFact(f)
		if m.has(f.SessionID, f.ID) {
			continue
		}
		m.sessions[f.SessionID] = append(m.sessions[f.SessionID], f)
	}
	return nil
}

func (m *InMemoryFacts) has(sessionID, id string) bool {
	for _, f := range m.sessions[sessionID] {
		if f.ID == id {
			return true
		}
	}
	return false
}

// ListFacts returns the last limit facts of a session, oldest first. A
// non-positive limit returns them all.
func (m *InMemoryFacts) ListFacts(_ context.Context, sessionID string, limit int) ([]plugin.Fact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.sessions[sessionID]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	out := make([]plugin.Fact, len(all))
	copy(out, all)
	return out, nil
}

func stampFact(f plugin.Fact) plugin.Fact {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	if f.Type == "" {
		f.Type = plugin.FactTypeFact
	}
	return f
}

var _ plugin.FactStore = (*InMemoryFacts)(nil)
