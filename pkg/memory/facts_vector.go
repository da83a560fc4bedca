// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jllopis/kairos-news/pkg/errors"
	"github.com/jllopis/kairos-news/pkg/plugin"
)

// VectorFacts mirrors facts into a vector store so they can be recalled by
// similarity. Listing is served by the primary store, which stays the record
// of truth.
type VectorFacts struct {
	primary    plugin.FactStore
	store      VectorStore
	embedder   Embedder
	collection string
	threshold  float32

	initMu      sync.Mutex
	initialized bool
}

// NewVectorFacts creates a VectorFacts. A nil primary defaults to an
// in-memory store.
func NewVectorFacts(primary plugin.FactStore, store VectorStore, embedder Embedder, collection string) *VectorFacts {
	if primary == nil {
		primary = NewInMemoryFacts()
	}
	if collection == "" {
		collection = "news_facts"
	}
	return &VectorFacts{
		primary:    primary,
		store:      store,
		embedder:   embedder,
		collection: collection,
		threshold:  0.5,
	}
}

// Initialize ensures the collection exists, sizing it from a sample
// embedding. Once it succeeds later calls are no-ops; a failure is retried
// on the next call.
func (v *VectorFacts) Initialize(ctx context.Context) error {
	v.initMu.Lock()
	defer v.initMu.Unlock()
	if v.initialized {
		return nil
	}
	vec, err := v.embedder.Embed(ctx, "hello")
	if err != nil {
		return fmt.Errorf("failed to get embedding dimension: %w", err)
	}
	if err := v.store.CreateCollection(ctx, v.collection, uint64(len(vec))); err != nil {
		return err
	}
	v.initialized = true
	return nil
}

// SaveFacts writes facts to the primary store and then upserts their
// embeddings.
func (v *VectorFacts) SaveFacts(ctx context.Context, facts []plugin.Fact) error {
	if len(facts) == 0 {
		return nil
	}
	stamped := make([]plugin.Fact, len(facts))
	for i, f := range facts {
		stamped[i] = stampFact(f)
	}
	if err := v.primary.SaveFacts(ctx, stamped); err != nil {
		return err
	}
	if err := v.Initialize(ctx); err != nil {
		return errors.New(errors.CodeMemoryError, "vector collection unavailable", err)
	}

	points := make([]Point, 0, len(stamped))
	for _, f := range stamped {
		vec, err := v.embedder.Embed(ctx, f.Claim)
		if err != nil {
			return errors.New(errors.CodeMemoryError, "embed fact", err).WithContext("fact_id", f.ID)
		}
		points = append(points, Point{
			ID:        f.ID,
			Vector:    vec,
			Payload:   f.Fields(),
			Timestamp: f.CreatedAt.Unix(),
		})
	}
	if err := v.store.Upsert(ctx, v.collection, points); err != nil {
		return errors.New(errors.CodeMemoryError, "upsert facts", err)
	}
	return nil
}

// ListFacts delegates to the primary store.
func (v *VectorFacts) ListFacts(ctx context.Context, sessionID string, limit int) ([]plugin.Fact, error) {
	return v.primary.ListFacts(ctx, sessionID, limit)
}

// Recall returns up to limit facts of the session most similar to text.
func (v *VectorFacts) Recall(ctx context.Context, sessionID, text string, limit int) ([]plugin.Fact, error) {
	if text == "" || limit <= 0 {
		return nil, nil
	}
	if err := v.Initialize(ctx); err != nil {
		return nil, errors.New(errors.CodeMemoryError, "vector collection unavailable", err)
	}
	vec, err := v.embedder.Embed(ctx, text)
	if err != nil {
		return nil, errors.New(errors.CodeMemoryError, "embed query", err)
	}
	results, err := v.store.Search(ctx, v.collection, vec, limit, v.threshold, map[string]string{"session_id": sessionID})
	if err != nil {
		return nil, errors.New(errors.CodeMemoryError, "search facts", err)
	}

	facts := make([]plugin.Fact, 0, len(results))
	for _, r := range results {
		facts = append(facts, factFromPayload(r.ID, r.Point.Payload))
	}
	return facts, nil
}

func factFromPayload(id string, payload map[string]any) plugin.Fact {
	f := plugin.Fact{ID: id}
	f.SessionID, _ = payload["session_id"].(string)
	f.Claim, _ = payload["claim"].(string)
	if typ, ok := payload["type"].(string); ok {
		f.Type = plugin.FactType(typ)
	}
	f.InBio, _ = payload["in_bio"].(bool)
	f.AlreadyKnown, _ = payload["already_known"].(bool)
	if created, ok := payload["created_at"].(string); ok {
		f.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	}
	return f
}

var (
	_ plugin.FactStore = (*VectorFacts)(nil)
	_ FactRecaller     = (*VectorFacts)(nil)
)
