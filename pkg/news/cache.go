// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package news

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Cache stores search results for a limited time.
type Cache interface {
	Get(ctx context.Context, key string) ([]Article, bool, error)
	Set(ctx context.Context, key string, articles []Article, ttl time.Duration) error
}

// CachedSource serves repeated queries from a Cache. Cache errors are logged
// and treated as misses; empty results are not cached.
type CachedSource struct {
	next   Source
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedSource wraps next with cache.
func NewCachedSource(next Source, cache Cache, ttl time.Duration, logger *slog.Logger) *CachedSource {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedSource{next: next, cache: cache, ttl: ttl, logger: logger}
}

// Search implements Source.
func (s *CachedSource) Search(ctx context.Context, q Query) ([]Article, error) {
	key := q.Key()
	articles, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.WarnContext(ctx, "news.cache.get_failed", slog.String("key", key), slog.String("error", err.Error()))
	} else if ok {
		return articles, nil
	}

	articles, err = s.next.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(articles) > 0 {
		if err := s.cache.Set(ctx, key, articles, s.ttl); err != nil {
			s.logger.WarnContext(ctx, "news.cache.set_failed", slog.String("key", key), slog.String("error", err.Error()))
		}
	}
	return articles, nil
}

type memoryEntry struct {
	articles  []Article
	expiresAt time.Time
}

// MemoryCache is an in-process Cache.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, key string) ([]Article, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return append([]Article(nil), e.articles...), true, nil
}

// Set implements Cache.
func (c *MemoryCache) Set(_ context.Context, key string, articles []Article, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{
		articles:  append([]Article(nil), articles...),
		expiresAt: c.now().Add(ttl),
	}
	return nil
}
