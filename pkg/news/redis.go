// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package news

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is a Cache shared across plugin instances.
type RedisCache struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisCache wraps an existing client. Keys are namespaced with prefix.
func NewRedisCache(rdb *redis.Client, prefix string) *RedisCache {
	if prefix == "" {
		prefix = "kairos-news:"
	}
	return &RedisCache{rdb: rdb, prefix: prefix}
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, key string) ([]Article, bool, error) {
	raw, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var articles []Article
	if err := json.Unmarshal(raw, &articles); err != nil {
		return nil, false, fmt.Errorf("decode cached articles: %w", err)
	}
	return articles, true, nil
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, key string, articles []Article, ttl time.Duration) error {
	raw, err := json.Marshal(articles)
	if err != nil {
		return fmt.Errorf("encode articles: %w", err)
	}
	if err := c.rdb.Set(ctx, c.prefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
