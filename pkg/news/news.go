// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package news fetches articles from an upstream news service and reduces
// them to plain reply text.
package news

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Article is a single news item with HTML already stripped.
type Article struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Content     string    `json:"content"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	Author      string    `json:"author,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// Query describes a search against a news source.
type Query struct {
	Term     string
	Language string
	Limit    int
}

// Key returns a stable cache key for the query.
func (q Query) Key() string {
	return fmt.Sprintf("%s|%s|%d", strings.ToLower(strings.TrimSpace(q.Term)), q.Language, q.Limit)
}

// Source searches an upstream news service.
type Source interface {
	Search(ctx context.Context, q Query) ([]Article, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, q Query) ([]Article, error)

// Search implements Source.
func (f SourceFunc) Search(ctx context.Context, q Query) ([]Article, error) {
	return f(ctx, q)
}

const maxContentRunes = 280

// Format renders up to limit articles as a numbered plain-text list.
func Format(articles []Article, limit int) string {
	if limit <= 0 || limit > len(articles) {
		limit = len(articles)
	}
	var b strings.Builder
	for i, a := range articles[:limit] {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "%d. %s", i+1, a.Title)
		var meta []string
		if a.Source != "" {
			meta = append(meta, a.Source)
		}
		if !a.PublishedAt.IsZero() {
			meta = append(meta, a.PublishedAt.UTC().Format("2006-01-02"))
		}
		if len(meta) > 0 {
			fmt.Fprintf(&b, " (%s)", strings.Join(meta, ", "))
		}
		if summary := firstNonEmpty(a.Description, a.Content); summary != "" {
			b.WriteString("\n   ")
			b.WriteString(truncate(summary, maxContentRunes))
		}
		if a.URL != "" {
			b.WriteString("\n   ")
			b.WriteString(a.URL)
		}
	}
	return b.String()
}

// URLs returns the article links in order, skipping empty ones.
func URLs(articles []Article) []string {
	out := make([]string, 0, len(articles))
	for _, a := range articles {
		if a.URL != "" {
			out = append(out, a.URL)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n])) + "…"
}
