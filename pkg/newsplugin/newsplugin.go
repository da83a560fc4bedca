// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package newsplugin assembles the news plugin descriptor.
package newsplugin

import (
	"log/slog"

	"github.com/jllopis/kairos-news/pkg/actions"
	"github.com/jllopis/kairos-news/pkg/evaluators"
	"github.com/jllopis/kairos-news/pkg/llm"
	"github.com/jllopis/kairos-news/pkg/news"
	"github.com/jllopis/kairos-news/pkg/plugin"
	"github.com/jllopis/kairos-news/pkg/providers"
)

const (
	Name        = "news"
	Description = "Gets the current news"
)

type options struct {
	source news.Source
	model  llm.Provider
	logger *slog.Logger
	limit  int
}

// Option configures the descriptor.
type Option func(*options)

// WithSource sets the news source used by CURRENT_NEWS.
func WithSource(s news.Source) Option {
	return func(o *options) { o.source = s }
}

// WithLLM sets the model used for search term and claim extraction.
func WithLLM(p llm.Provider) Option {
	return func(o *options) { o.model = p }
}

// WithLogger sets the logger handed to the units.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithArticleLimit sets how many articles a news reply lists.
func WithArticleLimit(n int) Option {
	return func(o *options) { o.limit = n }
}

// New returns a fresh descriptor. It performs no I/O, so hosts can inspect
// the result before activating anything. Without WithSource the action
// answers every request with its fallback reply.
func New(opts ...Option) *plugin.Descriptor {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	return &plugin.Descriptor{
		Name:        Name,
		Description: Description,
		Actions: []plugin.Action{
			actions.CurrentNews(o.source,
				actions.WithLLM(o.model),
				actions.WithLogger(o.logger),
				actions.WithLimit(o.limit),
			),
		},
		Evaluators: []plugin.Evaluator{
			evaluators.Facts(o.model, evaluators.WithLogger(o.logger)),
		},
		Providers: []plugin.Provider{
			providers.Boredom(),
			providers.Emotion(),
		},
	}
}
