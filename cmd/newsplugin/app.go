// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/jllopis/kairos-news/pkg/config"
	"github.com/jllopis/kairos-news/pkg/guardrails"
	"github.com/jllopis/kairos-news/pkg/llm"
	"github.com/jllopis/kairos-news/pkg/memory"
	"github.com/jllopis/kairos-news/pkg/memory/ollama"
	"github.com/jllopis/kairos-news/pkg/memory/qdrant"
	"github.com/jllopis/kairos-news/pkg/news"
	"github.com/jllopis/kairos-news/pkg/newsplugin"
	"github.com/jllopis/kairos-news/pkg/plugin"
	"github.com/jllopis/kairos-news/pkg/resilience"
	"github.com/jllopis/kairos-news/pkg/runtime"
	"github.com/jllopis/kairos-news/pkg/telemetry"
)

// app holds the wired host and the resources to release on exit.
type app struct {
	cfg        *config.Config
	runtime    *runtime.LocalRuntime
	descriptor *plugin.Descriptor
	facts      plugin.FactStore
	logger     *slog.Logger
	closers    []func() error
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	model, err := llm.New(llm.Settings{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		BaseURL:  cfg.LLM.BaseURL,
		APIKey:   cfg.LLM.APIKey,
	})
	if err != nil {
		return nil, NewConfigError(err, "")
	}

	source, err := a.newsSource(cfg.News)
	if err != nil {
		a.Close()
		return nil, err
	}

	facts, err := a.factStore(ctx, cfg.Facts)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.facts = facts

	conversation, err := a.conversation(cfg.Session)
	if err != nil {
		a.Close()
		return nil, err
	}

	metrics, err := telemetry.NewUnitMetrics()
	if err != nil {
		logger.Warn("telemetry.metrics.disabled", slog.String("error", err.Error()))
	}

	a.descriptor = newsplugin.New(
		newsplugin.WithSource(source),
		newsplugin.WithLLM(model),
		newsplugin.WithLogger(logger),
		newsplugin.WithArticleLimit(cfg.News.PageSize),
	)
	opts := []runtime.Option{
		runtime.WithAgent(runtime.Agent{ID: cfg.Agent.ID, Name: cfg.Agent.Name, Bio: cfg.Agent.Bio}),
		runtime.WithFactStore(facts),
		runtime.WithConversation(conversation),
		runtime.WithResponder(model),
		runtime.WithMetrics(metrics),
		runtime.WithConversationLength(cfg.Facts.ConversationLength),
		runtime.WithLogger(logger),
	}
	if cfg.Facts.RedactPII {
		opts = append(opts, runtime.WithFactFilter(guardrails.NewPIIFilter(guardrails.WithLogger(logger))))
	}
	a.runtime = runtime.NewLocal(opts...)
	if err := a.runtime.Register(a.descriptor); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) newsSource(cfg config.NewsConfig) (news.Source, error) {
	retry := resilience.DefaultRetryConfig()
	if cfg.Retry.MaxAttempts > 0 {
		retry = retry.WithMaxAttempts(cfg.Retry.MaxAttempts)
	}
	if cfg.Retry.InitialDelay > 0 {
		retry = retry.WithInitialDelay(cfg.Retry.InitialDelay)
	}
	if cfg.Retry.MaxDelay > 0 {
		retry = retry.WithMaxDelay(cfg.Retry.MaxDelay)
	}

	client := news.NewClient(cfg.APIKey,
		news.WithEndpoint(cfg.Endpoint),
		news.WithLanguage(cfg.Language),
		news.WithPageSize(cfg.PageSize),
		news.WithTimeout(cfg.Timeout),
		news.WithRetry(retry),
		news.WithBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name:             "newsapi",
			FailureThreshold: cfg.Breaker.FailureThreshold,
			Timeout:          cfg.Breaker.Timeout,
		})),
		news.WithLogger(a.logger),
	)
	if cfg.APIKey == "" {
		a.logger.Warn("news.api_key.missing", slog.String("endpoint", cfg.Endpoint))
	}

	switch strings.ToLower(cfg.Cache.Backend) {
	case "", "none":
		return client, nil
	case "memory":
		return news.NewCachedSource(client, news.NewMemoryCache(), cfg.Cache.TTL, a.logger), nil
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Cache.RedisAddr})
		a.closers = append(a.closers, rdb.Close)
		return news.NewCachedSource(client, news.NewRedisCache(rdb, cfg.Cache.Prefix), cfg.Cache.TTL, a.logger), nil
	default:
		return nil, NewConfigError(fmt.Errorf("unknown news cache backend %q", cfg.Cache.Backend), "")
	}
}

func (a *app) factStore(ctx context.Context, cfg config.FactsConfig) (plugin.FactStore, error) {
	switch strings.ToLower(cfg.Store) {
	case "", "memory":
		return memory.NewInMemoryFacts(), nil
	case "sqlite":
		s, err := a.openSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "vector":
		var primary plugin.FactStore
		if cfg.SQLitePath != "" {
			s, err := a.openSQLite(cfg.SQLitePath)
			if err != nil {
				return nil, err
			}
			primary = s
		}
		store, err := qdrant.New(cfg.QdrantAddr)
		if err != nil {
			return nil, NewBackendError(err, "qdrant", cfg.QdrantAddr)
		}
		a.closers = append(a.closers, store.Close)

		facts := memory.NewVectorFacts(primary, store, ollama.NewEmbedder(cfg.EmbedderBaseURL, cfg.EmbedderModel), cfg.Collection)
		if err := facts.Initialize(ctx); err != nil {
			return nil, NewBackendError(err, "qdrant", cfg.QdrantAddr)
		}
		return facts, nil
	default:
		return nil, NewConfigError(fmt.Errorf("unknown facts store %q", cfg.Store), "")
	}
}

func (a *app) openSQLite(path string) (*memory.SQLiteFacts, error) {
	s, err := memory.OpenSQLiteFacts(path)
	if err != nil {
		return nil, NewBackendError(err, "sqlite", path)
	}
	a.closers = append(a.closers, s.Close)
	return s, nil
}

func (a *app) conversation(cfg config.SessionConfig) (memory.ConversationMemory, error) {
	switch strings.ToLower(cfg.Store) {
	case "", "memory":
		return memory.NewInMemoryConversation(), nil
	case "file":
		c, err := memory.NewFileConversation(cfg.Dir)
		if err != nil {
			return nil, NewBackendError(err, "session directory", cfg.Dir)
		}
		return c, nil
	default:
		return nil, NewConfigError(fmt.Errorf("unknown session store %q", cfg.Store), "")
	}
}

// Close releases backends in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("app.close.error", slog.String("error", err.Error()))
		}
	}
	a.closers = nil
}
