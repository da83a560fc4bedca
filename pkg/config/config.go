// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the news plugin configuration from defaults, an
// optional YAML file, an optional profile overlay, the environment and
// command line overrides, in that order.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment overrides
// (NEWSPLUGIN_LLM_PROVIDER -> llm.provider).
const EnvPrefix = "NEWSPLUGIN_"

type Config struct {
	Log       LogConfig       `koanf:"log"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Agent     AgentConfig     `koanf:"agent"`
	LLM       LLMConfig       `koanf:"llm"`
	News      NewsConfig      `koanf:"news"`
	Facts     FactsConfig     `koanf:"facts"`
	Session   SessionConfig   `koanf:"session"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

type TelemetryConfig struct {
	Exporter     string `koanf:"exporter"` // stdout, otlp, none
	OTLPEndpoint string `koanf:"otlp_endpoint"`
	OTLPInsecure bool   `koanf:"otlp_insecure"`
}

// AgentConfig describes the agent persona the reference host plays.
type AgentConfig struct {
	ID   string `koanf:"id"`
	Name string `koanf:"name"`
	Bio  string `koanf:"bio"`
}

type LLMConfig struct {
	Provider string `koanf:"provider"` // openai, anthropic, gemini, qwen, ollama, mock, none
	Model    string `koanf:"model"`
	BaseURL  string `koanf:"base_url"`
	APIKey   string `koanf:"api_key"`
}

type NewsConfig struct {
	Endpoint string        `koanf:"endpoint"`
	APIKey   string        `koanf:"api_key"`
	Language string        `koanf:"language"`
	PageSize int           `koanf:"page_size"`
	Timeout  time.Duration `koanf:"timeout"`
	Retry    RetryConfig   `koanf:"retry"`
	Breaker  BreakerConfig `koanf:"breaker"`
	Cache    CacheConfig   `koanf:"cache"`
}

type RetryConfig struct {
	MaxAttempts  int           `koanf:"max_attempts"`
	InitialDelay time.Duration `koanf:"initial_delay"`
	MaxDelay     time.Duration `koanf:"max_delay"`
}

type BreakerConfig struct {
	FailureThreshold int           `koanf:"failure_threshold"`
	Timeout          time.Duration `koanf:"timeout"`
}

type CacheConfig struct {
	Backend   string        `koanf:"backend"` // memory, redis, none
	TTL       time.Duration `koanf:"ttl"`
	RedisAddr string        `koanf:"redis_addr"`
	Prefix    string        `koanf:"prefix"`
}

type FactsConfig struct {
	Store              string `koanf:"store"` // memory, sqlite, vector
	SQLitePath         string `koanf:"sqlite_path"`
	QdrantAddr         string `koanf:"qdrant_addr"`
	Collection         string `koanf:"collection"`
	EmbedderBaseURL    string `koanf:"embedder_base_url"`
	EmbedderModel      string `koanf:"embedder_model"`
	ConversationLength int    `koanf:"conversation_length"`
	RedactPII          bool   `koanf:"redact_pii"`
}

// SessionConfig selects where the reference host keeps conversation history.
type SessionConfig struct {
	Store string `koanf:"store"` // memory, file
	Dir   string `koanf:"dir"`
}

func defaults(k *koanf.Koanf) {
	k.Set("log.level", "info")
	k.Set("log.format", "text")

	k.Set("telemetry.exporter", "none")
	k.Set("telemetry.otlp_endpoint", "")
	k.Set("telemetry.otlp_insecure", false)

	k.Set("agent.id", "news-agent")
	k.Set("agent.name", "Kairos")
	k.Set("agent.bio", "")

	k.Set("llm.provider", "ollama")
	k.Set("llm.model", "qwen2.5:7b-instruct")
	k.Set("llm.base_url", "http://localhost:11434")
	k.Set("llm.api_key", "")

	k.Set("news.endpoint", "https://newsapi.org/v2/everything")
	k.Set("news.api_key", "")
	k.Set("news.language", "en")
	k.Set("news.page_size", 5)
	k.Set("news.timeout", "10s")
	k.Set("news.retry.max_attempts", 3)
	k.Set("news.retry.initial_delay", "200ms")
	k.Set("news.retry.max_delay", "5s")
	k.Set("news.breaker.failure_threshold", 5)
	k.Set("news.breaker.timeout", "30s")
	k.Set("news.cache.backend", "memory")
	k.Set("news.cache.ttl", "5m")
	k.Set("news.cache.redis_addr", "localhost:6379")
	k.Set("news.cache.prefix", "kairos-news:")

	k.Set("facts.store", "memory")
	k.Set("facts.sqlite_path", "facts.db")
	k.Set("facts.qdrant_addr", "localhost:6334")
	k.Set("facts.collection", "news_facts")
	k.Set("facts.embedder_base_url", "http://localhost:11434")
	k.Set("facts.embedder_model", "nomic-embed-text")
	k.Set("facts.conversation_length", 32)
	k.Set("facts.redact_pii", true)

	k.Set("session.store", "memory")
	k.Set("session.dir", ".newsplugin/sessions")
}

// Load reads defaults, the file at path (if any) and the environment.
func Load(path string) (*Config, error) {
	return LoadWithProfile(path, "")
}

// LoadWithProfile is Load plus a profile overlay: for config.yaml and
// profile "dev" the file config.dev.yaml is merged on top when it exists.
func LoadWithProfile(path, profile string) (*Config, error) {
	return load(path, profile, nil)
}

// LoadWithOverrides is LoadWithProfile plus "key=value" overrides applied
// last, as given on the command line with --set.
func LoadWithOverrides(path, profile string, sets []string) (*Config, error) {
	return load(path, profile, sets)
}

func load(path, profile string, sets []string) (*Config, error) {
	k := koanf.New(".")
	defaults(k)

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
		if p := profileConfigPath(path, profile); p != "" {
			if err := k.Load(file.Provider(p), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load profile %s: %w", p, err)
			}
		}
	}

	known := envKeys(k)
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		name := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		if key, ok := known[name]; ok {
			return key
		}
		return strings.Replace(name, "_", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	for _, set := range sets {
		key, value, ok := strings.Cut(set, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid override %q, expected key=value", set)
		}
		if err := k.Set(key, strings.TrimSpace(value)); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKeys maps the env spelling of every known key to the key itself, so
// NEWSPLUGIN_NEWS_API_KEY resolves to news.api_key rather than news.api.key.
func envKeys(k *koanf.Koanf) map[string]string {
	out := make(map[string]string)
	for _, key := range k.Keys() {
		out[strings.ReplaceAll(key, ".", "_")] = key
	}
	return out
}

// profileConfigPath returns the overlay path for profile next to base, or ""
// when there is no such file.
func profileConfigPath(base, profile string) string {
	if base == "" || profile == "" {
		return ""
	}
	ext := filepath.Ext(base)
	candidate := strings.TrimSuffix(base, ext) + "." + profile + ext
	if _, err := os.Stat(candidate); err != nil {
		return ""
	}
	return candidate
}
