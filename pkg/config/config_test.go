// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.LLM.Provider != "ollama" {
		t.Errorf("expected default provider ollama, got %s", cfg.LLM.Provider)
	}
	if cfg.News.PageSize != 5 || cfg.News.Language != "en" {
		t.Errorf("unexpected news defaults: %+v", cfg.News)
	}
	if cfg.News.Timeout != 10*time.Second {
		t.Errorf("expected 10s timeout, got %s", cfg.News.Timeout)
	}
	if cfg.News.Retry.InitialDelay != 200*time.Millisecond {
		t.Errorf("expected 200ms initial delay, got %s", cfg.News.Retry.InitialDelay)
	}
	if cfg.Facts.ConversationLength != 32 || cfg.Facts.Store != "memory" {
		t.Errorf("unexpected facts defaults: %+v", cfg.Facts)
	}
	if cfg.Telemetry.Exporter != "none" {
		t.Errorf("expected telemetry off by default, got %s", cfg.Telemetry.Exporter)
	}
	if cfg.Session.Store != "memory" || cfg.Session.Dir == "" {
		t.Errorf("unexpected session defaults: %+v", cfg.Session)
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("NEWSPLUGIN_LLM_PROVIDER", "openai")
	t.Setenv("NEWSPLUGIN_NEWS_API_KEY", "secret")
	t.Setenv("NEWSPLUGIN_NEWS_CACHE_TTL", "1m")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.LLM.Provider != "openai" {
		t.Errorf("expected provider openai from env, got %s", cfg.LLM.Provider)
	}
	if cfg.News.APIKey != "secret" {
		t.Errorf("expected api key from env, got %q", cfg.News.APIKey)
	}
	if cfg.News.Cache.TTL != time.Minute {
		t.Errorf("expected cache ttl 1m, got %s", cfg.News.Cache.TTL)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadWithProfile(t *testing.T) {
	tmpDir := t.TempDir()
	basePath := filepath.Join(tmpDir, "config.yaml")
	writeFile(t, basePath, `
llm:
  provider: "ollama"
  model: "llama3.1"
log:
  level: "info"
agent:
  name: "Ada"
`)
	writeFile(t, filepath.Join(tmpDir, "config.dev.yaml"), `
llm:
  provider: "mock"
log:
  level: "debug"
`)

	tests := []struct {
		name         string
		profile      string
		wantProvider string
		wantLogLevel string
	}{
		{name: "no profile", profile: "", wantProvider: "ollama", wantLogLevel: "info"},
		{name: "dev profile", profile: "dev", wantProvider: "mock", wantLogLevel: "debug"},
		{name: "missing profile falls back to base", profile: "staging", wantProvider: "ollama", wantLogLevel: "info"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := LoadWithProfile(basePath, tc.profile)
			if err != nil {
				t.Fatalf("LoadWithProfile failed: %v", err)
			}
			if cfg.LLM.Provider != tc.wantProvider {
				t.Errorf("provider: got %s, want %s", cfg.LLM.Provider, tc.wantProvider)
			}
			if cfg.Log.Level != tc.wantLogLevel {
				t.Errorf("log level: got %s, want %s", cfg.Log.Level, tc.wantLogLevel)
			}
			if cfg.LLM.Model != "llama3.1" || cfg.Agent.Name != "Ada" {
				t.Errorf("base values should be inherited: %+v %+v", cfg.LLM, cfg.Agent)
			}
		})
	}
}

func TestLoadWithOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	writeFile(t, path, "news:\n  page_size: 3\n")
	t.Setenv("NEWSPLUGIN_FACTS_STORE", "sqlite")

	cfg, err := LoadWithOverrides(path, "", []string{
		"news.page_size=7",
		"facts.store = vector",
		"telemetry.otlp_insecure=true",
	})
	if err != nil {
		t.Fatalf("LoadWithOverrides failed: %v", err)
	}
	if cfg.News.PageSize != 7 {
		t.Errorf("expected override to win over file, got %d", cfg.News.PageSize)
	}
	if cfg.Facts.Store != "vector" {
		t.Errorf("expected override to win over env, got %s", cfg.Facts.Store)
	}
	if !cfg.Telemetry.OTLPInsecure {
		t.Error("expected bool override to be parsed")
	}

	if _, err := LoadWithOverrides("", "", []string{"no-equals"}); err == nil {
		t.Fatal("expected error for malformed override")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestProfileConfigPath(t *testing.T) {
	tmpDir := t.TempDir()
	devPath := filepath.Join(tmpDir, "config.dev.yaml")
	writeFile(t, devPath, "log:\n  level: debug\n")
	basePath := filepath.Join(tmpDir, "config.yaml")

	tests := []struct {
		name     string
		base     string
		profile  string
		wantPath string
	}{
		{name: "existing profile", base: basePath, profile: "dev", wantPath: devPath},
		{name: "nonexistent profile", base: basePath, profile: "prod", wantPath: ""},
		{name: "empty profile", base: basePath, profile: "", wantPath: ""},
		{name: "empty base", base: "", profile: "dev", wantPath: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := profileConfigPath(tc.base, tc.profile); got != tc.wantPath {
				t.Errorf("profileConfigPath(%q, %q) = %q, want %q", tc.base, tc.profile, got, tc.wantPath)
			}
		})
	}
}
