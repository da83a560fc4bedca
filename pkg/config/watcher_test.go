// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "log:\n  level: info\n")

	w, err := NewWatcher(path, "", WithWatchInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	if w.Config().Log.Level != "info" {
		t.Fatalf("unexpected initial level %s", w.Config().Log.Level)
	}

	changed := make(chan *Config, 1)
	w.OnChange(func(cfg *Config) {
		select {
		case changed <- cfg:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	defer w.Stop()

	writeFile(t, path, "log:\n  level: debug\n")
	future := time.Now().Add(time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	select {
	case cfg := <-changed:
		if cfg.Log.Level != "debug" {
			t.Fatalf("expected reloaded level debug, got %s", cfg.Log.Level)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
	if w.Config().Log.Level != "debug" {
		t.Fatalf("Config() should return the reloaded value")
	}
}

func TestWatcherKeepsOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "news:\n  page_size: 2\n")

	w, err := NewWatcher(path, "", WithWatchOverrides([]string{"news.page_size=9"}))
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	w.reload()
	if w.Config().News.PageSize != 9 {
		t.Fatalf("expected override after reload, got %d", w.Config().News.PageSize)
	}
}

func TestNewWatcherInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "log: [unterminated\n")
	if _, err := NewWatcher(path, ""); err == nil {
		t.Fatal("expected error for invalid yaml")
	}
}
