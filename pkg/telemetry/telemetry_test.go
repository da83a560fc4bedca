// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInit(t *testing.T) {
	shutdown, err := Init("kairos-news-test", "v0.0.1")
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if shutdown == nil {
		t.Fatal("Shutdown function should not be nil")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

func TestInitWithConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "none", cfg: Config{Exporter: "none"}},
		{name: "stdout", cfg: Config{Exporter: "stdout", MetricInterval: time.Hour}},
		{name: "otlp without endpoint", cfg: Config{Exporter: "otlp"}, wantErr: true},
		{name: "unknown", cfg: Config{Exporter: "zipkin"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shutdown, err := InitWithConfig("kairos-news-test", "v0.0.1", tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if err := shutdown(context.Background()); err != nil {
				t.Errorf("Shutdown failed: %v", err)
			}
		})
	}
}

func TestTraceHandlerAddsSpanIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newSlogHandler(&buf, "debug", "json"))

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	logger.InfoContext(ctx, "unit.run")
	span.End()

	out := buf.String()
	if !strings.Contains(out, `"trace_id"`) || !strings.Contains(out, `"span_id"`) {
		t.Fatalf("expected trace ids in log line, got %s", out)
	}

	buf.Reset()
	logger.InfoContext(context.Background(), "no.span")
	if strings.Contains(buf.String(), "trace_id") {
		t.Fatalf("unexpected trace id without span: %s", buf.String())
	}
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARNING": slog.LevelWarn,
		" error ": slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestUnitMetricsNilSafe(t *testing.T) {
	var m *UnitMetrics
	ctx := context.Background()
	m.ActionInvoked(ctx, "CURRENT_NEWS", true)
	m.FactsExtracted(ctx, "GET_FACTS", 2)
	m.ProviderFailed(ctx, "BOREDOM")

	m, err := NewUnitMetrics()
	if err != nil {
		t.Fatalf("NewUnitMetrics failed: %v", err)
	}
	m.ActionInvoked(ctx, "CURRENT_NEWS", false)
	m.FactsExtracted(ctx, "GET_FACTS", 0)
}

func TestUnitAttributes(t *testing.T) {
	attrs := UnitAttributes("news", KindProvider, "EMOTION", "")
	if len(attrs) != 3 {
		t.Fatalf("expected 3 attributes without session, got %d", len(attrs))
	}
	attrs = UnitAttributes("news", KindAction, "CURRENT_NEWS", "s1")
	if len(attrs) != 4 || string(attrs[3].Key) != AttrSessionID {
		t.Fatalf("unexpected attributes: %v", attrs)
	}
}

func TestSetLogLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newSlogHandler(&buf, "info", "text"))
	defer SetLogLevel("info")

	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug should be filtered at info level")
	}
	SetLogLevel("debug")
	logger.Debug("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("expected debug line after level change, got %q", buf.String())
	}
}
