// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package actions

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jllopis/kairos-news/pkg/errors"
	"github.com/jllopis/kairos-news/pkg/llm"
	"github.com/jllopis/kairos-news/pkg/news"
	"github.com/jllopis/kairos-news/pkg/plugin"
	"github.com/jllopis/kairos-news/pkg/resilience"
)

func stateFor(text string) *plugin.State {
	return &plugin.State{AgentName: "Kairos", Message: plugin.Message{Role: plugin.RoleUser, Text: text}}
}

type recorder struct {
	calls []plugin.Content
	err   error
}

func (r *recorder) callback(_ context.Context, c plugin.Content) error {
	r.calls = append(r.calls, c)
	return r.err
}

func staticSource(articles []news.Article, err error, seen *news.Query) news.Source {
	return news.SourceFunc(func(_ context.Context, q news.Query) ([]news.Article, error) {
		if seen != nil {
			*seen = q
		}
		return articles, err
	})
}

func TestValidate(t *testing.T) {
	action := CurrentNews(nil)
	tests := []struct {
		text string
		want bool
	}{
		{"what's the news today?", true},
		{"Any NEWS about Go?", true},
		{"show me the headlines", true},
		{"top headline please", true},
		{"hello there", false},
		{"Newsom signed the bill", false},
		{"my subscription renews tomorrow", false},
		{"sign me up for the newsletter", false},
		{"bitcoin news!", true},
		{"", false},
	}
	for _, tt := range tests {
		if got := action.Validate(context.Background(), stateFor(tt.text)); got != tt.want {
			t.Errorf("Validate(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
	if action.Validate(context.Background(), nil) {
		t.Error("nil state must not validate")
	}
}

func TestHandleSuccess(t *testing.T) {
	var seen news.Query
	articles := []news.Article{
		{Title: "BTC up", Source: "Wire", URL: "https://a"},
		{Title: "BTC down", URL: "https://b"},
	}
	action := CurrentNews(staticSource(articles, nil, &seen))

	rec := &recorder{}
	if err := action.Handle(context.Background(), stateFor("latest news about bitcoin?"), rec.callback); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if len(rec.calls) != 1 {
		t.Fatalf("expected exactly one callback, got %d", len(rec.calls))
	}
	got := rec.calls[0]
	if !strings.HasPrefix(got.Text, `The current news for the search term "bitcoin" is:`) {
		t.Errorf("unexpected reply %q", got.Text)
	}
	if !strings.Contains(got.Text, "1. BTC up") || got.Error || got.Action != CurrentNewsName {
		t.Errorf("unexpected content %+v", got)
	}
	if len(got.Sources) != 2 {
		t.Errorf("expected sources, got %v", got.Sources)
	}
	if seen.Term != "bitcoin" || seen.Limit != DefaultLimit {
		t.Errorf("unexpected query %+v", seen)
	}
}

func TestHandleLimitsArticles(t *testing.T) {
	articles := make([]news.Article, 8)
	for i := range articles {
		articles[i] = news.Article{Title: "t", URL: "https://x"}
	}
	action := CurrentNews(staticSource(articles, nil, nil), WithLimit(3))
	rec := &recorder{}
	_ = action.Handle(context.Background(), stateFor("news"), rec.callback)
	if len(rec.calls[0].Sources) != 3 || strings.Contains(rec.calls[0].Text, "4. ") {
		t.Fatalf("expected 3 articles, got %+v", rec.calls[0])
	}
}

func TestHandleFetchFailureFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	server.Close()

	client := news.NewClient("k",
		news.WithEndpoint(server.URL),
		news.WithRetry(resilience.DefaultRetryConfig().WithMaxAttempts(2).WithInitialDelay(time.Millisecond)),
	)
	action := CurrentNews(client)

	rec := &recorder{}
	if err := action.Handle(context.Background(), stateFor("news about rust"), rec.callback); err != nil {
		t.Fatalf("fetch failures must not surface, got %v", err)
	}
	if len(rec.calls) != 1 {
		t.Fatalf("expected one callback, got %d", len(rec.calls))
	}
	if !rec.calls[0].Error || rec.calls[0].Text != FetchFailedText {
		t.Fatalf("expected fallback reply, got %+v", rec.calls[0])
	}
}

func TestHandleFallbacks(t *testing.T) {
	panicking := news.SourceFunc(func(context.Context, news.Query) ([]news.Article, error) {
		panic("boom")
	})
	tests := []struct {
		name      string
		source    news.Source
		wantText  string
		wantError bool
	}{
		{name: "no source", source: nil, wantText: FetchFailedText, wantError: true},
		{name: "error", source: staticSource(nil, stderrors.New("dial tcp: refused"), nil), wantText: FetchFailedText, wantError: true},
		{name: "panic", source: panicking, wantText: FetchFailedText, wantError: true},
		{name: "empty", source: staticSource(nil, nil, nil), wantText: "I couldn't find any news about rust right now."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			err := CurrentNews(tt.source).Handle(context.Background(), stateFor("rust news"), rec.callback)
			if err != nil {
				t.Fatalf("unexpected error %v", err)
			}
			if len(rec.calls) != 1 {
				t.Fatalf("expected one callback, got %d", len(rec.calls))
			}
			if rec.calls[0].Text != tt.wantText || rec.calls[0].Error != tt.wantError {
				t.Fatalf("unexpected content %+v", rec.calls[0])
			}
		})
	}
}

func TestHandleCallbackErrorIsReturned(t *testing.T) {
	rec := &recorder{err: stderrors.New("host gone")}
	err := CurrentNews(staticSource(nil, nil, nil)).Handle(context.Background(), stateFor("news"), rec.callback)
	if err == nil || len(rec.calls) != 1 {
		t.Fatalf("expected callback error after a single call, got %v (%d calls)", err, len(rec.calls))
	}
	err = CurrentNews(nil).Handle(context.Background(), stateFor("news"), nil)
	if !errors.HasCode(err, errors.CodeInvalidInput) {
		t.Fatalf("expected invalid input for nil callback, got %v", err)
	}
}

func TestHandleUsesLLMTerm(t *testing.T) {
	var seen news.Query
	model := &llm.MockProvider{Response: "  \"Electric cars\"\nextra line"}
	action := CurrentNews(staticSource(nil, nil, &seen), WithLLM(model))
	rec := &recorder{}
	_ = action.Handle(context.Background(), stateFor("anything new on EVs? news please"), rec.callback)

	if seen.Term != "Electric cars" {
		t.Fatalf("expected model term, got %q", seen.Term)
	}
	reqs := model.Requests()
	if len(reqs) != 1 || reqs[0].Messages[0].Role != llm.RoleSystem {
		t.Fatalf("unexpected model requests %+v", reqs)
	}
}

func TestHandleLLMFailureFallsBackToHeuristic(t *testing.T) {
	var seen news.Query
	action := CurrentNews(staticSource(nil, nil, &seen), WithLLM(&llm.FailingMockProvider{}))
	_ = action.Handle(context.Background(), stateFor("news about golang"), (&recorder{}).callback)
	if seen.Term != "golang" {
		t.Fatalf("expected heuristic term, got %q", seen.Term)
	}
}

func TestHandlePanickingLLMFallsBackToHeuristic(t *testing.T) {
	panicking := &llm.MockProvider{ChatFunc: func(context.Context, llm.ChatRequest) (*llm.ChatResponse, error) {
		panic("model crashed")
	}}
	models := map[string]llm.Provider{
		"typed nil": (*llm.MockProvider)(nil),
		"panic":     panicking,
	}
	for name, model := range models {
		t.Run(name, func(t *testing.T) {
			var seen news.Query
			rec := &recorder{}
			action := CurrentNews(staticSource(nil, nil, &seen), WithLLM(model))
			if err := action.Handle(context.Background(), stateFor("news about golang"), rec.callback); err != nil {
				t.Fatalf("Handle failed: %v", err)
			}
			if seen.Term != "golang" || len(rec.calls) != 1 {
				t.Fatalf("expected heuristic term and one reply, got %q (%d replies)", seen.Term, len(rec.calls))
			}
		})
	}
}

func TestExtractSearchTerm(t *testing.T) {
	tests := map[string]string{
		"what's the latest news about bitcoin?":  "bitcoin",
		"Any news on the climate summit today?":  "climate summit",
		"headlines regarding \"SpaceX launch\"":  "SpaceX launch",
		"tell me bitcoin news":                   "bitcoin",
		"any news?":                              DefaultTerm,
		"give me the latest headlines":           DefaultTerm,
		"European football news from this week.": "European football",
	}
	for in, want := range tests {
		if got := ExtractSearchTerm(in); got != want {
			t.Errorf("ExtractSearchTerm(%q) = %q, want %q", in, got, want)
		}
	}
}
