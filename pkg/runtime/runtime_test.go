// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package runtime

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/jllopis/kairos-news/pkg/errors"
	"github.com/jllopis/kairos-news/pkg/llm"
	"github.com/jllopis/kairos-news/pkg/memory"
	"github.com/jllopis/kairos-news/pkg/news"
	"github.com/jllopis/kairos-news/pkg/newsplugin"
	"github.com/jllopis/kairos-news/pkg/plugin"
)

func always(context.Context, *plugin.State) bool { return true }
func never(context.Context, *plugin.State) bool  { return false }

func replyWith(text string) plugin.HandlerFunc {
	return func(ctx context.Context, _ *plugin.State, cb plugin.Callback) error {
		return cb(ctx, plugin.Content{Text: text})
	}
}

func userState(text string) *plugin.State {
	return &plugin.State{SessionID: "s1", Message: plugin.Message{Role: plugin.RoleUser, Text: text}}
}

func TestRegister(t *testing.T) {
	base := &plugin.Descriptor{
		Name:      "a",
		Actions:   []plugin.Action{{Name: "ACT", Validate: always, Handle: replyWith("x")}},
		Providers: []plugin.Provider{{Name: "P", Get: func(context.Context, *plugin.State) string { return "p" }}},
	}

	tests := []struct {
		name string
		desc *plugin.Descriptor
		code errors.ErrorCode
	}{
		{name: "invalid", desc: &plugin.Descriptor{}, code: errors.CodeInvalidInput},
		{name: "same plugin name", desc: &plugin.Descriptor{Name: "a"}, code: errors.CodeDuplicateUnit},
		{
			name: "action clash",
			desc: &plugin.Descriptor{Name: "b", Actions: []plugin.Action{{Name: "ACT", Validate: always, Handle: replyWith("y")}}},
			code: errors.CodeDuplicateUnit,
		},
		{
			name: "provider named like an action",
			desc: &plugin.Descriptor{Name: "c", Providers: []plugin.Provider{{Name: "ACT", Get: func(context.Context, *plugin.State) string { return "" }}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := NewLocal()
			if err := rt.Register(base); err != nil {
				t.Fatalf("register base: %v", err)
			}
			err := rt.Register(tt.desc)
			if tt.code == "" {
				if err != nil {
					t.Fatalf("expected success, got %v", err)
				}
				if len(rt.Plugins()) != 2 {
					t.Fatalf("expected 2 plugins, got %d", len(rt.Plugins()))
				}
				return
			}
			if !errors.HasCode(err, tt.code) {
				t.Fatalf("expected %s, got %v", tt.code, err)
			}
		})
	}
}

func TestHandleMessage_SkipsWhenValidateFails(t *testing.T) {
	called := false
	rt := NewLocal()
	_ = rt.Register(&plugin.Descriptor{Name: "p", Actions: []plugin.Action{{
		Name:     "NOPE",
		Validate: never,
		Handle: func(context.Context, *plugin.State, plugin.Callback) error {
			called = true
			return nil
		},
	}}})

	res, err := rt.HandleMessage(context.Background(), userState("hello"), func(context.Context, plugin.Content) error {
		t.Fatal("callback must not run")
		return nil
	})
	if err != nil || res.Handled() || called {
		t.Fatalf("expected no dispatch, res=%+v err=%v called=%v", res, err, called)
	}
}

func TestHandleMessage_FirstMatchingActionWins(t *testing.T) {
	rt := NewLocal()
	_ = rt.Register(&plugin.Descriptor{Name: "p", Actions: []plugin.Action{
		{Name: "SKIP", Validate: never, Handle: replyWith("skip")},
		{Name: "FIRST", Validate: always, Handle: replyWith("first")},
		{Name: "SECOND", Validate: always, Handle: replyWith("second")},
	}})

	var got []string
	res, err := rt.HandleMessage(context.Background(), userState("x"), func(_ context.Context, c plugin.Content) error {
		got = append(got, c.Text)
		return nil
	})
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if res.Action != "FIRST" || res.Plugin != "p" || len(got) != 1 || got[0] != "first" {
		t.Fatalf("unexpected dispatch: %+v %v", res, got)
	}
}

func TestHandleMessage_ForwardsOneReply(t *testing.T) {
	rt := NewLocal()
	_ = rt.Register(&plugin.Descriptor{Name: "p", Actions: []plugin.Action{{
		Name:     "CHATTY",
		Validate: always,
		Handle: func(ctx context.Context, _ *plugin.State, cb plugin.Callback) error {
			_ = cb(ctx, plugin.Content{Text: "one"})
			_ = cb(ctx, plugin.Content{Text: "two"})
			return nil
		},
	}}})

	calls := 0
	res, _ := rt.HandleMessage(context.Background(), userState("x"), func(context.Context, plugin.Content) error {
		calls++
		return nil
	})
	if calls != 1 || res.Reply.Text != "one" {
		t.Fatalf("expected exactly one reply, calls=%d reply=%q", calls, res.Reply.Text)
	}
}

func TestHandleMessage_Fallback(t *testing.T) {
	tests := []struct {
		name   string
		handle plugin.HandlerFunc
	}{
		{name: "error without reply", handle: func(context.Context, *plugin.State, plugin.Callback) error {
			return fmt.Errorf("boom")
		}},
		{name: "silent success", handle: func(context.Context, *plugin.State, plugin.Callback) error { return nil }},
		{name: "panic", handle: func(context.Context, *plugin.State, plugin.Callback) error { panic("bad") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := NewLocal()
			_ = rt.Register(&plugin.Descriptor{Name: "p", Actions: []plugin.Action{{Name: "A", Validate: always, Handle: tt.handle}}})

			var replies []plugin.Content
			res, err := rt.HandleMessage(context.Background(), userState("x"), func(_ context.Context, c plugin.Content) error {
				replies = append(replies, c)
				return nil
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !res.Fallback || len(replies) != 1 || replies[0].Text != FallbackText || !replies[0].Error {
				t.Fatalf("expected single fallback reply, res=%+v replies=%v", res, replies)
			}
		})
	}
}

func TestHandleMessage_PanickingValidateIsSkipped(t *testing.T) {
	rt := NewLocal()
	_ = rt.Register(&plugin.Descriptor{Name: "p", Actions: []plugin.Action{
		{Name: "BAD", Validate: func(context.Context, *plugin.State) bool { panic("x") }, Handle: replyWith("bad")},
		{Name: "GOOD", Validate: always, Handle: replyWith("good")},
	}})
	res, err := rt.HandleMessage(context.Background(), userState("x"), nil)
	if err != nil || res.Action != "GOOD" {
		t.Fatalf("expected GOOD to handle, res=%+v err=%v", res, err)
	}
}

func TestEvaluate_PersistsFacts(t *testing.T) {
	store := memory.NewInMemoryFacts()
	rt := NewLocal(WithFactStore(store))
	_ = rt.Register(&plugin.Descriptor{Name: "p", Evaluators: []plugin.Evaluator{
		{Name: "SKIPPED", Validate: never, Handle: func(context.Context, *plugin.State) ([]plugin.Fact, error) {
			t.Fatal("evaluator must not run")
			return nil, nil
		}},
		{Name: "FAILS", AlwaysRun: true, Handle: func(context.Context, *plugin.State) ([]plugin.Fact, error) {
			return nil, fmt.Errorf("model down")
		}},
		{Name: "PANICS", AlwaysRun: true, Handle: func(context.Context, *plugin.State) ([]plugin.Fact, error) {
			panic("x")
		}},
		{Name: "WORKS", Validate: always, Handle: func(_ context.Context, s *plugin.State) ([]plugin.Fact, error) {
			return []plugin.Fact{{ID: "f1", SessionID: s.SessionID, Claim: "Alex likes Go", Type: plugin.FactTypeFact}}, nil
		}},
	}})

	facts := rt.Evaluate(context.Background(), userState("I like Go"))
	if len(facts) != 1 {
		t.Fatalf("expected 1 fact, got %v", facts)
	}
	stored, err := store.ListFacts(context.Background(), "s1", 0)
	if err != nil || len(stored) != 1 || stored[0].Claim != "Alex likes Go" {
		t.Fatalf("fact not persisted: %v %v", stored, err)
	}
}

func TestComposeContext(t *testing.T) {
	get := func(s string) plugin.ProviderFunc {
		return func(context.Context, *plugin.State) string { return s }
	}
	rt := NewLocal()
	_ = rt.Register(&plugin.Descriptor{Name: "one", Providers: []plugin.Provider{
		{Name: "A", Get: get("alpha ")},
		{Name: "EMPTY", Get: get("  ")},
		{Name: "PANIC", Get: func(context.Context, *plugin.State) string { panic("x") }},
	}})
	_ = rt.Register(&plugin.Descriptor{Name: "two", Providers: []plugin.Provider{{Name: "B", Get: get("beta")}}})

	if got := rt.ComposeContext(context.Background(), userState("x")); got != "alpha\nbeta" {
		t.Fatalf("unexpected context %q", got)
	}
}

func TestBuildState(t *testing.T) {
	facts := memory.NewInMemoryFacts()
	_ = facts.SaveFacts(context.Background(), []plugin.Fact{{ID: "1", SessionID: "s1", Claim: "Sam lives in Oslo"}})

	fixed := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	rt := NewLocal(
		WithAgent(Agent{ID: "bot", Name: "Eliza", Bio: "A news junkie."}),
		WithFactStore(facts),
		WithConversationLength(2),
		WithClock(func() time.Time { return fixed }),
	)
	ctx := context.Background()
	for _, text := range []string{"a", "b", "c"} {
		_ = rt.conversation.AppendMessage(ctx, "s1", plugin.Message{Role: plugin.RoleUser, Text: text})
	}

	state, err := rt.BuildState(ctx, "s1", plugin.Message{Text: "c"})
	if err != nil {
		t.Fatalf("BuildState: %v", err)
	}
	if state.MessageCount != 3 || len(state.Recent) != 2 || state.Recent[1].Text != "c" {
		t.Fatalf("unexpected history: count=%d recent=%v", state.MessageCount, state.Recent)
	}
	if state.AgentName != "Eliza" || state.Bio == "" || !state.Now.Equal(fixed) {
		t.Fatalf("unexpected agent fields: %+v", state)
	}
	if len(state.KnownFacts) != 1 || state.KnownFacts[0] != "Sam lives in Oslo" {
		t.Fatalf("unexpected known facts: %v", state.KnownFacts)
	}
}

func TestTurn_NewsPlugin(t *testing.T) {
	source := news.SourceFunc(func(_ context.Context, q news.Query) ([]news.Article, error) {
		return []news.Article{{Title: "Rust 2.0 released", URL: "https://example.com/rust"}}, nil
	})
	model := &llm.MockProvider{ChatFunc: func(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
		if strings.Contains(req.Messages[len(req.Messages)-1].Content, "JSON") {
			return &llm.ChatResponse{Content: `[{"claim":"The user follows Rust","type":"fact","in_bio":false,"already_known":false}]`}, nil
		}
		return &llm.ChatResponse{Content: "rust"}, nil
	}}

	store := memory.NewInMemoryFacts()
	rt := NewLocal(
		WithFactStore(store),
		WithRand(rand.New(rand.NewPCG(7, 7))),
		WithConversationLength(2),
	)
	if err := rt.Register(newsplugin.New(newsplugin.WithSource(source), newsplugin.WithLLM(model))); err != nil {
		t.Fatalf("register: %v", err)
	}

	res, err := rt.Turn(context.Background(), "s1", "user-1", "what's the news about rust?")
	if err != nil {
		t.Fatalf("Turn: %v", err)
	}
	if !res.Action.Handled() || res.Reply == nil || !strings.Contains(res.Reply.Text, "Rust 2.0 released") {
		t.Fatalf("expected news reply, got %+v", res)
	}
	if !strings.Contains(res.Context, "is feeling") {
		t.Errorf("expected emotion fragment in context %q", res.Context)
	}

	count, _ := rt.conversation.CountMessages(context.Background(), "s1")
	if count != 2 {
		t.Errorf("expected user and agent messages stored, got %d", count)
	}
	if len(res.Facts) != 1 {
		t.Fatalf("expected extracted fact, got %v", res.Facts)
	}
	stored, _ := store.ListFacts(context.Background(), "s1", 0)
	if len(stored) != 1 || stored[0].SessionID != "s1" {
		t.Fatalf("unexpected stored facts: %v", stored)
	}
}

func TestTurn_ResponderAnswersUnhandled(t *testing.T) {
	responder := &llm.MockProvider{Response: "Hi there!"}
	rt := NewLocal(WithResponder(responder), WithAgent(Agent{ID: "bot", Name: "Eliza", Bio: "Friendly."}))
	_ = rt.Register(newsplugin.New())

	res, err := rt.Turn(context.Background(), "s1", "u", "hello")
	if err != nil {
		t.Fatalf("Turn: %v", err)
	}
	if res.Action.Handled() || res.Reply == nil || res.Reply.Text != "Hi there!" {
		t.Fatalf("expected responder reply, got %+v", res)
	}
	reqs := responder.Requests()
	if len(reqs) != 1 || !strings.Contains(reqs[0].Messages[0].Content, "Eliza") {
		t.Fatalf("unexpected responder requests: %+v", reqs)
	}

	recent, _ := rt.conversation.GetRecentMessages(context.Background(), "s1", 10)
	if len(recent) != 2 || recent[1].AuthorID != "bot" {
		t.Fatalf("expected agent reply stored, got %+v", recent)
	}
}

func TestTurn_RequiresSession(t *testing.T) {
	if _, err := NewLocal().Turn(context.Background(), " ", "u", "hi"); !errors.HasCode(err, errors.CodeInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestInvokeAction(t *testing.T) {
	rt := NewLocal()
	_ = rt.Register(&plugin.Descriptor{Name: "p", Actions: []plugin.Action{{Name: "PICKY", Validate: never, Handle: replyWith("forced")}}})

	res, err := rt.InvokeAction(context.Background(), "PICKY", userState("x"), nil)
	if err != nil || res.Reply.Text != "forced" {
		t.Fatalf("expected forced reply, res=%+v err=%v", res, err)
	}
	if _, err := rt.InvokeAction(context.Background(), "MISSING", userState("x"), nil); !errors.HasCode(err, errors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestComposeContext_SlowProviderIsSkipped(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	rt := NewLocal(WithProviderTimeout(10 * time.Millisecond))
	_ = rt.Register(&plugin.Descriptor{Name: "p", Providers: []plugin.Provider{
		{Name: "SLOW", Get: func(context.Context, *plugin.State) string {
			<-release
			return "late"
		}},
		{Name: "FAST", Get: func(context.Context, *plugin.State) string { return "fast" }},
	}})

	if got := rt.ComposeContext(context.Background(), userState("x")); got != "fast" {
		t.Fatalf("unexpected context %q", got)
	}
}

type upperFilter struct{}

func (upperFilter) FilterFacts(_ context.Context, facts []plugin.Fact) []plugin.Fact {
	out := make([]plugin.Fact, len(facts))
	for i, f := range facts {
		f.Claim = strings.ToUpper(f.Claim)
		out[i] = f
	}
	return out
}

func TestEvaluate_AppliesFactFilter(t *testing.T) {
	store := memory.NewInMemoryFacts()
	rt := NewLocal(WithFactStore(store), WithFactFilter(upperFilter{}))
	_ = rt.Register(&plugin.Descriptor{Name: "p", Evaluators: []plugin.Evaluator{
		{Name: "E", AlwaysRun: true, Handle: func(context.Context, *plugin.State) ([]plugin.Fact, error) {
			return []plugin.Fact{{ID: "f", SessionID: "s1", Claim: "quiet"}}, nil
		}},
	}})

	facts := rt.Evaluate(context.Background(), userState("x"))
	stored, _ := store.ListFacts(context.Background(), "s1", 0)
	if len(facts) != 1 || facts[0].Claim != "QUIET" || len(stored) != 1 || stored[0].Claim != "QUIET" {
		t.Fatalf("filter not applied: returned=%v stored=%v", facts, stored)
	}
}
