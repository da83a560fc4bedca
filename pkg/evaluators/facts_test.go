// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package evaluators

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jllopis/kairos-news/pkg/llm"
	"github.com/jllopis/kairos-news/pkg/plugin"
)

func conversation() *plugin.State {
	return &plugin.State{
		AgentID:      "agent-1",
		AgentName:    "Kairos",
		Bio:          "Kairos is a news assistant from Barcelona.",
		SessionID:    "s1",
		MessageCount: 16,
		KnownFacts:   []string{"Alex has a dog."},
		Now:          time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC),
		Recent: []plugin.Message{
			{Role: plugin.RoleUser, AuthorID: "alex", Text: "I moved to Lisbon and my dog loves it"},
			{Role: plugin.RoleAssistant, AuthorID: "agent-1", Text: "Lisbon is lovely!"},
		},
	}
}

func TestShouldExtract(t *testing.T) {
	tests := []struct {
		name   string
		state  *plugin.State
		expect bool
	}{
		{name: "nil", state: nil, expect: false},
		{name: "no messages", state: &plugin.State{}, expect: false},
		{name: "default window hit", state: &plugin.State{MessageCount: 16}, expect: true},
		{name: "default window second hit", state: &plugin.State{MessageCount: 32}, expect: true},
		{name: "default window miss", state: &plugin.State{MessageCount: 15}, expect: false},
		{name: "custom window", state: &plugin.State{MessageCount: 5, ConversationLength: 10}, expect: true},
		{name: "odd window rounds up", state: &plugin.State{MessageCount: 4, ConversationLength: 7}, expect: true},
		{name: "window of one", state: &plugin.State{MessageCount: 3, ConversationLength: 1}, expect: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldExtract(context.Background(), tt.state); got != tt.expect {
				t.Fatalf("ShouldExtract = %v, want %v", got, tt.expect)
			}
		})
	}
}

func TestHandleFiltersClaims(t *testing.T) {
	model := &llm.MockProvider{Response: "Here you go:\n```json\n" + `[
  {"claim": "Alex lives in Lisbon", "type": "fact", "in_bio": false, "already_known": false},
  {"claim": "Lisbon is lovely", "type": "opinion", "in_bio": false, "already_known": false},
  {"claim": "Kairos is from Barcelona", "type": "fact", "in_bio": true, "already_known": false},
  {"claim": "alex has a dog", "type": "fact", "in_bio": false, "already_known": false},
  {"claim": "Alex is tired", "type": "status", "in_bio": false, "already_known": false},
  {"claim": "   ", "type": "fact"},
  {"claim": "Alex lives in Lisbon.", "type": "FACT"}
]` + "\n```"}

	e := Facts(model)
	got, err := e.Handle(context.Background(), conversation())
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected one new fact, got %+v", got)
	}
	f := got[0]
	if f.Claim != "Alex lives in Lisbon" || f.Type != plugin.FactTypeFact || f.SessionID != "s1" {
		t.Errorf("unexpected fact %+v", f)
	}
	if f.ID == "" || !f.CreatedAt.Equal(conversation().Now) {
		t.Errorf("expected stamped fact, got %+v", f)
	}

	reqs := model.Requests()
	if len(reqs) != 1 {
		t.Fatalf("expected one model call, got %d", len(reqs))
	}
	prompt := reqs[0].Messages[len(reqs[0].Messages)-1].Content
	for _, want := range []string{"Alex has a dog.", "from Barcelona", "User: I moved to Lisbon", "Kairos: Lisbon is lovely!"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestHandleReturnsEmptyWithoutFacts(t *testing.T) {
	panicking := &llm.MockProvider{ChatFunc: func(context.Context, llm.ChatRequest) (*llm.ChatResponse, error) {
		panic("model crashed")
	}}
	tests := []struct {
		name  string
		model llm.Provider
		state *plugin.State
	}{
		{name: "no model", model: nil, state: conversation()},
		{name: "nil state", model: &llm.MockProvider{Response: "[]"}, state: nil},
		{name: "no messages", model: &llm.MockProvider{Response: "[]"}, state: &plugin.State{MessageCount: 16}},
		{name: "empty array", model: &llm.MockProvider{Response: "[]"}, state: conversation()},
		{name: "prose only", model: &llm.MockProvider{Response: "Nothing worth remembering."}, state: conversation()},
		{name: "broken json", model: &llm.MockProvider{Response: `[{"claim": }]`}, state: conversation()},
		{name: "model error", model: &llm.MockProvider{Err: errors.New("timeout")}, state: conversation()},
		{name: "typed nil model", model: (*llm.MockProvider)(nil), state: conversation()},
		{name: "panicking model", model: panicking, state: conversation()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Facts(tt.model).Handle(context.Background(), tt.state)
			if err != nil {
				t.Fatalf("expected nil error, got %v", err)
			}
			if got == nil || len(got) != 0 {
				t.Fatalf("expected empty non-nil list, got %#v", got)
			}
		})
	}
}

func TestEvaluatorMetadata(t *testing.T) {
	e := Facts(nil)
	if e.Name != FactsName || e.AlwaysRun || e.Validate == nil || e.Handle == nil {
		t.Fatalf("unexpected evaluator %+v", e)
	}
	if len(e.Similes) != 5 || len(e.Examples) == 0 {
		t.Fatalf("expected similes and examples, got %d/%d", len(e.Similes), len(e.Examples))
	}
}

func TestParseClaims(t *testing.T) {
	claims, err := ParseClaims(`noise [{"claim":"x","type":"fact","in_bio":true}] trailing`)
	if err != nil || len(claims) != 1 || !claims[0].InBio {
		t.Fatalf("unexpected parse result %+v %v", claims, err)
	}
	if _, err := ParseClaims("] backwards ["); err == nil {
		t.Fatal("expected error for misplaced brackets")
	}
}
