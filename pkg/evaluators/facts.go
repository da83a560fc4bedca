// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package evaluators implements the GET_FACTS evaluator.
package evaluators

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/jllopis/kairos-news/pkg/llm"
	"github.com/jllopis/kairos-news/pkg/plugin"
)

// FactsName is the evaluator name registered with the host.
const FactsName = "GET_FACTS"

// Option configures the evaluator.
type Option func(*facts)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *facts) {
		if l != nil {
			f.logger = l
		}
	}
}

type facts struct {
	model  llm.Provider
	logger *slog.Logger
}

// Facts returns the GET_FACTS evaluator.
//
// Trigger policy: the evaluator does not run every turn. It runs when the
// session's message count is a positive multiple of half the conversation
// length (State.ConversationLength, default 32), so with the default window
// claims are extracted once every 16 messages and each extraction sees
// messages the previous one did not.
//
// The evaluator asks model for claims found in the recent messages and keeps
// only new facts: opinions, status updates, claims already in the agent bio
// and claims already known are dropped. Without a model, or when the model
// fails or answers with something that is not a claim list, it returns no
// facts and a nil error.
func Facts(model llm.Provider, opts ...Option) plugin.Evaluator {
	f := &facts{model: model, logger: slog.Default()}
	for _, opt := range opts {
		opt(f)
	}

	return plugin.Evaluator{
		Name: FactsName,
		Similes: []string{
			"GET_CLAIMS",
			"EXTRACT_CLAIMS",
			"EXTRACT_FACTS",
			"EXTRACT_CLAIM",
			"EXTRACT_INFORMATION",
		},
		Description: "Extract factual information about the people in the conversation, the current events in the world, and anything else that might be important to remember.",
		AlwaysRun:   false,
		Examples: [][]plugin.Example{
			{
				{Role: plugin.RoleUser, Text: "I just moved to Lisbon for a new job at a bank."},
				{Role: plugin.RoleAssistant, Text: "Congratulations on the move! How are you finding Lisbon so far?"},
				{Role: plugin.RoleUser, Text: "I love it, the weather is great."},
			},
			{
				{Role: plugin.RoleUser, Text: "Any news about the election?"},
				{Role: plugin.RoleAssistant, Text: "The polls closed an hour ago and counting has started.", Action: "CURRENT_NEWS"},
			},
		},
		Validate: ShouldExtract,
		Handle:   f.handle,
	}
}

// ShouldExtract reports whether the message count has reached the next
// extraction point. See Facts for the policy.
func ShouldExtract(_ context.Context, state *plugin.State) bool {
	if state == nil || state.MessageCount <= 0 {
		return false
	}
	length := state.ConversationLength
	if length <= 0 {
		length = plugin.DefaultConversationLength
	}
	every := (length + 1) / 2
	return state.MessageCount%every == 0
}

// Claim is one element of the model's JSON answer.
type Claim struct {
	Claim        string `json:"claim"`
	Type         string `json:"type"`
	InBio        bool   `json:"in_bio"`
	AlreadyKnown bool   `json:"already_known"`
}

const factsSystemPrompt = `You extract claims from conversations. Answer with a JSON array only.`

func (f *facts) handle(ctx context.Context, state *plugin.State) ([]plugin.Fact, error) {
	if f.model == nil || state == nil || len(state.Recent) == 0 {
		f.logger.DebugContext(ctx, "facts.extract.skipped",
			slog.Bool("has_model", f.model != nil),
			slog.Bool("has_state", state != nil),
		)
		return []plugin.Fact{}, nil
	}

	out, err := llm.Complete(ctx, f.model, factsSystemPrompt, buildPrompt(state))
	if err != nil {
		f.logger.WarnContext(ctx, "facts.extract.llm_failed", slog.String("error", err.Error()))
		return []plugin.Fact{}, nil
	}

	claims, err := ParseClaims(out)
	if err != nil {
		f.logger.WarnContext(ctx, "facts.extract.parse_failed",
			slog.String("error", err.Error()),
			slog.Int("response_length", len(out)),
		)
		return []plugin.Fact{}, nil
	}

	known := make(map[string]bool, len(state.KnownFacts))
	for _, k := range state.KnownFacts {
		known[normalizeClaim(k)] = true
	}

	now := state.Clock().UTC()
	result := make([]plugin.Fact, 0, len(claims))
	for _, c := range claims {
		text := strings.TrimSpace(c.Claim)
		if text == "" || c.InBio || c.AlreadyKnown || known[normalizeClaim(text)] {
			continue
		}
		if plugin.FactType(strings.ToLower(strings.TrimSpace(c.Type))) != plugin.FactTypeFact {
			continue
		}
		known[normalizeClaim(text)] = true
		result = append(result, plugin.Fact{
			ID:        uuid.New().String(),
			SessionID: state.SessionID,
			Claim:     text,
			Type:      plugin.FactTypeFact,
			CreatedAt: now,
		})
	}

	f.logger.DebugContext(ctx, "facts.extract.done",
		slog.Int("claims", len(claims)),
		slog.Int("facts", len(result)),
	)
	return result, nil
}

func buildPrompt(state *plugin.State) string {
	var b strings.Builder
	agent := state.Name()

	b.WriteString("# Known facts\n")
	if len(state.KnownFacts) == 0 {
		b.WriteString("(none)\n")
	}
	for _, k := range state.KnownFacts {
		fmt.Fprintf(&b, "- %s\n", k)
	}

	fmt.Fprintf(&b, "\n# About %s\n", agent)
	if strings.TrimSpace(state.Bio) == "" {
		b.WriteString("(no bio)\n")
	} else {
		b.WriteString(state.Bio + "\n")
	}

	b.WriteString("\n# Recent messages\n")
	for _, m := range state.Recent {
		speaker := "User"
		if m.Role == plugin.RoleAssistant || (state.AgentID != "" && m.AuthorID == state.AgentID) {
			speaker = agent
		}
		fmt.Fprintf(&b, "%s: %s\n", speaker, m.Text)
	}

	fmt.Fprintf(&b, `
# Instructions
Extract the claims made in the recent messages that are worth remembering.
For each claim set "type" to "fact" for objective, lasting information about
people or the world, "opinion" for subjective views and "status" for things
that are only true for a short time. Set "in_bio" to true when the claim is
already covered by the information about %s and "already_known" to true when
it is already in the known facts.

Answer with a JSON array such as:
[{"claim": "Alex lives in Lisbon", "type": "fact", "in_bio": false, "already_known": false}]
Answer [] when there is nothing to extract.
`, agent)
	return b.String()
}

// ParseClaims reads a JSON array of claims from a model answer. The array
// may be wrapped in a code fence or surrounded by prose.
func ParseClaims(text string) ([]Claim, error) {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON array in response")
	}
	var claims []Claim
	if err := json.Unmarshal([]byte(text[start:end+1]), &claims); err != nil {
		return nil, fmt.Errorf("decode claims: %w", err)
	}
	return claims, nil
}

func normalizeClaim(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(strings.Trim(s, " .")), " "))
}
