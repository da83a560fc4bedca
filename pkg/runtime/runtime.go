// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package runtime is a reference host for plugin descriptors. It drives the
// units the way a conversational-agent host does: actions answer incoming
// messages, providers feed prompt context and evaluators extract facts after
// each turn.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/jllopis/kairos-news/pkg/errors"
	"github.com/jllopis/kairos-news/pkg/llm"
	"github.com/jllopis/kairos-news/pkg/memory"
	"github.com/jllopis/kairos-news/pkg/plugin"
	"github.com/jllopis/kairos-news/pkg/telemetry"
)

// Agent is the persona the runtime plays.
type Agent struct {
	ID   string
	Name string
	Bio  string
}

// FactFilter rewrites evaluator output before it is persisted.
type FactFilter interface {
	FilterFacts(ctx context.Context, facts []plugin.Fact) []plugin.Fact
}

// LocalRuntime is an in-process host.
type LocalRuntime struct {
	mu      sync.RWMutex
	plugins []*plugin.Descriptor

	agent              Agent
	facts              plugin.FactStore
	factFilter         FactFilter
	conversation       memory.ConversationMemory
	responder          llm.Provider
	metrics            *telemetry.UnitMetrics
	conversationLength int
	knownFactsLimit    int
	providerTimeout    time.Duration
	rand               *rand.Rand
	now                func() time.Time
	tracer             trace.Tracer
	logger             *slog.Logger
}

// Option configures a LocalRuntime.
type Option func(*LocalRuntime)

// WithAgent sets the agent persona.
func WithAgent(a Agent) Option {
	return func(r *LocalRuntime) { r.agent = a }
}

// WithFactStore sets where evaluator output is persisted.
func WithFactStore(s plugin.FactStore) Option {
	return func(r *LocalRuntime) { r.facts = s }
}

// WithFactFilter sets a filter applied to extracted facts before they are
// stored, for example to mask personal data.
func WithFactFilter(f FactFilter) Option {
	return func(r *LocalRuntime) { r.factFilter = f }
}

// WithConversation sets the conversation history store.
func WithConversation(c memory.ConversationMemory) Option {
	return func(r *LocalRuntime) {
		if c != nil {
			r.conversation = c
		}
	}
}

// WithResponder sets the model that answers messages no action handles.
func WithResponder(p llm.Provider) Option {
	return func(r *LocalRuntime) { r.responder = p }
}

// WithMetrics sets the unit counters.
func WithMetrics(m *telemetry.UnitMetrics) Option {
	return func(r *LocalRuntime) { r.metrics = m }
}

// WithConversationLength sets the history window handed to units.
func WithConversationLength(n int) Option {
	return func(r *LocalRuntime) {
		if n > 0 {
			r.conversationLength = n
		}
	}
}

// WithProviderTimeout bounds each provider call. A provider that runs
// longer contributes nothing to the context. Zero disables the bound.
func WithProviderTimeout(d time.Duration) Option {
	return func(r *LocalRuntime) { r.providerTimeout = d }
}

// WithRand makes unit randomness reproducible.
func WithRand(rnd *rand.Rand) Option {
	return func(r *LocalRuntime) { r.rand = rnd }
}

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(r *LocalRuntime) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *LocalRuntime) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewLocal creates a new LocalRuntime instance.
func NewLocal(opts ...Option) *LocalRuntime {
	r := &LocalRuntime{
		agent:              Agent{ID: "agent", Name: "Kairos"},
		conversation:       memory.NewInMemoryConversation(),
		conversationLength: plugin.DefaultConversationLength,
		knownFactsLimit:    50,
		providerTimeout:    2 * time.Second,
		now:                time.Now,
		tracer:             otel.Tracer("kairos-news/runtime"),
		logger:             slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register validates d and adds it to the runtime. Unit names must be
// unique per category across every registered descriptor.
func (r *LocalRuntime) Register(d *plugin.Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name == d.Name {
			return errors.New(errors.CodeDuplicateUnit, fmt.Sprintf("plugin %q already registered", d.Name), nil)
		}
		if err := overlap("action", existing.ActionNames(), d.ActionNames()); err != nil {
			return err
		}
		if err := overlap("evaluator", existing.EvaluatorNames(), d.EvaluatorNames()); err != nil {
			return err
		}
		if err := overlap("provider", existing.ProviderNames(), d.ProviderNames()); err != nil {
			return err
		}
	}
	r.plugins = append(r.plugins, d)

	r.logger.Info("runtime.plugin.registered",
		slog.String("plugin", d.Name),
		slog.Int("actions", len(d.Actions)),
		slog.Int("evaluators", len(d.Evaluators)),
		slog.Int("providers", len(d.Providers)),
	)
	return nil
}

func overlap(kind string, have, add []string) error {
	seen := make(map[string]struct{}, len(have))
	for _, n := range have {
		seen[n] = struct{}{}
	}
	for _, n := range add {
		if _, ok := seen[n]; ok {
			return errors.New(errors.CodeDuplicateUnit, fmt.Sprintf("duplicate %s %q", kind, n), nil).
				WithContext("kind", kind).
				WithContext("name", n)
		}
	}
	return nil
}

// Plugins returns the registered descriptors in registration order.
func (r *LocalRuntime) Plugins() []*plugin.Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*plugin.Descriptor(nil), r.plugins...)
}

// BuildState assembles the State for msg from conversation history and the
// fact store. msg is expected to be stored already.
func (r *LocalRuntime) BuildState(ctx context.Context, sessionID string, msg plugin.Message) (*plugin.State, error) {
	recent, err := r.conversation.GetRecentMessages(ctx, sessionID, r.conversationLength)
	if err != nil {
		return nil, errors.New(errors.CodeMemoryError, "load recent messages", err)
	}
	count, err := r.conversation.CountMessages(ctx, sessionID)
	if err != nil {
		return nil, errors.New(errors.CodeMemoryError, "count messages", err)
	}

	state := &plugin.State{
		AgentID:            r.agent.ID,
		AgentName:          r.agent.Name,
		Bio:                r.agent.Bio,
		SessionID:          sessionID,
		Message:            msg,
		Recent:             recent,
		MessageCount:       count,
		ConversationLength: r.conversationLength,
		KnownFacts:         r.knownFacts(ctx, sessionID, msg.Text),
		Now:                r.now(),
		Rand:               r.rand,
	}
	return state, nil
}

// knownFacts lists the latest facts plus, when the store supports it, facts
// related to text. Failures only cost context, so they are logged.
func (r *LocalRuntime) knownFacts(ctx context.Context, sessionID, text string) []string {
	if r.facts == nil {
		return nil
	}
	facts, err := r.facts.ListFacts(ctx, sessionID, r.knownFactsLimit)
	if err != nil {
		r.logger.WarnContext(ctx, "runtime.facts.list_failed", slog.String("error", err.Error()))
	}
	if recaller, ok := r.facts.(memory.FactRecaller); ok && text != "" {
		related, err := recaller.Recall(ctx, sessionID, text, 5)
		if err != nil {
			r.logger.WarnContext(ctx, "runtime.facts.recall_failed", slog.String("error", err.Error()))
		}
		facts = append(facts, related...)
	}

	seen := make(map[string]struct{}, len(facts))
	out := make([]string, 0, len(facts))
	for _, f := range facts {
		if _, ok := seen[f.Claim]; ok || f.Claim == "" {
			continue
		}
		seen[f.Claim] = struct{}{}
		out = append(out, f.Claim)
	}
	return out
}
