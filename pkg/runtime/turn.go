// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package runtime

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jllopis/kairos-news/pkg/errors"
	"github.com/jllopis/kairos-news/pkg/llm"
	"github.com/jllopis/kairos-news/pkg/plugin"
	"github.com/jllopis/kairos-news/pkg/telemetry"
)

// TurnResult is the outcome of one user message.
type TurnResult struct {
	// Context is the provider context composed for the turn.
	Context string
	// Action is the dispatch result. Action.Handled is false when the
	// responder, or nobody, answered.
	Action ActionResult
	// Reply is the agent's answer, nil when nobody answered.
	Reply *plugin.Content
	// Facts are the facts extracted after the turn.
	Facts []plugin.Fact
}

// Turn runs a full host cycle for one user message: store it, compose
// provider context, dispatch actions (or ask the responder), store the
// reply and run evaluators on the finished turn.
func (r *LocalRuntime) Turn(ctx context.Context, sessionID, userID, text string) (*TurnResult, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, errors.New(errors.CodeInvalidInput, "session id is required", nil)
	}
	ctx, span := r.tracer.Start(ctx, "Runtime.Turn", trace.WithAttributes(
		attribute.String(telemetry.AttrSessionID, sessionID),
	))
	defer span.End()

	msg, state, err := r.Receive(ctx, sessionID, userID, text)
	if err != nil {
		return nil, err
	}

	result := &TurnResult{Context: r.ComposeContext(ctx, state)}

	var reply *plugin.Content
	action, err := r.HandleMessage(ctx, state, func(_ context.Context, c plugin.Content) error {
		reply = &c
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.Action = action

	if reply == nil && r.responder != nil {
		reply = r.respond(ctx, state, result.Context)
	}
	result.Reply = reply

	if reply != nil {
		if err := r.Record(ctx, sessionID, *reply); err != nil {
			return nil, err
		}
	}

	// Evaluators see the finished turn, reply included.
	finished, err := r.BuildState(ctx, sessionID, msg)
	if err != nil {
		return nil, err
	}
	result.Facts = r.Evaluate(ctx, finished)

	r.logger.InfoContext(ctx, "runtime.turn.complete",
		slog.String("session_id", sessionID),
		slog.String("action", action.Action),
		slog.Bool("replied", reply != nil),
		slog.Int("facts", len(result.Facts)),
	)
	return result, nil
}

// Receive stores a user message and returns the State units see for it.
func (r *LocalRuntime) Receive(ctx context.Context, sessionID, userID, text string) (plugin.Message, *plugin.State, error) {
	msg := plugin.Message{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Role:      plugin.RoleUser,
		AuthorID:  userID,
		Text:      text,
		CreatedAt: r.now(),
	}
	if err := r.conversation.AppendMessage(ctx, sessionID, msg); err != nil {
		return msg, nil, errors.New(errors.CodeMemoryError, "store message", err)
	}
	state, err := r.BuildState(ctx, sessionID, msg)
	if err != nil {
		return msg, nil, err
	}
	return msg, state, nil
}

// Record stores a reply as the agent's message.
func (r *LocalRuntime) Record(ctx context.Context, sessionID string, reply plugin.Content) error {
	answer := plugin.Message{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Role:      plugin.RoleAssistant,
		AuthorID:  r.agent.ID,
		Text:      reply.Text,
		CreatedAt: r.now(),
	}
	if err := r.conversation.AppendMessage(ctx, sessionID, answer); err != nil {
		return errors.New(errors.CodeMemoryError, "store reply", err)
	}
	return nil
}

func (r *LocalRuntime) respond(ctx context.Context, state *plugin.State, providerContext string) *plugin.Content {
	var system strings.Builder
	system.WriteString("You are " + state.Name() + ".")
	if state.Bio != "" {
		system.WriteString(" " + state.Bio)
	}
	if providerContext != "" {
		system.WriteString("\n\n" + providerContext)
	}
	if len(state.KnownFacts) > 0 {
		system.WriteString("\n\nThings you know:\n- " + strings.Join(state.KnownFacts, "\n- "))
	}

	out, err := llm.Complete(ctx, r.responder, system.String(), state.Text())
	if err != nil {
		r.logger.WarnContext(ctx, "runtime.responder.error", slog.String("error", err.Error()))
		return nil
	}
	if out == "" {
		return nil
	}
	return &plugin.Content{Text: out}
}
