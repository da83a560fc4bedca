// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jllopis/kairos-news/pkg/errors"
	"github.com/jllopis/kairos-news/pkg/plugin"
	"github.com/jllopis/kairos-news/pkg/telemetry"
)

// FallbackText is sent when an action handler returns without replying.
const FallbackText = "Sorry, something went wrong while handling your request."

// ActionResult describes how a message was dispatched.
type ActionResult struct {
	// Plugin and Action name the unit that ran. Both are empty when no
	// action applied.
	Plugin string
	Action string
	// Reply is what reached the callback.
	Reply plugin.Content
	// Fallback is set when the runtime had to reply on the handler's behalf.
	Fallback bool
}

// Handled reports whether an action ran.
func (r ActionResult) Handled() bool { return r.Action != "" }

// HandleMessage runs the first action, in registration and declaration
// order, whose Validate accepts state. The callback receives exactly one
// reply from that action; if the handler fails without replying the runtime
// sends FallbackText. No action applying is not an error.
func (r *LocalRuntime) HandleMessage(ctx context.Context, state *plugin.State, callback plugin.Callback) (ActionResult, error) {
	ctx, span := r.tracer.Start(ctx, "Runtime.HandleMessage")
	defer span.End()

	owner, action, ok := r.selectAction(ctx, state)
	if !ok {
		span.SetAttributes(attribute.Bool(telemetry.AttrActionApplied, false))
		return ActionResult{}, nil
	}
	return r.run(ctx, owner, action, state, callback)
}

// InvokeAction runs the named action without consulting its Validate, for
// hosts where something else already chose the action. The reply contract
// matches HandleMessage.
func (r *LocalRuntime) InvokeAction(ctx context.Context, name string, state *plugin.State, callback plugin.Callback) (ActionResult, error) {
	ctx, span := r.tracer.Start(ctx, "Runtime.InvokeAction")
	defer span.End()

	for _, d := range r.Plugins() {
		for _, a := range d.Actions {
			if a.Name == name {
				return r.run(ctx, d.Name, a, state, callback)
			}
		}
	}
	return ActionResult{}, errors.New(errors.CodeNotFound, fmt.Sprintf("action %q not registered", name), nil)
}

func (r *LocalRuntime) run(ctx context.Context, owner string, action plugin.Action, state *plugin.State, callback plugin.Callback) (ActionResult, error) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(telemetry.UnitAttributes(owner, telemetry.KindAction, action.Name, sessionOf(state))...)
	span.SetAttributes(attribute.Bool(telemetry.AttrActionApplied, true))

	result := ActionResult{Plugin: owner, Action: action.Name}
	once := &onceCallback{next: callback}

	handleErr := safeHandle(ctx, action, state, once.call)
	if handleErr != nil {
		span.RecordError(handleErr)
		r.logger.WarnContext(ctx, "runtime.action.error",
			slog.String("action", action.Name),
			slog.String("error", handleErr.Error()),
		)
	}

	var err error
	if content, called, cbErr := once.result(); called {
		result.Reply = content
		err = cbErr
	} else {
		result.Fallback = true
		result.Reply = plugin.Content{Text: FallbackText, Action: action.Name, Error: true}
		err = callbackOrNil(ctx, callback, result.Reply)
	}
	if once.extra() > 0 {
		r.logger.WarnContext(ctx, "runtime.action.extra_replies",
			slog.String("action", action.Name),
			slog.Int("dropped", once.extra()),
		)
	}

	span.SetAttributes(attribute.Bool(telemetry.AttrActionFallback, result.Fallback))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	r.metrics.ActionInvoked(ctx, action.Name, result.Fallback || result.Reply.Error)
	return result, err
}

func (r *LocalRuntime) selectAction(ctx context.Context, state *plugin.State) (string, plugin.Action, bool) {
	for _, d := range r.Plugins() {
		for _, a := range d.Actions {
			if safeValidate(ctx, a.Validate, state) {
				return d.Name, a, true
			}
		}
	}
	return "", plugin.Action{}, false
}

// safeValidate treats a panicking predicate as "not applicable".
func safeValidate(ctx context.Context, fn plugin.ValidateFunc, state *plugin.State) (ok bool) {
	if fn == nil {
		return false
	}
	defer func() {
		if rec := recover(); rec != nil {
			ok = false
		}
	}()
	return fn(ctx, state)
}

func safeHandle(ctx context.Context, a plugin.Action, state *plugin.State, cb plugin.Callback) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("action %s panicked: %v", a.Name, rec)
		}
	}()
	return a.Handle(ctx, state, cb)
}

func callbackOrNil(ctx context.Context, cb plugin.Callback, c plugin.Content) error {
	if cb == nil {
		return nil
	}
	return cb(ctx, c)
}

// onceCallback forwards the first reply and drops the rest.
type onceCallback struct {
	next plugin.Callback

	mu      sync.Mutex
	called  bool
	dropped int
	content plugin.Content
	err     error
}

func (o *onceCallback) call(ctx context.Context, c plugin.Content) error {
	o.mu.Lock()
	if o.called {
		o.dropped++
		o.mu.Unlock()
		return nil
	}
	o.called = true
	o.content = c
	o.mu.Unlock()

	err := callbackOrNil(ctx, o.next, c)

	o.mu.Lock()
	o.err = err
	o.mu.Unlock()
	return err
}

func (o *onceCallback) result() (plugin.Content, bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.content, o.called, o.err
}

func (o *onceCallback) extra() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.dropped
}

func sessionOf(state *plugin.State) string {
	if state == nil {
		return ""
	}
	return state.SessionID
}
