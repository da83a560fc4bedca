// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jllopis/kairos-news/pkg/plugin"
	"github.com/jllopis/kairos-news/pkg/telemetry"
)

// Evaluate runs every evaluator that is AlwaysRun or whose Validate accepts
// state, then persists the collected facts through the fact store after
// passing them through the fact filter, if any. Evaluator
// and store failures are logged and never returned; the result holds the
// facts the evaluators produced.
func (r *LocalRuntime) Evaluate(ctx context.Context, state *plugin.State) []plugin.Fact {
	ctx, span := r.tracer.Start(ctx, "Runtime.Evaluate")
	defer span.End()

	var all []plugin.Fact
	for _, d := range r.Plugins() {
		for _, e := range d.Evaluators {
			if !e.AlwaysRun && !safeValidate(ctx, e.Validate, state) {
				continue
			}
			facts, err := safeEvaluate(ctx, e, state)
			if err != nil {
				r.logger.WarnContext(ctx, "runtime.evaluator.error",
					slog.String("plugin", d.Name),
					slog.String("evaluator", e.Name),
					slog.String("error", err.Error()),
				)
				continue
			}
			r.logger.DebugContext(ctx, "runtime.evaluator.done",
				slog.String("evaluator", e.Name),
				slog.Int("facts", len(facts)),
			)
			r.metrics.FactsExtracted(ctx, e.Name, len(facts))
			all = append(all, facts...)
		}
	}
	span.SetAttributes(attribute.Int(telemetry.AttrFactsExtracted, len(all)))

	if len(all) > 0 && r.factFilter != nil {
		all = r.factFilter.FilterFacts(ctx, all)
	}

	if len(all) > 0 && r.facts != nil {
		if err := r.facts.SaveFacts(ctx, all); err != nil {
			span.RecordError(err)
			r.logger.ErrorContext(ctx, "runtime.facts.save_failed",
				slog.Int("facts", len(all)),
				slog.String("error", err.Error()),
			)
		}
	}
	return all
}

func safeEvaluate(ctx context.Context, e plugin.Evaluator, state *plugin.State) (facts []plugin.Fact, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			facts, err = nil, fmt.Errorf("evaluator %s panicked: %v", e.Name, rec)
		}
	}()
	return e.Handle(ctx, state)
}
