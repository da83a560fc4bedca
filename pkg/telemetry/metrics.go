// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// UnitMetrics counts unit activity. A nil *UnitMetrics is valid and records
// nothing.
type UnitMetrics struct {
	actionInvocations metric.Int64Counter
	actionFallbacks   metric.Int64Counter
	factsExtracted    metric.Int64Counter
	providerFailures  metric.Int64Counter
}

// NewUnitMetrics registers the counters on the global meter provider.
func NewUnitMetrics() (*UnitMetrics, error) {
	meter := otel.Meter("kairos-news/units")

	actionInvocations, err := meter.Int64Counter(
		"news.action.invocations",
		metric.WithDescription("Action handler invocations by action"),
	)
	if err != nil {
		return nil, err
	}
	actionFallbacks, err := meter.Int64Counter(
		"news.action.fallbacks",
		metric.WithDescription("Degraded replies emitted after a handler failure"),
	)
	if err != nil {
		return nil, err
	}
	factsExtracted, err := meter.Int64Counter(
		"news.facts.extracted",
		metric.WithDescription("Facts returned by evaluators"),
	)
	if err != nil {
		return nil, err
	}
	providerFailures, err := meter.Int64Counter(
		"news.provider.failures",
		metric.WithDescription("Provider calls that resolved to an empty fragment"),
	)
	if err != nil {
		return nil, err
	}

	return &UnitMetrics{
		actionInvocations: actionInvocations,
		actionFallbacks:   actionFallbacks,
		factsExtracted:    factsExtracted,
		providerFailures:  providerFailures,
	}, nil
}

// ActionInvoked counts one handler run.
func (m *UnitMetrics) ActionInvoked(ctx context.Context, action string, fallback bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String(AttrUnitName, action))
	m.actionInvocations.Add(ctx, 1, attrs)
	if fallback {
		m.actionFallbacks.Add(ctx, 1, attrs)
	}
}

// FactsExtracted counts facts returned by an evaluator.
func (m *UnitMetrics) FactsExtracted(ctx context.Context, evaluator string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.factsExtracted.Add(ctx, int64(n), metric.WithAttributes(attribute.String(AttrUnitName, evaluator)))
}

// ProviderFailed counts a provider call that produced nothing.
func (m *UnitMetrics) ProviderFailed(ctx context.Context, provider string) {
	if m == nil {
		return
	}
	m.providerFailures.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrUnitName, provider)))
}
