// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package telemetry wires logging, tracing and metrics for the news plugin
// and the reference host that drives it.
package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys used on unit spans and metrics.
const (
	AttrPlugin    = "kairos.plugin.name"
	AttrUnitKind  = "kairos.unit.kind" // action, evaluator, provider
	AttrUnitName  = "kairos.unit.name"
	AttrSessionID = "kairos.session.id"
	AttrMessageID = "kairos.message.id"

	AttrActionApplied  = "kairos.action.applied"
	AttrActionFallback = "kairos.action.fallback"
	AttrFactsExtracted = "kairos.facts.extracted"
	AttrFragmentLength = "kairos.provider.fragment_length"
)

// Unit kinds.
const (
	KindAction    = "action"
	KindEvaluator = "evaluator"
	KindProvider  = "provider"
)

// UnitAttributes identifies a unit call.
func UnitAttributes(plugin, kind, name, sessionID string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrPlugin, plugin),
		attribute.String(AttrUnitKind, kind),
		attribute.String(AttrUnitName, name),
	}
	if sessionID != "" {
		attrs = append(attrs, attribute.String(AttrSessionID, sessionID))
	}
	return attrs
}
