// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package guardrails masks personally identifiable information in text the
// host is about to persist, such as extracted facts.
package guardrails

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/jllopis/kairos-news/pkg/plugin"
)

// PIIType categorizes different types of PII.
type PIIType string

const (
	PIITypeEmail      PIIType = "email"
	PIITypePhone      PIIType = "phone"
	PIITypeSSN        PIIType = "ssn"
	PIITypeCreditCard PIIType = "credit_card"
	PIITypeIPAddress  PIIType = "ip_address"
)

type piiPattern struct {
	piiType PIIType
	pattern *regexp.Regexp
	mask    string
}

// Order matters: card numbers before SSNs before phones, since they overlap.
var defaultPIIPatterns = []piiPattern{
	{PIITypeCreditCard, regexp.MustCompile(`\b[0-9]{4}[-\s]?[0-9]{4}[-\s]?[0-9]{4}[-\s]?[0-9]{4}\b`), "[CREDIT_CARD]"},
	{PIITypeSSN, regexp.MustCompile(`\b[0-9]{3}-[0-9]{2}-[0-9]{4}\b`), "[SSN]"},
	{PIITypeEmail, regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`), "[EMAIL]"},
	{PIITypeIPAddress, regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\b`), "[IP_ADDRESS]"},
	{PIITypePhone, regexp.MustCompile(`(?:\+[0-9]{1,3}[-.\s]?)?\(?\b[0-9]{3}\)?[-.\s]?[0-9]{3}[-.\s]?[0-9]{4}\b`), "[PHONE]"},
}

// PIIFilter detects and masks PII.
type PIIFilter struct {
	patterns []piiPattern
	enabled  map[PIIType]bool
	logger   *slog.Logger
}

// PIIFilterOption configures the PII filter.
type PIIFilterOption func(*PIIFilter)

// WithPIITypes enables only specific PII types.
func WithPIITypes(types ...PIIType) PIIFilterOption {
	return func(f *PIIFilter) {
		for k := range f.enabled {
			f.enabled[k] = false
		}
		for _, t := range types {
			f.enabled[t] = true
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) PIIFilterOption {
	return func(f *PIIFilter) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewPIIFilter creates a filter with every PII type enabled.
func NewPIIFilter(opts ...PIIFilterOption) *PIIFilter {
	f := &PIIFilter{
		patterns: defaultPIIPatterns,
		enabled:  make(map[PIIType]bool),
		logger:   slog.Default(),
	}
	for _, p := range defaultPIIPatterns {
		f.enabled[p.piiType] = true
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Mask replaces every enabled PII match with its placeholder and reports
// which types were found, in pattern order.
func (f *PIIFilter) Mask(text string) (string, []PIIType) {
	var found []PIIType
	for _, p := range f.patterns {
		if !f.enabled[p.piiType] || !p.pattern.MatchString(text) {
			continue
		}
		text = p.pattern.ReplaceAllLiteralString(text, p.mask)
		found = append(found, p.piiType)
	}
	return text, found
}

// FilterFacts returns facts with PII masked in their claims. The input
// slice is not modified.
func (f *PIIFilter) FilterFacts(ctx context.Context, facts []plugin.Fact) []plugin.Fact {
	out := make([]plugin.Fact, len(facts))
	for i, fact := range facts {
		masked, found := f.Mask(fact.Claim)
		if len(found) > 0 {
			f.logger.DebugContext(ctx, "guardrails.pii.masked",
				slog.String("fact_id", fact.ID),
				slog.Any("types", found),
			)
			fact.Claim = masked
		}
		out[i] = fact
	}
	return out
}
