// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package plugin

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jllopis/kairos-news/pkg/errors"
)

// Descriptor bundles the units a plugin registers with the host. It is built
// once at load time and treated as immutable afterwards; the order of each
// collection is the order the host uses when it iterates units.
type Descriptor struct {
	Name        string
	Description string
	Actions     []Action
	Evaluators  []Evaluator
	Providers   []Provider
}

// Validate checks that the descriptor is named and that unit names are
// non-empty and unique within each category.
func (d *Descriptor) Validate() error {
	if d == nil {
		return errors.New(errors.CodeInvalidInput, "descriptor is nil", nil)
	}
	if d.Name == "" {
		return errors.New(errors.CodeInvalidInput, "descriptor name is required", nil)
	}

	actions := make([]string, 0, len(d.Actions))
	for _, a := range d.Actions {
		if a.Validate == nil || a.Handle == nil {
			return errors.New(errors.CodeInvalidInput, fmt.Sprintf("action %q needs validate and handle", a.Name), nil)
		}
		actions = append(actions, a.Name)
	}
	if err := uniqueNames("action", actions); err != nil {
		return err
	}

	evaluators := make([]string, 0, len(d.Evaluators))
	for _, e := range d.Evaluators {
		if e.Handle == nil || (!e.AlwaysRun && e.Validate == nil) {
			return errors.New(errors.CodeInvalidInput, fmt.Sprintf("evaluator %q needs handle and a trigger", e.Name), nil)
		}
		evaluators = append(evaluators, e.Name)
	}
	if err := uniqueNames("evaluator", evaluators); err != nil {
		return err
	}

	providers := make([]string, 0, len(d.Providers))
	for _, p := range d.Providers {
		if p.Get == nil {
			return errors.New(errors.CodeInvalidInput, fmt.Sprintf("provider %q needs get", p.Name), nil)
		}
		providers = append(providers, p.Name)
	}
	return uniqueNames("provider", providers)
}

// ActionNames returns action names in declaration order.
func (d *Descriptor) ActionNames() []string {
	out := make([]string, 0, len(d.Actions))
	for _, a := range d.Actions {
		out = append(out, a.Name)
	}
	return out
}

// EvaluatorNames returns evaluator names in declaration order.
func (d *Descriptor) EvaluatorNames() []string {
	out := make([]string, 0, len(d.Evaluators))
	for _, e := range d.Evaluators {
		out = append(out, e.Name)
	}
	return out
}

// ProviderNames returns provider names in declaration order.
func (d *Descriptor) ProviderNames() []string {
	out := make([]string, 0, len(d.Providers))
	for _, p := range d.Providers {
		out = append(out, p.Name)
	}
	return out
}

func uniqueNames(kind string, names []string) error {
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if name == "" {
			return errors.New(errors.CodeInvalidInput, kind+" name is required", nil)
		}
		if _, ok := seen[name]; ok {
			return errors.New(errors.CodeDuplicateUnit, fmt.Sprintf("duplicate %s %q", kind, name), nil).
				WithContext("kind", kind).
				WithContext("name", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// SafeGet calls a provider and converts a panic into an empty fragment.
func SafeGet(ctx context.Context, p Provider, state *State) (fragment string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Default().WarnContext(ctx, "provider.panic",
				slog.String("provider", p.Name),
				slog.Any("panic", r),
			)
			fragment = ""
		}
	}()
	if p.Get == nil {
		return ""
	}
	return p.Get(ctx, state)
}
