// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package runtime

import (
	"context"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jllopis/kairos-news/pkg/plugin"
	"github.com/jllopis/kairos-news/pkg/resilience"
	"github.com/jllopis/kairos-news/pkg/telemetry"
)

// ComposeContext calls every provider in registration and declaration order
// and joins the non-empty fragments with newlines. Providers that panic or
// exceed the provider timeout contribute nothing.
func (r *LocalRuntime) ComposeContext(ctx context.Context, state *plugin.State) string {
	ctx, span := r.tracer.Start(ctx, "Runtime.ComposeContext")
	defer span.End()

	var fragments []string
	for _, d := range r.Plugins() {
		for _, p := range d.Providers {
			fragment, err := resilience.WithTimeout(ctx, r.providerTimeout, func(ctx context.Context) (string, error) {
				return plugin.SafeGet(ctx, p, state), nil
			})
			if err != nil {
				r.logger.WarnContext(ctx, "runtime.provider.timeout",
					slog.String("provider", p.Name),
					slog.Duration("timeout", r.providerTimeout),
				)
			}
			fragment = strings.TrimSpace(fragment)
			if fragment == "" {
				r.metrics.ProviderFailed(ctx, p.Name)
				continue
			}
			fragments = append(fragments, fragment)
		}
	}
	out := strings.Join(fragments, "\n")
	span.SetAttributes(attribute.Int(telemetry.AttrFragmentLength, len(out)))
	return out
}
