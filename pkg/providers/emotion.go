// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package providers implements the BOREDOM and EMOTION context providers.
package providers

import (
	"context"

	"github.com/jllopis/kairos-news/pkg/plugin"
)

// Emotions is the fixed label set the EMOTION provider draws from.
var Emotions = []string{
	"happy",
	"sad",
	"angry",
	"surprised",
	"curious",
	"calm",
	"anxious",
	"excited",
	"bored",
	"grateful",
}

// Emotion returns the EMOTION provider. Each call picks a label uniformly at
// random using State.Rand when it is set.
func Emotion() plugin.Provider {
	return plugin.Provider{
		Name:        "EMOTION",
		Description: "Gives the agent a random emotion for the next reply.",
		Get:         emotionGet,
	}
}

func emotionGet(_ context.Context, state *plugin.State) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = ""
		}
	}()
	return state.Name() + " is feeling " + Emotions[state.IntN(len(Emotions))] + "."
}
