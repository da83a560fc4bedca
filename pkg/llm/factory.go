// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"fmt"
	"strings"
)

// QwenBaseURL is the DashScope OpenAI-compatible endpoint used for "qwen".
const QwenBaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"

// Settings selects and configures a Provider.
type Settings struct {
	Provider string // none, mock, ollama, openai, anthropic, gemini, qwen
	Model    string
	BaseURL  string
	APIKey   string
	// MockResponse is returned by the mock provider.
	MockResponse string
}

// New builds the provider named in s. It returns (nil, nil) for "none" or
// an empty name, which leaves the units on their non-model fallbacks.
// No network calls are made.
func New(s Settings) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(s.Provider)) {
	case "", "none":
		return nil, nil
	case "mock":
		return &MockProvider{Response: s.MockResponse}, nil
	case "ollama":
		return NewOllama(s.BaseURL, s.Model), nil
	case "openai":
		return NewOpenAI(s.APIKey, s.BaseURL, s.Model), nil
	case "anthropic":
		return NewAnthropic(s.APIKey, s.BaseURL, s.Model), nil
	case "gemini":
		p, err := NewGemini(context.Background(), s.APIKey, s.Model)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "qwen":
		baseURL := s.BaseURL
		if baseURL == "" {
			baseURL = QwenBaseURL
		}
		model := s.Model
		if model == "" {
			model = "qwen-plus"
		}
		return NewOpenAI(s.APIKey, baseURL, model), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", s.Provider)
	}
}
