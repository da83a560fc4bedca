// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package llm provides the model access used by the news plugin units for
// search-term and claim extraction.
package llm

import (
	"context"
	"fmt"
	"strings"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single unit of communication.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatRequest encapsulates the input for the model.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// ChatResponse encapsulates the output from the model.
type ChatResponse struct {
	Content string `json:"content"`
	Usage   Usage  `json:"usage"`
}

// Usage tracks token consumption.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Provider defines the interface for interacting with model backends.
type Provider interface {
	// Chat sends a chat request and returns the response.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// Complete sends a single system+user exchange and returns the trimmed text.
// A panicking provider, including a typed nil one, is reported as an error.
func Complete(ctx context.Context, p Provider, system, prompt string) (text string, err error) {
	if p == nil {
		return "", fmt.Errorf("llm provider is nil")
	}
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("llm provider panicked: %v", r)
		}
	}()
	msgs := make([]Message, 0, 2)
	if system != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: system})
	}
	msgs = append(msgs, Message{Role: RoleUser, Content: prompt})

	resp, err := p.Chat(ctx, ChatRequest{Messages: msgs})
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", fmt.Errorf("llm provider returned no response")
	}
	return strings.TrimSpace(resp.Content), nil
}
