// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package plugin

import "time"

// FactType classifies an extracted claim.
type FactType string

const (
	FactTypeFact    FactType = "fact"
	FactTypeOpinion FactType = "opinion"
	FactTypeStatus  FactType = "status"
)

// Fact is a durable claim extracted from a conversation.
type Fact struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"session_id"`
	Claim        string    `json:"claim"`
	Type         FactType  `json:"type"`
	InBio        bool      `json:"in_bio"`
	AlreadyKnown bool      `json:"already_known"`
	CreatedAt    time.Time `json:"created_at"`
}

// Fields returns the fact as a flat mapping, the shape hosts hand to
// schemaless memory backends.
func (f Fact) Fields() map[string]any {
	return map[string]any{
		"id":            f.ID,
		"session_id":    f.SessionID,
		"claim":         f.Claim,
		"type":          string(f.Type),
		"in_bio":        f.InBio,
		"already_known": f.AlreadyKnown,
		"created_at":    f.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// Claims returns the claim text of each fact.
func Claims(facts []Fact) []string {
	out := make([]string, 0, len(facts))
	for _, f := range facts {
		out = append(out, f.Claim)
	}
	return out
}
