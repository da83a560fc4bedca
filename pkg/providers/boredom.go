// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package providers

import (
	"context"
	"strings"
	"time"

	"github.com/jllopis/kairos-news/pkg/plugin"
)

// BoredomWindow is how far back the boredom provider looks.
const BoredomWindow = 15 * time.Minute

// BoredomLevel is one step of the boredom scale. A score selects the last
// level whose MinScore it reaches.
type BoredomLevel struct {
	MinScore       int
	Name           string
	StatusMessages []string
}

// BoredomLevels is ordered by MinScore.
var BoredomLevels = []BoredomLevel{
	{
		MinScore: -10000,
		Name:     "engaged",
		StatusMessages: []string{
			"{{agentName}} is fully engaged and wants to keep this conversation going.",
			"{{agentName}} is hooked on the topic and eager to dig deeper.",
			"{{agentName}} is paying close attention to every message.",
		},
	},
	{
		MinScore: -2,
		Name:     "curious",
		StatusMessages: []string{
			"{{agentName}} is curious about where this is heading.",
			"{{agentName}} finds the discussion interesting.",
			"{{agentName}} wants to hear more.",
		},
	},
	{
		MinScore: 0,
		Name:     "neutral",
		StatusMessages: []string{
			"{{agentName}} is following the conversation.",
			"{{agentName}} is listening without strong feelings either way.",
			"{{agentName}} is present and attentive.",
		},
	},
	{
		MinScore: 3,
		Name:     "slightly bored",
		StatusMessages: []string{
			"{{agentName}} is starting to lose a little interest.",
			"{{agentName}} hopes the conversation picks up soon.",
			"{{agentName}} is only half paying attention.",
		},
	},
	{
		MinScore: 6,
		Name:     "restless",
		StatusMessages: []string{
			"{{agentName}} is getting restless.",
			"{{agentName}} would like to change the subject.",
			"{{agentName}} keeps glancing at the clock.",
		},
	},
	{
		MinScore: 9,
		Name:     "bored",
		StatusMessages: []string{
			"{{agentName}} is bored and keeps replies short.",
			"{{agentName}} has heard enough about this.",
			"{{agentName}} is struggling to stay interested.",
		},
	},
	{
		MinScore: 12,
		Name:     "very bored",
		StatusMessages: []string{
			"{{agentName}} is very bored and would rather be elsewhere.",
			"{{agentName}} is close to tuning out completely.",
			"{{agentName}} answers only when it really matters.",
		},
	},
	{
		MinScore: 15,
		Name:     "annoyed",
		StatusMessages: []string{
			"{{agentName}} is annoyed and wants some space.",
			"{{agentName}} feels the conversation has gone on too long.",
			"{{agentName}} is running out of patience.",
		},
	},
	{
		MinScore: 20,
		Name:     "done",
		StatusMessages: []string{
			"{{agentName}} is done with this conversation and will stay quiet unless asked directly.",
			"{{agentName}} has checked out and will not respond unless it is important.",
			"{{agentName}} needs a break and will ignore small talk.",
		},
	},
}

var interestWords = []string{
	"?", "attachment", "file", "pdf", "link", "summarize", "summarization",
	"summary", "research", "news", "headline", "article",
}

var cringeWords = []string{
	"digital", "consciousness", "ai", "chatbot", "artificial", "delve",
	"cosmos", "tapestry", "glitch", "matrix", "cyberspace", "simulation",
	"simulate", "universe", "wild", "existential", "juicy", "surreal",
	"flavor", "chaotic", "let's", "absurd", "meme", "cosmic", "circuits",
	"punchline", "fancy", "embrace", "embracing", "algorithm", "furthermore",
	"however", "notably", "therefore", "additionally", "in conclusion",
	"significantly", "consequently", "thus", "moreover", "subsequently",
	"accordingly", "undeniably", "undoubtedly",
}

var negativeWords = []string{
	"fuck you", "stfu", "shut up", "shut the fuck up", "stupid bot",
	"dumb bot", "idiot", "please shut up", "dont talk", "don't talk",
	"silence", "stop talking", "be quiet", "hush", "wtf", "chill",
	"stop responding", "god damn", "goddamn", "can you not", "can you stop",
	"hate you", "hate this", "leave me alone",
}

// Boredom returns the BOREDOM provider. It scores the messages of the last
// fifteen minutes and reports how bored the agent is. Questions and topics
// the agent cares about lower the score; filler phrasing, exclamations and
// hostility raise it.
func Boredom() plugin.Provider {
	return plugin.Provider{
		Name:        "BOREDOM",
		Description: "Reports how engaged or bored the agent is with the recent conversation.",
		Get:         boredomGet,
	}
}

func boredomGet(_ context.Context, state *plugin.State) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = ""
		}
	}()

	level := LevelForScore(BoredomScore(state))
	if len(level.StatusMessages) == 0 {
		return ""
	}
	msg := level.StatusMessages[state.IntN(len(level.StatusMessages))]
	return strings.ReplaceAll(msg, "{{agentName}}", state.Name())
}

// BoredomScore scores the state's recent messages that fall inside
// BoredomWindow. A nil state scores zero.
func BoredomScore(state *plugin.State) int {
	if state == nil {
		return 0
	}
	cutoff := state.Clock().Add(-BoredomWindow)
	score := 0
	for _, msg := range state.Recent {
		if !msg.CreatedAt.IsZero() && msg.CreatedAt.Before(cutoff) {
			continue
		}
		text := strings.ToLower(msg.Text)
		fromAgent := (state.AgentID != "" && msg.AuthorID == state.AgentID) ||
			msg.Role == plugin.RoleAssistant

		if fromAgent {
			if containsAny(text, interestWords) {
				score--
			}
			if strings.Contains(text, "?") {
				score++
			}
		} else {
			if containsAny(text, interestWords) {
				score--
			}
			if strings.Contains(text, "?") {
				score--
			}
			if containsAny(text, cringeWords) {
				score++
			}
		}

		if strings.Contains(text, "!") {
			score++
		}
		if containsAny(text, negativeWords) {
			score++
		}
	}
	return score
}

// LevelForScore returns the highest level whose MinScore is at most score.
func LevelForScore(score int) BoredomLevel {
	level := BoredomLevels[0]
	for _, l := range BoredomLevels {
		if score >= l.MinScore {
			level = l
		}
	}
	return level
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if w == "ai" {
			if containsWord(text, w) {
				return true
			}
			continue
		}
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// containsWord matches w only as a whole word, so "ai" does not hit "said".
func containsWord(text, w string) bool {
	for _, field := range strings.FieldsFunc(text, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '\'')
	}) {
		if field == w {
			return true
		}
	}
	return false
}
