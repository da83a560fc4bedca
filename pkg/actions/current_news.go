// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package actions implements the CURRENT_NEWS action.
package actions

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/jllopis/kairos-news/pkg/errors"
	"github.com/jllopis/kairos-news/pkg/llm"
	"github.com/jllopis/kairos-news/pkg/news"
	"github.com/jllopis/kairos-news/pkg/plugin"
)

// CurrentNewsName is the action name registered with the host.
const CurrentNewsName = "CURRENT_NEWS"

// Replies used when the fetch does not produce articles.
const (
	FetchFailedText = "Sorry, I couldn't fetch the news right now."
	NoResultsText   = "I couldn't find any news about %s right now."
	DefaultTerm     = "latest"
	DefaultLimit    = 5
)

const termSystemPrompt = `You extract news search terms. Reply with only the topic the user wants news about, in at most five words, without quotes or punctuation. Reply "latest" when no topic is given.`

// Option configures the action.
type Option func(*currentNews)

// WithLLM enables model-based search term extraction.
func WithLLM(p llm.Provider) Option {
	return func(a *currentNews) { a.model = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *currentNews) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithLimit sets how many articles the reply lists.
func WithLimit(n int) Option {
	return func(a *currentNews) {
		if n > 0 {
			a.limit = n
		}
	}
}

type currentNews struct {
	source news.Source
	model  llm.Provider
	logger *slog.Logger
	limit  int
}

// CurrentNews returns the CURRENT_NEWS action backed by source. The action
// applies to messages that mention news or headlines, searches source for
// the requested topic and replies with a short list of articles. Any fetch
// failure becomes a single error-flagged fallback reply.
func CurrentNews(source news.Source, opts ...Option) plugin.Action {
	a := &currentNews{
		source: source,
		logger: slog.Default(),
		limit:  DefaultLimit,
	}
	for _, opt := range opts {
		opt(a)
	}

	return plugin.Action{
		Name:        CurrentNewsName,
		Similes:     []string{"NEWS", "GET_NEWS", "GET_CURRENT_NEWS"},
		Description: "Get the latest news about a specific topic if asked by the user.",
		Examples: [][]plugin.Example{
			{
				{Role: plugin.RoleUser, Text: "what's the latest news about bitcoin?"},
				{Role: plugin.RoleAssistant, Text: "Let me check the headlines about bitcoin.", Action: CurrentNewsName},
			},
			{
				{Role: plugin.RoleUser, Text: "Any news on the climate summit today?"},
				{Role: plugin.RoleAssistant, Text: "Here is what the papers say about the climate summit.", Action: CurrentNewsName},
			},
		},
		Validate: validateNews,
		Handle:   a.handle,
	}
}

var newsPattern = regexp.MustCompile(`(?i)\bnews\b|\bheadlines?\b`)

func validateNews(_ context.Context, state *plugin.State) bool {
	text := state.Text()
	return text != "" && newsPattern.MatchString(text)
}

func (a *currentNews) handle(ctx context.Context, state *plugin.State, callback plugin.Callback) error {
	if callback == nil {
		return errors.New(errors.CodeInvalidInput, "callback is required", nil)
	}

	term := a.searchTerm(ctx, state)
	articles, err := a.search(ctx, term)

	var content plugin.Content
	switch {
	case err != nil:
		a.logger.WarnContext(ctx, "news.fetch.error",
			slog.String("term", term),
			slog.String("error", err.Error()),
		)
		content = plugin.Content{Text: FetchFailedText, Action: CurrentNewsName, Error: true}
	case len(articles) == 0:
		content = plugin.Content{Text: fmt.Sprintf(NoResultsText, term), Action: CurrentNewsName}
	default:
		if len(articles) > a.limit {
			articles = articles[:a.limit]
		}
		content = plugin.Content{
			Text:    fmt.Sprintf("The current news for the search term %q is:\n\n", term) + news.Format(articles, a.limit),
			Action:  CurrentNewsName,
			Sources: news.URLs(articles),
		}
	}
	return callback(ctx, content)
}

// search turns a missing source or a panicking one into an error so the
// caller still replies.
func (a *currentNews) search(ctx context.Context, term string) (articles []news.Article, err error) {
	if a.source == nil {
		return nil, errors.New(errors.CodeUpstream, "no news source configured", nil)
	}
	defer func() {
		if r := recover(); r != nil {
			err = errors.New(errors.CodeInternal, fmt.Sprintf("news source panicked: %v", r), nil)
		}
	}()
	return a.source.Search(ctx, news.Query{Term: term, Limit: a.limit})
}

func (a *currentNews) searchTerm(ctx context.Context, state *plugin.State) string {
	text := state.Text()
	if a.model != nil {
		out, err := llm.Complete(ctx, a.model, termSystemPrompt, text)
		if err != nil {
			a.logger.DebugContext(ctx, "news.term.llm_failed", slog.String("error", err.Error()))
		} else if term := cleanTerm(firstLine(out)); term != "" && !strings.EqualFold(term, "none") {
			return term
		}
	}
	return ExtractSearchTerm(text)
}

var (
	aboutPattern = regexp.MustCompile(`(?i)\b(?:news|headlines?)\b\s+(?:about|on|regarding|concerning|for|in)\s+(.+)`)
	wordPattern  = regexp.MustCompile(`[\p{L}\p{N}'’\-]+`)
)

var termStopwords = map[string]bool{
	"a": true, "an": true, "the": true, "any": true, "some": true, "me": true,
	"latest": true, "current": true, "recent": true, "today": true, "today's": true,
	"top": true, "breaking": true, "new": true, "what": true, "what's": true,
	"whats": true, "is": true, "are": true, "get": true, "show": true, "tell": true,
	"give": true, "read": true, "find": true, "us": true, "please": true, "i": true,
	"want": true, "about": true, "of": true, "on": true, "there": true,
	"hey": true, "hi": true, "can": true, "you": true, "do": true, "have": true,
}

// ExtractSearchTerm derives a search term without a model. It prefers the
// topic after "news about" style phrasing, then the words just before
// "news", and falls back to DefaultTerm.
func ExtractSearchTerm(text string) string {
	if m := aboutPattern.FindStringSubmatch(text); m != nil {
		if term := cleanTerm(m[1]); term != "" {
			return term
		}
	}

	loc := newsPattern.FindStringIndex(text)
	if loc != nil {
		words := wordPattern.FindAllString(text[:loc[0]], -1)
		var picked []string
		for i := len(words) - 1; i >= 0 && len(picked) < 3; i-- {
			w := strings.ToLower(words[i])
			if termStopwords[w] {
				break
			}
			picked = append([]string{words[i]}, picked...)
		}
		if len(picked) > 0 {
			return strings.Join(picked, " ")
		}
	}
	return DefaultTerm
}

func cleanTerm(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "?!.;\n"); i >= 0 {
		s = s[:i]
	}
	s = strings.Trim(s, " \t\"'`“”‘’,:")
	for _, suffix := range []string{" today", " please", " right now", " now"} {
		s = strings.TrimSuffix(s, suffix)
	}
	s = strings.TrimPrefix(s, "the ")
	return strings.TrimSpace(s)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
