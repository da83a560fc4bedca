// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package news

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jllopis/kairos-news/pkg/errors"
	"github.com/jllopis/kairos-news/pkg/resilience"
)

// DefaultEndpoint is the NewsAPI "everything" search endpoint.
const DefaultEndpoint = "https://newsapi.org/v2/everything"

// Client searches NewsAPI-compatible endpoints. Transient failures are
// retried and repeated failures open a circuit breaker so callers fall back
// quickly.
type Client struct {
	endpoint string
	apiKey   string
	language string
	pageSize int
	http     *http.Client
	retry    resilience.RetryConfig
	breaker  *resilience.CircuitBreaker
	tracer   trace.Tracer
	logger   *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the search endpoint.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

// WithLanguage sets the default article language.
func WithLanguage(lang string) Option {
	return func(c *Client) { c.language = lang }
}

// WithPageSize sets the default number of articles requested.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithRetry sets the retry policy.
func WithRetry(rc resilience.RetryConfig) Option {
	return func(c *Client) { c.retry = rc }
}

// WithBreaker sets the circuit breaker.
func WithBreaker(cb *resilience.CircuitBreaker) Option {
	return func(c *Client) { c.breaker = cb }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a NewsAPI client. Construction performs no I/O.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		endpoint: DefaultEndpoint,
		apiKey:   apiKey,
		language: "en",
		pageSize: 5,
		http:     &http.Client{Timeout: 10 * time.Second},
		retry:    resilience.DefaultRetryConfig(),
		breaker:  resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{Name: "newsapi"}),
		tracer:   otel.Tracer("kairos-news/news"),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type apiResponse struct {
	Status       string       `json:"status"`
	Code         string       `json:"code"`
	Message      string       `json:"message"`
	TotalResults int          `json:"totalResults"`
	Articles     []apiArticle `json:"articles"`
}

type apiArticle struct {
	Source struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"source"`
	Author      string `json:"author"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
	Content     string `json:"content"`
}

// Search implements Source.
func (c *Client) Search(ctx context.Context, q Query) ([]Article, error) {
	if q.Term == "" {
		return nil, errors.New(errors.CodeInvalidInput, "search term is required", nil)
	}
	if q.Language == "" {
		q.Language = c.language
	}
	if q.Limit <= 0 {
		q.Limit = c.pageSize
	}

	ctx, span := c.tracer.Start(ctx, "news.Search", trace.WithAttributes(
		attribute.String("news.term", q.Term),
		attribute.Int("news.limit", q.Limit),
	))
	defer span.End()

	var articles []Article
	err := c.breaker.Call(ctx, func() error {
		var err error
		articles, err = resilience.DoValue(ctx, c.retry, func() ([]Article, error) {
			return c.fetch(ctx, q)
		})
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.WarnContext(ctx, "news.search.error",
			slog.String("term", q.Term),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	span.SetAttributes(attribute.Int("news.results", len(articles)))
	return articles, nil
}

func (c *Client) fetch(ctx context.Context, q Query) ([]Article, error) {
	params := url.Values{}
	params.Set("q", q.Term)
	params.Set("sortBy", "publishedAt")
	params.Set("language", q.Language)
	params.Set("pageSize", strconv.Itoa(q.Limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, errors.New(errors.CodeInvalidInput, "build news request", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.New(errors.CodeContextLost, "news request canceled", err)
		}
		return nil, errors.New(errors.CodeUpstream, "news request failed", err).WithRecoverable(true)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, errors.New(errors.CodeUpstream, "read news response", err).WithRecoverable(true)
	}

	var payload apiResponse
	decodeErr := json.Unmarshal(body, &payload)

	if resp.StatusCode != http.StatusOK || payload.Status == "error" {
		return nil, statusError(resp.StatusCode, payload)
	}
	if decodeErr != nil {
		return nil, errors.New(errors.CodeUpstream, "decode news response", decodeErr).WithRecoverable(true)
	}

	articles := make([]Article, 0, len(payload.Articles))
	for _, a := range payload.Articles {
		title := CleanText(a.Title)
		if title == "" || title == "[Removed]" {
			continue
		}
		published, _ := time.Parse(time.RFC3339, a.PublishedAt)
		articles = append(articles, Article{
			Title:       title,
			Description: CleanText(a.Description),
			Content:     CleanText(a.Content),
			URL:         a.URL,
			Source:      CleanText(a.Source.Name),
			Author:      CleanText(a.Author),
			PublishedAt: published,
		})
	}
	return articles, nil
}

func statusError(status int, payload apiResponse) error {
	msg := payload.Message
	if msg == "" {
		msg = http.StatusText(status)
	}
	var pe *errors.PluginError
	switch {
	case status == http.StatusUnauthorized || payload.Code == "apiKeyInvalid" || payload.Code == "apiKeyMissing":
		pe = errors.New(errors.CodeUnauthorized, msg, nil)
	case status == http.StatusTooManyRequests || payload.Code == "rateLimited":
		pe = errors.New(errors.CodeRateLimit, msg, nil).WithRecoverable(true)
	case status >= 500:
		pe = errors.New(errors.CodeUpstream, msg, nil).WithRecoverable(true)
	default:
		pe = errors.New(errors.CodeInvalidInput, msg, nil)
	}
	return pe.WithContext("status", status).WithContext("upstream_code", payload.Code)
}

var _ Source = (*Client)(nil)

// String describes the client for logs.
func (c *Client) String() string {
	return fmt.Sprintf("newsapi(%s)", c.endpoint)
}
