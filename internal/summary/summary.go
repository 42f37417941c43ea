// Package summary produces one-sentence meeting summaries through an OpenAI
// compatible chat completions API. Every failure is turned into a fallback
// sentence so callers never see an error.
package summary

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"codingclub/internal/metrics"
)

const (
	DefaultModel = openai.GPT3Dot5Turbo

	systemPrompt = "You are a helpful assistant that summarizes coding club meetings in a single sentence."
	maxTokens    = 60
	temperature  = 0.7
	maxErrLen    = 50
)

var errEmptyCompletion = errors.New("empty completion")

// Cache stores successful summaries.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, summary string, ttl time.Duration) error
}

type Config struct {
	APIKey   string
	Model    string
	BaseURL  string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// Client calls the completion API.
type Client struct {
	api    *openai.Client
	cfg    Config
	cache  Cache
	policy *bluemonday.Policy
	log    *zap.Logger
}

// New builds a client. cache may be nil.
func New(cfg Config, cache Cache, log *zap.Logger) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return &Client{
		api:    openai.NewClientWithConfig(oc),
		cfg:    cfg,
		cache:  cache,
		policy: bluemonday.StrictPolicy(),
		log:    log,
	}
}

// Prompt renders the user message for a meeting.
func Prompt(title, description, notes string) string {
	return fmt.Sprintf(`Meeting Title: %s
Description: %s
Notes: %s

Please provide a SINGLE SENTENCE summary (25-30 words maximum) of this coding club meeting.
Focus only on the main topic or goal of the meeting. Keep it extremely brief and student-friendly.`,
		title, description, notes)
}

// Summarize returns a summary or a fallback sentence; it never fails.
func (c *Client) Summarize(ctx context.Context, title, description, notes string) string {
	if c.cfg.APIKey == "" {
		metrics.SummaryOutcomes.WithLabelValues("auth_error").Inc()
		return AuthFallback(title)
	}

	key := c.cacheKey(title, description, notes)
	if c.cache != nil {
		if s, ok, err := c.cache.Get(ctx, key); err != nil {
			c.log.Warn("summary cache get failed", zap.Error(err))
		} else if ok {
			metrics.SummaryOutcomes.WithLabelValues("cached").Inc()
			return s
		}
	}

	s, err := c.complete(ctx, title, description, notes)
	if err != nil {
		outcome, fallback := classify(title, err)
		metrics.SummaryOutcomes.WithLabelValues(outcome).Inc()
		c.log.Warn("summary generation failed", zap.String("outcome", outcome), zap.Error(err))
		return fallback
	}
	metrics.SummaryOutcomes.WithLabelValues("ok").Inc()

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, s, c.cfg.CacheTTL); err != nil {
			c.log.Warn("summary cache set failed", zap.Error(err))
		}
	}
	return s
}

func (c *Client) complete(ctx context.Context, title, description, notes string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: Prompt(title, description, notes)},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errEmptyCompletion
	}
	s := c.sanitize(resp.Choices[0].Message.Content)
	if s == "" {
		return "", errEmptyCompletion
	}
	return s, nil
}

// entityDecoder restores punctuation escaped by the sanitizer. Angle brackets
// stay escaped.
var entityDecoder = strings.NewReplacer("&amp;", "&", "&#39;", "'", "&#34;", `"`, "&quot;", `"`)

// sanitize strips markup from model output.
func (c *Client) sanitize(s string) string {
	return strings.TrimSpace(entityDecoder.Replace(c.policy.Sanitize(s)))
}

func (c *Client) cacheKey(title, description, notes string) string {
	h := sha256.New()
	for _, part := range []string{c.cfg.Model, title, description, notes} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func statusOf(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

func classify(title string, err error) (outcome, fallback string) {
	switch statusOf(err) {
	case http.StatusTooManyRequests:
		return "rate_limited", RateLimitFallback(title)
	case http.StatusUnauthorized:
		return "auth_error", AuthFallback(title)
	}
	return "error", ErrorFallback(title, err)
}

func RateLimitFallback(title string) string {
	return fmt.Sprintf("Meeting about %s. (AI summary unavailable - API rate limit reached)", title)
}

func AuthFallback(title string) string {
	return fmt.Sprintf("Meeting about %s. (AI summary unavailable - API authentication error)", title)
}

// ErrorFallback embeds the first 50 characters of the error.
func ErrorFallback(title string, err error) string {
	msg := []rune(err.Error())
	if len(msg) > maxErrLen {
		msg = msg[:maxErrLen]
	}
	return fmt.Sprintf("Meeting about %s. (AI summary unavailable - %s)", title, string(msg))
}

// Pending is stored while a queued summary job is outstanding.
func (c *Client) Pending(title string) string {
	return fmt.Sprintf("Meeting about %s. (AI summary pending)", title)
}
