// Package summary produces cached, rate-limited natural-language
// summaries of tender descriptions.
package summary

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sethvargo/go-retry"

	"tenderbot/internal/cache"
)

const (
	snippetLen    = 1500
	excerptLen    = 120
	fallbackMark  = "[summary unavailable]"
	systemPrompt  = "Summarise in max 60 words."
	callTimeout   = 15 * time.Second
	defaultTries  = 2 // retries after the first attempt
	backoffSeed   = time.Second
)

// Completer is the summarization service client.
type Completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Limiter gates calls to the summarization service.
type Limiter interface {
	Admit(ctx context.Context) error
}

// Summarizer computes summaries through a content-addressed cache.
// A cache hit bypasses the limiter and the service entirely. A miss
// that fails all retries degrades to a marked excerpt of the input;
// the degraded result is cached too, so a failing call is never
// retried for the same content on a later pass.
type Summarizer struct {
	client  Completer
	store   cache.Store
	limiter Limiter
	log     *slog.Logger
	model   string
	retries uint64
	backoff time.Duration
}

// New creates a Summarizer using the gpt-4o model.
func New(client Completer, store cache.Store, limiter Limiter, log *slog.Logger) *Summarizer {
	return &Summarizer{
		client:  client,
		store:   store,
		limiter: limiter,
		log:     log,
		model:   openai.GPT4o,
		retries: defaultTries,
		backoff: backoffSeed,
	}
}

// SetRetryPolicy overrides the attempt count and backoff seed delay.
func (s *Summarizer) SetRetryPolicy(attempts int, seed time.Duration) {
	if attempts < 1 {
		attempts = 1
	}
	s.retries = uint64(attempts - 1)
	s.backoff = seed
}

// Summarize returns a summary for raw. It never fails: service errors
// degrade to a fallback excerpt after retries are exhausted.
func (s *Summarizer) Summarize(ctx context.Context, raw string) string {
	snippet := truncate(strings.TrimSpace(raw), snippetLen)
	key := ContentKey(snippet)

	if v, ok := s.store.Get(key); ok {
		return v
	}

	out, err := s.complete(ctx, snippet)
	if err != nil {
		s.log.Error("summarize", "key", key, "error", err)
		out = fallback(snippet)
	}

	if err := s.store.Put(key, out); err != nil {
		s.log.Error("cache summary", "key", key, "error", err)
	}
	return out
}

// ContentKey returns the deterministic cache key for a content snippet.
func ContentKey(snippet string) string {
	h := sha256.Sum256([]byte(snippet))
	return hex.EncodeToString(h[:])
}

func (s *Summarizer) complete(ctx context.Context, snippet string) (string, error) {
	var out string
	b := retry.WithMaxRetries(s.retries, retry.NewFibonacci(s.backoff))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		if err := s.limiter.Admit(ctx); err != nil {
			return err
		}

		callCtx, cancel := context.WithTimeout(ctx, callTimeout)
		defer cancel()

		resp, err := s.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
			Model: s.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: snippet},
			},
		})
		if err != nil {
			return retry.RetryableError(fmt.Errorf("chat completion: %w", err))
		}
		if len(resp.Choices) == 0 {
			return retry.RetryableError(fmt.Errorf("empty completion response"))
		}
		out = strings.TrimSpace(resp.Choices[0].Message.Content)
		return nil
	})
	return out, err
}

func fallback(snippet string) string {
	return fallbackMark + " " + shorten(snippet, excerptLen)
}

// shorten collapses whitespace and cuts at a word boundary, appending
// an ellipsis when anything was dropped.
func shorten(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= max {
		return s
	}
	cut := truncate(s, max-3)
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return cut + "..."
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
