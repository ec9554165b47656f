// Package llm wraps a single logical call to the external completion
// service: pre-flight token validation, bounded retries with exponential
// backoff, and classified failure reporting.
package llm

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/notewise/aibridge/internal/budget"
	"github.com/notewise/aibridge/internal/classify"

	log "github.com/sirupsen/logrus"
)

// Client defaults.
const (
	DefaultMaxAttempts       = 3
	DefaultBaseDelay         = time.Second
	DefaultBackoffMultiplier = 2.0
)

// CompletionResult is the outcome of a successful completion call.
type CompletionResult struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Config tunes the client's retry and budgeting behavior. Zero values fall
// back to the defaults.
type Config struct {
	MaxAttempts       int
	BaseDelay         time.Duration
	BackoffMultiplier float64
	CeilingTokens     int
}

// Client executes completion requests against an Invoker. It is an
// explicitly constructed, injected value; there is no process-wide
// singleton. Safe for concurrent use as long as the transport is.
type Client struct {
	transport Invoker
	estimator *budget.Estimator
	cfg       Config
}

// New constructs a Client over the given transport.
func New(transport Invoker, cfg Config) *Client {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultBaseDelay
	}
	if cfg.BackoffMultiplier <= 0 {
		cfg.BackoffMultiplier = DefaultBackoffMultiplier
	}
	return &Client{
		transport: transport,
		estimator: budget.NewEstimatorWithCeiling(cfg.CeilingTokens),
		cfg:       cfg,
	}
}

// Execute runs one completion request. Oversized input is rejected locally
// with kind token_limit before any provider call. Transient failures are
// retried up to MaxAttempts with exponential backoff; the returned error is
// always a *classify.ClassifiedError built from the last raw failure.
// Backoff sleeps block only the calling goroutine.
func (c *Client) Execute(ctx context.Context, req Request) (*CompletionResult, error) {
	estimate := c.estimator.Estimate(req.Content)
	if !estimate.WithinLimit {
		return nil, classify.WrapKind(
			classify.KindTokenLimit,
			fmt.Errorf("llm: prompt of ~%d tokens exceeds the %d token ceiling", estimate.Count, c.estimator.Ceiling),
			map[string]any{
				"estimated_tokens": estimate.Count,
				"ceiling_tokens":   c.estimator.Ceiling,
			},
		)
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			// No cancellation contract during backoff; attempt
			// exhaustion is the only exit from the retry loop.
			time.Sleep(c.backoffDelay(attempt))
		}

		invocation, errInvoke := c.transport.Invoke(ctx, req)
		if errInvoke != nil {
			lastErr = errInvoke
			log.WithError(errInvoke).Debugf("llm: attempt %d/%d failed", attempt, c.cfg.MaxAttempts)
			continue
		}

		return c.buildResult(estimate.Count, invocation), nil
	}

	kind := classify.Classify(lastErr)
	if kind == classify.KindUnknown {
		kind = classify.KindAPIError
	}
	return nil, classify.WrapKind(kind, lastErr, map[string]any{
		"attempts": c.cfg.MaxAttempts,
	})
}

// backoffDelay returns the sleep inserted before the given attempt:
// baseDelay * multiplier^(n-1) after the n-th failure.
func (c *Client) backoffDelay(attempt int) time.Duration {
	factor := math.Pow(c.cfg.BackoffMultiplier, float64(attempt-2))
	return time.Duration(float64(c.cfg.BaseDelay) * factor)
}

// buildResult derives token accounting from the invocation, falling back to
// local estimation where the provider did not report counts.
func (c *Client) buildResult(estimatedPrompt int, invocation *Invocation) *CompletionResult {
	promptTokens := invocation.PromptTokens
	if promptTokens <= 0 {
		promptTokens = estimatedPrompt
	}
	completionTokens := invocation.CompletionTokens
	if completionTokens <= 0 {
		completionTokens = c.estimator.Count(invocation.Text)
	}
	totalTokens := invocation.TotalTokens
	if totalTokens <= 0 {
		totalTokens = promptTokens + completionTokens
	}
	return &CompletionResult{
		Text:             invocation.Text,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      totalTokens,
	}
}
