// Package completion is the 4.C completion provider adapter: text to
// text with the §5 rate-limit discipline and retry, deterministic
// per-request-id logging, and configurable temperature/max-tokens/model.
package completion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ragforge/internal/logger"
	"ragforge/internal/ragerr"
)

// Provider is the completion surface used by the structured executor
// (internal/structured).
type Provider interface {
	Generate(ctx context.Context, prompt string, requestID string) (string, error)
	GenerateBatch(ctx context.Context, prompts []string) ([]string, error)
}

// Options configures a backend's model call.
type Options struct {
	Model           string
	Temperature     float32
	MaxOutputTokens int32
	// RetryAttempts caps total attempts per call (default 3).
	RetryAttempts int
	// Proactive opts into the sliding-window limiter instead of the
	// reactive strategy.
	Proactive       bool
	MaxPerMinute    int
	// CallTimeout bounds a single provider round-trip; exceeding it is
	// GenTimeout, retried like a rate limit.
	CallTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.RetryAttempts <= 0 {
		o.RetryAttempts = 3
	}
	if o.MaxPerMinute <= 0 {
		o.MaxPerMinute = 60
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = 60 * time.Second
	}
	return o
}

// callFn performs exactly one provider round-trip and classifies its
// error into a ragerr.Kind; backends implement this and hand it to
// withRetry.
type callFn func(ctx context.Context) (string, error)

// withRetry runs fn under the provider's rate limiter, applying the §5
// reactive/proactive discipline and the §7 retry policy: *RateLimited and
// GenTimeout retry up to opts.RetryAttempts; everything else surfaces
// immediately.
func withRetry(ctx context.Context, limiter *rateLimiter, providerName string, opts Options, requestID string, fn callFn) (string, error) {
	var lastDelay time.Duration
	var lastErr error

	for attempt := 1; attempt <= opts.RetryAttempts; attempt++ {
		if err := limiter.beforeRequest(ctx); err != nil {
			return "", err
		}

		callCtx, cancel := context.WithTimeout(ctx, opts.CallTimeout)
		text, err := fn(callCtx)
		cancel()

		if err == nil {
			limiter.onSuccess()
			logger.Debug("completion call succeeded", "provider", providerName, "requestId", requestID, "attempt", attempt)
			return text, nil
		}

		lastErr = err
		var classified *ragerr.Error
		if !errors.As(err, &classified) {
			classified = ragerr.New(ragerr.GenProviderDown, providerName, err)
		}

		if !ragerr.Retriable(classified.Kind) {
			limiter.onFinalFailure()
			return "", classified
		}

		logger.Warn("completion call retrying", "provider", providerName, "requestId", requestID, "attempt", attempt, "kind", string(classified.Kind))

		if classified.Kind == GenRateLimitedKind() {
			delay, waitErr := limiter.onRateLimited(ctx)
			lastDelay = delay
			if waitErr != nil {
				limiter.onFinalFailure()
				return "", waitErr
			}
		}
	}

	limiter.onFinalFailure()
	final := ragerr.New(ragerr.GenProviderDown, providerName, lastErr).WithAttr("retryAttempts", opts.RetryAttempts)
	if lastDelay > 0 {
		final.RetryAfter = fmt.Errorf("%s", lastDelay)
	}
	return "", final
}

// GenRateLimitedKind exists only so withRetry doesn't need to import
// ragerr.GenRateLimited twice across files; kept trivial on purpose.
func GenRateLimitedKind() ragerr.Kind { return ragerr.GenRateLimited }

func classifyMessage(providerName, op, msg string, err error) error {
	switch {
	case isRateLimitMessage(msg):
		return ragerr.New(ragerr.GenRateLimited, providerName, err)
	case isTimeoutMessage(msg):
		return ragerr.New(ragerr.GenTimeout, providerName, err)
	case isSafetyMessage(msg):
		return ragerr.New(ragerr.GenSafetyBlocked, providerName, err)
	default:
		return ragerr.New(ragerr.GenProviderDown, providerName, err)
	}
}

func isRateLimitMessage(msg string) bool {
	for _, needle := range []string{"429", "quota", "rate limit", "resource exhausted"} {
		if containsFold(msg, needle) {
			return true
		}
	}
	return false
}

func isTimeoutMessage(msg string) bool {
	return containsFold(msg, "deadline exceeded") || containsFold(msg, "timeout") || containsFold(msg, "context canceled")
}

func isSafetyMessage(msg string) bool {
	return containsFold(msg, "safety") || containsFold(msg, "blocked") || containsFold(msg, "content filter")
}

func containsFold(haystack, needle string) bool {
	h, n := []rune(haystack), []rune(needle)
	toLower := func(r rune) rune {
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}
	for i := 0; i+len(n) <= len(h); i++ {
		match := true
		for j := range n {
			if toLower(h[i+j]) != toLower(n[j]) {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
