package llm

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/pkg/errors"
)

type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// RetryProvider retries transient failures with exponential backoff.
// Invalid output is retried once; quota and request errors never are.
type RetryProvider struct {
	inner Provider
	conf  RetryConfig
}

func WithRetry(p Provider, conf RetryConfig) Provider {
	if conf.MaxAttempts < 1 {
		conf.MaxAttempts = 1
	}
	return &RetryProvider{inner: p, conf: conf}
}

func (r *RetryProvider) ModelID() string { return r.inner.ModelID() }

func (r *RetryProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	var lastErr error
	invalidRetried := false

	for attempt := 0; attempt < r.conf.MaxAttempts; attempt++ {
		resp, err := r.inner.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !retryable(err, &invalidRetried) || attempt == r.conf.MaxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.backoff(attempt, err)):
		}
	}
	return nil, lastErr
}

func retryable(err error, invalidRetried *bool) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var quota *QuotaError
	var reqErr *RequestError
	if errors.As(err, &quota) || errors.As(err, &reqErr) {
		return false
	}

	var invalid *InvalidResponseError
	if errors.As(err, &invalid) {
		if *invalidRetried {
			return false
		}
		*invalidRetried = true
	}
	return true
}

func (r *RetryProvider) backoff(attempt int, err error) time.Duration {
	var rl *RateLimitError
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		return rl.RetryAfter
	}

	wait := float64(r.conf.InitialWait) * math.Pow(r.conf.Multiplier, float64(attempt))
	if max := float64(r.conf.MaxWait); max > 0 && wait > max {
		wait = max
	}
	wait += wait * 0.2 * (2*rand.Float64() - 1) // ±20% jitter
	if wait < 0 {
		wait = 0
	}
	return time.Duration(wait)
}
