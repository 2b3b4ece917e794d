package llm

import (
	"context"
	"time"
)

const retryBaseDelay = 500 * time.Millisecond

// Retrying wraps a Client with bounded retry and exponential backoff.
// Only transient failures (timeout, rate limit, network) are retried;
// auth and malformed-response failures surface immediately.
type Retrying struct {
	inner      Client
	maxRetries int
	sleep      func(time.Duration)
}

func NewRetrying(inner Client, maxRetries int) *Retrying {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Retrying{
		inner:      inner,
		maxRetries: maxRetries,
		sleep:      time.Sleep,
	}
}

func (r *Retrying) Complete(ctx context.Context, prompt string) (string, error) {
	delay := retryBaseDelay
	var lastErr error

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			r.sleep(delay)
			delay *= 2
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}

		text, err := r.inner.Complete(ctx, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err

		pe, ok := AsProviderError(err)
		if !ok || !pe.Kind.Retryable() {
			return "", err
		}
	}

	return "", lastErr
}
