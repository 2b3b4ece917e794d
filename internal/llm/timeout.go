package llm

import (
	"context"
	"time"
)

type timeoutClient struct {
	inner   Client
	timeout time.Duration
}

// WithTimeout bounds each Complete call with a deadline. Wrap the
// provider adapter before adding retry so the bound applies per attempt.
func WithTimeout(inner Client, timeout time.Duration) Client {
	if timeout <= 0 {
		return inner
	}
	return &timeoutClient{inner: inner, timeout: timeout}
}

func (c *timeoutClient) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.inner.Complete(ctx, prompt)
}
