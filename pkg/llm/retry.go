package llm

import (
	"context"
	"fmt"
	"log"
	"time"
)

const defaultRetryDelay = time.Second

type retryProvider struct {
	next       Provider
	maxRetries int
	delay      time.Duration
}

// WithRetry retries transport failures of p with exponential backoff
// (delay, 2*delay, 4*delay, ...). Empty responses and other errors are returned as is.
func WithRetry(p Provider, maxRetries int, initialDelay time.Duration) Provider {
	if initialDelay <= 0 {
		initialDelay = defaultRetryDelay
	}
	return &retryProvider{next: p, maxRetries: maxRetries, delay: initialDelay}
}

func (r *retryProvider) Complete(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			delay := r.delay << (attempt - 1)
			log.Printf("LLM call failed (%v), retrying in %s (%d/%d)", lastErr, delay, attempt, r.maxRetries)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		text, err := r.next.Complete(ctx, prompt)
		if err == nil {
			return text, nil
		}
		if !Retryable(err) {
			return "", err
		}
		lastErr = err
	}
	return "", fmt.Errorf("max retries (%d) exceeded: %w", r.maxRetries, lastErr)
}
