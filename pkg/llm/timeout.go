package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type timeoutProvider struct {
	next    Provider
	timeout time.Duration
}

// WithTimeout bounds every call of p by d. A call that runs out its own
// deadline while ctx is still live fails with a retryable TransportError.
func WithTimeout(p Provider, d time.Duration) Provider {
	if d <= 0 {
		return p
	}
	return &timeoutProvider{next: p, timeout: d}
}

func (t *timeoutProvider) Complete(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	text, err := t.next.Complete(callCtx, prompt)
	if err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return "", &TransportError{Provider: "llm", Err: fmt.Errorf("call timed out after %s", t.timeout)}
	}
	return text, err
}
