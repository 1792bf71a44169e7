// Package llm provides single-turn text completion against interchangeable
// LLM providers. The provider is chosen by configuration at process start.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/breadoorr/SmartPlan/pkg/config"
)

// Provider completes a single prompt. No conversation state is kept between calls.
type Provider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, prompt string) (string, error)

func (f ProviderFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// ErrTransport marks failures reaching the provider: network, auth or HTTP status errors.
var ErrTransport = errors.New("llm provider transport error")

// TransportError carries the provider name and, when known, the HTTP status.
// It matches ErrTransport under errors.Is.
type TransportError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// Retryable reports whether err is a transport failure worth another attempt:
// connection errors, rate limiting and server errors. Other client errors
// (bad key, bad request) and context cancellation are final.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var te *TransportError
	if errors.As(err, &te) {
		return te.StatusCode == 0 || te.StatusCode == http.StatusTooManyRequests || te.StatusCode >= 500
	}
	return errors.Is(err, ErrTransport)
}

// New builds the provider named in cfg. Each attempt is bounded by
// cfg.Timeout and transport failures are retried.
func New(ctx context.Context, cfg config.LLMConfig) (Provider, error) {
	var (
		p   Provider
		err error
	)
	switch cfg.Provider {
	case "gemini", "":
		p, err = NewGemini(ctx, cfg.Gemini)
	case "anthropic", "claude":
		p, err = NewAnthropic(cfg.Anthropic)
	case "openai":
		p, err = NewOpenAI(cfg.OpenAI)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	log.Printf("Using LLM provider %q", cfg.Provider)

	p = WithTimeout(p, cfg.Timeout)
	if cfg.MaxRetries > 0 {
		p = WithRetry(p, cfg.MaxRetries, cfg.RetryDelay)
	}
	return p, nil
}
