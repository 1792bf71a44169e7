// Package planner turns a free-text project description into a task roadmap
// with two sequential LLM calls: structure the input, then generate tasks.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/breadoorr/SmartPlan/pkg/llm"
	"github.com/breadoorr/SmartPlan/pkg/model"
	"github.com/breadoorr/SmartPlan/pkg/parser"
)

var (
	ErrMissingInput      = errors.New("user input is required")
	ErrStructuringFailed = errors.New("failed to structure input")
	ErrGenerationFailed  = errors.New("no task list generated")
)

// Planner runs the structure and generate stages against one provider.
// It holds no per-request state and is safe for concurrent use.
type Planner struct {
	provider llm.Provider
	timeout  time.Duration
	now      func() time.Time
}

type Option func(*Planner)

// WithCallTimeout bounds each stage as a whole, retries of the provider
// included. Zero, the default, leaves the bound to the provider and ctx.
func WithCallTimeout(d time.Duration) Option {
	return func(p *Planner) { p.timeout = d }
}

// WithClock overrides the clock used for the date embedded in the generate prompt.
func WithClock(now func() time.Time) Option {
	return func(p *Planner) { p.now = now }
}

func New(provider llm.Provider, opts ...Option) *Planner {
	p := &Planner{
		provider: provider,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GenerateTasks returns the raw text of the generate stage. The second prompt
// embeds the trimmed output of the first; an empty output at either stage
// stops the pipeline.
func (p *Planner) GenerateTasks(ctx context.Context, userInput string) (string, error) {
	if strings.TrimSpace(userInput) == "" {
		return "", ErrMissingInput
	}

	structured, err := p.complete(ctx, buildStructurePrompt(userInput))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrStructuringFailed, err)
	}
	if structured == "" {
		return "", ErrStructuringFailed
	}

	raw, err := p.complete(ctx, buildGeneratePrompt(structured, p.now()))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	if raw == "" {
		return "", ErrGenerationFailed
	}
	return raw, nil
}

// Plan runs both stages, parses the task array and validates it.
func (p *Planner) Plan(ctx context.Context, userInput string) ([]model.Task, error) {
	raw, err := p.GenerateTasks(ctx, userInput)
	if err != nil {
		return nil, err
	}

	tasks, err := parser.ParseTasks(raw)
	if err != nil {
		log.Printf("Error parsing tasks JSON: %v\nraw response: %s", err, raw)
		return nil, err
	}
	tasks = parser.Normalize(tasks)
	if err := parser.Validate(tasks); err != nil {
		log.Printf("Rejected generated tasks: %v\nraw response: %s", err, raw)
		return nil, err
	}
	return tasks, nil
}

func (p *Planner) complete(ctx context.Context, prompt string) (string, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	text, err := p.provider.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
