package llm

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/breadoorr/SmartPlan/pkg/config"
)

const (
	defaultGeminiModel     = "gemini-2.5-flash"
	defaultGeminiMaxTokens = 8192

	geminiTemperature = 0.5
	geminiTopP        = 0.9
)

// Gemini completes prompts with the Gemini API.
type Gemini struct {
	client    *genai.Client
	model     string
	maxTokens int32
}

// NewGemini creates a Gemini provider authenticated with an API key.
func NewGemini(ctx context.Context, cfg config.ProviderConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("missing GOOGLE_API_KEY")
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.BaseURL
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("unable to create Gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultGeminiMaxTokens
	}
	return &Gemini{client: client, model: model, maxTokens: int32(maxTokens)}, nil
}

// Complete sends prompt as a single user turn and returns the text of the first candidate.
func (g *Gemini) Complete(ctx context.Context, prompt string) (string, error) {
	gen := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](geminiTemperature),
		TopP:            genai.Ptr[float32](geminiTopP),
		MaxOutputTokens: g.maxTokens,
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), gen)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		te := &TransportError{Provider: "gemini", Err: err}
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			te.StatusCode = apiErr.Code
		}
		return "", te
	}
	return resp.Text(), nil
}
