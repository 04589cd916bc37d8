package llm

import (
	"context"
	"strings"

	genai "google.golang.org/genai"
)

// GeminiClient is a thin wrapper around the official genai client.
type GeminiClient struct {
	cli         *genai.Client
	model       string
	temperature float32
	maxTokens   int
}

func NewGeminiClient(ctx context.Context, o Options) (*GeminiClient, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  o.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &GeminiClient{
		cli:         cli,
		model:       o.Model,
		temperature: float32(o.Temperature),
		maxTokens:   o.MaxOutputTokens,
	}, nil
}

func (g *GeminiClient) Name() string { return "Gemini:" + g.model }
func (g *GeminiClient) Close() error { return nil }

func (g *GeminiClient) Complete(ctx context.Context, r Request) (string, error) {
	// Gemini has no separate system role on this path; the system text
	// leads the single content block.
	full := r.System + "\n\n" + r.User
	temp := g.temperature

	cfg := &genai.GenerateContentConfig{Temperature: &temp}
	if g.maxTokens > 0 {
		cfg.MaxOutputTokens = int32(g.maxTokens)
	}

	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: full}}}},
		cfg,
	)
	if err != nil {
		return "", classifyGeminiError(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyResponse
	}
	txt := resp.Candidates[0].Content.Parts[0].Text
	if strings.TrimSpace(txt) == "" {
		return "", ErrEmptyResponse
	}
	return txt, nil
}

// classifyGeminiError sorts genai failures into the retry taxonomy by
// status text; the SDK does not expose stable error types for this.
func classifyGeminiError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "429") || strings.Contains(msg, "RESOURCE_EXHAUSTED"):
		return NewTransientError(err)
	case strings.Contains(msg, "UNAVAILABLE") || strings.Contains(msg, "DEADLINE_EXCEEDED"):
		return NewTransientError(err)
	case strings.Contains(msg, "401") || strings.Contains(msg, "403") || strings.Contains(msg, "PERMISSION_DENIED") || strings.Contains(msg, "UNAUTHENTICATED"):
		return NewPermanentError(err)
	case strings.Contains(msg, "INVALID_ARGUMENT"):
		return NewPermanentError(err)
	default:
		return err
	}
}
