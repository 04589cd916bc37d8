// Package llm gives the pipeline a uniform chat-completion surface over
// interchangeable providers. Sampling options are fixed on the client at
// construction; callers only supply the system and user text.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Client is the provider-agnostic completion interface.
type Client interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
	Close() error
}

// Request carries a single system+user exchange.
type Request struct {
	System string
	User   string
}

// Options configures a provider client. Resolved once at process start
// and never read from the environment afterwards.
type Options struct {
	Provider        string // "openai", "gemini" or "fake"
	BaseURL         string
	APIKey          string
	Model           string
	Temperature     float64
	MaxOutputTokens int

	RetryAttempts  int
	RetryBaseDelay time.Duration
	RequestsPerSec float64
	Burst          int
}

// Middleware wraps a Client with cross-cutting behavior.
type Middleware func(Client) Client

// Chain applies middlewares so the first listed becomes the outermost.
func Chain(c Client, mws ...Middleware) Client {
	for i := len(mws) - 1; i >= 0; i-- {
		c = mws[i](c)
	}
	return c
}

// New builds the configured provider wrapped in the standard middleware
// stack: logging outermost, then retry, then the request-rate gate, so
// every retry attempt pays for its own rate-limit token.
func New(ctx context.Context, o Options) (Client, error) {
	var (
		base Client
		err  error
	)
	switch strings.ToLower(strings.TrimSpace(o.Provider)) {
	case "", "openai":
		base, err = NewOpenAIClient(o)
	case "gemini":
		base, err = NewGeminiClient(ctx, o)
	case "fake":
		base = NewFakeClient()
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", o.Provider)
	}
	if err != nil {
		return nil, err
	}
	return Chain(base,
		WithLogging(nil),
		Retry(o.RetryAttempts, o.RetryBaseDelay),
		RateLimit(o.RequestsPerSec, o.Burst),
	), nil
}
