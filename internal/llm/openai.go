package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIClient calls any OpenAI-compatible Chat Completions endpoint
// (OpenAI, Groq, OpenRouter, local gateways).
type OpenAIClient struct {
	http        *http.Client
	apiKey      string
	model       string
	endpoint    string
	temperature float32
	maxTokens   int
}

func NewOpenAIClient(o Options) (*OpenAIClient, error) {
	if strings.TrimSpace(o.APIKey) == "" {
		return nil, errors.New("llm: missing API key for openai provider")
	}
	base := strings.TrimRight(strings.TrimSpace(o.BaseURL), "/")
	if base == "" {
		base = defaultOpenAIBaseURL
	}
	return &OpenAIClient{
		http:        &http.Client{Timeout: 120 * time.Second},
		apiKey:      o.APIKey,
		model:       o.Model,
		endpoint:    base + "/chat/completions",
		temperature: float32(o.Temperature),
		maxTokens:   o.MaxOutputTokens,
	}, nil
}

func (c *OpenAIClient) Name() string { return "OpenAI:" + c.model }
func (c *OpenAIClient) Close() error { return nil }

type chatReq struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResp struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *OpenAIClient) Complete(ctx context.Context, r Request) (string, error) {
	body := chatReq{
		Model:       c.model,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Messages: []chatMessage{
			{Role: "system", Content: r.System},
			{Role: "user", Content: r.User},
		},
	}
	b, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", NewTransientError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", classifyHTTPError(resp)
	}

	var out chatResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("llm: decode completion response: %w", err)
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return out.Choices[0].Message.Content, nil
}

// classifyHTTPError maps response status to the retry taxonomy. The body
// is capped so a misbehaving gateway cannot blow up error strings.
func classifyHTTPError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	const max = 2048
	if len(body) > max {
		body = body[:max]
	}
	err := fmt.Errorf("llm: unexpected status %s: %s", resp.Status, string(body))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return NewTransientError(err)
	case resp.StatusCode >= 500:
		return NewTransientError(err)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return NewPermanentError(err)
	case resp.StatusCode == http.StatusBadRequest:
		// Includes context_length_exceeded; re-sending the same payload
		// cannot succeed.
		return NewPermanentError(err)
	default:
		return err
	}
}
