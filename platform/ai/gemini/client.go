// Package gemini provides a text generation client backed by the Gemini API.
// This is part of the platform layer and contains no business logic.
package gemini

import (
	"context"
	"errors"
	"fmt"

	"github.com/N8Nexus-ai/product/platform/apperr"

	"google.golang.org/genai"
)

const (
	defaultModel       = "gemini-pro"
	defaultTemperature = float32(0.7)
	defaultMaxTokens   = int32(2048)
)

// Client generates text through the Gemini API.
type Client struct {
	client *genai.Client
	model  string
}

// New creates a Gemini client. The model falls back to gemini-pro when empty.
func New(ctx context.Context, apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, apperr.Validation("gemini API key is required")
	}
	if model == "" {
		model = defaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &Client{client: client, model: model}, nil
}

// Name identifies the provider in logs and fallback chains.
func (c *Client) Name() string { return "gemini" }

// GenerateText sends a single-turn prompt and returns the response text.
func (c *Client) GenerateText(ctx context.Context, prompt, system string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(defaultTemperature),
		MaxOutputTokens: defaultMaxTokens,
	}
	if system != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		}
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", classifyError(err)
	}

	text := resp.Text()
	if text == "" {
		return "", apperr.Unavailable("gemini returned an empty response")
	}

	return text, nil
}

func classifyError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 400:
			return apperr.Wrap(apperr.KindBadRequest, "gemini rejected the request", err)
		case 401, 403:
			return apperr.Wrap(apperr.KindUnauthorized, "gemini API key invalid or unauthorized", err)
		case 429:
			return apperr.Wrap(apperr.KindUnavailable, "gemini rate limit exceeded", err)
		}
	}
	return apperr.Wrap(apperr.KindUnavailable, "gemini request failed", err)
}
