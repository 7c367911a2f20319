// Package anthropic provides a text generation client backed by the Anthropic API.
// This is part of the platform layer and contains no business logic.
package anthropic

import (
	"context"

	"github.com/N8Nexus-ai/product/platform/apperr"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	defaultModel     = "claude-3-5-haiku-latest"
	defaultMaxTokens = int64(2048)
)

// Client generates text through the Anthropic Messages API.
type Client struct {
	client sdk.Client
	model  string
}

// New creates an Anthropic client. The model falls back to a Haiku alias when empty.
func New(apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, apperr.Validation("anthropic API key is required")
	}
	if model == "" {
		model = defaultModel
	}

	return &Client{
		client: sdk.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}, nil
}

// Name identifies the provider in logs and fallback chains.
func (c *Client) Name() string { return "anthropic" }

// GenerateText sends a single-turn prompt and returns the response text.
func (c *Client) GenerateText(ctx context.Context, prompt, system string) (string, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: defaultMaxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
		},
	}
	if system != "" {
		params.System = []sdk.TextBlockParam{{Text: system}}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", apperr.Wrap(apperr.KindUnavailable, "anthropic request failed", err)
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return "", apperr.Unavailable("anthropic returned an empty response")
	}

	return text, nil
}
