// Package agent implements the three LLM-backed transformers of the
// assistant: intent extraction, SQL synthesis, and insight generation.
// Each transformer is a pure function over its inputs plus one LLM call;
// prompt templates are re-read from disk per invocation so they can be
// tuned without a restart.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// ErrUnavailable marks LLM transport failures. There is no point retrying
// the same call with the same input, so callers fail the request instead.
var ErrUnavailable = errors.New("llm_unavailable")

// ErrInvalidResponse marks responses the transformers could not parse.
var ErrInvalidResponse = errors.New("llm_invalid_response")

// LLMClient is the interface for interacting with an LLM.
type LLMClient interface {
	// Complete sends a system and user prompt and returns the response text.
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// AnthropicClient implements LLMClient using the Anthropic API. All agent
// calls run at temperature 0 so retries are repeatable.
type AnthropicClient struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
	log       *slog.Logger
}

// NewAnthropicClient creates an Anthropic-based LLM client.
func NewAnthropicClient(apiKey string, model anthropic.Model, maxTokens int64, log *slog.Logger) *AnthropicClient {
	return &AnthropicClient{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     model,
		maxTokens: maxTokens,
		log:       log,
	}
}

// Complete sends a prompt to Claude and returns the response text.
func (c *AnthropicClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	start := time.Now()
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: anthropic.Float(0),
		System: []anthropic.TextBlockParam{
			{Type: "text", Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	duration := time.Since(start)
	if err != nil {
		if c.log != nil {
			c.log.Error("anthropic API call failed", "duration", duration, "error", err)
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if c.log != nil {
		c.log.Debug("anthropic API call completed", "duration", duration, "stopReason", msg.StopReason)
	}

	for _, block := range msg.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("%w: no text content in response", ErrInvalidResponse)
}
