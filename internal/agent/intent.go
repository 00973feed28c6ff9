package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// IntentAgent turns a natural-language question into a structured one-
// paragraph description of entity, action, filters, aggregation and limit.
type IntentAgent struct {
	llm     LLMClient
	prompts *PromptStore
	log     *slog.Logger
}

// NewIntentAgent creates the intent transformer.
func NewIntentAgent(llm LLMClient, prompts *PromptStore, log *slog.Logger) *IntentAgent {
	return &IntentAgent{llm: llm, prompts: prompts, log: log}
}

// Interpret extracts the interpreted intent for a user query.
func (a *IntentAgent) Interpret(ctx context.Context, userQuery string) (string, error) {
	systemPrompt, err := a.prompts.Get(PromptIntent)
	if err != nil {
		return "", err
	}

	userPrompt := "User Query: " + userQuery
	response, err := a.llm.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return "", err
	}

	intent := strings.TrimSpace(response)
	if intent == "" {
		return "", fmt.Errorf("%w: empty intent", ErrInvalidResponse)
	}
	if a.log != nil {
		a.log.Info("intent extracted", "intent", intent)
	}
	return intent, nil
}
