// Package simple answers from the fixed community description file.
package simple

import (
	"context"
	"fmt"
	"os"

	"github.com/community-assistant/server/internal/assistant/llm"
	"github.com/community-assistant/server/internal/assistant/model"
	"github.com/community-assistant/server/internal/assistant/prompts"
)

type Assistant struct {
	chain   *llm.PromptChain
	context string
}

// NewAssistant reads contextFile once.
func NewAssistant(ctx context.Context, client *llm.Client, modelName, contextFile string) (*Assistant, error) {
	b, err := os.ReadFile(contextFile)
	if err != nil {
		return nil, fmt.Errorf("read community context: %w", err)
	}
	chain, err := client.NewPromptChain(ctx, modelName, prompts.SimpleChat())
	if err != nil {
		return nil, err
	}
	return &Assistant{chain: chain, context: string(b)}, nil
}

func (a *Assistant) Answer(ctx context.Context, question string) (*model.Reply, error) {
	answer, err := a.chain.Complete(ctx, map[string]any{
		"Community": prompts.Community,
		"Subject":   "community",
		"Question":  question,
		"Context":   a.context,
	})
	if err != nil {
		return nil, err
	}
	return &model.Reply{Content: answer}, nil
}
