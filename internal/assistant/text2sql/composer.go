package text2sql

import (
	"context"

	"github.com/community-assistant/server/internal/assistant/llm"
	"github.com/community-assistant/server/internal/assistant/model"
	"github.com/community-assistant/server/internal/assistant/prompts"
)

// Composer writes the answer from the question and the serialized result table.
type Composer struct {
	chain *llm.PromptChain
}

func NewComposer(ctx context.Context, client *llm.Client, modelName string) (*Composer, error) {
	chain, err := client.NewPromptChain(ctx, modelName, prompts.SQLAnswer())
	if err != nil {
		return nil, err
	}
	return &Composer{chain: chain}, nil
}

func (c *Composer) Compose(ctx context.Context, question string, rs *model.ResultSet) (string, error) {
	return c.chain.Complete(ctx, map[string]any{
		"Community": prompts.Community,
		"Question":  question,
		"Table":     rs.String(),
	})
}
