// Package graphrag answers questions from a knowledge graph extracted from member profiles.
package graphrag

import (
	"context"

	"github.com/community-assistant/server/internal/assistant/llm"
	"github.com/community-assistant/server/internal/assistant/model"
	"github.com/community-assistant/server/internal/assistant/prompts"
	logx "github.com/community-assistant/server/pkg/logger"
)

const (
	// ResponseType is the answer format requested from the completion API.
	ResponseType = "Single Paragraph"
	// NoContextAnswer is returned without a completion call when nothing matches.
	NoContextAnswer = "Sorry, I'm not able to provide an answer to that question."
)

type Assistant struct {
	querier *Querier
	chain   *llm.PromptChain
}

func NewAssistant(ctx context.Context, client *llm.Client, modelName string, querier *Querier) (*Assistant, error) {
	chain, err := client.NewPromptChain(ctx, modelName, prompts.GraphAnswer())
	if err != nil {
		return nil, err
	}
	return &Assistant{querier: querier, chain: chain}, nil
}

func (a *Assistant) Answer(ctx context.Context, question string) (*model.Reply, error) {
	kb, err := a.querier.Query(ctx, question)
	if err != nil {
		return nil, err
	}
	if kb.Empty() {
		logx.Debug().Msg("no graph context matched")
		return &model.Reply{Content: NoContextAnswer}, nil
	}

	answer, err := a.chain.Complete(ctx, map[string]any{
		"Community":    prompts.Community,
		"Context":      kb.String(),
		"ResponseType": ResponseType,
		"Question":     question,
	})
	if err != nil {
		return nil, err
	}
	return &model.Reply{Content: answer}, nil
}
