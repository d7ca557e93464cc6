// Package rag answers questions about members from embedded profile chunks.
package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/community-assistant/server/internal/assistant/embedding"
	"github.com/community-assistant/server/internal/assistant/llm"
	"github.com/community-assistant/server/internal/assistant/model"
	"github.com/community-assistant/server/internal/assistant/prompts"
	logx "github.com/community-assistant/server/pkg/logger"
)

// Assistant retrieves the topK closest chunks and answers from them.
type Assistant struct {
	embedder embedding.Embedder
	store    *VectorStore
	chain    *llm.PromptChain
	topK     int
}

func NewAssistant(ctx context.Context, client *llm.Client, modelName string, e embedding.Embedder, store *VectorStore, topK int) (*Assistant, error) {
	chain, err := client.NewPromptChain(ctx, modelName, prompts.MembersChat())
	if err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = 3
	}
	return &Assistant{embedder: e, store: store, chain: chain, topK: topK}, nil
}

// Retrieve returns the joined text of the best matching chunks.
func (a *Assistant) Retrieve(ctx context.Context, question string) (string, error) {
	vecs, err := a.embedder.Embed(ctx, []string{question})
	if err != nil {
		return "", err
	}
	if len(vecs) != 1 {
		return "", fmt.Errorf("expected one query vector, got %d", len(vecs))
	}
	matches, err := a.store.Search(ctx, vecs[0], a.topK)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, m := range matches {
		sb.WriteString("\n")
		sb.WriteString(m.Text)
	}
	logx.Debug().Int("matches", len(matches)).Msg("context retrieved")
	return sb.String(), nil
}

func (a *Assistant) Answer(ctx context.Context, question string) (*model.Reply, error) {
	retrieved, err := a.Retrieve(ctx, question)
	if err != nil {
		return nil, err
	}
	answer, err := a.chain.Complete(ctx, map[string]any{
		"Community": prompts.Community,
		"Subject":   "community members",
		"Question":  question,
		"Context":   retrieved,
	})
	if err != nil {
		return nil, err
	}
	return &model.Reply{Content: answer}, nil
}
