package graphrag

import (
	"context"

	"github.com/cloudwego/eino/schema"

	"github.com/community-assistant/server/internal/assistant/llm"
	"github.com/community-assistant/server/internal/assistant/model"
	"github.com/community-assistant/server/internal/assistant/parsers"
	"github.com/community-assistant/server/internal/assistant/prompts"
	"github.com/community-assistant/server/internal/assistant/rag"
	logx "github.com/community-assistant/server/pkg/logger"
)

// Extractor asks the completion API for the entities and relations of one document.
type Extractor struct {
	chain *llm.PromptChain
}

func NewExtractor(ctx context.Context, client *llm.Client, modelName string) (*Extractor, error) {
	chain, err := client.NewPromptChain(ctx, modelName, prompts.GraphExtraction(EntityTypes))
	if err != nil {
		return nil, err
	}
	return &Extractor{chain: chain}, nil
}

func (x *Extractor) Extract(ctx context.Context, doc rag.Document) (*model.Extraction, error) {
	content, err := x.chain.Complete(ctx, map[string]any{
		"document": []*schema.Message{schema.UserMessage(doc.Text)},
	})
	if err != nil {
		return nil, err
	}
	ext, err := parsers.ParseExtraction(content, doc.ID)
	if err != nil {
		return nil, err
	}
	if errs, ok := ext.ParsingMetadata["parsing_errors"].([]string); ok {
		logx.Warn().Str("doc", doc.ID).Strs("errors", errs).Msg("extraction records skipped")
	}
	logx.Debug().Str("doc", doc.ID).Int("entities", len(ext.Entities)).Int("relations", len(ext.Relations)).Msg("document extracted")
	return ext, nil
}
