package text2sql

import (
	"context"
	"fmt"
	"strings"

	"github.com/community-assistant/server/internal/assistant/llm"
	"github.com/community-assistant/server/internal/assistant/model"
	"github.com/community-assistant/server/internal/assistant/parsers"
	"github.com/community-assistant/server/internal/assistant/prompts"
	"github.com/community-assistant/server/pkg/database"
)

var queryFormat = llm.FormatFor("SQLQueryOutput", model.SQLQuery{})

// Synthesizer turns a question into a SQLQuery with one completion call.
type Synthesizer struct {
	chain   *llm.PromptChain
	schema  Schema
	dialect string
	limit   int
}

func NewSynthesizer(ctx context.Context, client *llm.Client, modelName string, schema Schema, driver string) (*Synthesizer, error) {
	chain, err := client.NewStructuredPromptChain(ctx, modelName, prompts.SQLQuery(), queryFormat)
	if err != nil {
		return nil, err
	}
	return &Synthesizer{chain: chain, schema: schema, dialect: Dialect(driver), limit: DefaultLimit}, nil
}

// Dialect names the SQL flavour of a database/sql driver for the prompt.
func Dialect(driver string) string {
	if driver == database.DriverPostgres {
		return "PostgreSQL"
	}
	return "SQLite"
}

// Synthesize returns the parsed query, or an error. A reply without SQL is an error.
func (s *Synthesizer) Synthesize(ctx context.Context, question string) (model.SQLQuery, error) {
	content, err := s.chain.Complete(ctx, map[string]any{
		"Question": question,
		"Dialect":  s.dialect,
		"Limit":    s.limit,
		"Schema":   s.schema.Describe(),
	})
	if err != nil {
		return model.SQLQuery{}, err
	}

	var q model.SQLQuery
	if err := parsers.DecodeJSONObject(content, &q); err != nil {
		return model.SQLQuery{}, fmt.Errorf("parse query reply: %w", err)
	}
	q.SQLQuery = strings.TrimSpace(q.SQLQuery)
	if q.SQLQuery == "" {
		return model.SQLQuery{}, fmt.Errorf("parse query reply: sql_query is empty")
	}
	return q, nil
}
