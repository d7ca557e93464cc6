// Package app wires the configured assistants for each chat profile.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/community-assistant/server/internal/assistant/agent"
	"github.com/community-assistant/server/internal/assistant/agent/tools"
	"github.com/community-assistant/server/internal/assistant/chart"
	"github.com/community-assistant/server/internal/assistant/embedding"
	"github.com/community-assistant/server/internal/assistant/graphrag"
	"github.com/community-assistant/server/internal/assistant/llm"
	"github.com/community-assistant/server/internal/assistant/model"
	"github.com/community-assistant/server/internal/assistant/rag"
	"github.com/community-assistant/server/internal/assistant/router"
	"github.com/community-assistant/server/internal/assistant/simple"
	"github.com/community-assistant/server/internal/assistant/text2sql"
	"github.com/community-assistant/server/internal/config"
	"github.com/community-assistant/server/internal/metrics"
	"github.com/community-assistant/server/pkg/database"
	logx "github.com/community-assistant/server/pkg/logger"
)

const embeddingCacheTTL = 30 * 24 * time.Hour

// Deps are the process-wide handles every assistant shares.
type Deps struct {
	Config  *config.Config
	Client  *llm.Client
	Redis   *redis.Client
	Metrics *metrics.Metrics
}

// Assistants holds the built assistants and the resources they keep open.
type Assistants struct {
	ByProfile map[string]router.Assistant
	closers   []io.Closer
}

func (a *Assistants) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	return errors.Join(errs...)
}

// Build constructs every assistant it can. A mode whose data is missing is
// logged and left out so its profile is hidden.
func Build(ctx context.Context, d Deps) *Assistants {
	a := &Assistants{ByProfile: map[string]router.Assistant{}}
	builders := []struct {
		profile string
		build   func(context.Context, Deps) (router.Assistant, error)
	}{
		{model.ProfileSimpleChat, buildSimple},
		{model.ProfileRAG, a.buildRAG},
		{model.ProfileGraphRAG, a.buildGraphRAG},
		{model.ProfileTextToSQL, buildTextToSQL},
		{model.ProfileFRCAgent, buildAgent},
	}
	for _, b := range builders {
		as, err := b.build(ctx, d)
		if err != nil {
			logx.Warn().Err(err).Str("profile", b.profile).Msg("assistant unavailable")
			continue
		}
		a.ByProfile[b.profile] = as
		logx.Debug().Str("profile", b.profile).Msg("assistant ready")
	}
	return a
}

func buildSimple(ctx context.Context, d Deps) (router.Assistant, error) {
	return simple.NewAssistant(ctx, d.Client, d.Config.LLM.ChatModel, d.Config.Data.ContextFile())
}

func (a *Assistants) buildRAG(ctx context.Context, d Deps) (router.Assistant, error) {
	var cache embedding.Cache
	if d.Redis != nil {
		cache = embedding.NewRedisCache(d.Redis, embeddingCacheTTL)
	}
	e, err := embedding.NewHTTPEmbedder(d.Config.LLM, d.Config.Embedding, cache)
	if err != nil {
		return nil, err
	}

	db, err := database.OpenSQLite(ctx, d.Config.Data.VectorDB())
	if err != nil {
		return nil, err
	}
	store, err := rag.NewVectorStore(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	a.closers = append(a.closers, db)
	if n, err := store.Count(ctx); err == nil && n == 0 {
		logx.Warn().Str("path", d.Config.Data.VectorDB()).Msg("vector store is empty; run the rag indexer")
	}
	return rag.NewAssistant(ctx, d.Client, d.Config.LLM.AnswerModel, e, store, d.Config.Retrieval.RAGTopK)
}

func (a *Assistants) buildGraphRAG(ctx context.Context, d Deps) (router.Assistant, error) {
	dir := d.Config.Data.GraphIndexDir()
	entities, err := graphrag.OpenIndex(filepath.Join(dir, graphrag.EntityIndexName))
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, entities)
	relations, err := graphrag.OpenIndex(filepath.Join(dir, graphrag.RelationIndexName))
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, relations)

	db, err := database.OpenSQLite(ctx, d.Config.Data.GraphDB())
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, db)
	store, err := graphrag.NewStore(ctx, db)
	if err != nil {
		return nil, err
	}

	q := graphrag.NewQuerier(store, entities, relations, d.Config.Retrieval.GraphTopK)
	return graphrag.NewAssistant(ctx, d.Client, d.Config.LLM.AnswerModel, q)
}

func buildTextToSQL(ctx context.Context, d Deps) (router.Assistant, error) {
	cfg := d.Config
	synth, err := text2sql.NewSynthesizer(ctx, d.Client, cfg.LLM.ChatModel, text2sql.Members, cfg.SQL.Driver)
	if err != nil {
		return nil, err
	}
	composer, err := text2sql.NewComposer(ctx, d.Client, cfg.LLM.AnswerModel)
	if err != nil {
		return nil, err
	}
	charts, err := chart.NewSynthesizer(ctx, d.Client, cfg.LLM.ChatModel, d.Metrics)
	if err != nil {
		return nil, err
	}
	return text2sql.NewPipeline(ctx, text2sql.PipelineConfig{
		Synthesizer: synth,
		Validator:   text2sql.NewValidator(text2sql.Members, text2sql.DefaultLimit),
		Executor:    text2sql.NewExecutor(cfg.SQL),
		Composer:    composer,
		Charts:      charts,
		Metrics:     d.Metrics,
	})
}

func buildAgent(ctx context.Context, d Deps) (router.Assistant, error) {
	if d.Config.TBA.Key == "" {
		return nil, fmt.Errorf("TBA_KEY is not set")
	}
	return agent.NewAgent(ctx, d.Client, d.Config.Agent, tools.NewTBAClient(d.Config.TBA), d.Metrics)
}
