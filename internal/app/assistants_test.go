package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/community-assistant/server/internal/assistant/graphrag"
	"github.com/community-assistant/server/internal/assistant/llm/llmtest"
	"github.com/community-assistant/server/internal/assistant/model"
	"github.com/community-assistant/server/internal/config"
	"github.com/community-assistant/server/pkg/database"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "community_generic_info.txt"), []byte("Dabburiya Tech is a community."), 0o644))
	return &config.Config{
		LLM:       model.LLMConfig{ChatModel: "fake-model", AnswerModel: "fake-model"},
		Embedding: model.EmbeddingConfig{Model: "text-embedding-3-small"},
		Data:      model.DataConfig{Dir: dir},
		Retrieval: model.RetrievalConfig{RAGTopK: 3, GraphTopK: 3},
		SQL:       database.Config{Driver: database.DriverSQLite, DSN: filepath.Join(dir, "data.db")},
	}
}

func TestBuildSkipsUnavailableModes(t *testing.T) {
	cfg := testConfig(t)
	a := Build(context.Background(), Deps{Config: cfg, Client: llmtest.Client(llmtest.Reply("ok"))})
	t.Cleanup(func() { _ = a.Close() })

	assert.Contains(t, a.ByProfile, model.ProfileSimpleChat)
	assert.Contains(t, a.ByProfile, model.ProfileRAG)
	assert.Contains(t, a.ByProfile, model.ProfileTextToSQL)
	assert.NotContains(t, a.ByProfile, model.ProfileGraphRAG, "no graph index")
	assert.NotContains(t, a.ByProfile, model.ProfileFRCAgent, "no TBA key")
}

func TestBuildWithGraphIndexAndAgent(t *testing.T) {
	cfg := testConfig(t)
	cfg.TBA = model.TBAConfig{Key: "k", BaseURL: "http://127.0.0.1:1"}

	dir := cfg.Data.GraphIndexDir()
	for _, name := range []string{graphrag.EntityIndexName, graphrag.RelationIndexName} {
		idx, err := graphrag.CreateIndex(filepath.Join(dir, name))
		require.NoError(t, err)
		require.NoError(t, idx.Close())
	}
	db, err := database.OpenSQLite(context.Background(), cfg.Data.GraphDB())
	require.NoError(t, err)
	_, err = graphrag.NewStore(context.Background(), db)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	a := Build(context.Background(), Deps{Config: cfg, Client: llmtest.Client(llmtest.Reply("ok"))})
	t.Cleanup(func() { _ = a.Close() })

	assert.Len(t, a.ByProfile, 5)
}

func TestSimpleAssistantAnswers(t *testing.T) {
	cfg := testConfig(t)
	a := Build(context.Background(), Deps{Config: cfg, Client: llmtest.Client(llmtest.Reply("We meet monthly."))})
	t.Cleanup(func() { _ = a.Close() })

	reply, err := a.ByProfile[model.ProfileSimpleChat].Answer(context.Background(), "when do you meet?")
	require.NoError(t, err)
	assert.Equal(t, "We meet monthly.", reply.Content)
}
