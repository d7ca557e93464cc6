package rag

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/community-assistant/server/internal/assistant/llm/llmtest"
	"github.com/community-assistant/server/pkg/database"
)

// keywordEmbedder maps text to keyword counts, enough to rank profiles by employer.
type keywordEmbedder struct {
	calls int
}

var keywords = []string{"microsoft", "intel", "nvidia"}

func (e *keywordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	out := make([][]float32, len(texts))
	for i, text := range texts {
		lower := strings.ToLower(text)
		v := make([]float32, len(keywords)+1)
		for k, w := range keywords {
			v[k] = float32(strings.Count(lower, w))
		}
		v[len(keywords)] = 0.01
		out[i] = v
	}
	return out, nil
}

func writeProfiles(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	profiles := map[string]string{
		"alice.txt":  "Alice Haddad works as a Backend Engineer at Microsoft since 2016.",
		"omar.txt":   "Omar Zoabi is a Data Scientist at Intel. Before Intel he studied statistics.",
		"nadeem.txt": "Nadeem Azaizah is currently working at Nvidia as a GPU architect.",
	}
	for name, text := range profiles {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(text), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "skip"), 0o755))
	return dir
}

func newStore(t *testing.T) *VectorStore {
	t.Helper()
	db, err := database.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "vectors.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	store, err := NewVectorStore(context.Background(), db)
	require.NoError(t, err)
	return store
}

func TestChunkWords(t *testing.T) {
	assert.Nil(t, ChunkWords("   ", 4, 1))
	assert.Equal(t, []string{"a b c"}, ChunkWords("a  b\nc", 4, 1))
	assert.Equal(t, []string{"a b c d", "d e f g", "g h"}, ChunkWords("a b c d e f g h", 4, 1))
	assert.Equal(t, []string{"a b", "c d"}, ChunkWords("a b c d", 2, 5))

	long := strings.Repeat("w ", 1100)
	chunks := ChunkWords(long, ChunkSize, ChunkOverlap)
	require.Len(t, chunks, 3)
	assert.Len(t, strings.Fields(chunks[0]), ChunkSize)
}

func TestIndexAndSearch(t *testing.T) {
	ctx := context.Background()
	emb := &keywordEmbedder{}
	store := newStore(t)

	n, err := NewIndexer(emb, store).IndexDir(ctx, writeProfiles(t))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	q, _ := emb.Embed(ctx, []string{"who works at intel?"})
	matches, err := store.Search(ctx, q[0], 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "omar.txt", matches[0].DocID)
	assert.Greater(t, matches[0].Score, matches[1].Score)

	// reindexing overwrites
	_, err = NewIndexer(emb, store).IndexDir(ctx, writeProfiles(t))
	require.NoError(t, err)
	count, err = store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestIndexDirMissing(t *testing.T) {
	_, err := NewIndexer(&keywordEmbedder{}, newStore(t)).IndexDir(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestAssistantAnswersFromRetrievedContext(t *testing.T) {
	ctx := context.Background()
	emb := &keywordEmbedder{}
	store := newStore(t)
	_, err := NewIndexer(emb, store).IndexDir(ctx, writeProfiles(t))
	require.NoError(t, err)

	fake := llmtest.Reply("Nadeem Azaizah works at Nvidia.")
	a, err := NewAssistant(ctx, llmtest.Client(fake), "", emb, store, 1)
	require.NoError(t, err)

	reply, err := a.Answer(ctx, "where is nadeem azaizah working? nvidia?")
	require.NoError(t, err)
	assert.Equal(t, "Nadeem Azaizah works at Nvidia.", reply.Content)

	calls := fake.Calls()
	require.Len(t, calls, 1)
	user := llmtest.Content(calls[0], schema.User)
	assert.Contains(t, user, "GPU architect")
	assert.NotContains(t, user, "Backend Engineer")
	assert.Contains(t, user, "Dabburiya Tech community members")
	assert.Contains(t, llmtest.Content(calls[0], schema.System), "Not in provided context.")
}
