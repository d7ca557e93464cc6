package rag

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/community-assistant/server/internal/assistant/embedding"
	logx "github.com/community-assistant/server/pkg/logger"
)

const embedBatch = 64

// Indexer embeds every profile file of a directory into a VectorStore.
type Indexer struct {
	embedder embedding.Embedder
	store    *VectorStore
}

func NewIndexer(e embedding.Embedder, store *VectorStore) *Indexer {
	return &Indexer{embedder: e, store: store}
}

// IndexDir replaces the store contents with the chunks of every regular file in dir.
func (ix *Indexer) IndexDir(ctx context.Context, dir string) (int, error) {
	docs, err := ReadDocuments(dir)
	if err != nil {
		return 0, err
	}
	logx.Info().Int("documents", len(docs)).Str("dir", dir).Msg("indexing profiles")

	var chunks []Chunk
	for _, d := range docs {
		for i, text := range ChunkWords(d.Text, ChunkSize, ChunkOverlap) {
			chunks = append(chunks, Chunk{ID: fmt.Sprintf("%s#%d", d.ID, i), DocID: d.ID, Text: text})
		}
	}

	for start := 0; start < len(chunks); start += embedBatch {
		end := min(start+embedBatch, len(chunks))
		texts := make([]string, end-start)
		for i := range texts {
			texts[i] = chunks[start+i].Text
		}
		vecs, err := ix.embedder.Embed(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("embed chunks %d-%d: %w", start, end, err)
		}
		for i, v := range vecs {
			chunks[start+i].Embedding = v
		}
		logx.Debug().Int("done", end).Int("total", len(chunks)).Msg("chunks embedded")
	}

	if err := ix.store.Replace(ctx, chunks); err != nil {
		return 0, err
	}
	logx.Info().Int("chunks", len(chunks)).Msg("profiles indexed")
	return len(chunks), nil
}

// Document is one source file.
type Document struct {
	ID   string
	Text string
}

// ReadDocuments loads the regular files of dir in name order. The file name is the ID.
func ReadDocuments(dir string) ([]Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read documents: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var docs []Document
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		b, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		docs = append(docs, Document{ID: e.Name(), Text: string(b)})
	}
	return docs, nil
}
