package graphrag

import (
	"context"
	"fmt"

	"github.com/blevesearch/bleve/v2"

	"github.com/community-assistant/server/internal/assistant/model"
	"github.com/community-assistant/server/internal/assistant/rag"
	logx "github.com/community-assistant/server/pkg/logger"
)

// DocumentExtractor extracts one document's graph fragment.
type DocumentExtractor interface {
	Extract(ctx context.Context, doc rag.Document) (*model.Extraction, error)
}

// Indexer builds the knowledge graph of a profile directory.
type Indexer struct {
	extractor DocumentExtractor
	store     *Store
	entities  bleve.Index
	relations bleve.Index
}

func NewIndexer(x DocumentExtractor, store *Store, entities, relations bleve.Index) *Indexer {
	return &Indexer{extractor: x, store: store, entities: entities, relations: relations}
}

// IndexDir extracts every document of dir and replaces the stored graph.
// A document whose extraction fails is skipped.
func (ix *Indexer) IndexDir(ctx context.Context, dir string) (*Graph, error) {
	docs, err := rag.ReadDocuments(dir)
	if err != nil {
		return nil, err
	}
	return ix.Index(ctx, docs)
}

func (ix *Indexer) Index(ctx context.Context, docs []rag.Document) (*Graph, error) {
	g := NewGraph()
	failed := 0
	for i, d := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ext, err := ix.extractor.Extract(ctx, d)
		if err != nil {
			failed++
			logx.Error().Err(err).Str("doc", d.ID).Msg("extraction failed")
			continue
		}
		g.Merge(ext)
		logx.Info().Int("done", i+1).Int("total", len(docs)).Msg("profiles extracted")
	}
	if failed == len(docs) && len(docs) > 0 {
		return nil, fmt.Errorf("extraction failed for all %d documents", len(docs))
	}

	if err := ix.store.Replace(ctx, g, docs); err != nil {
		return nil, err
	}
	if err := indexGraph(g, ix.entities, ix.relations); err != nil {
		return nil, err
	}
	logx.Info().Int("entities", len(g.Entities)).Int("relations", len(g.Relations)).Int("failed", failed).Msg("knowledge graph indexed")
	return g, nil
}
