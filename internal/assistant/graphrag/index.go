package graphrag

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	logx "github.com/community-assistant/server/pkg/logger"
)

// Index names under the graph index directory.
const (
	EntityIndexName   = "entities.bleve"
	RelationIndexName = "relations.bleve"
)

type entityDoc struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

type relationDoc struct {
	Source      string `json:"source"`
	Target      string `json:"target"`
	Description string `json:"description"`
	Keywords    string `json:"keywords"`
}

func textMapping() *mapping.IndexMappingImpl {
	m := bleve.NewIndexMapping()
	text := bleve.NewTextFieldMapping()
	text.Analyzer = "standard"
	m.DefaultMapping.AddFieldMapping(text)
	return m
}

// CreateIndex replaces any index at path with an empty one.
func CreateIndex(path string) (bleve.Index, error) {
	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove index %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	idx, err := bleve.New(path, textMapping())
	if err != nil {
		return nil, fmt.Errorf("create bleve index at %s: %w", path, err)
	}
	return idx, nil
}

// OpenIndex opens an existing index read for querying.
func OpenIndex(path string) (bleve.Index, error) {
	idx, err := bleve.Open(path)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		return nil, fmt.Errorf("graph index %s does not exist; run the graph indexer first", path)
	}
	if err != nil {
		return nil, fmt.Errorf("open bleve index at %s: %w", path, err)
	}
	logx.Debug().Str("path", path).Msg("bleve index opened")
	return idx, nil
}

// NewMemIndex returns an in-memory index.
func NewMemIndex() (bleve.Index, error) {
	return bleve.NewMemOnly(textMapping())
}

// indexGraph writes every entity and relation of g into the two indexes.
func indexGraph(g *Graph, entities, relations bleve.Index) error {
	eb := entities.NewBatch()
	for _, e := range g.SortedEntities() {
		if err := eb.Index(Key(e.Name), entityDoc{Name: e.Name, Type: e.Type, Description: e.Description}); err != nil {
			return fmt.Errorf("index entity %q: %w", e.Name, err)
		}
	}
	if err := entities.Batch(eb); err != nil {
		return fmt.Errorf("write entity index: %w", err)
	}

	rb := relations.NewBatch()
	for _, r := range g.SortedRelations() {
		doc := relationDoc{Source: r.Source, Target: r.Target, Description: r.Description, Keywords: r.Keywords}
		if err := rb.Index(RelationKey(r.Source, r.Target), doc); err != nil {
			return fmt.Errorf("index relation %s-%s: %w", r.Source, r.Target, err)
		}
	}
	if err := relations.Batch(rb); err != nil {
		return fmt.Errorf("write relation index: %w", err)
	}
	return nil
}

// searchIDs returns the ids of the best k matches for text.
func searchIDs(idx bleve.Index, text string, k int) ([]string, error) {
	req := bleve.NewSearchRequestOptions(bleve.NewMatchQuery(text), k, 0, false)
	res, err := idx.Search(req)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(res.Hits))
	for i, h := range res.Hits {
		ids[i] = h.ID
	}
	return ids, nil
}
