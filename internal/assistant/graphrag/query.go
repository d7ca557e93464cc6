package graphrag

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"

	"github.com/community-assistant/server/internal/assistant/model"
	"github.com/community-assistant/server/internal/assistant/rag"
)

// Retrieved is the knowledge assembled for one question.
type Retrieved struct {
	Entities  []model.Entity
	Relations []model.Relation
	Documents []rag.Document
}

func (r *Retrieved) Empty() bool {
	return len(r.Entities) == 0 && len(r.Relations) == 0
}

// String renders the knowledge base section of the answer prompt.
func (r *Retrieved) String() string {
	var sb strings.Builder
	sb.WriteString("-----Entities-----\n")
	for _, e := range r.Entities {
		fmt.Fprintf(&sb, "- %s (%s): %s\n", e.Name, e.Type, oneLine(e.Description))
	}
	sb.WriteString("\n-----Relationships-----\n")
	for _, rel := range r.Relations {
		fmt.Fprintf(&sb, "- %s -> %s: %s", rel.Source, rel.Target, oneLine(rel.Description))
		if rel.Keywords != "" {
			fmt.Fprintf(&sb, " [%s]", rel.Keywords)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n-----Sources-----\n")
	for _, d := range r.Documents {
		fmt.Fprintf(&sb, "[%s]\n%s\n", d.ID, strings.TrimSpace(d.Text))
	}
	return sb.String()
}

// Querier runs hybrid retrieval: entity matches expanded with their relations
// and sources, plus relation matches expanded with their endpoints.
type Querier struct {
	store     *Store
	entities  bleve.Index
	relations bleve.Index
	topK      int
}

func NewQuerier(store *Store, entities, relations bleve.Index, topK int) *Querier {
	if topK <= 0 {
		topK = 3
	}
	return &Querier{store: store, entities: entities, relations: relations, topK: topK}
}

func (q *Querier) Query(ctx context.Context, question string) (*Retrieved, error) {
	out := &Retrieved{}
	seenEntity := map[string]bool{}
	seenRelation := map[string]bool{}
	var sourceIDs []string

	addEntities := func(es []model.Entity) {
		for _, e := range es {
			if k := Key(e.Name); !seenEntity[k] {
				seenEntity[k] = true
				out.Entities = append(out.Entities, e)
				sourceIDs = union(sourceIDs, e.SourceIDs)
			}
		}
	}
	addRelations := func(rs []model.Relation) {
		for _, r := range rs {
			if k := RelationKey(r.Source, r.Target); !seenRelation[k] {
				seenRelation[k] = true
				out.Relations = append(out.Relations, r)
			}
		}
	}

	// local
	ids, err := searchIDs(q.entities, question, q.topK)
	if err != nil {
		return nil, fmt.Errorf("search entities: %w", err)
	}
	local, err := q.store.Entities(ctx, ids)
	if err != nil {
		return nil, err
	}
	addEntities(local)
	for _, e := range local {
		rs, err := q.store.RelationsOf(ctx, Key(e.Name), q.topK)
		if err != nil {
			return nil, err
		}
		addRelations(rs)
	}

	// global
	ids, err = searchIDs(q.relations, question, q.topK)
	if err != nil {
		return nil, fmt.Errorf("search relations: %w", err)
	}
	global, err := q.store.Relations(ctx, ids)
	if err != nil {
		return nil, err
	}
	addRelations(global)
	for _, r := range global {
		es, err := q.store.Entities(ctx, []string{Key(r.Source), Key(r.Target)})
		if err != nil {
			return nil, err
		}
		addEntities(es)
	}

	if len(sourceIDs) > q.topK {
		sourceIDs = sourceIDs[:q.topK]
	}
	if out.Documents, err = q.store.Documents(ctx, sourceIDs); err != nil {
		return nil, err
	}
	return out, nil
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
