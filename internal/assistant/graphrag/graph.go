package graphrag

import (
	"sort"
	"strings"

	"github.com/community-assistant/server/internal/assistant/model"
)

// EntityTypes are the kinds of entity extracted from member profiles.
var EntityTypes = []string{
	"person", "company", "position", "education_institution", "study",
	"degree", "skill", "technology", "programming_language", "location",
}

const unknownType = "unknown"

// Key normalizes an entity name for merging: case and spacing are ignored.
func Key(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// RelationKey is order independent; relations are treated as undirected.
func RelationKey(a, b string) string {
	ka, kb := Key(a), Key(b)
	if kb < ka {
		ka, kb = kb, ka
	}
	return ka + "|" + kb
}

// Graph accumulates extractions from many documents.
type Graph struct {
	Entities  map[string]*model.Entity
	Relations map[string]*model.Relation
	// relation sources beyond the first
	relationSources map[string][]string
}

func NewGraph() *Graph {
	return &Graph{
		Entities:        map[string]*model.Entity{},
		Relations:       map[string]*model.Relation{},
		relationSources: map[string][]string{},
	}
}

// Merge folds ext into g. Endpoints without an entity record become "unknown" entities.
func (g *Graph) Merge(ext *model.Extraction) {
	for _, e := range ext.Entities {
		g.mergeEntity(e)
	}
	for _, r := range ext.Relations {
		for _, name := range []string{r.Source, r.Target} {
			if _, ok := g.Entities[Key(name)]; !ok {
				g.mergeEntity(model.Entity{Name: name, Type: unknownType, SourceIDs: []string{r.SourceID}})
			}
		}
		g.mergeRelation(r)
	}
}

func (g *Graph) mergeEntity(e model.Entity) {
	k := Key(e.Name)
	cur, ok := g.Entities[k]
	if !ok {
		e.Name = strings.Join(strings.Fields(e.Name), " ")
		e.SourceIDs = union(nil, e.SourceIDs)
		g.Entities[k] = &e
		return
	}
	if cur.Type == unknownType && e.Type != unknownType {
		cur.Type = e.Type
	}
	cur.Description = joinDistinct(cur.Description, e.Description)
	cur.SourceIDs = union(cur.SourceIDs, e.SourceIDs)
}

func (g *Graph) mergeRelation(r model.Relation) {
	k := RelationKey(r.Source, r.Target)
	cur, ok := g.Relations[k]
	if !ok {
		g.Relations[k] = &r
		return
	}
	cur.Description = joinDistinct(cur.Description, r.Description)
	cur.Keywords = joinKeywords(cur.Keywords, r.Keywords)
	cur.Weight += r.Weight
	if r.SourceID != cur.SourceID {
		g.relationSources[k] = union(g.relationSources[k], []string{r.SourceID})
	}
}

// SortedEntities returns entities ordered by key.
func (g *Graph) SortedEntities() []*model.Entity {
	keys := make([]string, 0, len(g.Entities))
	for k := range g.Entities {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*model.Entity, len(keys))
	for i, k := range keys {
		out[i] = g.Entities[k]
	}
	return out
}

// SortedRelations returns relations ordered by key.
func (g *Graph) SortedRelations() []*model.Relation {
	keys := make([]string, 0, len(g.Relations))
	for k := range g.Relations {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*model.Relation, len(keys))
	for i, k := range keys {
		out[i] = g.Relations[k]
	}
	return out
}

// RelationSources lists every document a relation was extracted from.
func (g *Graph) RelationSources(r *model.Relation) []string {
	return union([]string{r.SourceID}, g.relationSources[RelationKey(r.Source, r.Target)])
}

func joinDistinct(cur, add string) string {
	add = strings.TrimSpace(add)
	switch {
	case add == "":
		return cur
	case cur == "":
		return add
	case strings.Contains(cur, add):
		return cur
	}
	return cur + "\n" + add
}

func joinKeywords(cur, add string) string {
	var out []string
	seen := map[string]bool{}
	for _, list := range []string{cur, add} {
		for _, kw := range strings.Split(list, ",") {
			kw = strings.TrimSpace(kw)
			if kw == "" || seen[strings.ToLower(kw)] {
				continue
			}
			seen[strings.ToLower(kw)] = true
			out = append(out, kw)
		}
	}
	return strings.Join(out, ", ")
}

func union(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, s := range list {
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
