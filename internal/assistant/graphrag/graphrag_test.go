package graphrag

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/blevesearch/bleve/v2"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/community-assistant/server/internal/assistant/llm/llmtest"
	"github.com/community-assistant/server/internal/assistant/model"
	"github.com/community-assistant/server/internal/assistant/rag"
	"github.com/community-assistant/server/pkg/database"
)

var profiles = []rag.Document{
	{ID: "nadeem.txt", Text: "Nadeem Azaizah is currently working at Nvidia as a GPU architect. He studied at the Technion."},
	{ID: "alice.txt", Text: "Alice Haddad is a backend engineer at Microsoft and a Technion graduate."},
	{ID: "broken.txt", Text: "unreadable"},
}

var extractions = map[string]string{
	"nadeem.txt": `("entity"<||>Nadeem Azaizah<||>person<||>GPU architect from Dabburiya)##
("entity"<||>Nvidia<||>company<||>Chip maker)##
("entity"<||>Technion<||>education_institution<||>Israeli university)##
("relationship"<||>Nadeem Azaizah<||>Nvidia<||>Nadeem Azaizah currently works at Nvidia<||>employment, current job<||>9)##
("relationship"<||>Nadeem Azaizah<||>Technion<||>Nadeem Azaizah studied at the Technion<||>education<||>6)
<|COMPLETE|>`,
	"alice.txt": `("entity"<||>alice  haddad<||>person<||>Backend engineer)##
("entity"<||>TECHNION<||>education_institution<||>Institute of technology in Haifa)##
("relationship"<||>Alice Haddad<||>Microsoft<||>Alice Haddad works at Microsoft<||>employment<||>8)##
("relationship"<||>Technion<||>Alice Haddad<||>Alice Haddad graduated from the Technion<||>education, graduate<||>5)
<|COMPLETE|>`,
}

// extractionModel answers with the canned extraction of the document in the request.
func extractionModel() *llmtest.ChatModel {
	return &llmtest.ChatModel{Respond: func(_ context.Context, msgs []*schema.Message) (*schema.Message, error) {
		doc := llmtest.Content(msgs, schema.User)
		for _, p := range profiles {
			if strings.Contains(doc, p.Text) {
				if out, ok := extractions[p.ID]; ok {
					return schema.AssistantMessage(out, nil), nil
				}
			}
		}
		return nil, errors.New("model overloaded")
	}}
}

type fixture struct {
	store     *Store
	entities  bleve.Index
	relations bleve.Index
	graph     *Graph
}

func buildGraph(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := database.OpenSQLite(ctx, filepath.Join(t.TempDir(), "graph.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	store, err := NewStore(ctx, db)
	require.NoError(t, err)

	entities, err := NewMemIndex()
	require.NoError(t, err)
	relations, err := NewMemIndex()
	require.NoError(t, err)

	x, err := NewExtractor(ctx, llmtest.Client(extractionModel()), "")
	require.NoError(t, err)

	g, err := NewIndexer(x, store, entities, relations).Index(ctx, profiles)
	require.NoError(t, err)
	return &fixture{store: store, entities: entities, relations: relations, graph: g}
}

func TestMergeByNormalizedName(t *testing.T) {
	f := buildGraph(t)

	tech := f.graph.Entities["technion"]
	require.NotNil(t, tech)
	assert.Equal(t, "Technion", tech.Name)
	assert.Equal(t, []string{"nadeem.txt", "alice.txt"}, tech.SourceIDs)
	assert.Contains(t, tech.Description, "Israeli university")
	assert.Contains(t, tech.Description, "Haifa")

	alice := f.graph.Entities["alice haddad"]
	require.NotNil(t, alice)
	assert.Equal(t, "alice haddad", alice.Name)

	// endpoint without its own record
	ms := f.graph.Entities["microsoft"]
	require.NotNil(t, ms)
	assert.Equal(t, unknownType, ms.Type)

	assert.Len(t, f.graph.Entities, 5)
	assert.Len(t, f.graph.Relations, 4)
}

func TestGraphMergeRelations(t *testing.T) {
	g := NewGraph()
	g.Merge(&model.Extraction{Relations: []model.Relation{{Source: "A", Target: "B", Description: "knows", Keywords: "social", Weight: 2, SourceID: "d1"}}})
	g.Merge(&model.Extraction{
		Entities:  []model.Entity{{Name: "a", Type: "person", Description: "first"}},
		Relations: []model.Relation{{Source: "b", Target: "a", Description: "works with", Keywords: "work, Social", Weight: 3, SourceID: "d2"}},
	})

	require.Len(t, g.Relations, 1)
	r := g.Relations[RelationKey("A", "B")]
	assert.InDelta(t, 5.0, r.Weight, 1e-9)
	assert.Equal(t, "knows\nworks with", r.Description)
	assert.Equal(t, "social, work", r.Keywords)
	assert.Equal(t, []string{"d1", "d2"}, g.RelationSources(r))
	assert.Equal(t, "person", g.Entities["a"].Type)
}

func TestQueryLocalAndGlobal(t *testing.T) {
	f := buildGraph(t)
	q := NewQuerier(f.store, f.entities, f.relations, 3)

	kb, err := q.Query(context.Background(), "where is nadeem azaizah currently working?")
	require.NoError(t, err)
	require.False(t, kb.Empty())

	assert.Equal(t, "Nadeem Azaizah", kb.Entities[0].Name)
	var rels []string
	for _, r := range kb.Relations {
		rels = append(rels, r.Description)
	}
	assert.Contains(t, rels, "Nadeem Azaizah currently works at Nvidia")
	require.NotEmpty(t, kb.Documents)
	assert.Equal(t, "nadeem.txt", kb.Documents[0].ID)

	text := kb.String()
	assert.Contains(t, text, "- Nadeem Azaizah (person): GPU architect from Dabburiya")
	assert.Contains(t, text, "GPU architect. He studied")
}

func TestQueryNoMatch(t *testing.T) {
	f := buildGraph(t)
	kb, err := NewQuerier(f.store, f.entities, f.relations, 3).Query(context.Background(), "zzzz qqqq")
	require.NoError(t, err)
	assert.True(t, kb.Empty())
}

func TestAssistant(t *testing.T) {
	f := buildGraph(t)
	ctx := context.Background()
	fake := llmtest.Reply("Nadeem Azaizah currently works at Nvidia as a GPU architect.")
	a, err := NewAssistant(ctx, llmtest.Client(fake), "", NewQuerier(f.store, f.entities, f.relations, 3))
	require.NoError(t, err)

	reply, err := a.Answer(ctx, "where is nadeem azaizah currently working?")
	require.NoError(t, err)
	assert.Equal(t, "Nadeem Azaizah currently works at Nvidia as a GPU architect.", reply.Content)

	calls := fake.Calls()
	require.Len(t, calls, 1)
	system := llmtest.Content(calls[0], schema.System)
	assert.Contains(t, system, "Single Paragraph")
	assert.Contains(t, system, "Nadeem Azaizah currently works at Nvidia")
	assert.Contains(t, llmtest.Content(calls[0], schema.User), "where is nadeem azaizah currently working?")

	reply, err = a.Answer(ctx, "zzzz")
	require.NoError(t, err)
	assert.Equal(t, NoContextAnswer, reply.Content)
	assert.Len(t, fake.Calls(), 1)
}

func TestIndexAllFailed(t *testing.T) {
	ctx := context.Background()
	db, err := database.OpenSQLite(ctx, filepath.Join(t.TempDir(), "graph.db"))
	require.NoError(t, err)
	defer db.Close()
	store, err := NewStore(ctx, db)
	require.NoError(t, err)
	idx, err := NewMemIndex()
	require.NoError(t, err)

	x, err := NewExtractor(ctx, llmtest.Client(llmtest.Fail(errors.New("down"))), "")
	require.NoError(t, err)
	_, err = NewIndexer(x, store, idx, idx).Index(ctx, profiles[:1])
	assert.Error(t, err)
}

func TestCreateAndOpenIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph", EntityIndexName)
	_, err := OpenIndex(path)
	require.Error(t, err)

	idx, err := CreateIndex(path)
	require.NoError(t, err)
	require.NoError(t, idx.Index("nvidia", entityDoc{Name: "Nvidia", Type: "company"}))
	require.NoError(t, idx.Close())

	idx, err = OpenIndex(path)
	require.NoError(t, err)
	defer idx.Close()
	ids, err := searchIDs(idx, "nvidia", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"nvidia"}, ids)
}
