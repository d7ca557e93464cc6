package parsers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  \n```json\n{}\n```  \n", `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripCodeFence(tt.in))
		})
	}
}

func TestExtractJSONObject(t *testing.T) {
	obj, err := ExtractJSONObject("Sure! Here it is: {\"sql_query\": \"SELECT '}' FROM members\", \"explanation\": \"x\"} hope it helps")
	require.NoError(t, err)
	assert.Equal(t, `{"sql_query": "SELECT '}' FROM members", "explanation": "x"}`, obj)

	_, err = ExtractJSONObject("no object here")
	assert.Error(t, err)

	_, err = ExtractJSONObject(`{"a": {"b": 1}`)
	assert.Error(t, err)

	_, err = ExtractJSONObject("{" + strings.Repeat(" ", maxJSONLen) + "}")
	assert.Error(t, err)
}

func TestDecodeJSONObject(t *testing.T) {
	var out struct {
		SQLQuery string `json:"sql_query"`
	}
	require.NoError(t, DecodeJSONObject("```json\n{\"sql_query\": \"SELECT 1\"}\n```", &out))
	assert.Equal(t, "SELECT 1", out.SQLQuery)

	assert.Error(t, DecodeJSONObject(`{"sql_query": 12}`, &out))
}

func TestParseExtraction(t *testing.T) {
	content := `("entity"<||>Nadeem Azaizah<||>person<||>Software engineer from Dabburiya)##
("entity"<||>Microsoft<||>company<||>Technology company)##
("relationship"<||>Nadeem Azaizah<||>Microsoft<||>Nadeem works at Microsoft<||>employment, current job<||>9)##
("content_keywords"<||>employment, engineering)##
garbage record##
("entity"<||><||>person<||>missing name)
<|COMPLETE|>
("entity"<||>Ignored<||>person<||>after completion)`

	ext, err := ParseExtraction(content, "nadeem.txt")
	require.NoError(t, err)
	require.Len(t, ext.Entities, 2)
	assert.Equal(t, "Nadeem Azaizah", ext.Entities[0].Name)
	assert.Equal(t, "person", ext.Entities[0].Type)
	assert.Equal(t, []string{"nadeem.txt"}, ext.Entities[0].SourceIDs)

	require.Len(t, ext.Relations, 1)
	rel := ext.Relations[0]
	assert.Equal(t, "Microsoft", rel.Target)
	assert.Equal(t, "employment, current job", rel.Keywords)
	assert.InDelta(t, 9.0, rel.Weight, 1e-9)
	assert.Equal(t, "nadeem.txt", rel.SourceID)

	errs, _ := ext.ParsingMetadata["parsing_errors"].([]string)
	assert.Len(t, errs, 2)
}

func TestParseExtractionBadWeightKeepsRelation(t *testing.T) {
	ext, err := ParseExtraction(`("relationship"<||>A<||>B<||>knows<||>kw<||>not-a-number)`, "doc")
	require.NoError(t, err)
	require.Len(t, ext.Relations, 1)
	assert.InDelta(t, defaultWeight, ext.Relations[0].Weight, 1e-9)
}
