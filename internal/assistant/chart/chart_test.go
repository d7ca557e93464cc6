package chart

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/community-assistant/server/internal/assistant/llm/llmtest"
	"github.com/community-assistant/server/internal/assistant/model"
	"github.com/community-assistant/server/internal/metrics"
)

func companies() *model.ResultSet {
	return &model.ResultSet{
		Columns: []string{"current_company", "members", "avg_years"},
		Rows: [][]any{
			{"Microsoft", int64(4), 7.5},
			{"Intel", int64(2), nil},
			{"Nvidia", int64(1), "3"},
		},
	}
}

func TestParseSpec(t *testing.T) {
	spec, err := ParseSpec("```json\n{\"kind\": \"bar\", \"title\": \"Members\", \"x\": \"current_company\", \"y\": [\"members\"]}\n```")
	require.NoError(t, err)
	assert.Equal(t, &Spec{Kind: KindBar, Title: "Members", X: "current_company", Y: []string{"members"}}, spec)
}

func TestParseSpecRejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no json", "import plotly.express as px\nfig = px.bar(df)"},
		{"unknown kind", `{"kind": "sankey", "x": "a"}`},
		{"extra property", `{"kind": "bar", "x": "a", "y": ["b"], "code": "px.bar(df)"}`},
		{"missing kind", `{"x": "a", "y": ["b"]}`},
		{"missing x", `{"kind": "bar", "y": ["b"]}`},
		{"bad orientation", `{"kind": "bar", "x": "a", "y": ["b"], "orientation": "diagonal"}`},
		{"y not a list", `{"kind": "bar", "x": "a", "y": "b"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSpec(tt.content)
			assert.Error(t, err)
		})
	}
}

func TestParseSpecNone(t *testing.T) {
	_, err := ParseSpec(`{"kind": "none"}`)
	assert.ErrorIs(t, err, ErrNoChart)
}

func TestInterpretBar(t *testing.T) {
	fig, err := Interpret(&Spec{Kind: KindBar, Title: "Members per company", X: "current_company", Y: []string{"members"}}, companies())
	require.NoError(t, err)
	require.Len(t, fig.Data, 1)

	tr := fig.Data[0]
	assert.Equal(t, "bar", tr.Type)
	assert.Equal(t, []any{"Microsoft", "Intel", "Nvidia"}, tr.X)
	assert.Equal(t, []any{4.0, 2.0, 1.0}, tr.Y)
	assert.Equal(t, "Members per company", fig.Layout.Title)
	assert.Equal(t, "current_company", fig.Layout.XAxis.Title)
	assert.Equal(t, "members", fig.Layout.YAxis.Title)
}

func TestInterpretHorizontalBar(t *testing.T) {
	fig, err := Interpret(&Spec{Kind: KindBar, X: "current_company", Y: []string{"members"}, XTitle: "Company", Orientation: "h"}, companies())
	require.NoError(t, err)

	tr := fig.Data[0]
	assert.Equal(t, "h", tr.Orientation)
	assert.Equal(t, []any{4.0, 2.0, 1.0}, tr.X)
	assert.Equal(t, []any{"Microsoft", "Intel", "Nvidia"}, tr.Y)
	assert.Equal(t, "members", fig.Layout.XAxis.Title)
	assert.Equal(t, "Company", fig.Layout.YAxis.Title)
}

func TestInterpretLineAndScatter(t *testing.T) {
	fig, err := Interpret(&Spec{Kind: KindLine, X: "current_company", Y: []string{"members", "avg_years"}}, companies())
	require.NoError(t, err)
	require.Len(t, fig.Data, 2)
	assert.Equal(t, "lines+markers", fig.Data[0].Mode)
	assert.Equal(t, []any{7.5, nil, 3.0}, fig.Data[1].Y)

	fig, err = Interpret(&Spec{Kind: KindScatter, X: "members", Y: []string{"avg_years"}}, companies())
	require.NoError(t, err)
	assert.Equal(t, "scatter", fig.Data[0].Type)
	assert.Equal(t, "markers", fig.Data[0].Mode)
}

func TestInterpretPie(t *testing.T) {
	fig, err := Interpret(&Spec{Kind: KindPie, X: "current_company", Y: []string{"members"}}, companies())
	require.NoError(t, err)
	require.Len(t, fig.Data, 1)
	assert.Equal(t, []any{"Microsoft", "Intel", "Nvidia"}, fig.Data[0].Labels)
	assert.Equal(t, []any{4.0, 2.0, 1.0}, fig.Data[0].Values)

	_, err = Interpret(&Spec{Kind: KindPie, X: "current_company", Y: []string{"members", "avg_years"}}, companies())
	assert.Error(t, err)
}

func TestInterpretHistogram(t *testing.T) {
	fig, err := Interpret(&Spec{Kind: KindHistogram, X: "avg_years"}, companies())
	require.NoError(t, err)
	assert.Equal(t, []any{7.5, nil, 3.0}, fig.Data[0].X)
	assert.Equal(t, "count", fig.Layout.YAxis.Title)
}

func TestInterpretSkipsNonFiniteCells(t *testing.T) {
	rs := &model.ResultSet{
		Columns: []string{"current_company", "members"},
		Rows: [][]any{
			{"a", int64(1)},
			{"b", "NaN"},
			{"Infinity", "-Inf"},
			{math.Inf(1), math.NaN()},
		},
	}
	fig, err := Interpret(&Spec{Kind: KindBar, X: "current_company", Y: []string{"members"}}, rs)
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b", "Infinity", nil}, fig.Data[0].X)
	assert.Equal(t, []any{1.0, nil, nil, nil}, fig.Data[0].Y)

	_, err = json.Marshal(&model.Reply{Content: "ok", Figure: fig})
	assert.NoError(t, err)

	_, err = Interpret(&Spec{Kind: KindHistogram, X: "members"}, &model.ResultSet{
		Columns: []string{"members"},
		Rows:    [][]any{{"NaN"}, {"Infinity"}},
	})
	assert.Error(t, err)
}

func TestInterpretRejects(t *testing.T) {
	rs := companies()
	tests := []struct {
		name string
		spec Spec
	}{
		{"unknown x", Spec{Kind: KindBar, X: "salary", Y: []string{"members"}}},
		{"unknown y", Spec{Kind: KindBar, X: "current_company", Y: []string{"salary"}}},
		{"no y", Spec{Kind: KindLine, X: "current_company"}},
		{"text y", Spec{Kind: KindBar, X: "members", Y: []string{"current_company"}}},
		{"text histogram", Spec{Kind: KindHistogram, X: "current_company"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Interpret(&tt.spec, rs)
			assert.Error(t, err)
		})
	}

	_, err := Interpret(&Spec{Kind: KindBar, X: "a", Y: []string{"b"}}, &model.ResultSet{Columns: []string{"a", "b"}})
	assert.Error(t, err)
}

func TestSynthesizerDrawsFigure(t *testing.T) {
	fake := llmtest.Reply(`Here you go: {"kind": "bar", "x": "current_company", "y": ["members"]}`)
	s, err := NewSynthesizer(context.Background(), llmtest.Client(fake), "", metrics.New())
	require.NoError(t, err)

	fig := s.Synthesize(context.Background(), "members per company", companies())
	require.NotNil(t, fig)
	assert.Equal(t, "bar", fig.Data[0].Type)
	require.Len(t, fake.Calls(), 1)
}

func TestSynthesizerReturnsNil(t *testing.T) {
	tests := []struct {
		name string
		fake *llmtest.ChatModel
		rs   *model.ResultSet
	}{
		{"api error", llmtest.Fail(errors.New("timeout")), companies()},
		{"code instead of spec", llmtest.Reply("fig = px.bar(df, x='current_company')"), companies()},
		{"none", llmtest.Reply(`{"kind": "none"}`), companies()},
		{"unknown column", llmtest.Reply(`{"kind": "bar", "x": "company", "y": ["members"]}`), companies()},
		{"empty result", llmtest.Reply(`{"kind": "bar", "x": "a", "y": ["b"]}`), &model.ResultSet{Columns: []string{"a", "b"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSynthesizer(context.Background(), llmtest.Client(tt.fake), "", nil)
			require.NoError(t, err)
			assert.Nil(t, s.Synthesize(context.Background(), "q", tt.rs))
		})
	}
}
