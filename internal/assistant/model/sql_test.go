package model

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultSetString(t *testing.T) {
	rs := &ResultSet{
		Columns: []string{"name", "total_years_experience"},
		Rows: [][]any{
			{"Alice", 4.5},
			{"Bob", nil},
		},
	}

	out := rs.String()
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "name")
	assert.Contains(t, lines[0], "total_years_experience")
	assert.Contains(t, lines[1], "Alice")
	assert.Contains(t, lines[1], "4.5")
	assert.Contains(t, lines[2], "None")
}

func TestResultSetStringEmpty(t *testing.T) {
	rs := &ResultSet{Columns: []string{"current_company"}}
	out := rs.String()
	assert.Contains(t, out, "no rows")
	assert.Contains(t, out, "current_company")
	assert.True(t, rs.Empty())

	var nilRS *ResultSet
	assert.Contains(t, nilRS.String(), "no rows")
}

func TestResultSetColumnIndex(t *testing.T) {
	rs := &ResultSet{Columns: []string{"Name", "count"}}
	assert.Equal(t, 0, rs.ColumnIndex("name"))
	assert.Equal(t, 1, rs.ColumnIndex("COUNT"))
	assert.Equal(t, -1, rs.ColumnIndex("missing"))
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, "None"},
		{[]byte("x"), "x"},
		{int64(42), "42"},
		{3.0, "3"},
		{2.25, "2.25"},
		{true, "true"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatValue(tt.in))
	}
}

func TestTurnReply(t *testing.T) {
	turn := &Turn{Question: "q", Answer: "42 members", Figure: &Figure{}}
	r := turn.Reply()
	assert.Equal(t, "42 members", r.Content)
	assert.NotNil(t, r.Figure)

	turn.Fail(StageExecute, errors.New("no such column: foo"))
	r = turn.Reply()
	assert.Equal(t, "Error: no such column: foo", r.Content)
	assert.Nil(t, r.Figure)

	var se *StageError
	require.ErrorAs(t, turn.Failure, &se)
	assert.Equal(t, StageExecute, se.Stage)
}
