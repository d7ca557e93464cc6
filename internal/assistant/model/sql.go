package model

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"
)

// Pipeline stages of a Text-to-SQL turn.
const (
	StageSynthesize = "synthesize"
	StageValidate   = "validate"
	StageExecute    = "execute"
	StageCompose    = "compose"
	StageChart      = "chart"
)

// SQLQuery is the structured output of the query synthesizer.
type SQLQuery struct {
	SQLQuery    string `json:"sql_query"`
	Explanation string `json:"explanation"`
}

// ResultSet holds the rows returned by one query execution.
type ResultSet struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Empty reports whether the result has no rows.
func (r *ResultSet) Empty() bool {
	return r == nil || len(r.Rows) == 0
}

// ColumnIndex returns the position of name, matched case-insensitively, or -1.
func (r *ResultSet) ColumnIndex(name string) int {
	for i, c := range r.Columns {
		if strings.EqualFold(c, name) {
			return i
		}
	}
	return -1
}

// String renders the result as an aligned text table with a leading row index.
// An empty result renders an explicit no-rows marker listing the columns.
func (r *ResultSet) String() string {
	if r == nil {
		return "Empty result set (no rows)"
	}
	if len(r.Rows) == 0 {
		return fmt.Sprintf("Empty result set (no rows)\nColumns: [%s]\nIndex: []", strings.Join(r.Columns, ", "))
	}

	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(w, "\t%s\t\n", strings.Join(r.Columns, "\t"))
	for i, row := range r.Rows {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = FormatValue(v)
		}
		fmt.Fprintf(w, "%d\t%s\t\n", i, strings.Join(cells, "\t"))
	}
	_ = w.Flush()

	lines := strings.Split(strings.TrimRight(sb.String(), "\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " ")
	}
	return strings.Join(lines, "\n")
}

// FormatValue renders a scanned column value the way it appears in the text table.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "None"
	case []byte:
		return string(t)
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return fmt.Sprint(t)
	}
}

// StageError records which pipeline stage failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Turn is the per-question state passed between Text-to-SQL graph nodes.
type Turn struct {
	Question string
	Query    *SQLQuery
	Result   *ResultSet
	Answer   string
	Figure   *Figure
	Steps    []Step
	Failure  *StageError
}

// Fail marks the turn as failed at stage.
func (t *Turn) Fail(stage string, err error) *Turn {
	t.Failure = &StageError{Stage: stage, Err: err}
	return t
}

// Failed reports whether any stage has failed.
func (t *Turn) Failed() bool {
	return t.Failure != nil
}

// Reply converts the turn into an outbound message.
func (t *Turn) Reply() *Reply {
	if t.Failed() {
		return &Reply{Content: "Error: " + t.Failure.Err.Error(), Steps: t.Steps}
	}
	return &Reply{Content: t.Answer, Steps: t.Steps, Figure: t.Figure}
}
