package chart

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/community-assistant/server/internal/assistant/model"
)

// Interpret draws spec over rs. Every referenced column must exist in rs.
func Interpret(spec *Spec, rs *model.ResultSet) (*model.Figure, error) {
	if rs.Empty() {
		return nil, fmt.Errorf("result set is empty")
	}
	xi := rs.ColumnIndex(spec.X)
	if xi < 0 {
		return nil, fmt.Errorf("unknown column %q", spec.X)
	}
	yi := make([]int, len(spec.Y))
	for i, name := range spec.Y {
		if yi[i] = rs.ColumnIndex(name); yi[i] < 0 {
			return nil, fmt.Errorf("unknown column %q", name)
		}
	}

	fig := &model.Figure{Layout: model.Layout{
		Title: spec.Title,
		XAxis: model.Axis{Title: orDefault(spec.XTitle, rs.Columns[xi])},
	}}
	if len(yi) > 0 {
		fig.Layout.YAxis.Title = orDefault(spec.YTitle, rs.Columns[yi[0]])
	}

	switch spec.Kind {
	case KindBar, KindLine, KindScatter:
		if len(yi) == 0 {
			return nil, fmt.Errorf("%s chart needs at least one y column", spec.Kind)
		}
		xs := column(rs, xi)
		for _, i := range yi {
			ys, ok := numbers(rs, i)
			if !ok {
				return nil, fmt.Errorf("no numeric data in column %q", rs.Columns[i])
			}
			fig.Data = append(fig.Data, seriesTrace(spec, rs.Columns[i], xs, ys))
		}
		if spec.Kind == KindBar && spec.Orientation == "h" {
			fig.Layout.XAxis, fig.Layout.YAxis = fig.Layout.YAxis, fig.Layout.XAxis
		}
	case KindPie:
		if len(yi) != 1 {
			return nil, fmt.Errorf("pie chart needs exactly one y column")
		}
		vals, ok := numbers(rs, yi[0])
		if !ok {
			return nil, fmt.Errorf("no numeric data in column %q", rs.Columns[yi[0]])
		}
		fig.Data = []model.Trace{{Type: "pie", Labels: column(rs, xi), Values: vals}}
	case KindHistogram:
		xs, ok := numbers(rs, xi)
		if !ok {
			return nil, fmt.Errorf("no numeric data in column %q", rs.Columns[xi])
		}
		fig.Data = []model.Trace{{Type: "histogram", Name: rs.Columns[xi], X: xs}}
		fig.Layout.YAxis.Title = orDefault(spec.YTitle, "count")
	default:
		return nil, fmt.Errorf("unsupported chart kind %q", spec.Kind)
	}
	return fig, nil
}

func seriesTrace(spec *Spec, name string, xs, ys []any) model.Trace {
	tr := model.Trace{Name: name, X: xs, Y: ys}
	switch spec.Kind {
	case KindBar:
		tr.Type = "bar"
		if spec.Orientation == "h" {
			tr.Orientation = "h"
			tr.X, tr.Y = ys, xs
		}
	case KindLine:
		tr.Type = "scatter"
		tr.Mode = "lines+markers"
	case KindScatter:
		tr.Type = "scatter"
		tr.Mode = "markers"
	}
	return tr
}

func column(rs *model.ResultSet, i int) []any {
	out := make([]any, len(rs.Rows))
	for r, row := range rs.Rows {
		if i >= len(row) {
			continue
		}
		switch f := row[i].(type) {
		case float64:
			if !math.IsNaN(f) && !math.IsInf(f, 0) {
				out[r] = f
			}
		default:
			out[r] = row[i]
		}
	}
	return out
}

// numbers converts column i to float64 values; cells that are not numeric become nil.
// ok is false when no cell is numeric.
func numbers(rs *model.ResultSet, i int) ([]any, bool) {
	out := make([]any, len(rs.Rows))
	ok := false
	for r, row := range rs.Rows {
		if i >= len(row) {
			continue
		}
		if f, isNum := toFloat(row[i]); isNum {
			out[r] = f
			ok = true
		}
	}
	return out, ok
}

// toFloat reports false for NaN and infinities, which a Figure cannot carry.
func toFloat(v any) (float64, bool) {
	f, ok := parseFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func parseFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	case []byte:
		f, err := strconv.ParseFloat(strings.TrimSpace(string(t)), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}
