// Package chart turns a declarative chart description into a Plotly figure.
// Generated code is never executed; only the closed set of kinds below is drawn.
package chart

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/community-assistant/server/internal/assistant/parsers"
)

// Chart kinds.
const (
	KindBar       = "bar"
	KindLine      = "line"
	KindScatter   = "scatter"
	KindPie       = "pie"
	KindHistogram = "histogram"
	KindNone      = "none"
)

// ErrNoChart is returned for a {"kind": "none"} description.
var ErrNoChart = errors.New("no chart requested")

// Spec is the chart description requested from the completion API.
type Spec struct {
	Kind        string   `json:"kind"`
	Title       string   `json:"title,omitempty"`
	X           string   `json:"x,omitempty"`
	Y           []string `json:"y,omitempty"`
	XTitle      string   `json:"x_title,omitempty"`
	YTitle      string   `json:"y_title,omitempty"`
	Orientation string   `json:"orientation,omitempty"`
}

//go:embed schema.json
var schemaJSON string

var loadSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
})

// ParseSpec extracts and validates a Spec from a completion reply.
func ParseSpec(content string) (*Spec, error) {
	obj, err := parsers.ExtractJSONObject(content)
	if err != nil {
		return nil, err
	}

	s, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load chart schema: %w", err)
	}
	result, err := s.Validate(gojsonschema.NewStringLoader(obj))
	if err != nil {
		return nil, fmt.Errorf("validate chart spec: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
		}
		return nil, fmt.Errorf("chart spec is invalid: %s", strings.Join(msgs, "; "))
	}

	var spec Spec
	if err := json.Unmarshal([]byte(obj), &spec); err != nil {
		return nil, fmt.Errorf("decode chart spec: %w", err)
	}
	if spec.Kind == KindNone {
		return nil, ErrNoChart
	}
	if spec.X == "" {
		return nil, fmt.Errorf("chart spec is invalid: x is required for %s", spec.Kind)
	}
	return &spec, nil
}
