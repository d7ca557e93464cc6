package parsers

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/community-assistant/server/internal/assistant/model"
	errx "github.com/community-assistant/server/internal/core/error"
	logx "github.com/community-assistant/server/pkg/logger"
)

const (
	RecordDelimiter     = "##"
	TupleDelimiter      = "<||>"
	CompletionDelimiter = "<|COMPLETE|>"
)

// basic safety limits to avoid pathological inputs
const (
	maxContentLen = 128 * 1024 // 128KB
	maxRecords    = 500
	maxTupleLen   = 8 * 1024
	maxErrSnippet = 200
	defaultWeight = 1.0
	maxWeight     = 10.0
)

type rawTuple struct {
	Type  string
	Parts []string
}

func parseRawTuple(s string) (*rawTuple, error) {
	if s == "" {
		return nil, fmt.Errorf("empty tuple")
	}
	if len(s) > maxTupleLen {
		return nil, fmt.Errorf("tuple too large")
	}

	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return nil, fmt.Errorf("invalid tuple parens")
	}
	inner := s[1 : len(s)-1]
	// at most 7 segments so descriptions can contain delimiters
	parts := strings.SplitN(inner, TupleDelimiter, 7)
	if len(parts) < 2 {
		return nil, fmt.Errorf("invalid tuple parts")
	}
	for i := range parts {
		parts[i] = cleanField(parts[i])
	}
	return &rawTuple{Type: strings.ToLower(parts[0]), Parts: parts}, nil
}

func cleanField(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"'`)
}

func mustValidUTF8(s string, name string) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("%s invalid utf8", name)
	}
	return nil
}

func parseWeight(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("weight parse: %w", err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > maxWeight {
		return 0, fmt.Errorf("weight out of range")
	}
	return v, nil
}

// ParseExtraction parses the tuple records of an entity/relation extraction reply:
//
//	("entity"<||>name<||>type<||>description)##
//	("relationship"<||>source<||>target<||>description<||>keywords<||>weight)##
//	<|COMPLETE|>
//
// Bad records are skipped and noted in ParsingMetadata["parsing_errors"].
func ParseExtraction(content, sourceID string) (ext *model.Extraction, err error) {
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "extraction_parser").Msgf("panic recovered: %v", r)
			err = errx.New(fmt.Errorf("extraction parser panic"), http.StatusInternalServerError, errx.SystemErrorMessage)
			ext = nil
		}
	}()

	truncated := false
	if len(content) > maxContentLen {
		logx.Warn().
			Str("component", "extraction_parser").
			Int("max_len", maxContentLen).
			Int("orig_len", len(content)).
			Msg("content truncated due to size limit")
		content = content[:maxContentLen]
		truncated = true
	}
	if idx := strings.Index(content, CompletionDelimiter); idx >= 0 {
		content = content[:idx]
	}

	ext = &model.Extraction{
		Entities:        []model.Entity{},
		Relations:       []model.Relation{},
		ParsingMetadata: map[string]any{},
	}

	addErr := func(msg string) {
		v, _ := ext.ParsingMetadata["parsing_errors"].([]string)
		ext.ParsingMetadata["parsing_errors"] = append(v, msg)
	}

	if truncated {
		ext.ParsingMetadata["truncated"] = true
	}

	records := strings.Split(content, RecordDelimiter)
	processed := 0
	for _, rec := range records {
		if processed >= maxRecords {
			ext.ParsingMetadata["records_capped"] = true
			logx.Warn().
				Str("component", "extraction_parser").
				Int("max_records", maxRecords).
				Msg("record processing capped")
			break
		}
		rec = strings.TrimSpace(rec)
		if rec == "" {
			continue
		}
		processed++

		rt, rerr := parseRawTuple(rec)
		if rerr != nil {
			addErr(fmt.Sprintf("bad_record: %s", safeSnippet(rec)))
			continue
		}

		switch rt.Type {
		case "entity":
			if len(rt.Parts) < 4 {
				addErr("entity: insufficient parts")
				continue
			}
			name := rt.Parts[1]
			if err := mustValidUTF8(name, "entity.name"); err != nil || name == "" {
				addErr("entity: invalid name")
				continue
			}
			etype := strings.ToLower(strings.ReplaceAll(rt.Parts[2], " ", "_"))
			if etype == "" {
				addErr("entity: missing type")
				continue
			}
			ext.Entities = append(ext.Entities, model.Entity{
				Name:        name,
				Type:        etype,
				Description: rt.Parts[3],
				SourceIDs:   []string{sourceID},
			})

		case "relationship", "relation":
			if len(rt.Parts) < 4 {
				addErr("relationship: insufficient parts")
				continue
			}
			src, tgt := rt.Parts[1], rt.Parts[2]
			if src == "" || tgt == "" || mustValidUTF8(src+tgt, "relationship.endpoints") != nil {
				addErr("relationship: invalid endpoints")
				continue
			}
			rel := model.Relation{
				Source:      src,
				Target:      tgt,
				Description: rt.Parts[3],
				Weight:      defaultWeight,
				SourceID:    sourceID,
			}
			if len(rt.Parts) >= 5 {
				rel.Keywords = rt.Parts[4]
			}
			if len(rt.Parts) >= 6 && rt.Parts[5] != "" {
				if w, err := parseWeight(rt.Parts[5]); err == nil {
					rel.Weight = w
				} else {
					addErr("relationship: invalid weight")
				}
			}
			ext.Relations = append(ext.Relations, rel)

		case "content_keywords":
			// high level keywords are not indexed
		default:
			addErr("unknown tuple type")
		}
	}

	return ext, nil
}

// --- helpers ---

func safeSnippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxErrSnippet {
		return s
	}
	return s[:maxErrSnippet]
}
