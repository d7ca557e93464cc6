package parsers

import (
	"encoding/json"
	"fmt"
	"strings"
)

const maxJSONLen = 64 * 1024

// StripCodeFence removes a surrounding ```lang ... ``` wrapper if present.
func StripCodeFence(content string) string {
	s := strings.TrimSpace(content)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	// drop the opening fence line, language tag included
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ExtractJSONObject returns the first balanced top-level JSON object in content.
// Surrounding prose and code fences are ignored.
func ExtractJSONObject(content string) (string, error) {
	s := StripCodeFence(content)
	if len(s) > maxJSONLen {
		return "", fmt.Errorf("json payload too large")
	}

	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", fmt.Errorf("no json object found")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unterminated json object")
}

// DecodeJSONObject extracts the first JSON object from content and unmarshals it into out.
func DecodeJSONObject(content string, out any) error {
	obj, err := ExtractJSONObject(content)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(obj), out); err != nil {
		return fmt.Errorf("decode json object: %w", err)
	}
	return nil
}
