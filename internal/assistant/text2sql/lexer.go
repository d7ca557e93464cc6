package text2sql

import (
	"fmt"
	"strings"
)

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokQuoted
	tokString
	tokNumber
	tokSymbol
)

type token struct {
	kind  tokenKind
	text  string
	start int
	end   int
	depth int
}

func (t token) upper() string {
	return strings.ToUpper(t.text)
}

func (t token) is(symbol string) bool {
	return t.kind == tokSymbol && t.text == symbol
}

func (t token) isWord(word string) bool {
	return t.kind == tokIdent && strings.EqualFold(t.text, word)
}

var twoCharSymbols = map[string]bool{
	"::": true, "<=": true, ">=": true, "<>": true, "!=": true, "||": true, "==": true,
}

// tokenize splits sql into tokens, skipping whitespace and comments.
// Each token carries its parenthesis depth.
func tokenize(sql string) ([]token, error) {
	var tokens []token
	depth := 0
	i := 0
	n := len(sql)

	for i < n {
		c := sql[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++

		case c == '-' && i+1 < n && sql[i+1] == '-':
			for i < n && sql[i] != '\n' {
				i++
			}

		case c == '/' && i+1 < n && sql[i+1] == '*':
			end := strings.Index(sql[i+2:], "*/")
			if end < 0 {
				return nil, fmt.Errorf("unterminated comment")
			}
			i += end + 4

		case c == '\'':
			end, err := scanQuoted(sql, i, '\'')
			if err != nil {
				return nil, fmt.Errorf("unterminated string literal")
			}
			tokens = append(tokens, token{kind: tokString, text: sql[i:end], start: i, end: end, depth: depth})
			i = end

		case c == '"' || c == '`':
			end, err := scanQuoted(sql, i, c)
			if err != nil {
				return nil, fmt.Errorf("unterminated quoted identifier")
			}
			name := strings.ReplaceAll(sql[i+1:end-1], string([]byte{c, c}), string(c))
			tokens = append(tokens, token{kind: tokQuoted, text: name, start: i, end: end, depth: depth})
			i = end

		case c == '[':
			end := strings.IndexByte(sql[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("unterminated quoted identifier")
			}
			tokens = append(tokens, token{kind: tokQuoted, text: sql[i+1 : i+end], start: i, end: i + end + 1, depth: depth})
			i += end + 1

		case isDigit(c) || (c == '.' && i+1 < n && isDigit(sql[i+1])):
			j := i
			for j < n && (isDigit(sql[j]) || sql[j] == '.') {
				j++
			}
			if j < n && (sql[j] == 'e' || sql[j] == 'E') {
				j++
				if j < n && (sql[j] == '+' || sql[j] == '-') {
					j++
				}
				for j < n && isDigit(sql[j]) {
					j++
				}
			}
			tokens = append(tokens, token{kind: tokNumber, text: sql[i:j], start: i, end: j, depth: depth})
			i = j

		case isIdentStart(c):
			j := i
			for j < n && isIdentPart(sql[j]) {
				j++
			}
			tokens = append(tokens, token{kind: tokIdent, text: sql[i:j], start: i, end: j, depth: depth})
			i = j

		default:
			text := string(c)
			if i+1 < n && twoCharSymbols[sql[i:i+2]] {
				text = sql[i : i+2]
			}
			if text == ")" {
				depth--
				if depth < 0 {
					return nil, fmt.Errorf("unbalanced parentheses")
				}
			}
			tokens = append(tokens, token{kind: tokSymbol, text: text, start: i, end: i + len(text), depth: depth})
			if text == "(" {
				depth++
			}
			i += len(text)
		}
	}

	if depth != 0 {
		return nil, fmt.Errorf("unbalanced parentheses")
	}
	return tokens, nil
}

// scanQuoted returns the index just past the closing quote; doubled quotes escape.
func scanQuoted(s string, start int, quote byte) (int, error) {
	for i := start + 1; i < len(s); i++ {
		if s[i] != quote {
			continue
		}
		if i+1 < len(s) && s[i+1] == quote {
			i++
			continue
		}
		return i + 1, nil
	}
	return 0, fmt.Errorf("unterminated")
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c) || c == '$'
}
