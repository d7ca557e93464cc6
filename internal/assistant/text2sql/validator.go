package text2sql

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/community-assistant/server/internal/assistant/model"
)

// DefaultLimit caps result rows when the question does not ask for a number.
const DefaultLimit = 10

// ValidationError reports synthesized SQL that breaks a query rule.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid SQL query: " + e.Reason
}

func invalid(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

var forbiddenWords = map[string]bool{
	"INSERT": true, "UPDATE": true, "DELETE": true, "DROP": true, "ALTER": true,
	"CREATE": true, "REPLACE": true, "ATTACH": true, "DETACH": true, "PRAGMA": true,
	"VACUUM": true, "TRUNCATE": true, "GRANT": true, "REVOKE": true, "REINDEX": true,
	"COPY": true, "MERGE": true, "UPSERT": true,
}

var sqlKeywords = map[string]bool{
	"SELECT": true, "FROM": true, "WHERE": true, "AND": true, "OR": true, "NOT": true,
	"IN": true, "IS": true, "NULL": true, "LIKE": true, "ILIKE": true, "GLOB": true,
	"BETWEEN": true, "AS": true, "ON": true, "JOIN": true, "INNER": true, "LEFT": true,
	"RIGHT": true, "OUTER": true, "CROSS": true, "FULL": true, "NATURAL": true, "USING": true,
	"GROUP": true, "BY": true, "ORDER": true, "ASC": true, "DESC": true, "LIMIT": true,
	"OFFSET": true, "HAVING": true, "DISTINCT": true, "ALL": true, "UNION": true,
	"INTERSECT": true, "EXCEPT": true, "CASE": true, "WHEN": true, "THEN": true,
	"ELSE": true, "END": true, "WITH": true, "RECURSIVE": true, "EXISTS": true,
	"CAST": true, "INTEGER": true, "INT": true, "REAL": true, "TEXT": true, "FLOAT": true,
	"NUMERIC": true, "DECIMAL": true, "VARCHAR": true, "TRUE": true, "FALSE": true,
	"COLLATE": true, "NOCASE": true, "ESCAPE": true, "FILTER": true, "OVER": true,
	"PARTITION": true, "ROWS": true, "RANGE": true, "PRECEDING": true, "FOLLOWING": true,
	"UNBOUNDED": true, "CURRENT": true, "ROW": true, "NULLS": true, "FIRST": true,
	"LAST": true, "ANY": true, "SOME": true, "DOUBLE": true, "PRECISION": true,
	"INTERVAL": true, "YEAR": true, "MONTH": true, "DAY": true, "SIMILAR": true, "TO": true,
	"ONLY": true, "FETCH": true, "NEXT": true, "FOR": true, "HOUR": true, "MINUTE": true,
	"SECOND": true, "EPOCH": true, "DECADE": true, "CENTURY": true, "QUARTER": true, "WEEK": true,
	"CURRENT_DATE": true, "CURRENT_TIME": true, "CURRENT_TIMESTAMP": true,
}

var aggregateFuncs = map[string]bool{
	"COUNT": true, "SUM": true, "AVG": true, "MIN": true, "MAX": true,
	"TOTAL": true, "GROUP_CONCAT": true, "STRING_AGG": true,
}

var datePartWords = map[string]bool{
	"YEAR": true, "MONTH": true, "DAY": true, "HOUR": true, "MINUTE": true, "SECOND": true,
	"EPOCH": true, "DECADE": true, "CENTURY": true, "QUARTER": true, "WEEK": true,
}

// clause keywords that end a FROM list
var clauseWords = map[string]bool{
	"WHERE": true, "GROUP": true, "ORDER": true, "LIMIT": true, "HAVING": true,
	"UNION": true, "INTERSECT": true, "EXCEPT": true, "ON": true, "USING": true,
	"WINDOW": true, "OFFSET": true,
}

var (
	countQuestion = regexp.MustCompile(`\b(how many|count|number of)\b`)
	allQuestion   = regexp.MustCompile(`\ball\b`)
	// "top 5", "first 3 members", "list 20 people"
	numberBeforeNoun = regexp.MustCompile(`\b(top|first|last|latest|list|show|give me|find|get)\s+(\d{1,4})\b`)
	numberAfterNoun  = regexp.MustCompile(`\b(\d{1,4})\s+(?:\w+\s+)?(members|people|persons|results|rows|records|entries|examples|names|companies|institutions|titles)\b`)
	// "have 2 members", "with more than 3 people": the number filters rows
	filterBeforeNumber = regexp.MustCompile(`(?:\b(?:have|has|had|having|with|than|least|most|exactly|over|under|above|below|about|around)|[=<>])\s*$`)
)

// Validator checks synthesized SQL against a Schema and normalizes its row cap.
type Validator struct {
	schema       Schema
	defaultLimit int
}

func NewValidator(schema Schema, defaultLimit int) *Validator {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	return &Validator{schema: schema, defaultLimit: defaultLimit}
}

// Validate returns q with its SQL normalized, or a *ValidationError.
func (v *Validator) Validate(question string, q model.SQLQuery) (model.SQLQuery, error) {
	sql := strings.TrimSpace(q.SQLQuery)
	if sql == "" {
		return q, invalid("empty query")
	}

	tokens, err := tokenize(sql)
	if err != nil {
		return q, invalid("%v", err)
	}
	for len(tokens) > 0 && tokens[len(tokens)-1].is(";") {
		tokens = tokens[:len(tokens)-1]
	}
	if len(tokens) == 0 {
		return q, invalid("empty query")
	}
	sql = sql[:tokens[len(tokens)-1].end]

	if err := v.checkStatement(tokens); err != nil {
		return q, err
	}
	if err := v.checkIdentifiers(tokens); err != nil {
		return q, err
	}

	lq := strings.ToLower(question)
	if countQuestion.MatchString(lq) && !hasCall(tokens, "COUNT") {
		return q, invalid("the question asks for a count but the query has no COUNT aggregate")
	}

	sql, err = v.normalizeLimit(sql, tokens, requestedLimit(lq))
	if err != nil {
		return q, err
	}

	q.SQLQuery = sql
	return q, nil
}

func (v *Validator) checkStatement(tokens []token) error {
	first := tokens[0].upper()
	if tokens[0].kind != tokIdent || (first != "SELECT" && first != "WITH") {
		return invalid("only SELECT queries are allowed")
	}
	for i, t := range tokens {
		if t.is(";") {
			return invalid("only a single statement is allowed")
		}
		if t.kind == tokIdent && forbiddenWords[t.upper()] {
			return invalid("%s statements are not allowed", t.upper())
		}
		if t.is("*") && i > 0 {
			prev := tokens[i-1]
			if prev.isWord("SELECT") || prev.isWord("DISTINCT") || prev.isWord("ALL") || prev.is(",") || prev.is(".") {
				return invalid("select only the relevant columns instead of *")
			}
		}
	}
	return nil
}

type names struct {
	aliases map[string]bool
	ctes    map[string]bool
}

func (v *Validator) collectNames(tokens []token) names {
	n := names{aliases: map[string]bool{}, ctes: map[string]bool{}}
	for i, t := range tokens {
		if !isName(t) {
			continue
		}
		key := strings.ToLower(t.text)
		// cte: name AS (
		if i+2 < len(tokens) && tokens[i+1].isWord("AS") && tokens[i+2].is("(") {
			n.ctes[key] = true
			continue
		}
		if i == 0 {
			continue
		}
		prev := tokens[i-1]
		switch {
		case prev.isWord("AS"):
			n.aliases[key] = true
		case t.kind == tokIdent && sqlKeywords[t.upper()]:
		case prev.is(")") || prev.kind == tokNumber || prev.kind == tokString:
			n.aliases[key] = true
		case isName(prev) && !(prev.kind == tokIdent && sqlKeywords[prev.upper()]):
			// implicit alias such as "FROM members m" or "COUNT(*) total"
			n.aliases[key] = true
		}
	}
	return n
}

func (v *Validator) checkIdentifiers(tokens []token) error {
	n := v.collectNames(tokens)
	known := func(name string) bool {
		key := strings.ToLower(name)
		return n.aliases[key] || n.ctes[key] || strings.EqualFold(name, v.schema.Table)
	}

	inFrom := false
	inProjection := false
	for i, t := range tokens {
		if t.isWord("SELECT") {
			inProjection = true
			continue
		}
		if t.kind == tokIdent && (t.isWord("FROM") || t.isWord("JOIN")) {
			// EXTRACT(YEAR FROM col)
			if i > 0 && datePartWords[tokens[i-1].upper()] {
				continue
			}
			inFrom = true
			inProjection = false
			if i+1 < len(tokens) && isName(tokens[i+1]) {
				table := tokens[i+1].text
				if !strings.EqualFold(table, v.schema.Table) && !n.ctes[strings.ToLower(table)] {
					return invalid("unknown table %q; only %q may be queried", table, v.schema.Table)
				}
			}
			continue
		}
		if t.kind == tokIdent && clauseWords[t.upper()] {
			inFrom = false
		}

		if !isName(t) {
			continue
		}
		upper := t.upper()
		if t.kind == tokIdent && (sqlKeywords[upper] || forbiddenWords[upper]) {
			continue
		}
		var prev, next token
		if i > 0 {
			prev = tokens[i-1]
		}
		if i+1 < len(tokens) {
			next = tokens[i+1]
		}

		switch {
		case next.is("("):
			// function call
		case prev.is("::"):
			// type cast
		case next.is("."):
			if !known(t.text) {
				return invalid("unknown table or alias %q", t.text)
			}
		case prev.is("."):
			if !v.schema.HasColumn(t.text) {
				return invalid("unknown column %q", t.text)
			}
		case v.schema.HasColumn(t.text) || known(t.text):
		case t.kind == tokQuoted && !inProjection && isDoubleQuotedLiteral(tokens, i):
			// sqlite reads an unknown double-quoted name as a string literal
		default:
			if inFrom && prev.is(",") {
				return invalid("unknown table %q; only %q may be queried", t.text, v.schema.Table)
			}
			return invalid("unknown column %q", t.text)
		}
	}
	return nil
}

// isDoubleQuotedLiteral reports whether the quoted name at i is the right-hand
// operand of a comparison, LIKE, or an IN list.
func isDoubleQuotedLiteral(tokens []token, i int) bool {
	if i == 0 {
		return false
	}
	prev := tokens[i-1]
	if prev.kind == tokSymbol {
		switch prev.text {
		case "=", "==", "!=", "<>", "<", ">", "<=", ">=":
			return true
		case "(", ",":
			return inList(tokens, i-1)
		}
	}
	return prev.isWord("LIKE") || prev.isWord("ILIKE") || prev.isWord("GLOB")
}

// inList walks back from a "(" or "," over literal items and reports whether
// the list opens right after IN.
func inList(tokens []token, j int) bool {
	for ; j > 0; j-- {
		t := tokens[j]
		switch {
		case t.is("("):
			return tokens[j-1].isWord("IN")
		case t.is(","), t.kind == tokString, t.kind == tokNumber, t.kind == tokQuoted:
		default:
			return false
		}
	}
	return false
}

func isName(t token) bool {
	return t.kind == tokIdent || t.kind == tokQuoted
}

func hasCall(tokens []token, fn string) bool {
	for i := 0; i+1 < len(tokens); i++ {
		if tokens[i].isWord(fn) && tokens[i+1].is("(") {
			return true
		}
	}
	return false
}

// requestedLimit returns the row count stated in the question, -1 for "all",
// or 0 when the question states nothing.
func requestedLimit(question string) int {
	if m := numberBeforeNoun.FindStringSubmatch(question); m != nil {
		if n, err := strconv.Atoi(m[2]); err == nil && n > 0 {
			return n
		}
	}
	for _, m := range numberAfterNoun.FindAllStringSubmatchIndex(question, -1) {
		if filterBeforeNumber.MatchString(question[:m[2]]) {
			continue
		}
		if n, err := strconv.Atoi(question[m[2]:m[3]]); err == nil && n > 0 {
			return n
		}
	}
	if allQuestion.MatchString(question) {
		return -1
	}
	return 0
}

// singleRowAggregate reports whether the outer SELECT aggregates without grouping.
func singleRowAggregate(tokens []token) bool {
	inProjection := false
	aggregate := false
	for i, t := range tokens {
		if t.depth != 0 || t.kind != tokIdent {
			continue
		}
		switch t.upper() {
		case "SELECT":
			inProjection = true
		case "FROM":
			inProjection = false
		case "GROUP", "UNION", "INTERSECT", "EXCEPT", "OVER":
			return false
		default:
			if inProjection && aggregateFuncs[t.upper()] && i+1 < len(tokens) && tokens[i+1].is("(") {
				aggregate = true
			}
		}
	}
	return aggregate
}

func (v *Validator) normalizeLimit(sql string, tokens []token, requested int) (string, error) {
	if requested < 0 {
		return sql, nil
	}
	limit := v.defaultLimit
	if requested > 0 {
		limit = requested
	}

	for i, t := range tokens {
		if t.depth != 0 || !t.isWord("LIMIT") {
			continue
		}
		if i+1 >= len(tokens) || tokens[i+1].kind != tokNumber {
			return sql, invalid("LIMIT must be a number")
		}
		countTok := tokens[i+1]
		// sqlite "LIMIT offset, count"
		if i+3 < len(tokens) && tokens[i+2].is(",") && tokens[i+3].kind == tokNumber {
			countTok = tokens[i+3]
		}
		n, err := strconv.Atoi(countTok.text)
		if err != nil {
			return sql, invalid("LIMIT must be an integer")
		}
		if n <= limit {
			return sql, nil
		}
		return sql[:countTok.start] + strconv.Itoa(limit) + sql[countTok.end:], nil
	}

	if singleRowAggregate(tokens) {
		return sql, nil
	}
	return fmt.Sprintf("%s LIMIT %d", sql, limit), nil
}
