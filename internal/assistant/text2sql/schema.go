package text2sql

import (
	"fmt"
	"strings"
)

// Column is one column of the queried table.
type Column struct {
	Name string
	Type string
}

// Schema describes the single table the synthesizer may query.
type Schema struct {
	Table   string
	Columns []Column
}

// Members is the community member table.
var Members = Schema{
	Table: "members",
	Columns: []Column{
		{Name: "name", Type: "TEXT"},
		{Name: "current_status", Type: "TEXT"},
		{Name: "current_title", Type: "TEXT"},
		{Name: "current_company", Type: "TEXT"},
		{Name: "first_job_start", Type: "TEXT"},
		{Name: "total_years_experience", Type: "FLOAT"},
		{Name: "years_experience_bucket", Type: "TEXT"},
		{Name: "highest_degree", Type: "TEXT"},
		{Name: "institution", Type: "TEXT"},
		{Name: "graduation_year", Type: "FLOAT"},
		{Name: "linkedin_url", Type: "TEXT"},
	},
}

// HasColumn reports whether name is a column of the table, case-insensitively.
func (s Schema) HasColumn(name string) bool {
	return s.Column(name) != nil
}

// Column returns the column called name, or nil.
func (s Schema) Column(name string) *Column {
	for i := range s.Columns {
		if strings.EqualFold(s.Columns[i].Name, name) {
			return &s.Columns[i]
		}
	}
	return nil
}

// Describe renders the schema context given to the synthesizer.
func (s Schema) Describe() string {
	var sb strings.Builder
	sb.WriteString("DATABASE SCHEMA CONTEXT\n\nTables and Columns:\n\n")
	fmt.Fprintf(&sb, "1. %s\n", s.Table)
	for _, c := range s.Columns {
		fmt.Fprintf(&sb, "- %s (%s)\n", c.Name, c.Type)
	}
	return sb.String()
}

// CreateTableSQL returns the DDL used when importing members.
func (s Schema) CreateTableSQL() string {
	defs := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		typ := c.Type
		if typ == "FLOAT" {
			typ = "REAL"
		}
		defs[i] = fmt.Sprintf("%s %s", c.Name, typ)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", s.Table, strings.Join(defs, ", "))
}
