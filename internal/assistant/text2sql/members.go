package text2sql

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/community-assistant/server/pkg/database"
	logx "github.com/community-assistant/server/pkg/logger"
)

// ImportMembersCSV replaces the members table with the rows of r.
// The header row must name every column of Members; extra columns are ignored.
// Empty FLOAT cells are stored as NULL.
func ImportMembersCSV(ctx context.Context, db *sql.DB, driver string, r io.Reader) (int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return 0, fmt.Errorf("read csv header: %w", err)
	}
	index := make([]int, len(Members.Columns))
	for i, c := range Members.Columns {
		index[i] = -1
		for j, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), c.Name) {
				index[i] = j
				break
			}
		}
		if index[i] < 0 {
			return 0, fmt.Errorf("csv header is missing column %q", c.Name)
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+Members.Table); err != nil {
		return 0, fmt.Errorf("drop %s: %w", Members.Table, err)
	}
	if _, err := tx.ExecContext(ctx, Members.CreateTableSQL()); err != nil {
		return 0, fmt.Errorf("create %s: %w", Members.Table, err)
	}

	stmt, err := tx.PrepareContext(ctx, insertSQL(driver))
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	n := 0
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("read csv line %d: %w", line, err)
		}
		args := make([]any, len(Members.Columns))
		for i, c := range Members.Columns {
			var cell string
			if index[i] < len(rec) {
				cell = strings.TrimSpace(rec[index[i]])
			}
			args[i], err = columnValue(c, cell)
			if err != nil {
				return 0, fmt.Errorf("csv line %d: %w", line, err)
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("insert csv line %d: %w", line, err)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	logx.Info().Int("rows", n).Str("table", Members.Table).Msg("members imported")
	return n, nil
}

func insertSQL(driver string) string {
	names := make([]string, len(Members.Columns))
	marks := make([]string, len(Members.Columns))
	for i, c := range Members.Columns {
		names[i] = c.Name
		if driver == database.DriverPostgres {
			marks[i] = "$" + strconv.Itoa(i+1)
		} else {
			marks[i] = "?"
		}
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		Members.Table, strings.Join(names, ", "), strings.Join(marks, ", "))
}

func columnValue(c Column, cell string) (any, error) {
	if c.Type != "FLOAT" {
		return cell, nil
	}
	if cell == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return nil, fmt.Errorf("column %s: %q is not a number", c.Name, cell)
	}
	return f, nil
}
