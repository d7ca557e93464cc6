package text2sql

import (
	"context"
	"database/sql"

	"github.com/community-assistant/server/internal/assistant/model"
	errx "github.com/community-assistant/server/internal/core/error"
	"github.com/community-assistant/server/pkg/database"
	logx "github.com/community-assistant/server/pkg/logger"
)

// MaxRows bounds one result set regardless of the query LIMIT.
const MaxRows = 1000

// QueryExecutor runs validated SQL and returns its rows.
type QueryExecutor interface {
	Execute(ctx context.Context, query string) (*model.ResultSet, error)
}

// Executor opens a connection per call and always releases it.
type Executor struct {
	cfg database.Config
}

func NewExecutor(cfg database.Config) *Executor {
	return &Executor{cfg: cfg}
}

// Execute runs query as given. Errors are wrapped as SQL AppErrors.
func (e *Executor) Execute(ctx context.Context, query string) (*model.ResultSet, error) {
	db, err := e.cfg.Open(ctx)
	if err != nil {
		return nil, errx.WrapSQL(err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			logx.Warn().Err(cerr).Msg("close sql connection")
		}
	}()

	rs, err := queryRows(ctx, db, query)
	if err != nil {
		return nil, errx.WrapSQL(err)
	}
	logx.Debug().Int("rows", len(rs.Rows)).Int("columns", len(rs.Columns)).Msg("query executed")
	return rs, nil
}

func queryRows(ctx context.Context, db *sql.DB, query string) (*model.ResultSet, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	rs := &model.ResultSet{Columns: cols, Rows: [][]any{}}
	for rows.Next() {
		if len(rs.Rows) >= MaxRows {
			logx.Warn().Int("max_rows", MaxRows).Msg("result truncated")
			break
		}
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		rs.Rows = append(rs.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rs, nil
}
