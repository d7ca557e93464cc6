package graphrag

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/community-assistant/server/internal/assistant/model"
	"github.com/community-assistant/server/internal/assistant/rag"
)

var graphTables = []string{
	`CREATE TABLE IF NOT EXISTS entities (
		key TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		description TEXT NOT NULL,
		source_ids TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS relations (
		key TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		target TEXT NOT NULL,
		description TEXT NOT NULL,
		keywords TEXT NOT NULL,
		weight REAL NOT NULL,
		source_ids TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS relations_source ON relations (source)`,
	`CREATE INDEX IF NOT EXISTS relations_target ON relations (target)`,
	`CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		text TEXT NOT NULL
	)`,
}

// Store persists a merged Graph and its source documents in SQLite.
type Store struct {
	db *sql.DB
}

func NewStore(ctx context.Context, db *sql.DB) (*Store, error) {
	for _, ddl := range graphTables {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return nil, fmt.Errorf("create graph tables: %w", err)
		}
	}
	return &Store{db: db}, nil
}

// Replace overwrites the stored graph.
func (s *Store) Replace(ctx context.Context, g *Graph, docs []rag.Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"entities", "relations", "documents"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, e := range g.SortedEntities() {
		ids, _ := json.Marshal(e.SourceIDs)
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO entities (key, name, type, description, source_ids) VALUES (?, ?, ?, ?, ?)",
			Key(e.Name), e.Name, e.Type, e.Description, string(ids)); err != nil {
			return fmt.Errorf("insert entity %q: %w", e.Name, err)
		}
	}
	for _, r := range g.SortedRelations() {
		ids, _ := json.Marshal(g.RelationSources(r))
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO relations (key, source, target, description, keywords, weight, source_ids) VALUES (?, ?, ?, ?, ?, ?, ?)",
			RelationKey(r.Source, r.Target), Key(r.Source), Key(r.Target), r.Description, r.Keywords, r.Weight, string(ids)); err != nil {
			return fmt.Errorf("insert relation %s-%s: %w", r.Source, r.Target, err)
		}
	}
	for _, d := range docs {
		if _, err := tx.ExecContext(ctx, "INSERT INTO documents (id, text) VALUES (?, ?)", d.ID, d.Text); err != nil {
			return fmt.Errorf("insert document %s: %w", d.ID, err)
		}
	}
	return tx.Commit()
}

// Entities loads entities by key, in the order given. Missing keys are skipped.
func (s *Store) Entities(ctx context.Context, keys []string) ([]model.Entity, error) {
	var out []model.Entity
	for _, k := range keys {
		var (
			e   model.Entity
			ids string
		)
		err := s.db.QueryRowContext(ctx,
			"SELECT name, type, description, source_ids FROM entities WHERE key = ?", k).
			Scan(&e.Name, &e.Type, &e.Description, &ids)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load entity %q: %w", k, err)
		}
		_ = json.Unmarshal([]byte(ids), &e.SourceIDs)
		out = append(out, e)
	}
	return out, nil
}

// Relations loads relations by relation key, in the order given.
func (s *Store) Relations(ctx context.Context, keys []string) ([]model.Relation, error) {
	var out []model.Relation
	for _, k := range keys {
		r, err := s.scanRelations(ctx, "WHERE r.key = ?", k)
		if err != nil {
			return nil, err
		}
		out = append(out, r...)
	}
	return out, nil
}

// RelationsOf returns the strongest relations touching the entity key.
func (s *Store) RelationsOf(ctx context.Context, key string, limit int) ([]model.Relation, error) {
	return s.scanRelations(ctx, "WHERE r.source = ? OR r.target = ? ORDER BY r.weight DESC, r.key LIMIT ?", key, key, limit)
}

func (s *Store) scanRelations(ctx context.Context, where string, args ...any) ([]model.Relation, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT e1.name, e2.name, r.description, r.keywords, r.weight, r.source_ids FROM relations r "+
			"JOIN entities e1 ON e1.key = r.source JOIN entities e2 ON e2.key = r.target "+
			where, args...)
	if err != nil {
		return nil, fmt.Errorf("load relations: %w", err)
	}
	defer rows.Close()

	var out []model.Relation
	for rows.Next() {
		var (
			r   model.Relation
			ids string
		)
		if err := rows.Scan(&r.Source, &r.Target, &r.Description, &r.Keywords, &r.Weight, &ids); err != nil {
			return nil, err
		}
		var sources []string
		_ = json.Unmarshal([]byte(ids), &sources)
		if len(sources) > 0 {
			r.SourceID = sources[0]
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Documents loads source texts by id, in the order given.
func (s *Store) Documents(ctx context.Context, ids []string) ([]rag.Document, error) {
	var out []rag.Document
	for _, id := range ids {
		d := rag.Document{ID: id}
		err := s.db.QueryRowContext(ctx, "SELECT text FROM documents WHERE id = ?", id).Scan(&d.Text)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load document %s: %w", id, err)
		}
		out = append(out, d)
	}
	return out, nil
}
