package rag

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/community-assistant/server/internal/assistant/embedding"
)

// Chunk is one embedded piece of a source document.
type Chunk struct {
	ID        string
	DocID     string
	Text      string
	Embedding []float32
}

// Match is a chunk scored against a query vector.
type Match struct {
	Chunk
	Score float64
}

// VectorStore keeps chunks in a SQLite table and ranks them by cosine similarity.
type VectorStore struct {
	db *sql.DB
}

const createChunks = `CREATE TABLE IF NOT EXISTS chunks (
	id TEXT PRIMARY KEY,
	doc_id TEXT NOT NULL,
	text TEXT NOT NULL,
	embedding BLOB NOT NULL
)`

func NewVectorStore(ctx context.Context, db *sql.DB) (*VectorStore, error) {
	if _, err := db.ExecContext(ctx, createChunks); err != nil {
		return nil, fmt.Errorf("create chunks table: %w", err)
	}
	return &VectorStore{db: db}, nil
}

// Replace overwrites the stored chunks with chunks in one transaction.
func (s *VectorStore) Replace(ctx context.Context, chunks []Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks"); err != nil {
		return fmt.Errorf("clear chunks: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO chunks (id, doc_id, text, embedding) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx, c.ID, c.DocID, c.Text, embedding.EncodeVector(c.Embedding)); err != nil {
			return fmt.Errorf("insert chunk %s: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

func (s *VectorStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&n)
	return n, err
}

// Search returns the topK chunks most similar to query, best first.
func (s *VectorStore) Search(ctx context.Context, query []float32, topK int) ([]Match, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, doc_id, text, embedding FROM chunks")
	if err != nil {
		return nil, fmt.Errorf("scan chunks: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var (
			m    Match
			blob []byte
		)
		if err := rows.Scan(&m.ID, &m.DocID, &m.Text, &blob); err != nil {
			return nil, err
		}
		if m.Embedding, err = embedding.DecodeVector(blob); err != nil {
			return nil, fmt.Errorf("chunk %s: %w", m.ID, err)
		}
		m.Score = embedding.CosineSimilarity(query, m.Embedding)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}
