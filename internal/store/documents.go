package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/Prasann123/Tradition-RAG/internal/retrieval"
)

// InsertDocuments records ingested chunks. Chunks without an id get one.
func (s *Store) InsertDocuments(ctx context.Context, backend, collection string, docs []retrieval.Document) error {
	if len(docs) == 0 {
		return nil
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO documents (id, backend, collection, page_content, metadata, created_at)
VALUES ($1,$2,$3,$4,$5,NOW())
ON CONFLICT (id) DO NOTHING`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, d := range docs {
		id := d.ID
		if id == "" {
			id = uuid.NewString()
		}
		meta := d.Metadata
		if meta == nil {
			meta = map[string]any{}
		}
		metaBytes, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("marshal document metadata: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, id, backend, collection, d.Content, metaBytes); err != nil {
			return fmt.Errorf("insert document %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// ListDocuments returns up to limit documents in ingestion order.
func (s *Store) ListDocuments(ctx context.Context, limit int) ([]retrieval.Document, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, page_content, metadata FROM documents
ORDER BY created_at ASC, id ASC
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return scanDocuments(rows)
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

func scanDocuments(rows rowScanner) ([]retrieval.Document, error) {
	defer rows.Close()
	out := []retrieval.Document{}
	for rows.Next() {
		var (
			d    retrieval.Document
			meta []byte
		)
		if err := rows.Scan(&d.ID, &d.Content, &meta); err != nil {
			return nil, err
		}
		d.Metadata = map[string]any{}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &d.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata for %s: %w", d.ID, err)
			}
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
