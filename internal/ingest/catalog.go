package ingest

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/Prasann123/Tradition-RAG/internal/retrieval"
)

// Catalog records every ingested chunk for listing and topic extraction.
// *store.Store implements it on Postgres.
type Catalog interface {
	InsertDocuments(ctx context.Context, backend, collection string, docs []retrieval.Document) error
	ListDocuments(ctx context.Context, limit int) ([]retrieval.Document, error)
}

// MemoryCatalog keeps the catalog in process.
type MemoryCatalog struct {
	mu   sync.RWMutex
	docs []retrieval.Document
}

func NewMemoryCatalog() *MemoryCatalog { return &MemoryCatalog{} }

func (c *MemoryCatalog) InsertDocuments(_ context.Context, _, _ string, docs []retrieval.Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range docs {
		if d.ID == "" {
			d.ID = uuid.NewString()
		}
		meta := make(map[string]any, len(d.Metadata))
		for k, v := range d.Metadata {
			meta[k] = v
		}
		d.Metadata = meta
		c.docs = append(c.docs, d)
	}
	return nil
}

func (c *MemoryCatalog) ListDocuments(_ context.Context, limit int) ([]retrieval.Document, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := len(c.docs)
	if limit >= 0 && limit < n {
		n = limit
	}
	out := make([]retrieval.Document, n)
	copy(out, c.docs[:n])
	return out, nil
}
