package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/Prasann123/Tradition-RAG/config"
	"github.com/Prasann123/Tradition-RAG/provider"
	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"
)

// Chroma is an embedded, file-persisted vector store rooted at persist_directory.
type Chroma struct {
	cfg      config.ChromaConfig
	embedder provider.Embedder

	mu sync.Mutex
	db *chromem.DB
}

func NewChroma(cfg config.ChromaConfig, embedder provider.Embedder) *Chroma {
	return &Chroma{cfg: cfg, embedder: embedder}
}

func (c *Chroma) Name() string { return "chroma" }

func (c *Chroma) collection(name string) (*chromem.Collection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		db, err := chromem.NewPersistentDB(c.cfg.PersistDirectory, c.cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("open chroma db %s: %w", c.cfg.PersistDirectory, err)
		}
		c.db = db
	}
	return c.db.GetOrCreateCollection(name, nil, c.embedFunc())
}

func (c *Chroma) embedFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		if c.embedder == nil {
			return nil, errors.New("chroma: no embedder configured")
		}
		vecs, err := c.embedder.Embed(ctx, []string{text})
		if err != nil {
			return nil, err
		}
		return vecs[0], nil
	}
}

func (c *Chroma) Add(ctx context.Context, collection string, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	if c.embedder == nil {
		return errors.New("chroma: no embedder configured")
	}
	col, err := c.collection(collection)
	if err != nil {
		return err
	}
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	vecs, err := c.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	for i, d := range docs {
		id := d.ID
		if id == "" {
			id = uuid.NewString()
		}
		doc := chromem.Document{
			ID:        id,
			Content:   d.Content,
			Metadata:  stringifyMetadata(d.Metadata),
			Embedding: vecs[i],
		}
		if err := col.AddDocument(ctx, doc); err != nil {
			return fmt.Errorf("chroma add %s: %w", id, err)
		}
	}
	return nil
}

func (c *Chroma) Search(ctx context.Context, collection, query string, k int) ([]Document, error) {
	if c.embedder == nil {
		return nil, errors.New("chroma: no embedder configured")
	}
	col, err := c.collection(collection)
	if err != nil {
		return nil, err
	}
	n := min(k, col.Count())
	if n <= 0 {
		return nil, nil
	}
	vecs, err := c.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	results, err := col.QueryEmbedding(ctx, vecs[0], n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chroma query: %w", err)
	}
	out := make([]Document, 0, len(results))
	for _, r := range results {
		meta := make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			meta[k] = v
		}
		out = append(out, Document{ID: r.ID, Content: r.Content, Metadata: meta, Score: float64(r.Similarity)})
	}
	return out, nil
}

// chromem metadata is string-valued.
func stringifyMetadata(in map[string]any) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		switch t := v.(type) {
		case string:
			out[k] = t
		case int:
			out[k] = strconv.Itoa(t)
		case float64:
			out[k] = strconv.FormatFloat(t, 'f', -1, 64)
		case nil:
		default:
			out[k] = fmt.Sprint(t)
		}
	}
	return out
}
