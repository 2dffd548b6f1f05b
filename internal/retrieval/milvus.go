package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/Prasann123/Tradition-RAG/config"
	"github.com/Prasann123/Tradition-RAG/provider"
	"github.com/google/uuid"
	milvusClient "github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

const (
	milvusIDField        = "id"
	milvusTextField      = "text"
	milvusMetaField      = "metadata"
	milvusEmbeddingField = "embedding"
	milvusMaxTextLength  = 65535
)

// Milvus stores chunks in a Milvus collection with an HNSW/cosine index.
// The connection is opened on first use.
type Milvus struct {
	cfg      config.MilvusConfig
	embedder provider.Embedder

	mu     sync.Mutex
	db     milvusClient.Client
	loaded map[string]bool
}

func NewMilvus(cfg config.MilvusConfig, embedder provider.Embedder) *Milvus {
	return &Milvus{cfg: cfg, embedder: embedder, loaded: make(map[string]bool)}
}

func (m *Milvus) Name() string { return "milvus" }

func (m *Milvus) conn(ctx context.Context) (milvusClient.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.db != nil {
		return m.db, nil
	}
	if m.cfg.Address == "" {
		return nil, errors.New("milvus address not configured")
	}
	db, err := milvusClient.NewClient(ctx, milvusClient.Config{Address: m.cfg.Address, APIKey: m.cfg.Token})
	if err != nil {
		return nil, fmt.Errorf("connect milvus: %w", err)
	}
	m.db = db
	return db, nil
}

func (m *Milvus) ensureCollection(ctx context.Context, db milvusClient.Client, name string, dim int64) error {
	exists, err := db.HasCollection(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	idField := entity.NewField().WithName(milvusIDField).WithDataType(entity.FieldTypeVarChar).WithMaxLength(64).WithIsPrimaryKey(true).WithIsAutoID(false)
	textField := entity.NewField().WithName(milvusTextField).WithDataType(entity.FieldTypeVarChar).WithMaxLength(milvusMaxTextLength)
	metaField := entity.NewField().WithName(milvusMetaField).WithDataType(entity.FieldTypeJSON)
	vectorField := entity.NewField().WithName(milvusEmbeddingField).WithDataType(entity.FieldTypeFloatVector).WithDim(dim)
	schema := entity.NewSchema().WithName(name).WithAutoID(false).
		WithField(idField).WithField(textField).WithField(metaField).WithField(vectorField)
	if err := db.CreateCollection(ctx, schema, 0); err != nil {
		return fmt.Errorf("create collection %s: %w", name, err)
	}
	idx, err := entity.NewIndexHNSW(entity.COSINE, 8, 200)
	if err != nil {
		return err
	}
	return db.CreateIndex(ctx, name, milvusEmbeddingField, idx, false)
}

func (m *Milvus) Add(ctx context.Context, collection string, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	if m.embedder == nil {
		return errors.New("milvus: no embedder configured")
	}
	db, err := m.conn(ctx)
	if err != nil {
		return err
	}
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = truncateRunes(d.Content, milvusMaxTextLength)
	}
	vecs, err := m.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	dim := int64(len(vecs[0]))
	if err := m.ensureCollection(ctx, db, collection, dim); err != nil {
		return err
	}

	ids := make([]string, len(docs))
	metas := make([][]byte, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
		if ids[i] == "" {
			ids[i] = uuid.NewString()
		}
		meta := d.Metadata
		if meta == nil {
			meta = map[string]any{}
		}
		b, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		metas[i] = b
	}
	columns := []entity.Column{
		entity.NewColumnVarChar(milvusIDField, ids),
		entity.NewColumnVarChar(milvusTextField, texts),
		entity.NewColumnJSONBytes(milvusMetaField, metas),
		entity.NewColumnFloatVector(milvusEmbeddingField, int(dim), vecs),
	}
	if _, err := db.Insert(ctx, collection, "", columns...); err != nil {
		return fmt.Errorf("milvus insert: %w", err)
	}
	return db.Flush(ctx, collection, false)
}

func (m *Milvus) Search(ctx context.Context, collection, query string, k int) ([]Document, error) {
	if m.embedder == nil {
		return nil, errors.New("milvus: no embedder configured")
	}
	db, err := m.conn(ctx)
	if err != nil {
		return nil, err
	}
	exists, err := db.HasCollection(ctx, collection)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	if err := m.load(ctx, db, collection); err != nil {
		return nil, err
	}
	vecs, err := m.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	sp, err := entity.NewIndexHNSWSearchParam(max(k, 16))
	if err != nil {
		return nil, err
	}
	results, err := db.Search(ctx, collection, nil, "",
		[]string{milvusTextField, milvusMetaField},
		[]entity.Vector{entity.FloatVector(vecs[0])},
		milvusEmbeddingField, entity.COSINE, k, sp)
	if err != nil {
		return nil, fmt.Errorf("milvus search: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}
	res := results[0]
	textCol := res.Fields.GetColumn(milvusTextField)
	metaCol := res.Fields.GetColumn(milvusMetaField)
	out := make([]Document, 0, res.ResultCount)
	for i := 0; i < res.ResultCount; i++ {
		var d Document
		if res.IDs != nil {
			d.ID, _ = res.IDs.GetAsString(i)
		}
		if textCol != nil {
			d.Content, _ = textCol.GetAsString(i)
		}
		if metaCol != nil {
			if v, err := metaCol.Get(i); err == nil {
				if b, ok := v.([]byte); ok {
					_ = json.Unmarshal(b, &d.Metadata)
				}
			}
		}
		if i < len(res.Scores) {
			d.Score = float64(res.Scores[i])
		}
		out = append(out, d)
	}
	return out, nil
}

func (m *Milvus) load(ctx context.Context, db milvusClient.Client, collection string) error {
	m.mu.Lock()
	done := m.loaded[collection]
	m.mu.Unlock()
	if done {
		return nil
	}
	if err := db.LoadCollection(ctx, collection, false); err != nil {
		return fmt.Errorf("load collection %s: %w", collection, err)
	}
	m.mu.Lock()
	m.loaded[collection] = true
	m.mu.Unlock()
	return nil
}

// Close releases the Milvus connection if one was opened.
func (m *Milvus) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.db == nil {
		return nil
	}
	err := m.db.Close()
	m.db = nil
	return err
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
