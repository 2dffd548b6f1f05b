package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/Prasann123/Tradition-RAG/provider"
	"github.com/blevesearch/bleve"
	"github.com/google/uuid"
)

const rrfK = 60 // reciprocal-rank-fusion constant

// Bleve is an in-process hybrid store: BM25 over a bleve index fused (RRF)
// with cosine similarity over embeddings when an embedder is available.
type Bleve struct {
	embedder provider.Embedder

	mu          sync.Mutex
	collections map[string]*hybridIndex
}

type hybridIndex struct {
	mu      sync.RWMutex
	index   bleve.Index
	docs    map[string]Document
	vectors map[string][]float32
}

type indexedChunk struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}

type rankedHit struct {
	id    string
	score float64
	rank  int
}

func NewBleve(embedder provider.Embedder) *Bleve {
	return &Bleve{embedder: embedder, collections: make(map[string]*hybridIndex)}
}

func (b *Bleve) Name() string { return "bleve" }

func (b *Bleve) collection(name string) (*hybridIndex, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if h, ok := b.collections[name]; ok {
		return h, nil
	}
	index, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, err
	}
	h := &hybridIndex{index: index, docs: make(map[string]Document), vectors: make(map[string][]float32)}
	b.collections[name] = h
	return h, nil
}

func (b *Bleve) Add(ctx context.Context, collection string, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	h, err := b.collection(collection)
	if err != nil {
		return err
	}
	var vecs [][]float32
	if b.embedder != nil {
		texts := make([]string, len(docs))
		for i, d := range docs {
			texts[i] = d.Content
		}
		if vecs, err = b.embedder.Embed(ctx, texts); err != nil {
			return fmt.Errorf("embed chunks: %w", err)
		}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	batch := h.index.NewBatch()
	for i, d := range docs {
		if d.ID == "" {
			d.ID = uuid.NewString()
		}
		if err := batch.Index(d.ID, indexedChunk{Text: d.Content, Source: d.Source()}); err != nil {
			return err
		}
		h.docs[d.ID] = d
		if vecs != nil {
			h.vectors[d.ID] = vecs[i]
		}
	}
	return h.index.Batch(batch)
}

func (b *Bleve) Search(ctx context.Context, collection, query string, k int) ([]Document, error) {
	if k <= 0 {
		return nil, nil
	}
	h, err := b.collection(collection)
	if err != nil {
		return nil, err
	}
	lexical, err := h.bm25(query, k)
	if err != nil {
		return nil, err
	}
	var semantic []rankedHit
	if b.embedder != nil {
		vecs, err := b.embedder.Embed(ctx, []string{query})
		if err != nil {
			return nil, fmt.Errorf("embed query: %w", err)
		}
		semantic = h.vectorSearch(vecs[0], k)
	}
	fused := fuseRRF(lexical, semantic, k)

	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Document, 0, len(fused))
	for _, hit := range fused {
		d, ok := h.docs[hit.id]
		if !ok {
			continue
		}
		d.Score = hit.score
		out = append(out, d)
	}
	return out, nil
}

func (h *hybridIndex) bm25(q string, k int) ([]rankedHit, error) {
	req := bleve.NewSearchRequestOptions(bleve.NewMatchQuery(q), k*3, 0, false)
	res, err := h.index.Search(req)
	if err != nil {
		return nil, err
	}
	var out []rankedHit
	for i, hit := range res.Hits {
		out = append(out, rankedHit{id: hit.ID, score: hit.Score, rank: i + 1})
		if len(out) >= k {
			break
		}
	}
	return out, nil
}

func (h *hybridIndex) vectorSearch(q []float32, k int) []rankedHit {
	h.mu.RLock()
	defer h.mu.RUnlock()
	scored := make([]rankedHit, 0, len(h.vectors))
	for id, v := range h.vectors {
		scored = append(scored, rankedHit{id: id, score: cosine(q, v)})
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score == scored[j].score {
			return scored[i].id < scored[j].id
		}
		return scored[i].score > scored[j].score
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	for i := range scored {
		scored[i].rank = i + 1
	}
	return scored
}

func fuseRRF(a, b []rankedHit, k int) []rankedHit {
	scores := map[string]float64{}
	var order []string
	add := func(list []rankedHit) {
		for _, h := range list {
			if _, ok := scores[h.id]; !ok {
				order = append(order, h.id)
			}
			scores[h.id] += 1.0 / float64(rrfK+h.rank)
		}
	}
	add(a)
	add(b)
	out := make([]rankedHit, 0, len(order))
	for _, id := range order {
		out = append(out, rankedHit{id: id, score: scores[id]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].score > out[j].score })
	if len(out) > k {
		out = out[:k]
	}
	for i := range out {
		out[i].rank = i + 1
	}
	return out
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		ai := float64(a[i])
		bi := float64(b[i])
		dot += ai * bi
		na += ai * ai
		nb += bi * bi
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
