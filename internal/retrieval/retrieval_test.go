package retrieval

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Prasann123/Tradition-RAG/config"
)

type stubLLM struct {
	reply string
	err   error
	calls int
}

func (s *stubLLM) Generate(ctx context.Context, prompt string) (string, error) {
	s.calls++
	return s.reply, s.err
}

// letterEmbedder maps text to letter frequencies so similar words land close together.
type letterEmbedder struct{}

func (letterEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, 26)
		for _, r := range strings.ToLower(t) {
			if r >= 'a' && r <= 'z' {
				v[r-'a']++
			}
		}
		v[0] += 0.01
		out[i] = v
	}
	return out, nil
}

type fixedBackend struct {
	name    string
	byQuery map[string][]Document
	err     error
}

func (f *fixedBackend) Name() string { return f.name }
func (f *fixedBackend) Add(ctx context.Context, collection string, docs []Document) error {
	return nil
}
func (f *fixedBackend) Search(ctx context.Context, collection, query string, k int) ([]Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byQuery[query], nil
}

func TestRegistryRejectsUnknownBackend(t *testing.T) {
	r := NewRegistry(nil, nil)
	r.Register(&fixedBackend{name: "milvus"})
	r.Register(&fixedBackend{name: "chroma"})

	_, err := r.Retriever("invalid_db", "documents", "")
	if !errors.Is(err, ErrUnsupportedBackend) {
		t.Fatalf("expected ErrUnsupportedBackend, got %v", err)
	}
	want := "Invalid vectordb 'invalid_db'. Valid options: [milvus, chroma]"
	if err.Error() != want {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestRegistryResolvesCaseInsensitive(t *testing.T) {
	r := NewRegistry(nil, nil)
	r.Register(&fixedBackend{name: "milvus"})
	if _, err := r.Backend("MILVUS"); err != nil {
		t.Fatalf("Backend: %v", err)
	}
	if _, err := r.Retriever("milvus", "documents", "mmr"); !errors.Is(err, ErrUnsupportedRetriever) {
		t.Fatalf("expected ErrUnsupportedRetriever, got %v", err)
	}
}

func TestMultiQueryUnionsAndDeduplicates(t *testing.T) {
	backend := &fixedBackend{name: "milvus", byQuery: map[string][]Document{
		"what is go":        {{Content: "Go is a language"}},
		"describe golang":   {{Content: "Go is a language"}, {Content: "Go has goroutines"}},
		"explain go basics": {{Content: "Go compiles fast"}},
	}}
	llm := &stubLLM{reply: "1. describe golang\n2. explain go basics\n\n3. go overview"}
	r := NewRegistry(llm, nil)
	r.Register(backend)

	ret, err := r.Retriever("milvus", "documents", RetrieverMultiQuery)
	if err != nil {
		t.Fatalf("Retriever: %v", err)
	}
	docs, err := ret.Retrieve(context.Background(), "what is go", 5)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("expected 3 unique docs, got %d: %+v", len(docs), docs)
	}
	if docs[0].Content != "Go is a language" || docs[1].Content != "Go has goroutines" {
		t.Fatalf("unexpected order: %+v", docs)
	}
}

func TestMultiQueryFallsBackWhenLLMFails(t *testing.T) {
	backend := &fixedBackend{name: "milvus", byQuery: map[string][]Document{
		"q": {{Content: "only"}},
	}}
	r := NewRegistry(&stubLLM{err: errors.New("boom")}, nil)
	r.Register(backend)
	ret, _ := r.Retriever("milvus", "documents", RetrieverMultiQuery)
	docs, err := ret.Retrieve(context.Background(), "q", 5)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected original query results, got %+v", docs)
	}
}

func TestBleveHybridSearch(t *testing.T) {
	ctx := context.Background()
	for name, b := range map[string]*Bleve{"bm25": NewBleve(nil), "hybrid": NewBleve(letterEmbedder{})} {
		docs := []Document{
			{Content: "Milvus is a vector database for similarity search", Metadata: map[string]any{"source": "milvus.pdf"}},
			{Content: "Paris is the capital of France", Metadata: map[string]any{"source": "geo.txt"}},
			{Content: "Bananas are rich in potassium"},
		}
		if err := b.Add(ctx, "documents", docs); err != nil {
			t.Fatalf("%s: Add: %v", name, err)
		}
		got, err := b.Search(ctx, "documents", "capital of France", 2)
		if err != nil {
			t.Fatalf("%s: Search: %v", name, err)
		}
		if len(got) == 0 || got[0].Source() != "geo.txt" {
			t.Fatalf("%s: expected geo.txt first, got %+v", name, got)
		}
		if len(got) > 2 {
			t.Fatalf("%s: expected at most 2 results, got %d", name, len(got))
		}
	}
}

func TestBleveSearchIsolatedByCollection(t *testing.T) {
	ctx := context.Background()
	b := NewBleve(nil)
	if err := b.Add(ctx, "a", []Document{{Content: "alpha document"}}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	got, err := b.Search(ctx, "b", "alpha", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result from other collection, got %+v", got)
	}
}

func TestChromaPersistsAndQueries(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c := NewChroma(chromaConfig(dir), letterEmbedder{})
	docs := []Document{
		{ID: "1", Content: "zebra zoo", Metadata: map[string]any{"source": "zoo.txt", "page": 3}},
		{ID: "2", Content: "apple banana", Metadata: map[string]any{"source": "fruit.txt"}},
	}
	if err := c.Add(ctx, "documents", docs); err != nil {
		t.Fatalf("Add: %v", err)
	}
	got, err := c.Search(ctx, "documents", "zebra", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected k clamped to collection size 2, got %d", len(got))
	}
	if got[0].ID != "1" || got[0].Metadata["page"] != "3" {
		t.Fatalf("unexpected first hit: %+v", got[0])
	}

	empty, err := c.Search(ctx, "missing", "zebra", 5)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty result for new collection, got %v %v", empty, err)
	}
}

func TestDocumentSource(t *testing.T) {
	if (Document{}).Source() != "unknown" {
		t.Fatalf("expected unknown source")
	}
	if (Document{Metadata: map[string]any{"source": "a.pdf"}}).Source() != "a.pdf" {
		t.Fatalf("expected a.pdf")
	}
}

func chromaConfig(dir string) config.ChromaConfig {
	return config.ChromaConfig{PersistDirectory: dir}
}
