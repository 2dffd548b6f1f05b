package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/Prasann123/Tradition-RAG/internal/agent/core"
	"github.com/Prasann123/Tradition-RAG/internal/retrieval"
	"github.com/Prasann123/Tradition-RAG/tools/web_fetch/models"
)

type memBackend struct {
	mu    sync.Mutex
	added map[string][]retrieval.Document
	err   error
}

func (m *memBackend) Name() string { return "milvus" }

func (m *memBackend) Add(_ context.Context, collection string, docs []retrieval.Document) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.added == nil {
		m.added = map[string][]retrieval.Document{}
	}
	m.added[collection] = append(m.added[collection], docs...)
	return nil
}

func (m *memBackend) Search(context.Context, string, string, int) ([]retrieval.Document, error) {
	return nil, nil
}

type stubFetcher struct {
	result models.Result
	err    error
}

func (f stubFetcher) Exec(context.Context, string) (models.Result, error) { return f.result, f.err }

func newTestService(t *testing.T, backend *memBackend, fetcher stubFetcher) (*Service, *MemoryCatalog) {
	t.Helper()
	reg := retrieval.NewRegistry(nil, nil)
	reg.Register(backend)
	catalog := NewMemoryCatalog()
	svc := NewService(reg, NewMemoryJobs(), catalog, fetcher, Options{
		Defaults: Request{VectorDB: "milvus", CollectionName: "documents"},
	}, nil, nil)
	return svc, catalog
}

func TestSubmitFileCompletesAndRemovesFile(t *testing.T) {
	backend := &memBackend{}
	svc, catalog := newTestService(t, backend, stubFetcher{})
	path := filepath.Join(t.TempDir(), "guide.txt")
	if err := os.WriteFile(path, []byte("Paragraph one.\n\nParagraph two."), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	id, err := svc.SubmitFile(context.Background(), path, Request{})
	if err != nil {
		t.Fatalf("SubmitFile: %v", err)
	}
	if id == "" {
		t.Fatal("expected job id")
	}
	svc.Wait()

	st, err := svc.Status(context.Background(), id)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.Status != StatusComplete || st.Message != "Successfully ingested 1 chunks." {
		t.Fatalf("unexpected status %+v", st)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected uploaded file to be removed, stat err=%v", err)
	}
	if got := len(backend.added["documents"]); got != 1 {
		t.Fatalf("expected 1 chunk in backend, got %d", got)
	}
	docs, _ := catalog.ListDocuments(context.Background(), 10)
	if len(docs) != 1 || docs[0].Source() != "guide.txt" {
		t.Fatalf("unexpected catalog %#v", docs)
	}
}

func TestSubmitFileReportsErrorAndRemovesFile(t *testing.T) {
	svc, _ := newTestService(t, &memBackend{}, stubFetcher{})
	path := filepath.Join(t.TempDir(), "guide.txt")
	if err := os.WriteFile(path, []byte("some text"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	id, err := svc.SubmitFile(context.Background(), path, Request{VectorDB: "pinecone"})
	if err != nil {
		t.Fatalf("SubmitFile: %v", err)
	}
	svc.Wait()

	st, _ := svc.Status(context.Background(), id)
	if st.Status != StatusError {
		t.Fatalf("expected error status, got %+v", st)
	}
	if !strings.HasPrefix(st.Message, "An error occurred: Invalid vectordb 'pinecone'") {
		t.Fatalf("unexpected message %q", st.Message)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected uploaded file to be removed, stat err=%v", err)
	}
}

func TestStatusUnknownJob(t *testing.T) {
	svc, _ := newTestService(t, &memBackend{}, stubFetcher{})
	st, err := svc.Status(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st != NotFoundStatus() {
		t.Fatalf("expected not_found, got %+v", st)
	}
}

func TestIngestText(t *testing.T) {
	backend := &memBackend{}
	svc, _ := newTestService(t, backend, stubFetcher{})
	msg, err := svc.IngestText(context.Background(), "A short note about retrieval.", Request{CollectionName: "notes"})
	if err != nil {
		t.Fatalf("IngestText: %v", err)
	}
	if msg != "Successfully ingested 1 text chunks into milvus." {
		t.Fatalf("unexpected message %q", msg)
	}
	if len(backend.added["notes"]) != 1 {
		t.Fatalf("expected chunk in notes collection, got %#v", backend.added)
	}
}

func TestIngestTextInvalidBackend(t *testing.T) {
	svc, _ := newTestService(t, &memBackend{}, stubFetcher{})
	_, err := svc.IngestText(context.Background(), "text", Request{VectorDB: "invalid_db"})
	var ce *core.ConfigError
	if !errors.As(err, &ce) || ce.Field != "vectordb" {
		t.Fatalf("expected vectordb ConfigError, got %v", err)
	}
}

func TestIngestTextBackendFailure(t *testing.T) {
	svc, _ := newTestService(t, &memBackend{err: errors.New("connection refused")}, stubFetcher{})
	msg, err := svc.IngestText(context.Background(), "text", Request{})
	if err != nil {
		t.Fatalf("IngestText: %v", err)
	}
	if msg != "An error occurred: connection refused" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestIngestURL(t *testing.T) {
	backend := &memBackend{}
	svc, catalog := newTestService(t, backend, stubFetcher{result: models.Result{Text: "First paragraph.\nSecond paragraph."}})
	msg, err := svc.IngestURL(context.Background(), "https://example.com/post", Request{})
	if err != nil {
		t.Fatalf("IngestURL: %v", err)
	}
	if !strings.HasPrefix(msg, "Successfully ingested 1 chunks") {
		t.Fatalf("unexpected message %q", msg)
	}
	docs, _ := catalog.ListDocuments(context.Background(), 10)
	if len(docs) != 1 || docs[0].Source() != "https://example.com/post" {
		t.Fatalf("unexpected catalog %#v", docs)
	}
}

func TestIngestURLWithoutParagraphs(t *testing.T) {
	svc, _ := newTestService(t, &memBackend{}, stubFetcher{result: models.Result{Text: "  \n "}})
	msg, err := svc.IngestURL(context.Background(), "https://example.com", Request{})
	if err != nil {
		t.Fatalf("IngestURL: %v", err)
	}
	if msg != "Could not extract content from this website" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestIngestURLFetchError(t *testing.T) {
	svc, _ := newTestService(t, &memBackend{}, stubFetcher{err: errors.New("boom")})
	msg, _ := svc.IngestURL(context.Background(), "https://example.com", Request{})
	if msg != "Error scraping website: boom" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestListTopicsUsesCatalog(t *testing.T) {
	svc, _ := newTestService(t, &memBackend{}, stubFetcher{})
	if _, err := svc.IngestText(context.Background(), "Solar panels convert sunlight. Solar farms need land.", Request{}); err != nil {
		t.Fatalf("IngestText: %v", err)
	}
	topics, err := svc.ListTopics(context.Background(), 20)
	if err != nil {
		t.Fatalf("ListTopics: %v", err)
	}
	if len(topics) != 1 || topics[0].Topics[0] != "solar" {
		t.Fatalf("unexpected topics %+v", topics)
	}
}
