package retrieval

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	"github.com/Prasann123/Tradition-RAG/provider"
)

const (
	RetrieverVectorstore = "vectorstore"
	RetrieverMultiQuery  = "multi_query"
)

// Document is a stored chunk and, on search, its similarity score.
type Document struct {
	ID       string         `json:"id"`
	Content  string         `json:"page_content"`
	Metadata map[string]any `json:"metadata"`
	Score    float64        `json:"score,omitempty"`
}

// Source returns metadata["source"] or "unknown".
func (d Document) Source() string {
	if d.Metadata != nil {
		if s, ok := d.Metadata["source"].(string); ok && s != "" {
			return s
		}
	}
	return "unknown"
}

// Backend is a named vector store.
type Backend interface {
	Name() string
	Add(ctx context.Context, collection string, docs []Document) error
	Search(ctx context.Context, collection, query string, k int) ([]Document, error)
}

// Retriever returns the k most relevant documents for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]Document, error)
}

var (
	ErrUnsupportedBackend   = errors.New("unsupported vector backend")
	ErrUnsupportedRetriever = errors.New("unsupported retriever type")
)

// UnsupportedBackendError names the rejected backend and the registered ones.
type UnsupportedBackendError struct {
	Name  string
	Valid []string
}

func (e *UnsupportedBackendError) Error() string {
	return fmt.Sprintf("Invalid vectordb '%s'. Valid options: [%s]", e.Name, strings.Join(e.Valid, ", "))
}

func (e *UnsupportedBackendError) Unwrap() error { return ErrUnsupportedBackend }

// Registry resolves backends by name in registration order.
type Registry struct {
	mu       sync.RWMutex
	order    []string
	backends map[string]Backend
	llm      provider.Provider
	logger   *log.Logger
}

// NewRegistry builds an empty registry. llm is used by the multi_query retriever and may be nil.
func NewRegistry(llm provider.Provider, logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Registry{backends: make(map[string]Backend), llm: llm, logger: logger}
}

func (r *Registry) Register(b Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := strings.ToLower(b.Name())
	if _, ok := r.backends[name]; !ok {
		r.order = append(r.order, name)
	}
	r.backends[name] = b
}

// Names lists registered backends.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

func (r *Registry) Backend(name string) (Backend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.backends[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, &UnsupportedBackendError{Name: name, Valid: append([]string(nil), r.order...)}
	}
	return b, nil
}

// Retriever builds a retriever of retrieverType over backend/collection.
func (r *Registry) Retriever(backend, collection, retrieverType string) (Retriever, error) {
	b, err := r.Backend(backend)
	if err != nil {
		return nil, err
	}
	base := &similarityRetriever{backend: b, collection: collection}
	switch strings.ToLower(strings.TrimSpace(retrieverType)) {
	case "", RetrieverVectorstore:
		return base, nil
	case RetrieverMultiQuery:
		return &MultiQuery{base: base, llm: r.llm, logger: r.logger}, nil
	default:
		return nil, fmt.Errorf("%w: %q (valid: %s, %s)", ErrUnsupportedRetriever, retrieverType, RetrieverVectorstore, RetrieverMultiQuery)
	}
}

type similarityRetriever struct {
	backend    Backend
	collection string
}

func (s *similarityRetriever) Retrieve(ctx context.Context, query string, k int) ([]Document, error) {
	return s.backend.Search(ctx, s.collection, query, k)
}
