package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Prasann123/Tradition-RAG/internal/agent/core"
	"github.com/Prasann123/Tradition-RAG/internal/agent/telemetry"
	"github.com/Prasann123/Tradition-RAG/internal/retrieval"
	"github.com/Prasann123/Tradition-RAG/tools/web_fetch"
)

// Request carries the per-upload settings; zero fields take the defaults.
type Request struct {
	VectorDB       string `json:"vectordb,omitempty" form:"vectordb"`
	CollectionName string `json:"collection_name,omitempty" form:"collection_name"`
	ParserType     string `json:"parser_type,omitempty" form:"parser_type"`
	ChunkSize      int    `json:"chunk_size,omitempty" form:"chunk_size"`
	ChunkOverlap   int    `json:"chunk_overlap,omitempty" form:"chunk_overlap"`
	// Source overrides the source metadata of uploaded files.
	Source string `json:"-" form:"-"`
}

func (r Request) withDefaults(d Request) Request {
	if strings.TrimSpace(r.VectorDB) == "" {
		r.VectorDB = d.VectorDB
	}
	r.VectorDB = strings.ToLower(strings.TrimSpace(r.VectorDB))
	if strings.TrimSpace(r.CollectionName) == "" {
		r.CollectionName = d.CollectionName
	}
	if strings.TrimSpace(r.ParserType) == "" {
		r.ParserType = d.ParserType
	}
	if r.ChunkSize <= 0 {
		r.ChunkSize = d.ChunkSize
		if r.ChunkOverlap <= 0 {
			r.ChunkOverlap = d.ChunkOverlap
		}
	}
	return r
}

// BackendResolver is satisfied by *retrieval.Registry.
type BackendResolver interface {
	Backend(name string) (retrieval.Backend, error)
}

type Options struct {
	Defaults          Request
	MaxConcurrentJobs int
}

// Service loads, splits and stores documents in a vector backend and the catalog.
type Service struct {
	backends  BackendResolver
	jobs      JobStore
	catalog   Catalog
	fetcher   web_fetch.WebFetcher
	topics    *TopicExtractor
	opts      Options
	telemetry *telemetry.Telemetry
	logger    *log.Logger

	sem chan struct{}
	wg  sync.WaitGroup
}

func NewService(backends BackendResolver, jobs JobStore, catalog Catalog, fetcher web_fetch.WebFetcher, opts Options, tel *telemetry.Telemetry, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if tel == nil {
		tel = telemetry.Discard()
	}
	if jobs == nil {
		jobs = NewMemoryJobs()
	}
	if catalog == nil {
		catalog = NewMemoryCatalog()
	}
	if opts.MaxConcurrentJobs <= 0 {
		opts.MaxConcurrentJobs = 4
	}
	if opts.Defaults.ParserType == "" {
		opts.Defaults.ParserType = ParserRecursive
	}
	if opts.Defaults.ChunkSize <= 0 {
		opts.Defaults.ChunkSize = DefaultChunkSize
		opts.Defaults.ChunkOverlap = DefaultChunkOverlap
	}
	return &Service{
		backends:  backends,
		jobs:      jobs,
		catalog:   catalog,
		fetcher:   fetcher,
		topics:    NewTopicExtractor(),
		opts:      opts,
		telemetry: tel,
		logger:    logger,
		sem:       make(chan struct{}, opts.MaxConcurrentJobs),
	}
}

// SubmitFile registers a pending job and ingests path in the background.
// The file is removed once the job finishes, whatever the outcome.
func (s *Service) SubmitFile(ctx context.Context, path string, req Request) (string, error) {
	id := uuid.NewString()
	if err := s.jobs.Set(ctx, id, JobStatus{Status: StatusPending, Message: "Upload received, job is starting."}); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("record job: %w", err)
	}
	req = req.withDefaults(s.opts.Defaults)
	bg := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.sem <- struct{}{}
		defer func() { <-s.sem }()
		s.processFile(bg, id, path, req)
	}()
	return id, nil
}

// Wait blocks until every submitted job has finished.
func (s *Service) Wait() { s.wg.Wait() }

// Status returns the job's status or the not_found status.
func (s *Service) Status(ctx context.Context, id string) (JobStatus, error) {
	st, ok, err := s.jobs.Get(ctx, id)
	if err != nil {
		return JobStatus{}, err
	}
	if !ok {
		return NotFoundStatus(), nil
	}
	return st, nil
}

func (s *Service) update(ctx context.Context, id, status, message string) {
	if err := s.jobs.Set(ctx, id, JobStatus{Status: status, Message: message}); err != nil {
		s.logger.Printf("job %s: status update failed: %v", id, err)
	}
}

func (s *Service) processFile(ctx context.Context, id, path string, req Request) {
	start := time.Now()
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Printf("job %s: remove %s: %v", id, path, err)
		}
	}()

	fail := func(err error) {
		s.logger.Printf("job %s failed after %v: %v", id, time.Since(start), err)
		s.update(ctx, id, StatusError, fmt.Sprintf("An error occurred: %v", err))
		s.telemetry.RecordIngestJob(StatusError)
	}

	s.update(ctx, id, StatusProcessing, "Loading document content...")
	pages, err := LoadFile(path)
	if err != nil {
		fail(err)
		return
	}
	if req.Source != "" {
		for _, p := range pages {
			p.Metadata["source"] = req.Source
		}
	}

	s.update(ctx, id, StatusProcessing, "Splitting document into chunks...")
	splitter, err := NewSplitter(req.ParserType, req.ChunkSize, req.ChunkOverlap)
	if err != nil {
		fail(err)
		return
	}
	docs, err := chunk(splitter, pages)
	if err != nil {
		fail(err)
		return
	}

	s.update(ctx, id, StatusProcessing, fmt.Sprintf("Preparing to embed %d chunks...", len(docs)))
	backend, err := s.backends.Backend(req.VectorDB)
	if err != nil {
		fail(err)
		return
	}

	s.update(ctx, id, StatusProcessing, fmt.Sprintf("Embedding and ingesting %d chunks into %s...", len(docs), req.VectorDB))
	if err := s.store(ctx, backend, req.CollectionName, docs); err != nil {
		fail(err)
		return
	}
	s.update(ctx, id, StatusComplete, fmt.Sprintf("Successfully ingested %d chunks.", len(docs)))
	s.telemetry.RecordIngestJob(StatusComplete)
	s.logger.Printf("job %s: ingested %d chunks into %s/%s in %v", id, len(docs), req.VectorDB, req.CollectionName, time.Since(start))
}

// IngestText splits and stores text synchronously. Only configuration
// problems are returned as errors; ingestion failures are reported in the
// returned message.
func (s *Service) IngestText(ctx context.Context, text string, req Request) (string, error) {
	req = req.withDefaults(s.opts.Defaults)
	splitter, backend, err := s.prepare(req)
	if err != nil {
		return "", err
	}
	docs, err := chunk(splitter, []Page{{Text: text, Metadata: map[string]any{}}})
	if err != nil {
		return fmt.Sprintf("An error occurred: %v", err), nil
	}
	if err := s.store(ctx, backend, req.CollectionName, docs); err != nil {
		s.logger.Printf("text ingestion into %s failed: %v", req.VectorDB, err)
		return fmt.Sprintf("An error occurred: %v", err), nil
	}
	return fmt.Sprintf("Successfully ingested %d text chunks into %s.", len(docs), req.VectorDB), nil
}

// IngestURL scrapes the paragraphs of a page and stores them with
// metadata source=url.
func (s *Service) IngestURL(ctx context.Context, url string, req Request) (string, error) {
	req = req.withDefaults(s.opts.Defaults)
	splitter, backend, err := s.prepare(req)
	if err != nil {
		return "", err
	}
	if s.fetcher == nil {
		return "Error scraping website: no fetcher configured", nil
	}
	page, err := s.fetcher.Exec(ctx, url)
	if err != nil {
		s.logger.Printf("scrape %s failed: %v", url, err)
		return fmt.Sprintf("Error scraping website: %v", err), nil
	}
	if strings.TrimSpace(page.Text) == "" {
		return "Could not extract content from this website", nil
	}
	docs, err := chunk(splitter, []Page{{Text: page.Text, Metadata: map[string]any{"source": url}}})
	if err != nil {
		return fmt.Sprintf("Error scraping website: %v", err), nil
	}
	if err := s.store(ctx, backend, req.CollectionName, docs); err != nil {
		s.logger.Printf("scrape %s: store failed: %v", url, err)
		return fmt.Sprintf("Error scraping website: %v", err), nil
	}
	return fmt.Sprintf("Successfully ingested %d chunks from website %s into %s.", len(docs), url, req.VectorDB), nil
}

// ListDocuments returns up to limit catalog entries.
func (s *Service) ListDocuments(ctx context.Context, limit int) ([]retrieval.Document, error) {
	return s.catalog.ListDocuments(ctx, limit)
}

// ListTopics returns the top keywords of up to limit catalog entries.
func (s *Service) ListTopics(ctx context.Context, limit int) ([]DocumentTopics, error) {
	docs, err := s.catalog.ListDocuments(ctx, limit)
	if err != nil {
		return nil, err
	}
	return s.topics.Topics(docs), nil
}

func (s *Service) prepare(req Request) (*Splitter, retrieval.Backend, error) {
	splitter, err := NewSplitter(req.ParserType, req.ChunkSize, req.ChunkOverlap)
	if err != nil {
		return nil, nil, &core.ConfigError{Field: "parser_type", Message: err.Error()}
	}
	backend, err := s.backends.Backend(req.VectorDB)
	if err != nil {
		return nil, nil, &core.ConfigError{Field: "vectordb", Message: err.Error()}
	}
	return splitter, backend, nil
}

func (s *Service) store(ctx context.Context, backend retrieval.Backend, collection string, docs []retrieval.Document) error {
	if len(docs) == 0 {
		return nil
	}
	if err := backend.Add(ctx, collection, docs); err != nil {
		return err
	}
	if err := s.catalog.InsertDocuments(ctx, backend.Name(), collection, docs); err != nil {
		s.logger.Printf("catalog insert of %d chunks failed: %v", len(docs), err)
	}
	return nil
}

func chunk(splitter *Splitter, pages []Page) ([]retrieval.Document, error) {
	var docs []retrieval.Document
	for _, p := range pages {
		chunks, err := splitter.Split(p.Text)
		if err != nil {
			return nil, err
		}
		for _, c := range chunks {
			meta := make(map[string]any, len(p.Metadata))
			for k, v := range p.Metadata {
				meta[k] = v
			}
			docs = append(docs, retrieval.Document{ID: uuid.NewString(), Content: c, Metadata: meta})
		}
	}
	return docs, nil
}
