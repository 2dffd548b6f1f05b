package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/Prasann123/Tradition-RAG/config"
	"github.com/Prasann123/Tradition-RAG/internal/agent/core"
	"github.com/Prasann123/Tradition-RAG/internal/agent/telemetry"
	"github.com/Prasann123/Tradition-RAG/internal/ingest"
	"github.com/Prasann123/Tradition-RAG/internal/retrieval"
	"github.com/Prasann123/Tradition-RAG/internal/store"
	"github.com/Prasann123/Tradition-RAG/internal/travel"
	"github.com/Prasann123/Tradition-RAG/provider"
	"github.com/Prasann123/Tradition-RAG/tools/web_fetch"
	"github.com/Prasann123/Tradition-RAG/tools/web_search"
)

// App holds the shared dependencies built from one Config.
type App struct {
	Config       *config.Config
	Orchestrator *core.Orchestrator
	Planner      *travel.Planner
	Ingest       *ingest.Service
	Janitor      *ingest.Janitor
	Telemetry    *telemetry.Telemetry
	Registry     *retrieval.Registry
	Generation   provider.Provider
	Defaults     core.RequestConfig

	closers []io.Closer
}

func prefixed(prefix string) *log.Logger {
	return log.New(os.Stderr, prefix, log.LstdFlags)
}

// webSearcher returns nil when web search is not configured.
func webSearcher(cfg config.WebSearchConfig, logger *log.Logger) core.WebSearcher {
	s, err := web_search.FromConfig(cfg)
	if err != nil {
		logger.Printf("web search disabled: %v", err)
		return nil
	}
	return s
}

// Build wires every component of the service from cfg.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	app := &App{Config: cfg, Telemetry: telemetry.NewTelemetry(prefixed("[TELEMETRY] "))}

	generation, err := provider.ForTask(cfg.LLM, "generation")
	if err != nil {
		return nil, err
	}
	summary, err := provider.ForTask(cfg.LLM, "summary")
	if err != nil {
		return nil, err
	}
	embedder, err := provider.EmbedderFor(cfg.LLM)
	if err != nil {
		return nil, err
	}

	registry := retrieval.NewRegistry(generation, prefixed("[RETRIEVAL] "))
	app.Registry, app.Generation = registry, generation
	milvus := retrieval.NewMilvus(cfg.Retrieval.Milvus, embedder)
	app.closers = append(app.closers, milvus)
	registry.Register(milvus)
	registry.Register(retrieval.NewChroma(cfg.Retrieval.Chroma, embedder))
	registry.Register(retrieval.NewBleve(embedder))

	var oracle core.DecisionOracle
	switch cfg.Agents.Oracle {
	case "rules":
		oracle = core.NewRuleOracle(cfg.Agents.Rules)
	default:
		decision, err := provider.ForTask(cfg.LLM, "decision")
		if err != nil {
			return nil, err
		}
		oracle = core.NewLLMOracle(decision, cfg.Agents.Router)
	}

	orchLogger := prefixed("[ORCH] ")
	searcher := webSearcher(cfg.Sources.WebSearch, orchLogger)

	defaults := core.RequestConfig{
		VectorDB:       cfg.Retrieval.DefaultBackend,
		K:              cfg.Retrieval.K,
		CollectionName: cfg.Retrieval.CollectionName,
		RetrieverType:  cfg.Retrieval.RetrieverType,
	}
	app.Defaults = defaults
	app.Orchestrator, err = core.NewOrchestrator(
		core.OrchestratorConfig{
			MaxCycles:      cfg.Agents.MaxCycles,
			CallTimeout:    cfg.Agents.CallTimeout,
			RequestTimeout: cfg.General.RequestTimeout,
			Defaults:       defaults,
		},
		core.NewRouter(oracle, prefixed("[ROUTER] ")),
		core.NewValidator(oracle, prefixed("[VALIDATOR] ")),
		app.Telemetry,
		orchLogger,
		core.NewRetrievalStrategy(registry, defaults, orchLogger),
		core.NewWebStrategy(searcher, cfg.Sources.WebSearch.MaxResults, orchLogger),
		core.NewGenerationStrategy(generation, orchLogger),
	)
	if err != nil {
		return nil, err
	}

	var rdb *redis.Client
	if cfg.Ingestion.JobStore == "redis" || cfg.Travel.Cache == "redis" {
		rdb = redis.NewClient(&redis.Options{
			Addr:        cfg.Storage.Redis.Addr(),
			Password:    cfg.Storage.Redis.Password,
			DB:          cfg.Storage.Redis.DB,
			DialTimeout: cfg.Storage.Redis.Timeout,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis connection failed (%s): %w", cfg.Storage.Redis.Addr(), err)
		}
		app.closers = append(app.closers, rdb)
	}

	app.Planner, err = travel.NewFromConfig(cfg.Travel, travel.Deps{
		LLM:       summary,
		Search:    searcher,
		Redis:     rdb,
		Telemetry: app.Telemetry,
		Logger:    prefixed("[TRAVEL] "),
	})
	if err != nil {
		return nil, err
	}

	jobs, err := ingest.NewJobStore(cfg.Ingestion.JobStore, rdb)
	if err != nil {
		return nil, err
	}
	var catalog ingest.Catalog = ingest.NewMemoryCatalog()
	if cfg.Ingestion.Catalog == "postgres" {
		st, err := store.New(ctx, cfg.Storage.Postgres)
		if err != nil {
			return nil, fmt.Errorf("postgres catalog: %w", err)
		}
		app.closers = append(app.closers, st)
		catalog = st
	}
	fetcher, err := web_fetch.FromConfig(cfg.Sources.WebFetch)
	if err != nil {
		return nil, err
	}
	ingestLogger := prefixed("[INGEST] ")
	app.Ingest = ingest.NewService(registry, jobs, catalog, fetcher, ingest.Options{
		Defaults: ingest.Request{
			VectorDB:       cfg.Retrieval.DefaultBackend,
			CollectionName: cfg.Retrieval.CollectionName,
			ParserType:     cfg.Ingestion.ParserType,
			ChunkSize:      cfg.Ingestion.ChunkSize,
			ChunkOverlap:   cfg.Ingestion.ChunkOverlap,
		},
		MaxConcurrentJobs: cfg.Ingestion.MaxConcurrentJobs,
	}, app.Telemetry, ingestLogger)

	app.Janitor, err = ingest.NewJanitor(jobs, cfg.Ingestion.JanitorSchedule, cfg.Ingestion.JobRetention, ingestLogger)
	if err != nil {
		return nil, err
	}
	return app, nil
}

// Close waits for running ingestion jobs and releases connections.
func (a *App) Close() error {
	if a.Ingest != nil {
		a.Ingest.Wait()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.Telemetry.Shutdown()
	return errors.Join(errs...)
}
