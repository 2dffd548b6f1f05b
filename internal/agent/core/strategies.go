package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/Prasann123/Tradition-RAG/internal/retrieval"
	"github.com/Prasann123/Tradition-RAG/tools/web_search/models"
)

const sourcePreviewChars = 200

// Strategy is a node that contributes evidence or an answer to the state.
// Collaborator failures are recorded in the state; only cancellation and
// *ConfigError are returned.
type Strategy interface {
	Name() Agent
	Produce(ctx context.Context, state *ChatState) error
}

// RetrieverResolver builds a retriever for a backend/collection/type triple.
type RetrieverResolver interface {
	Retriever(backend, collection, retrieverType string) (retrieval.Retriever, error)
}

// WebSearcher is the subset of the web_search tool the web strategy needs.
type WebSearcher interface {
	Discover(ctx context.Context, q string, k int, sites []string, recency int) ([]models.Result, error)
}

// RetrievalStrategy looks the query up in the configured vector backend.
type RetrievalStrategy struct {
	resolver RetrieverResolver
	defaults RequestConfig
	logger   *log.Logger
}

func NewRetrievalStrategy(resolver RetrieverResolver, defaults RequestConfig, logger *log.Logger) *RetrievalStrategy {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &RetrievalStrategy{resolver: resolver, defaults: defaults, logger: logger}
}

func (s *RetrievalStrategy) Name() Agent { return AgentRetrieval }

func (s *RetrievalStrategy) Produce(ctx context.Context, state *ChatState) error {
	cfg := state.Config.withDefaults(s.defaults)
	ret, err := s.resolver.Retriever(cfg.VectorDB, cfg.CollectionName, cfg.RetrieverType)
	if err != nil {
		state.Context = []string{}
		state.Sources = []Source{}
		state.Error = err.Error()
		field := "vectordb"
		if errors.Is(err, retrieval.ErrUnsupportedRetriever) {
			field = "retriever_type"
		}
		return &ConfigError{Field: field, Message: err.Error()}
	}

	docs, err := ret.Retrieve(ctx, state.Query, cfg.K)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Printf("retrieval %s: %s/%s failed: %v", state.ID, cfg.VectorDB, cfg.CollectionName, err)
		state.note(AgentRetrieval, "Retrieval from %s failed: %v", cfg.VectorDB, err)
		return nil
	}

	state.Context = make([]string, 0, len(docs))
	state.Sources = make([]Source, 0, len(docs))
	for _, d := range docs {
		state.Context = append(state.Context, d.Content)
		meta := d.Metadata
		if meta == nil {
			meta = map[string]any{}
		}
		state.Sources = append(state.Sources, Source{
			SourceName:  d.Source(),
			PageContent: preview(d.Content),
			Metadata:    meta,
		})
	}
	state.note(AgentRetrieval, "Retrieved %d chunks from %s/%s.", len(docs), cfg.VectorDB, cfg.CollectionName)
	return nil
}

func preview(s string) string {
	r := []rune(s)
	if len(r) > sourcePreviewChars {
		r = r[:sourcePreviewChars]
	}
	return string(r) + "..."
}

// WebStrategy answers from a live web search.
type WebStrategy struct {
	searcher   WebSearcher
	maxResults int
	logger     *log.Logger
}

func NewWebStrategy(searcher WebSearcher, maxResults int, logger *log.Logger) *WebStrategy {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if maxResults <= 0 {
		maxResults = 5
	}
	return &WebStrategy{searcher: searcher, maxResults: maxResults, logger: logger}
}

func (s *WebStrategy) Name() Agent { return AgentWeb }

func (s *WebStrategy) Produce(ctx context.Context, state *ChatState) error {
	if s.searcher == nil {
		state.note(AgentWeb, "Web search is not configured.")
		return nil
	}
	results, err := s.searcher.Discover(ctx, state.Query, s.maxResults, nil, 0)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Printf("web %s: search failed: %v", state.ID, err)
		state.note(AgentWeb, "Web search failed: %v", err)
		return nil
	}
	state.WebData = make([]string, 0, len(results))
	for _, r := range results {
		if text := strings.TrimSpace(r.Snippet); text != "" {
			state.WebData = append(state.WebData, text)
		}
	}
	state.note(AgentWeb, "Collected %d web results.", len(state.WebData))
	return nil
}

// GenerationStrategy synthesizes the candidate answer.
type GenerationStrategy struct {
	llm    TextGenerator
	logger *log.Logger
}

func NewGenerationStrategy(llm TextGenerator, logger *log.Logger) *GenerationStrategy {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &GenerationStrategy{llm: llm, logger: logger}
}

func (s *GenerationStrategy) Name() Agent { return AgentGeneration }

func generationPrompt(evidence, query string) string {
	return fmt.Sprintf("You are a helpful assistant with the following context:\n%s\n\nAnswer the user's question:\n%s", evidence, query)
}

func (s *GenerationStrategy) Produce(ctx context.Context, state *ChatState) error {
	switch {
	case len(state.Context) > 0:
		state.AnswerSource = AnswerSourceDocuments
	case len(state.WebData) > 0:
		state.AnswerSource = AnswerSourceWeb
	default:
		state.AnswerSource = AnswerSourceGeneral
	}

	answer, err := s.llm.Generate(ctx, generationPrompt(state.Evidence(), state.Query))
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Printf("generation %s: %v", state.ID, err)
		state.note(AgentGeneration, "Generation failed: %v", err)
		state.CandidateAnswer = ""
		return nil
	}
	state.CandidateAnswer = strings.TrimSpace(answer)
	state.note(AgentGeneration, "Drafted an answer from %s.", state.AnswerSource)
	return nil
}
