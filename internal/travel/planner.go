package travel

import (
	"context"
	"io"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Prasann123/Tradition-RAG/config"
	"github.com/Prasann123/Tradition-RAG/internal/agent/core"
	"github.com/Prasann123/Tradition-RAG/internal/agent/telemetry"
	"github.com/Prasann123/Tradition-RAG/internal/helpers"
)

// Result is the caller-facing outcome of a travel run.
type Result struct {
	FinalAnswer string    `json:"final_answer"`
	Messages    []Message `json:"messages"`
	ThreadID    string    `json:"thread_id"`
}

// Planner runs the tool chain then summarizes.
type Planner struct {
	executor   *Executor
	summarizer Summarizer
	logger     *log.Logger
}

func NewPlanner(executor *Executor, summarizer Summarizer, logger *log.Logger) *Planner {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Planner{executor: executor, summarizer: summarizer, logger: logger}
}

// Plan validates q, runs every tool and summarizes. An invalid query is a
// *core.ConfigError; every other failure is reported in the result.
func (p *Planner) Plan(ctx context.Context, q Query) (Result, error) {
	if err := q.Validate(); err != nil {
		return Result{}, &core.ConfigError{Field: "query", Message: err.Error()}
	}
	threadID := uuid.NewString()
	state := NewState(q)
	state.supervisor("Supervisor invoked with query: "+queryJSON(q), nil)
	p.logger.Printf("plan %s: %s, %d nights from %s", threadID, q.Destination, q.Nights, q.StartDate)

	p.executor.Run(ctx, state)

	summary, err := p.summarizer.Summarize(ctx, state)
	if err != nil {
		p.logger.Printf("plan %s: summary failed: %v", threadID, err)
		state.FinalAnswer = "An error occurred."
		state.supervisor("Error: "+err.Error(), nil)
	} else {
		state.FinalAnswer = summary
		state.supervisor("Final summary generated for user.", summary)
	}
	return Result{FinalAnswer: state.FinalAnswer, Messages: state.Messages, ThreadID: threadID}, nil
}

// DefaultTools returns the tool chain in its declared order.
func DefaultTools(places PlacesSearcher, flights FlightSource, weather ForecastSource, rates RateSource, search core.WebSearcher, llm core.TextGenerator) []Tool {
	return []Tool{
		NewAttractionTool(places),
		NewFlightTool(flights, rates),
		NewWeatherTool(weather),
		NewCurrencyTool(rates),
		NewBudgetTool(search, llm),
		NewItineraryTool(),
	}
}

// Deps are the collaborators NewFromConfig cannot build itself.
type Deps struct {
	LLM       core.TextGenerator
	Search    core.WebSearcher
	Redis     *redis.Client
	Telemetry *telemetry.Telemetry
	Logger    *log.Logger
}

// NewFromConfig wires the API clients, cache, executor and summarizer.
func NewFromConfig(cfg config.TravelConfig, deps Deps) (*Planner, error) {
	cache, err := NewCache(cfg.Cache, deps.Redis)
	if err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	hc := helpers.NewHTTPClient(timeout, 2, 0)
	rates := NewRatesClient(cfg.Rates, hc, cache, cfg.CacheTTL)
	var flights FlightSource = NewAmadeusClient(cfg.Amadeus, hc)
	tools := DefaultTools(
		NewPlacesClient(cfg.Places, hc, cache, cfg.CacheTTL),
		flights,
		NewWeatherClient(cfg.Weather, hc, cache, cfg.CacheTTL),
		rates,
		deps.Search,
		deps.LLM,
	)
	ex, err := NewExecutor(tools,
		WithParallel(cfg.Parallel),
		WithToolTimeout(timeout),
		WithTelemetry(deps.Telemetry),
		WithLogger(deps.Logger),
	)
	if err != nil {
		return nil, err
	}
	var summarizer Summarizer = TemplateSummarizer{}
	if deps.LLM != nil {
		summarizer = NewLLMSummarizer(deps.LLM)
	}
	return NewPlanner(ex, summarizer, deps.Logger), nil
}
