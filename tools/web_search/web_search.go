package web_search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Prasann123/Tradition-RAG/config"
	"github.com/Prasann123/Tradition-RAG/internal/helpers"
	"github.com/Prasann123/Tradition-RAG/tools/web_search/brave"
	"github.com/Prasann123/Tradition-RAG/tools/web_search/models"
	"github.com/Prasann123/Tradition-RAG/tools/web_search/serper"
	"github.com/Prasann123/Tradition-RAG/tools/web_search/tavily"
)

type WebSearcher interface {
	Discover(ctx context.Context, q string, k int, sites []string, recency int) ([]models.Result, error)
}

type Provider string

const (
	TavilyProvider Provider = "tavily"
	SerperProvider Provider = "serper"
	BraveProvider  Provider = "brave"
)

var (
	ErrUnsupportedProvider = errors.New("unsupported provider")
	ErrMissingAPIKey       = errors.New("missing web search api key")
)

func NewWebSearcher(provider Provider, apiKey string, client *helpers.HTTPClient) (WebSearcher, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if client == nil {
		client = helpers.NewHTTPClient(15*time.Second, 2, 0)
	}
	switch provider {
	case TavilyProvider, "":
		return tavily.Search{ApiKey: apiKey, Client: client}, nil
	case SerperProvider:
		return serper.Search{ApiKey: apiKey, Client: client}, nil
	case BraveProvider:
		return brave.Search{ApiKey: apiKey, Client: client}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, provider)
	}
}

// FromConfig builds the searcher selected by sources.web_search.
func FromConfig(cfg config.WebSearchConfig) (WebSearcher, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return NewWebSearcher(Provider(strings.ToLower(cfg.Provider)), cfg.APIKey(), helpers.NewHTTPClient(timeout, 2, 0))
}
