package tavily

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Prasann123/Tradition-RAG/internal/helpers"
	"github.com/Prasann123/Tradition-RAG/tools/web_search/models"
)

const DefaultEndpoint = "https://api.tavily.com/search"

type Search struct {
	ApiKey   string
	Endpoint string
	Client   *helpers.HTTPClient
}

type request struct {
	APIKey         string   `json:"api_key"`
	Query          string   `json:"query"`
	MaxResults     int      `json:"max_results"`
	SearchDepth    string   `json:"search_depth"`
	IncludeDomains []string `json:"include_domains,omitempty"`
	Days           int      `json:"days,omitempty"`
}

type response struct {
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

func (s Search) Discover(ctx context.Context, q string, k int, sites []string, recency int) ([]models.Result, error) {
	// https://docs.tavily.com/documentation/api-reference/endpoint/search
	endpoint := s.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	req := request{APIKey: s.ApiKey, Query: q, MaxResults: k, SearchDepth: "basic", IncludeDomains: sites, Days: recency}
	var raw response
	if err := s.Client.DoJSON(ctx, http.MethodPost, endpoint, nil, req, &raw); err != nil {
		return nil, fmt.Errorf("tavily search: %w", err)
	}
	out := make([]models.Result, 0, len(raw.Results))
	for i, r := range raw.Results {
		if i >= k {
			break
		}
		out = append(out, models.Result{Title: r.Title, URL: r.URL, Snippet: r.Content})
	}
	return out, nil
}
