package brave

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/Prasann123/Tradition-RAG/internal/helpers"
	"github.com/Prasann123/Tradition-RAG/tools/web_search/models"
)

const DefaultEndpoint = "https://api.search.brave.com/res/v1/web/search"

type Search struct {
	ApiKey   string
	Endpoint string
	Client   *helpers.HTTPClient
}

func (s Search) Discover(ctx context.Context, q string, k int, sites []string, recency int) ([]models.Result, error) {
	// https://api.search.brave.com/app/documentation/web-search
	query := url.Values{}
	query.Set("q", q)
	query.Set("count", strconv.Itoa(k))
	if recency > 0 {
		query.Set("freshness", "pd")
	}
	endpoint := s.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	headers := map[string]string{
		"Accept":               "application/json",
		"X-Subscription-Token": s.ApiKey,
	}
	var raw struct {
		Web struct {
			Results []struct {
				Title   string `json:"title"`
				URL     string `json:"url"`
				Snippet string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := s.Client.GetJSON(ctx, endpoint, query, headers, &raw); err != nil {
		return nil, fmt.Errorf("brave search: %w", err)
	}
	var out []models.Result
	for i, r := range raw.Web.Results {
		if i >= k {
			break
		}
		out = append(out, models.Result{Title: r.Title, URL: r.URL, Snippet: r.Snippet})
	}
	return out, nil
}
