package serper

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/Prasann123/Tradition-RAG/internal/helpers"
	"github.com/Prasann123/Tradition-RAG/tools/web_search/models"
	"github.com/Prasann123/Tradition-RAG/utils"
)

const DefaultEndpoint = "https://google.serper.dev/search"

type Search struct {
	ApiKey   string
	Endpoint string
	Client   *helpers.HTTPClient
}

func (s Search) Discover(ctx context.Context, q string, k int, sites []string, recency int) ([]models.Result, error) {
	// https://serper.dev/ docs
	payload := map[string]any{"q": q, "num": k}
	if len(sites) > 0 {
		payload["q"] = q + " " + siteFilter(sites)
	}
	if recency > 0 {
		payload["tbs"] = fmt.Sprintf("qdr:d%d", recency)
	}
	endpoint := s.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	var raw map[string]any
	headers := map[string]string{"X-API-KEY": s.ApiKey}
	if err := s.Client.DoJSON(ctx, http.MethodPost, endpoint, headers, payload, &raw); err != nil {
		return nil, fmt.Errorf("serper search: %w", err)
	}

	var out []models.Result
	if items, ok := raw["organic"].([]any); ok {
		for i, it := range items {
			if i >= k {
				break
			}
			m, ok := it.(map[string]any)
			if !ok {
				continue
			}
			out = append(out, models.Result{
				Title: utils.Str(m["title"]), URL: utils.Str(m["link"]), Snippet: utils.Str(m["snippet"]),
			})
		}
	}
	return out, nil
}

func siteFilter(sites []string) string {
	parts := make([]string, len(sites))
	for i, s := range sites {
		parts[i] = "site:" + s
	}
	return strings.Join(parts, " OR ")
}
