package web_fetch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Prasann123/Tradition-RAG/config"
	"github.com/Prasann123/Tradition-RAG/tools/web_fetch/chromedp"
	"github.com/Prasann123/Tradition-RAG/tools/web_fetch/httpfetch"
	"github.com/Prasann123/Tradition-RAG/tools/web_fetch/models"
)

const (
	DefaultTimeout  = 15 * time.Second
	MaxCharsDefault = 200000
)

type WebFetcher interface {
	Exec(ctx context.Context, url string) (models.Result, error)
}

type FetcherType string

const (
	HTTPFetcherType     FetcherType = "http"
	ChromedpFetcherType FetcherType = "chromedp"
)

func NewWebFetcher(fetcherType FetcherType, timeout time.Duration, maxChars int) (WebFetcher, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxChars <= 0 {
		maxChars = MaxCharsDefault
	}

	switch fetcherType {
	case HTTPFetcherType, "":
		return httpfetch.New(timeout, maxChars), nil
	case ChromedpFetcherType:
		return &chromedp.Fetch{Timeout: timeout, MaxChars: maxChars}, nil
	default:
		return nil, fmt.Errorf("unsupported fetcher type %q", fetcherType)
	}
}

// FromConfig builds the fetcher selected by sources.web_fetch.
func FromConfig(cfg config.WebFetchConfig) (WebFetcher, error) {
	return NewWebFetcher(FetcherType(strings.ToLower(cfg.Type)), cfg.Timeout, cfg.MaxChars)
}
