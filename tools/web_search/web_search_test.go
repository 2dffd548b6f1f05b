package web_search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Prasann123/Tradition-RAG/internal/helpers"
	"github.com/Prasann123/Tradition-RAG/tools/web_search/brave"
	"github.com/Prasann123/Tradition-RAG/tools/web_search/serper"
	"github.com/Prasann123/Tradition-RAG/tools/web_search/tavily"
)

func testClient() *helpers.HTTPClient {
	return helpers.NewHTTPClient(time.Second, 0, time.Millisecond)
}

func TestTavilyDiscover(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["query"] != "go generics" || body["api_key"] != "k" {
			t.Errorf("unexpected request body %v", body)
		}
		_, _ = w.Write([]byte(`{"results":[{"title":"A","url":"https://a","content":"alpha"},{"title":"B","url":"https://b","content":"beta"},{"title":"C","url":"https://c","content":"gamma"}]}`))
	}))
	defer srv.Close()

	s := tavily.Search{ApiKey: "k", Endpoint: srv.URL, Client: testClient()}
	res, err := s.Discover(context.Background(), "go generics", 2, nil, 0)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(res) != 2 || res[0].Snippet != "alpha" || res[1].URL != "https://b" {
		t.Fatalf("unexpected results %+v", res)
	}
}

func TestSerperDiscover(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-KEY") != "k" {
			t.Errorf("missing api key header")
		}
		_, _ = w.Write([]byte(`{"organic":[{"title":"A","link":"https://a","snippet":"alpha"}]}`))
	}))
	defer srv.Close()

	s := serper.Search{ApiKey: "k", Endpoint: srv.URL, Client: testClient()}
	res, err := s.Discover(context.Background(), "q", 5, nil, 0)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(res) != 1 || res[0].URL != "https://a" {
		t.Fatalf("unexpected results %+v", res)
	}
}

func TestBraveDiscover(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "rome weather" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"web":{"results":[{"title":"A","url":"https://a","description":"sunny"}]}}`))
	}))
	defer srv.Close()

	s := brave.Search{ApiKey: "k", Endpoint: srv.URL, Client: testClient()}
	res, err := s.Discover(context.Background(), "rome weather", 5, nil, 0)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(res) != 1 || res[0].Snippet != "sunny" {
		t.Fatalf("unexpected results %+v", res)
	}
}

func TestNewWebSearcherValidates(t *testing.T) {
	if _, err := NewWebSearcher(TavilyProvider, "", nil); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
	if _, err := NewWebSearcher("bing", "k", nil); !errors.Is(err, ErrUnsupportedProvider) {
		t.Fatalf("expected ErrUnsupportedProvider, got %v", err)
	}
}
