package httpfetch

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/Prasann123/Tradition-RAG/tools/web_fetch/models"
	"github.com/Prasann123/Tradition-RAG/utils"
)

const userAgent = "ragagent/1.0 (+https://github.com/Prasann123/Tradition-RAG)"

// Fetch downloads a page over plain HTTP and keeps the text of its <p> elements.
type Fetch struct {
	Client   *http.Client
	MaxChars int
}

func New(timeout time.Duration, maxChars int) *Fetch {
	return &Fetch{Client: &http.Client{Timeout: timeout}, MaxChars: maxChars}
}

func (f *Fetch) Exec(ctx context.Context, url string) (models.Result, error) {
	if strings.TrimSpace(url) == "" {
		return models.Result{}, errors.New("invalid url")
	}
	t0 := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.Result{}, err
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := f.Client.Do(req)
	if err != nil {
		return models.Result{URL: url}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.Result{URL: url, Status: resp.StatusCode}, fmt.Errorf("fetch %s: %s", url, resp.Status)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Result{URL: url, Status: resp.StatusCode}, err
	}

	text, title, err := Paragraphs(strings.NewReader(string(raw)))
	if err != nil {
		return models.Result{URL: url, Status: resp.StatusCode}, err
	}
	sum := sha1.Sum(raw)
	return models.Result{
		URL:      url,
		Title:    title,
		Text:     utils.Truncate(text, f.MaxChars),
		HTMLHash: hex.EncodeToString(sum[:]),
		Status:   resp.StatusCode,
		RenderMS: int(time.Since(t0) / time.Millisecond),
	}, nil
}

// Paragraphs returns the newline-joined text of every <p> and the page title.
func Paragraphs(r io.Reader) (string, string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", "", err
	}
	var parts []string
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		parts = append(parts, s.Text())
	})
	return strings.TrimSpace(strings.Join(parts, "\n")), strings.TrimSpace(doc.Find("title").First().Text()), nil
}
