package chromedp

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/go-shiori/go-readability"

	"github.com/Prasann123/Tradition-RAG/tools/web_fetch/httpfetch"
	"github.com/Prasann123/Tradition-RAG/tools/web_fetch/models"
	"github.com/Prasann123/Tradition-RAG/utils"
)

// Fetch renders a page in headless Chrome and extracts the article text.
type Fetch struct {
	Timeout  time.Duration
	MaxChars int
}

func (f Fetch) Exec(ctx context.Context, url string) (models.Result, error) {
	if strings.TrimSpace(url) == "" {
		return models.Result{}, errors.New("invalid url")
	}

	ctx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()
	t0 := time.Now()

	html, err := fetchHTML(ctx, url)
	if err != nil {
		return models.Result{URL: url, Status: 599, RenderMS: int(time.Since(t0) / time.Millisecond)}, fmt.Errorf("render %s: %w", url, err)
	}
	sum := sha1.Sum([]byte(html))
	res := models.Result{
		URL:      url,
		HTMLHash: hex.EncodeToString(sum[:]),
		Status:   200,
	}

	// Readability first; fall back to the raw paragraphs when it finds no article.
	article, err := readability.FromReader(strings.NewReader(html), mustParseURL(url))
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		res.Title = strings.TrimSpace(article.Title)
		res.Byline = strings.TrimSpace(article.Byline)
		res.Text = strings.TrimSpace(article.TextContent)
	} else {
		text, title, perr := httpfetch.Paragraphs(strings.NewReader(html))
		if perr != nil {
			return res, perr
		}
		res.Title, res.Text = title, text
	}
	res.Text = utils.Truncate(res.Text, f.MaxChars)
	res.RenderMS = int(time.Since(t0) / time.Millisecond)
	return res, nil
}

func fetchHTML(ctx context.Context, url string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.UserAgent("ragagent/1.0"),
	)
	actx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	bctx, cancelBrowser := chromedp.NewContext(actx)
	defer cancelBrowser()

	var html string
	err := chromedp.Run(bctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	return html, err
}

func mustParseURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		return &url.URL{}
	}
	return u
}
