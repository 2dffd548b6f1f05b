package server

import (
	"fmt"
	"log"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Prasann123/Tradition-RAG/internal/agent/core"
	"github.com/Prasann123/Tradition-RAG/internal/retrieval"
	"github.com/Prasann123/Tradition-RAG/utils"
)

const (
	chatTopK           = 5
	chatPreviewLen     = 200
	defaultSearchType  = "knnBeta"
	noDocumentsMessage = "No relevant documents found."
)

// searchTypes are reported back as search_type_used. Every type is served
// by the configured similarity retriever.
var searchTypes = []string{"knnBeta", "knnVector", "approximate", "mmr", "bm25"}

// ChatHandler answers /send-message directly from retrieved chunks without
// routing or validation.
type ChatHandler struct {
	Retrievers core.RetrieverResolver
	LLM        core.TextGenerator
	Defaults   core.RequestConfig
	Logger     *log.Logger
}

func (h *ChatHandler) Register(g *echo.Group) {
	g.POST("/send-message", h.sendMessage)
}

type sendMessageRequest struct {
	Message    *string `json:"message"`
	SearchType string  `json:"search_type"`
}

type chatSource struct {
	SourceName  string         `json:"source_name"`
	PageContent string         `json:"page_content"`
	Metadata    map[string]any `json:"metadata"`
}

type sendMessageResponse struct {
	Answer              string       `json:"answer"`
	Sources             []chatSource `json:"sources"`
	SimilarityScores    []float64    `json:"similarity_scores"`
	AccuracyPercentages []float64    `json:"accuracy_percentages,omitempty"`
	SearchTimeSeconds   float64      `json:"search_time_seconds"`
	TotalSources        int          `json:"total_sources"`
	SearchTypeUsed      string       `json:"search_type_used,omitempty"`
}

func resolveSearchType(name string) (string, bool) {
	if strings.TrimSpace(name) == "" {
		return defaultSearchType, true
	}
	for _, t := range searchTypes {
		if strings.EqualFold(t, strings.TrimSpace(name)) {
			return t, true
		}
	}
	return "", false
}

func chatPrompt(context, question string) string {
	return "Use the following pieces of context to answer the question at the end.\n" +
		"Be comprehensive, detailed and thorough in your response.\n" +
		"Don't truncate or abbreviate your answer.\n" +
		"Explain concepts fully when they're relevant to the question.\n\n" +
		context + "\n\n" +
		"Question: " + question + "\n" +
		"Comprehensive answer:"
}

// accuracy scales each score against the best one, rounded to 2 decimals.
func accuracy(scores []float64) []float64 {
	best := 0.0
	for _, s := range scores {
		best = math.Max(best, s)
	}
	out := make([]float64, len(scores))
	if best <= 0 {
		return out
	}
	for i, s := range scores {
		out[i] = math.Round(s/best*100*100) / 100
	}
	return out
}

func toChatSource(d retrieval.Document) chatSource {
	name := "Unknown"
	if s, ok := d.Metadata["source"].(string); ok && s != "" {
		name = s
	}
	preview := d.Content
	if len([]rune(preview)) > chatPreviewLen {
		preview = utils.Truncate(preview, chatPreviewLen) + "..."
	}
	return chatSource{
		SourceName:  name,
		PageContent: preview,
		Metadata: map[string]any{
			"date_processed": d.Metadata["date_processed"],
			"chunk_index":    d.Metadata["chunk_index"],
			"score":          d.Score,
			"page":           d.Metadata["page"],
			"file_name":      d.Metadata["file_name"],
		},
	}
}

func (h *ChatHandler) sendMessage(c echo.Context) error {
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil || req.Message == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "No message provided")
	}
	searchType, ok := resolveSearchType(req.SearchType)
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("Invalid search_type '%s'. Valid options: [%s]", req.SearchType, strings.Join(searchTypes, ", ")))
	}

	ctx := c.Request().Context()
	start := time.Now()
	retriever, err := h.Retrievers.Retriever(h.Defaults.VectorDB, h.Defaults.CollectionName, retrieval.RetrieverVectorstore)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	docs, err := retriever.Retrieve(ctx, *req.Message, chatTopK)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError,
			fmt.Sprintf("I encountered an error processing your request: %v", err)).SetInternal(err)
	}
	if len(docs) == 0 {
		return c.JSON(http.StatusOK, sendMessageResponse{
			Answer:           noDocumentsMessage,
			Sources:          []chatSource{},
			SimilarityScores: []float64{},
		})
	}

	parts := make([]string, len(docs))
	scores := make([]float64, len(docs))
	sources := make([]chatSource, len(docs))
	for i, d := range docs {
		parts[i] = d.Content
		scores[i] = d.Score
		sources[i] = toChatSource(d)
	}
	answer, err := h.LLM.Generate(ctx, chatPrompt(strings.Join(parts, "\n\n"), *req.Message))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError,
			fmt.Sprintf("I encountered an error processing your request: %v", err)).SetInternal(err)
	}
	if h.Logger != nil {
		h.Logger.Printf("send-message answered from %d chunks (%s)", len(docs), searchType)
	}
	return c.JSON(http.StatusOK, sendMessageResponse{
		Answer:              answer,
		Sources:             sources,
		SimilarityScores:    scores,
		AccuracyPercentages: accuracy(scores),
		SearchTimeSeconds:   time.Since(start).Seconds(),
		TotalSources:        len(sources),
		SearchTypeUsed:      searchType,
	})
}
