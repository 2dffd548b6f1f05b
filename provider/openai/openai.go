package openai_provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Prasann123/Tradition-RAG/config"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// client implements text generation and embeddings on the OpenAI API
type client struct {
	api             openai.Client
	completionModel string
	embeddingModel  string
	temperature     float64
	maxTokens       int
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(cfg config.LLMProvider) *client {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.MaxRetries > 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	embedding := cfg.EmbeddingModel
	if embedding == "" {
		embedding = "text-embedding-3-small"
	}
	return &client{
		api:             openai.NewClient(opts...),
		completionModel: model,
		embeddingModel:  embedding,
		temperature:     cfg.Temperature,
		maxTokens:       cfg.MaxTokens,
	}
}

// Generate sends a single user prompt and returns the first choice.
func (c *client) Generate(ctx context.Context, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.completionModel),
		Messages:    []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		Temperature: openai.Float(c.temperature),
	}
	if c.maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(c.maxTokens))
	}
	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Embed generates an embedding per text, preserving input order.
func (c *client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := c.api.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(c.embeddingModel),
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	vecs := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if int(d.Index) >= len(vecs) {
			continue
		}
		v := make([]float32, len(d.Embedding))
		for i, f := range d.Embedding {
			v[i] = float32(f)
		}
		vecs[d.Index] = v
	}
	for i, v := range vecs {
		if v == nil {
			return nil, fmt.Errorf("openai embeddings: missing vector for input %d", i)
		}
	}
	return vecs, nil
}
