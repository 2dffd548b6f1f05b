package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/Prasann123/Tradition-RAG/config"
	anthropic_provider "github.com/Prasann123/Tradition-RAG/provider/anthropic"
	openai_provider "github.com/Prasann123/Tradition-RAG/provider/openai"
)

// Client represents different LLM providers
type Client string

const (
	OpenAI    Client = "openai"
	Anthropic Client = "anthropic"
)

// Provider is the interface that all LLM implementations must satisfy
type Provider interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Embedder turns texts into dense vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

var ErrNotConfigured = errors.New("llm provider not configured")

// NewProvider creates a new LLM client based on the provided configuration
func NewProvider(cfg config.LLMProvider) (Provider, error) {
	switch Client(cfg.Type) {
	case OpenAI:
		return openai_provider.NewOpenAIClient(cfg), nil
	case Anthropic:
		return anthropic_provider.NewAnthropicClient(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", cfg.Type)
	}
}

// NewEmbedder builds an embedding client; only OpenAI-compatible providers embed.
func NewEmbedder(cfg config.LLMProvider) (Embedder, error) {
	if Client(cfg.Type) != OpenAI {
		return nil, fmt.Errorf("provider %q does not support embeddings", cfg.Type)
	}
	return openai_provider.NewOpenAIClient(cfg), nil
}

// ForTask resolves the provider routed to task ("decision", "generation", "summary").
func ForTask(cfg config.LLMConfig, task string) (Provider, error) {
	name := cfg.Routing.Resolve(task)
	p, ok := cfg.Providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: task %s", ErrNotConfigured, task)
	}
	return NewProvider(p)
}

// EmbedderFor resolves the embedding provider.
func EmbedderFor(cfg config.LLMConfig) (Embedder, error) {
	name := cfg.Routing.Resolve("embedding")
	p, ok := cfg.Providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: embedding", ErrNotConfigured)
	}
	return NewEmbedder(p)
}
