// Package embedding wraps langchaingo embedders behind the narrow client
// contract the indexer and retriever consume.
package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"insurance-rag/internal/config"
	"insurance-rag/internal/models"
)

// Client turns text into a fixed-dimension vector. Implementations must be
// safe for concurrent use; failures surface as models.ErrEmbedding and are
// not retried here.
type Client interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// LangchainEmbedder adapts a langchaingo embedder to the Client contract and
// enforces the configured vector dimension.
type LangchainEmbedder struct {
	embedder  *embeddings.EmbedderImpl
	dimension int
}

// NewOpenAIEmbedder builds an embedder against an OpenAI-compatible endpoint.
func NewOpenAIEmbedder(cfg *config.LLMConfig, dimension int) (*LangchainEmbedder, error) {
	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
		openai.WithModel(cfg.Model),
		openai.WithEmbeddingModel(cfg.Model),
	)
	if err != nil {
		return nil, err
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, err
	}
	return &LangchainEmbedder{embedder: embedder, dimension: dimension}, nil
}

// NewOllamaEmbedder builds an embedder against a local Ollama server.
func NewOllamaEmbedder(cfg *config.LLMConfig, dimension int) (*LangchainEmbedder, error) {
	llm, err := ollama.New(
		ollama.WithServerURL(cfg.BaseURL),
		ollama.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, err
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, err
	}
	return &LangchainEmbedder{embedder: embedder, dimension: dimension}, nil
}

func (e *LangchainEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrEmbedding, err)
	}
	if e.dimension > 0 && len(vec) != e.dimension {
		return nil, fmt.Errorf("%w: model returned %d, expected %d",
			models.ErrDimensionMismatch, len(vec), e.dimension)
	}
	return vec, nil
}

func (e *LangchainEmbedder) Dimension() int { return e.dimension }
