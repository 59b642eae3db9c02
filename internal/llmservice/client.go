// Package llmservice provides the completion client used by the narrator.
package llmservice

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"insurance-rag/internal/config"
	"insurance-rag/internal/models"
)

// Client produces free text for a prompt. Failures surface as
// models.ErrCompletion; the narrator's fallback is the only retry-equivalent
// behaviour.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// LLMClient completes prompts through an OpenAI-compatible chat endpoint.
type LLMClient struct {
	cfg *config.LLMConfig
}

func NewClient(cfg *config.LLMConfig) *LLMClient {
	return &LLMClient{cfg: cfg}
}

func (c *LLMClient) Complete(ctx context.Context, prompt string) (string, error) {
	log.Debug().Str("model", c.cfg.Model).Int("prompt_len", len(prompt)).Msg("Generating content")

	llm, err := openai.New(
		openai.WithBaseURL(c.cfg.BaseURL),
		openai.WithToken(strings.TrimPrefix(c.cfg.Key, "Bearer ")),
		openai.WithModel(c.cfg.Model),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrCompletion, err)
	}

	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextContent{Text: prompt}},
		},
	}

	res, err := llm.GenerateContent(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrCompletion, err)
	}
	if len(res.Choices) == 0 {
		return "", fmt.Errorf("%w: empty response", models.ErrCompletion)
	}
	return res.Choices[0].Content, nil
}
