package openai

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shopsearch/internal/domain"
)

const systemPrompt = "You are a concise, friendly shopping assistant. " +
	"Only mention products you were given. Never invent prices."

// Summarizer writes assistant replies with the chat completions API.
type Summarizer struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	provider    string
	logger      *zap.Logger
}

// SummarizerConfig holds the completion settings.
type SummarizerConfig struct {
	Config
	MaxTokens   int
	Temperature float32
}

// NewSummarizer creates a chat-completion summarizer.
func NewSummarizer(cfg *SummarizerConfig) *Summarizer {
	return &Summarizer{
		client:      newClient(&cfg.Config),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		provider:    cfg.Provider,
		logger:      cfg.Logger,
	}
}

// Summarize returns the model's reply to prompt. Failures wrap
// domain.ErrSummarization.
func (s *Summarizer) Summarize(ctx context.Context, prompt string) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
	})
	if err != nil {
		return "", parseAPIError("completion", err, domain.ErrSummarization)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no completion choices: %w", domain.ErrSummarization)
	}

	s.logger.Debug("Completion finished",
		zap.String("provider", s.provider),
		zap.String("model", s.model),
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)
	return resp.Choices[0].Message.Content, nil
}
