package llms

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// ErrEmptyResponse is returned when a model answers with no choices.
var ErrEmptyResponse = errors.New("no response")

// ChatConfig selects and authenticates a chat model.
type ChatConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// NewChatModel builds a langchaingo OpenAI chat model.
func NewChatModel(cfg ChatConfig, opts ...openai.Option) (llms.Model, error) {
	options := []openai.Option{openai.WithToken(cfg.APIKey)}
	if cfg.Model != "" {
		options = append(options, openai.WithModel(cfg.Model))
	}
	if cfg.BaseURL != "" {
		options = append(options, openai.WithBaseURL(cfg.BaseURL))
	}
	options = append(options, opts...)

	m, err := openai.New(options...)
	if err != nil {
		return nil, fmt.Errorf("create chat model: %w", err)
	}
	return m, nil
}

// Complete sends a system and a human message and returns the first choice
// together with the reported token usage. An empty system prompt is omitted.
func Complete(ctx context.Context, model llms.Model, system, prompt string, opts ...llms.CallOption) (string, TokenUsage, error) {
	var messages []llms.MessageContent
	if system != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, system))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, prompt))

	resp, err := model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", TokenUsage{}, err
	}
	if len(resp.Choices) == 0 {
		return "", TokenUsage{}, ErrEmptyResponse
	}
	return strings.TrimSpace(resp.Choices[0].Content), UsageFromResponse(resp), nil
}
