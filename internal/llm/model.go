// Package llm wraps langchaingo OpenAI clients for chat completion and
// embedding.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/suarabot/suarabot/internal/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Completion defaults for assistant responses.
const (
	completionTemperature = 0.7
	completionMaxTokens   = 500
)

// Usage is the token accounting for one model call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Completion is the result of one chat completion call.
type Completion struct {
	Text  string
	Usage Usage
}

// Turn is one prior message in a conversation.
type Turn struct {
	Role    string // "user" or "assistant"
	Content string
}

// Model wraps a langchaingo chat model for response generation.
type Model struct {
	llm       llms.Model
	modelName string
}

// NewModel creates the chat completion model from configuration.
func NewModel(cfg config.Config) (*Model, error) {
	if cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("OpenAI API key required")
	}
	model, err := openai.New(
		openai.WithToken(cfg.OpenAIKey),
		openai.WithModel(cfg.ChatModel),
	)
	if err != nil {
		return nil, fmt.Errorf("create openai model: %w", err)
	}
	return &Model{
		llm:       model,
		modelName: cfg.ChatModel,
	}, nil
}

// Complete generates an assistant response from a system instruction,
// prior turns, and the new user message.
func (m *Model) Complete(ctx context.Context, system string, history []Turn, userMessage string) (Completion, error) {
	messages := make([]llms.MessageContent, 0, len(history)+2)
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, system))
	for _, turn := range history {
		role := llms.ChatMessageTypeHuman
		if turn.Role == "assistant" {
			role = llms.ChatMessageTypeAI
		}
		messages = append(messages, llms.TextParts(role, turn.Content))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, userMessage))

	start := time.Now()
	response, err := m.llm.GenerateContent(ctx, messages,
		llms.WithTemperature(completionTemperature),
		llms.WithMaxTokens(completionMaxTokens),
	)
	duration := time.Since(start)

	if err != nil {
		slog.Warn("completion failed", "model", m.modelName, "duration_ms", duration.Milliseconds(), "error", err)
		return Completion{}, wrapFatalError(fmt.Errorf("generate: %w", err))
	}
	if len(response.Choices) == 0 {
		return Completion{}, fmt.Errorf("no response choices")
	}

	choice := response.Choices[0]
	usage := usageFromGenerationInfo(choice.GenerationInfo)

	slog.Debug("completion complete",
		"model", m.modelName,
		"duration_ms", duration.Milliseconds(),
		"total_tokens", usage.TotalTokens)

	return Completion{Text: choice.Content, Usage: usage}, nil
}

// Model returns the chat model name.
func (m *Model) Model() string {
	return m.modelName
}

func usageFromGenerationInfo(info map[string]any) Usage {
	return Usage{
		PromptTokens:     intFromInfo(info, "PromptTokens"),
		CompletionTokens: intFromInfo(info, "CompletionTokens"),
		TotalTokens:      intFromInfo(info, "TotalTokens"),
	}
}

func intFromInfo(info map[string]any, key string) int {
	if info == nil {
		return 0
	}
	switch v := info[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
