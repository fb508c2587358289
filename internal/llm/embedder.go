package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/suarabot/suarabot/internal/config"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder wraps langchaingo embeddings for knowledge chunk vectors.
type Embedder struct {
	model     embeddings.Embedder
	modelName string
}

// NewEmbedder creates an OpenAI-backed embedder from configuration.
func NewEmbedder(cfg config.Config) (*Embedder, error) {
	if cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("OpenAI API key required")
	}
	llm, err := openai.New(
		openai.WithToken(cfg.OpenAIKey),
		openai.WithEmbeddingModel(cfg.EmbeddingModel),
	)
	if err != nil {
		return nil, fmt.Errorf("create openai client: %w", err)
	}
	model, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("create openai embedder: %w", err)
	}

	return &Embedder{
		model:     model,
		modelName: cfg.EmbeddingModel,
	}, nil
}

// Embed generates an embedding vector for one text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	textLen := len(text)
	slog.Debug("embedding text", "model", e.modelName, "text_len", textLen)

	start := time.Now()
	vectors, err := e.model.EmbedDocuments(ctx, []string{text})
	duration := time.Since(start)

	if err != nil {
		slog.Warn("embedding failed", "model", e.modelName, "text_len", textLen, "duration_ms", duration.Milliseconds(), "error", err)
		return nil, wrapFatalError(fmt.Errorf("embed: %w", err))
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}

	slog.Debug("embedding complete", "model", e.modelName, "text_len", textLen, "duration_ms", duration.Milliseconds())
	return vectors[0], nil
}

// Model returns the embedding model name.
func (e *Embedder) Model() string {
	return e.modelName
}
