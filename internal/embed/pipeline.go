package embed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/suarabot/suarabot/internal/chunk"
	"github.com/suarabot/suarabot/internal/extract"
	"github.com/suarabot/suarabot/internal/llm"
	"github.com/suarabot/suarabot/internal/metrics"
	"github.com/suarabot/suarabot/internal/models"
)

// PipelineStore is the slice of the database layer the pipeline needs.
type PipelineStore interface {
	UpdateEmbeddingState(ctx context.Context, item *models.KnowledgeItem) error
	ListKnowledgeItemsByStatus(ctx context.Context, assistantID string, statuses []models.ItemStatus) ([]models.KnowledgeItem, error)
	ListCompletedKnowledgeItems(ctx context.Context, assistantID string) ([]models.KnowledgeItem, error)
	DeleteKnowledgeItem(ctx context.Context, id string) (bool, error)
}

// DeleteItem removes a knowledge item everywhere: the database row, the
// embedding artifact, and the uploaded source document if one exists.
// File removal is idempotent, so a retry after partial failure is safe.
// Returns whether the database row existed.
func DeleteItem(ctx context.Context, db PipelineStore, store *Store, item *models.KnowledgeItem) (bool, error) {
	itemID, err := models.RecordIDString(item.ID)
	if err != nil {
		return false, fmt.Errorf("item id: %w", err)
	}

	deleted, err := db.DeleteKnowledgeItem(ctx, itemID)
	if err != nil {
		return false, fmt.Errorf("delete knowledge item: %w", err)
	}

	if item.EmbeddingFilePath != "" {
		if err := store.Delete(item.EmbeddingFilePath); err != nil {
			return deleted, err
		}
	}
	if item.SourceFile != "" {
		if err := os.Remove(item.SourceFile); err != nil && !os.IsNotExist(err) {
			return deleted, fmt.Errorf("delete source file: %w", err)
		}
	}

	slog.Info("knowledge item deleted", "item", itemID, "title", item.Title)
	return deleted, nil
}

// Pipeline runs extract, chunk and embed for knowledge items and writes
// the resulting artifacts.
type Pipeline struct {
	store      *Store
	db         PipelineStore
	embedder   Embedder
	embedModel string
	cfg        chunk.Config
	metrics    *metrics.Collector
}

// NewPipeline creates the embedding pipeline. collector may be nil.
func NewPipeline(store *Store, db PipelineStore, embedder Embedder, embedModel string, collector *metrics.Collector) *Pipeline {
	return &Pipeline{
		store:      store,
		db:         db,
		embedder:   embedder,
		embedModel: embedModel,
		cfg:        chunk.DefaultConfig(),
		metrics:    collector,
	}
}

// Process runs the full pipeline for one item and persists every status
// transition. Chunks whose embedding call fails are dropped; an item
// that ends with zero embedded chunks is marked errored.
func (p *Pipeline) Process(ctx context.Context, item *models.KnowledgeItem, ownerID string) error {
	start := time.Now()

	item.BeginProcessing()
	if err := p.db.UpdateEmbeddingState(ctx, item); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	text, err := p.itemText(item)
	if err != nil {
		p.fail(ctx, item)
		return fmt.Errorf("extract text: %w", err)
	}

	chunks := chunk.Split(text, p.cfg)
	if len(chunks) == 0 {
		p.fail(ctx, item)
		return fmt.Errorf("item %s has no embeddable text", item.Title)
	}

	item.BeginEmbedding()
	if err := p.db.UpdateEmbeddingState(ctx, item); err != nil {
		return fmt.Errorf("mark embedding: %w", err)
	}

	fileChunks := make([]FileChunk, 0, len(chunks))
	for _, c := range chunks {
		vec, err := p.embedder.Embed(ctx, c.Text)
		if err != nil {
			if errors.Is(err, llm.ErrFatalAPI) {
				p.fail(ctx, item)
				return fmt.Errorf("embed chunk %d: %w", c.Index, err)
			}
			slog.Warn("dropping chunk after embedding failure",
				"item", item.ID, "chunk", c.Index, "error", err)
			continue
		}
		fileChunks = append(fileChunks, FileChunk{
			ChunkIndex:     c.Index,
			Text:           c.Text,
			CharCount:      c.CharCount,
			Embedding:      vec,
			SentencesCount: c.SentenceCount,
		})
	}

	if len(fileChunks) == 0 {
		p.fail(ctx, item)
		return fmt.Errorf("item %s: all chunks failed to embed", item.Title)
	}

	itemID, err := models.RecordIDString(item.ID)
	if err != nil {
		p.fail(ctx, item)
		return fmt.Errorf("item id: %w", err)
	}

	artifact := &EmbeddingFile{
		Metadata: FileMetadata{
			FileName:        p.fileName(item),
			FileType:        FileTypeFor(item.SourceFile),
			TotalChunks:     len(fileChunks),
			EmbeddingModel:  p.embedModel,
			ProcessedAt:     time.Now().UTC().Format(time.RFC3339),
			UserID:          ownerID,
			KnowledgeBaseID: itemID,
			ContentHash:     ContentHash(text),
		},
		Chunks: fileChunks,
	}

	path, err := p.store.Save(ownerID, itemID, artifact)
	if err != nil {
		p.fail(ctx, item)
		return fmt.Errorf("save artifact: %w", err)
	}

	item.CompleteEmbedding(path, len(fileChunks))
	item.EmbeddingModel = p.embedModel
	if err := p.db.UpdateEmbeddingState(ctx, item); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}

	if p.metrics != nil {
		p.metrics.RecordTiming(metrics.OpEmbedding, time.Since(start))
	}
	slog.Info("knowledge item embedded",
		"item", itemID, "title", item.Title,
		"chunks", len(fileChunks), "dropped", len(chunks)-len(fileChunks))
	return nil
}

// ProcessKnowledgeBase sweeps an assistant's unfinished items through
// the pipeline. Non-fatal failures are logged and the sweep continues;
// fatal API errors abort it.
func (p *Pipeline) ProcessKnowledgeBase(ctx context.Context, assistantID, ownerID string) error {
	items, err := p.db.ListKnowledgeItemsByStatus(ctx, assistantID, []models.ItemStatus{
		models.StatusUploading, models.StatusProcessing, models.StatusError,
	})
	if err != nil {
		return fmt.Errorf("list pending items: %w", err)
	}

	for i := range items {
		if err := p.Process(ctx, &items[i], ownerID); err != nil {
			if errors.Is(err, llm.ErrFatalAPI) {
				return err
			}
			slog.Warn("item failed during knowledge base sweep",
				"item", items[i].ID, "error", err)
		}
	}
	return nil
}

// RefreshOutdated re-embeds completed items whose stored content hash no
// longer matches their current text. Unreadable artifacts count as
// outdated.
func (p *Pipeline) RefreshOutdated(ctx context.Context, assistantID, ownerID string) (int, error) {
	items, err := p.db.ListCompletedKnowledgeItems(ctx, assistantID)
	if err != nil {
		return 0, fmt.Errorf("list completed items: %w", err)
	}

	refreshed := 0
	for i := range items {
		item := &items[i]
		if !p.outdated(item) {
			continue
		}
		if err := p.Process(ctx, item, ownerID); err != nil {
			if errors.Is(err, llm.ErrFatalAPI) {
				return refreshed, err
			}
			slog.Warn("item failed during refresh", "item", item.ID, "error", err)
			continue
		}
		refreshed++
	}
	return refreshed, nil
}

func (p *Pipeline) outdated(item *models.KnowledgeItem) bool {
	if item.EmbeddingFilePath == "" {
		return true
	}
	artifact, err := p.store.Load(item.EmbeddingFilePath)
	if err != nil {
		return true
	}
	text, err := p.itemText(item)
	if err != nil {
		return false
	}
	return artifact.Metadata.ContentHash != ContentHash(text)
}

func (p *Pipeline) itemText(item *models.KnowledgeItem) (string, error) {
	if item.SourceFile != "" {
		return extract.Text(item.SourceFile)
	}
	return item.Content, nil
}

func (p *Pipeline) fileName(item *models.KnowledgeItem) string {
	if item.SourceFile != "" {
		return filepath.Base(item.SourceFile)
	}
	return item.Title
}

func (p *Pipeline) fail(ctx context.Context, item *models.KnowledgeItem) {
	item.FailEmbedding()
	if err := p.db.UpdateEmbeddingState(ctx, item); err != nil {
		slog.Warn("failed to mark item errored", "item", item.ID, "error", err)
	}
}
