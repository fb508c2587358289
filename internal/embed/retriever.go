package embed

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/suarabot/suarabot/internal/metrics"
	"github.com/suarabot/suarabot/internal/models"
)

// Retrieval defaults.
const (
	// ScoreThreshold is the minimum cosine similarity for a chunk to
	// count as relevant.
	ScoreThreshold = 0.4
	// DefaultTopK is the number of chunks returned to the chat composer.
	DefaultTopK = 5
	// VoiceTopK is the number of chunks returned to the voice tool.
	VoiceTopK = 3
)

// Match is one relevant chunk with provenance.
type Match struct {
	Title      string
	ChunkIndex int
	Text       string
	Score      float64
	// Source is the display label, "{title} (chunk {n})" with n 1-based.
	Source string
}

// ItemStore is the slice of the database layer the retriever needs.
type ItemStore interface {
	ListCompletedKnowledgeItems(ctx context.Context, assistantID string) ([]models.KnowledgeItem, error)
	UpdateEmbeddingState(ctx context.Context, item *models.KnowledgeItem) error
}

// Embedder turns query text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Retriever scores a query against an assistant's knowledge base.
type Retriever struct {
	store    *Store
	items    ItemStore
	embedder Embedder
	metrics  *metrics.Collector
}

// NewRetriever creates a retriever. metrics may be nil.
func NewRetriever(store *Store, items ItemStore, embedder Embedder, collector *metrics.Collector) *Retriever {
	return &Retriever{
		store:    store,
		items:    items,
		embedder: embedder,
		metrics:  collector,
	}
}

// Search returns the topK most relevant chunks across all completed
// items, highest score first. Items whose artifacts are missing fall
// back to the legacy inline format; if the whole search comes up empty,
// items with no readable vectors at all are flagged as errored so the
// owner sees them.
func (r *Retriever) Search(ctx context.Context, assistantID, query string, topK int) ([]Match, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	start := time.Now()
	defer func() {
		if r.metrics != nil {
			r.metrics.RecordTiming(metrics.OpRetrieval, time.Since(start))
		}
	}()

	queryVec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	items, err := r.items.ListCompletedKnowledgeItems(ctx, assistantID)
	if err != nil {
		return nil, fmt.Errorf("list knowledge items: %w", err)
	}

	var matches []Match
	var broken []models.KnowledgeItem

	for i := range items {
		item := &items[i]
		stored, ok := r.loadVectors(item)
		if !ok {
			broken = append(broken, *item)
			continue
		}

		for _, chunk := range stored.Chunks {
			score := Cosine(queryVec, chunk.Vector)
			if score < ScoreThreshold {
				continue
			}
			matches = append(matches, Match{
				Title:      item.Title,
				ChunkIndex: chunk.Index,
				Text:       chunk.Text,
				Score:      score,
				Source:     fmt.Sprintf("%s (chunk %d)", item.Title, chunk.Index+1),
			})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}

	// Self-heal: an empty result with unreadable items means their
	// completed status is stale. Flag them so regeneration picks them up.
	if len(matches) == 0 && len(broken) > 0 {
		for i := range broken {
			item := &broken[i]
			item.FailEmbedding()
			if err := r.items.UpdateEmbeddingState(ctx, item); err != nil {
				slog.Warn("failed to flag broken knowledge item",
					"item", item.ID, "error", err)
			} else {
				slog.Info("flagged knowledge item with missing embeddings",
					"item", item.ID, "title", item.Title)
			}
		}
	}

	return matches, nil
}

// loadVectors resolves an item's vectors, preferring the file artifact
// and falling back to the legacy inline format.
func (r *Retriever) loadVectors(item *models.KnowledgeItem) (StoredEmbeddings, bool) {
	if item.EmbeddingFilePath != "" {
		file, err := r.store.Load(item.EmbeddingFilePath)
		if err == nil && len(file.Chunks) > 0 {
			return FromFile(file), true
		}
		if err != nil {
			slog.Warn("embedding file unreadable, trying legacy format",
				"item", item.ID, "path", item.EmbeddingFilePath, "error", err)
		}
	}

	if item.LegacyEmbeddings != nil && len(item.LegacyEmbeddings.Data) > 0 {
		return FromLegacy(item.LegacyEmbeddings), true
	}

	return StoredEmbeddings{}, false
}

// Cosine computes cosine similarity. Zero-magnitude vectors and length
// mismatches score 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

// FormatMatches renders matches for the voice tool result, tagging the
// best hit and the relevance of the rest.
func FormatMatches(matches []Match) string {
	parts := make([]string, 0, len(matches))
	for i, m := range matches {
		priority := "MOST RELEVANT"
		if i > 0 {
			priority = fmt.Sprintf("Relevance: %.1f%%", m.Score*100)
		}
		parts = append(parts, fmt.Sprintf("[%s - %s]\n%s", priority, m.Source, m.Text))
	}
	return strings.Join(parts, "\n\n---\n\n")
}
