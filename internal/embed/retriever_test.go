package embed

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/suarabot/suarabot/internal/models"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

type fakeEmbedder struct {
	vector []float32
	err    error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

type fakeItemStore struct {
	items   []models.KnowledgeItem
	updated []models.KnowledgeItem
}

func (f *fakeItemStore) ListCompletedKnowledgeItems(ctx context.Context, assistantID string) ([]models.KnowledgeItem, error) {
	return f.items, nil
}

func (f *fakeItemStore) UpdateEmbeddingState(ctx context.Context, item *models.KnowledgeItem) error {
	f.updated = append(f.updated, *item)
	return nil
}

func itemID(id string) surrealmodels.RecordID {
	return surrealmodels.NewRecordID("knowledge_item", id)
}

func savedItem(t *testing.T, store *Store, id, title string, chunks []FileChunk) models.KnowledgeItem {
	t.Helper()
	path, err := store.Save("owner", id, &EmbeddingFile{
		Metadata: FileMetadata{TotalChunks: len(chunks), EmbeddingModel: "test-model"},
		Chunks:   chunks,
	})
	if err != nil {
		t.Fatal(err)
	}
	return models.KnowledgeItem{
		ID:                itemID(id),
		Title:             title,
		Status:            models.StatusCompleted,
		EmbeddingFilePath: path,
		ChunksCount:       len(chunks),
	}
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"45 degrees", []float32{1, 0}, []float32{1, 1}, 1 / math.Sqrt(2)},
		{"zero magnitude", []float32{1, 0}, []float32{0, 0}, 0},
		{"both zero", []float32{0, 0}, []float32{0, 0}, 0},
		{"length mismatch", []float32{1, 0}, []float32{1}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Cosine(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Cosine() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestSearchRanksAndLabels(t *testing.T) {
	store := NewStore(t.TempDir())
	item := savedItem(t, store, "k1", "Return policy", []FileChunk{
		{ChunkIndex: 0, Text: "exact match", Embedding: []float32{1, 0}},
		{ChunkIndex: 1, Text: "half match", Embedding: []float32{1, 1}},
		{ChunkIndex: 2, Text: "irrelevant", Embedding: []float32{0, 1}},
	})

	items := &fakeItemStore{items: []models.KnowledgeItem{item}}
	r := NewRetriever(store, items, &fakeEmbedder{vector: []float32{1, 0}}, nil)

	matches, err := r.Search(context.Background(), "a1", "what is the return policy", 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	// Orthogonal chunk scores 0, below the 0.4 threshold.
	if len(matches) != 2 {
		t.Fatalf("matches = %d, want 2", len(matches))
	}
	if matches[0].Text != "exact match" {
		t.Errorf("best match = %q, want highest score first", matches[0].Text)
	}
	if matches[0].Source != "Return policy (chunk 1)" {
		t.Errorf("source label = %q", matches[0].Source)
	}
	if matches[1].Source != "Return policy (chunk 2)" {
		t.Errorf("source label = %q", matches[1].Source)
	}
}

func TestSearchTopKLimit(t *testing.T) {
	store := NewStore(t.TempDir())
	chunks := make([]FileChunk, 10)
	for i := range chunks {
		chunks[i] = FileChunk{ChunkIndex: i, Text: "chunk", Embedding: []float32{1, 0}}
	}
	item := savedItem(t, store, "k1", "Doc", chunks)

	items := &fakeItemStore{items: []models.KnowledgeItem{item}}
	r := NewRetriever(store, items, &fakeEmbedder{vector: []float32{1, 0}}, nil)

	matches, err := r.Search(context.Background(), "a1", "q", 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(matches) != DefaultTopK {
		t.Errorf("matches = %d, want default top %d", len(matches), DefaultTopK)
	}
}

func TestSearchLegacyFallback(t *testing.T) {
	store := NewStore(t.TempDir())

	// Completed item with no artifact but legacy inline vectors.
	item := models.KnowledgeItem{
		ID:     itemID("legacy1"),
		Title:  "Old item",
		Status: models.StatusCompleted,
		LegacyEmbeddings: &models.LegacyEmbeddings{
			Object: "list",
			Data: []models.LegacyChunk{
				{ChunkID: 0, Text: "legacy chunk", Vector: []float32{1, 0}},
			},
		},
	}

	items := &fakeItemStore{items: []models.KnowledgeItem{item}}
	r := NewRetriever(store, items, &fakeEmbedder{vector: []float32{1, 0}}, nil)

	matches, err := r.Search(context.Background(), "a1", "q", 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(matches) != 1 || matches[0].Text != "legacy chunk" {
		t.Fatalf("expected legacy chunk match, got %+v", matches)
	}
	if matches[0].Source != "Old item (chunk 1)" {
		t.Errorf("source label = %q", matches[0].Source)
	}
	if len(items.updated) != 0 {
		t.Error("items with usable legacy vectors should not be flagged")
	}
}

func TestSearchSelfHealsMissingArtifacts(t *testing.T) {
	store := NewStore(t.TempDir())

	// Completed item whose artifact is gone and has no legacy data.
	broken := models.KnowledgeItem{
		ID:                itemID("gone"),
		Title:             "Broken item",
		Status:            models.StatusCompleted,
		EmbeddingFilePath: store.PathFor("owner", "gone"),
	}

	items := &fakeItemStore{items: []models.KnowledgeItem{broken}}
	r := NewRetriever(store, items, &fakeEmbedder{vector: []float32{1, 0}}, nil)

	matches, err := r.Search(context.Background(), "a1", "q", 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("expected no matches, got %d", len(matches))
	}
	if len(items.updated) != 1 {
		t.Fatalf("broken item should be flagged, updates = %d", len(items.updated))
	}
	if items.updated[0].Status != models.StatusError {
		t.Errorf("flagged status = %q, want error", items.updated[0].Status)
	}
}

func TestSearchKeepsBrokenItemsWhenOthersMatch(t *testing.T) {
	store := NewStore(t.TempDir())
	good := savedItem(t, store, "good", "Good item", []FileChunk{
		{ChunkIndex: 0, Text: "works", Embedding: []float32{1, 0}},
	})
	broken := models.KnowledgeItem{
		ID:                itemID("gone"),
		Title:             "Broken item",
		Status:            models.StatusCompleted,
		EmbeddingFilePath: store.PathFor("owner", "gone"),
	}

	items := &fakeItemStore{items: []models.KnowledgeItem{good, broken}}
	r := NewRetriever(store, items, &fakeEmbedder{vector: []float32{1, 0}}, nil)

	matches, err := r.Search(context.Background(), "a1", "q", 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("matches = %d, want 1", len(matches))
	}
	// Revalidation only fires on a completely empty result.
	if len(items.updated) != 0 {
		t.Error("broken items should not be flagged when the search succeeded")
	}
}

func TestSearchEmbedError(t *testing.T) {
	store := NewStore(t.TempDir())
	items := &fakeItemStore{}
	r := NewRetriever(store, items, &fakeEmbedder{err: errors.New("api down")}, nil)

	if _, err := r.Search(context.Background(), "a1", "q", 5); err == nil {
		t.Error("expected error when query embedding fails")
	}
}

func TestFormatMatches(t *testing.T) {
	if got := FormatMatches(nil); got != "" {
		t.Errorf("empty matches format = %q", got)
	}

	got := FormatMatches([]Match{
		{Source: "Doc (chunk 1)", Text: "first", Score: 0.91},
		{Source: "Doc (chunk 2)", Text: "second", Score: 0.74},
	})
	want := "[MOST RELEVANT - Doc (chunk 1)]\nfirst\n\n---\n\n[Relevance: 74.0% - Doc (chunk 2)]\nsecond"
	if got != want {
		t.Errorf("FormatMatches = %q, want %q", got, want)
	}
}
