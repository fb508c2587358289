package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// ItemStatus is the embedding lifecycle state of a knowledge item.
// Transitions are monotonic (uploading → processing → embedding →
// completed | error) except on content change, which resets the item
// to processing via BeginProcessing.
type ItemStatus string

const (
	StatusUploading  ItemStatus = "uploading"
	StatusProcessing ItemStatus = "processing"
	StatusEmbedding  ItemStatus = "embedding"
	StatusCompleted  ItemStatus = "completed"
	StatusError      ItemStatus = "error"
)

// KnowledgeItem is one document in an assistant's knowledge base.
// Content is either inline text or an uploaded source file; embeddings
// live in a per-item JSON artifact on disk, not in the database.
type KnowledgeItem struct {
	ID        surrealmodels.RecordID `json:"id"`
	Assistant surrealmodels.RecordID `json:"assistant"`

	Title string `json:"title"`

	// Content holds manually entered text. Empty for file-backed items.
	Content string `json:"content"`

	// SourceFile is the path of the uploaded document (txt/pdf/docx).
	// Empty for manual items.
	SourceFile string `json:"source_file,omitempty"`

	// File-based embedding storage
	EmbeddingFilePath string     `json:"embedding_file_path"`
	ChunksCount       int        `json:"chunks_count"`
	EmbeddingModel    string     `json:"embedding_model"`
	Status            ItemStatus `json:"status"`

	// LegacyEmbeddings carries the deprecated inline representation kept
	// for items embedded before file-based storage existed. Retrieval
	// falls back to it when no embedding file is present.
	LegacyEmbeddings *LegacyEmbeddings `json:"embeddings,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LegacyEmbeddings is the deprecated inline vector format stored on the
// database row itself ({"object": "list", "data": [...]}).
type LegacyEmbeddings struct {
	Object string        `json:"object"`
	Data   []LegacyChunk `json:"data"`
}

// LegacyChunk is one chunk in the legacy inline format.
type LegacyChunk struct {
	ChunkID int       `json:"chunk_id"`
	Text    string    `json:"text"`
	Vector  []float32 `json:"vector"`
}

// BeginProcessing resets the item for (re)generation after a content
// change. Clears all embedding bookkeeping.
func (k *KnowledgeItem) BeginProcessing() {
	k.Status = StatusProcessing
	k.EmbeddingFilePath = ""
	k.ChunksCount = 0
	k.LegacyEmbeddings = nil
}

// BeginEmbedding marks the item as having text extracted and chunked,
// with vector generation in flight.
func (k *KnowledgeItem) BeginEmbedding() {
	k.Status = StatusEmbedding
}

// CompleteEmbedding records a successful generation run.
func (k *KnowledgeItem) CompleteEmbedding(filePath string, chunks int) {
	k.Status = StatusCompleted
	k.EmbeddingFilePath = filePath
	k.ChunksCount = chunks
}

// FailEmbedding marks the item as unusable for retrieval.
func (k *KnowledgeItem) FailEmbedding() {
	k.Status = StatusError
}
