package embed

import "github.com/suarabot/suarabot/internal/models"

// Origin tags which storage format a set of vectors came from.
type Origin int

const (
	// OriginFile is the current per-item JSON artifact.
	OriginFile Origin = iota
	// OriginLegacy is the deprecated inline database format.
	OriginLegacy
)

// ChunkVector is one retrievable unit regardless of storage format.
type ChunkVector struct {
	Index  int
	Text   string
	Vector []float32
}

// StoredEmbeddings is the in-memory form of an item's vectors. The
// format is branched on exactly once at load; everything downstream
// works on the normalized chunks.
type StoredEmbeddings struct {
	Origin Origin
	Model  string
	Chunks []ChunkVector
}

// FromFile normalizes a file artifact.
func FromFile(f *EmbeddingFile) StoredEmbeddings {
	chunks := make([]ChunkVector, 0, len(f.Chunks))
	for _, c := range f.Chunks {
		chunks = append(chunks, ChunkVector{
			Index:  c.ChunkIndex,
			Text:   c.Text,
			Vector: c.Embedding,
		})
	}
	return StoredEmbeddings{
		Origin: OriginFile,
		Model:  f.Metadata.EmbeddingModel,
		Chunks: chunks,
	}
}

// FromLegacy normalizes the deprecated inline format.
func FromLegacy(l *models.LegacyEmbeddings) StoredEmbeddings {
	chunks := make([]ChunkVector, 0, len(l.Data))
	for _, c := range l.Data {
		chunks = append(chunks, ChunkVector{
			Index:  c.ChunkID,
			Text:   c.Text,
			Vector: c.Vector,
		})
	}
	return StoredEmbeddings{
		Origin: OriginLegacy,
		Chunks: chunks,
	}
}
