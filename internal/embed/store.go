// Package embed generates, stores and searches knowledge embeddings.
// Vectors live in per-item JSON artifacts on disk; the database row only
// carries the artifact path and lifecycle status.
package embed

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileMetadata describes one embedding artifact.
type FileMetadata struct {
	FileName        string `json:"file_name"`
	FileType        string `json:"file_type"`
	TotalChunks     int    `json:"total_chunks"`
	EmbeddingModel  string `json:"embedding_model"`
	ProcessedAt     string `json:"processed_at"`
	UserID          string `json:"user_id"`
	KnowledgeBaseID string `json:"knowledge_base_id"`
	ContentHash     string `json:"content_hash"`
}

// FileChunk is one embedded chunk in the artifact.
type FileChunk struct {
	ChunkIndex     int       `json:"chunk_index"`
	Text           string    `json:"text"`
	CharCount      int       `json:"char_count"`
	Embedding      []float32 `json:"embedding"`
	SentencesCount int       `json:"sentences_count"`
}

// EmbeddingFile is the on-disk artifact for one knowledge item.
type EmbeddingFile struct {
	Metadata FileMetadata `json:"metadata"`
	Chunks   []FileChunk  `json:"chunks"`
}

// Store reads and writes embedding artifacts under a base directory.
// Layout: {base}/users/{owner_id}/knowledge_bases/{item_id}_embeddings.json
type Store struct {
	baseDir string
}

// NewStore creates a store rooted at baseDir.
func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// PathFor returns the artifact path for an item.
func (s *Store) PathFor(ownerID, itemID string) string {
	return filepath.Join(s.baseDir, "users", ownerID, "knowledge_bases", itemID+"_embeddings.json")
}

// Save writes the artifact for an item, creating parent directories.
// Writes to a temp file and renames so readers never see a partial file.
func (s *Store) Save(ownerID, itemID string, file *EmbeddingFile) (string, error) {
	path := s.PathFor(ownerID, itemID)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("create embedding dir: %w", err)
	}

	data, err := json.Marshal(file)
	if err != nil {
		return "", fmt.Errorf("marshal embedding file: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", fmt.Errorf("write embedding file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("rename embedding file: %w", err)
	}
	return path, nil
}

// Load reads an artifact from disk.
func (s *Store) Load(path string) (*EmbeddingFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read embedding file: %w", err)
	}
	var file EmbeddingFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse embedding file: %w", err)
	}
	return &file, nil
}

// Delete removes an artifact. Missing files are not an error.
func (s *Store) Delete(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete embedding file: %w", err)
	}
	return nil
}

// CleanupOrphans removes artifacts on disk that no database row points
// to. Returns the paths it deleted.
func (s *Store) CleanupOrphans(knownPaths []string) ([]string, error) {
	known := make(map[string]bool, len(knownPaths))
	for _, p := range knownPaths {
		known[p] = true
	}

	pattern := filepath.Join(s.baseDir, "users", "*", "knowledge_bases", "*_embeddings.json")
	candidates, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("scan embedding files: %w", err)
	}

	var removed []string
	for _, path := range candidates {
		if known[path] {
			continue
		}
		if err := os.Remove(path); err != nil {
			return removed, fmt.Errorf("remove orphan %s: %w", path, err)
		}
		removed = append(removed, path)
	}
	return removed, nil
}

// ContentHash returns the md5 hex digest used for freshness checks.
func ContentHash(content string) string {
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}

// FileTypeFor reports the artifact file_type for a source file name.
// Manual items have type "manual".
func FileTypeFor(sourceFile string) string {
	if sourceFile == "" {
		return "manual"
	}
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(sourceFile)), ".")
}
