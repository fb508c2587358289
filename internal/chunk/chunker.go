// Package chunk splits document text into overlapping windows for
// embedding.
package chunk

import (
	"strings"
	"unicode"
)

// Config defines chunking parameters.
type Config struct {
	// Size: target chunk length in characters
	Size int
	// Overlap: characters shared between adjacent chunks
	Overlap int
}

// DefaultConfig returns the parameters used for knowledge items.
func DefaultConfig() Config {
	return Config{
		Size:    1000,
		Overlap: 200,
	}
}

// Chunk is one window of text with precomputed stats.
type Chunk struct {
	Index         int
	Text          string
	CharCount     int
	SentenceCount int
}

// Split cuts text into overlapping chunks. Windows are Size characters;
// interior boundaries snap back to the nearest sentence end within a
// small lookback, and each next window starts Overlap characters before
// the previous end. Text at or under Size is returned as a single chunk.
func Split(text string, cfg Config) []Chunk {
	runes := []rune(text)

	if len(runes) <= cfg.Size {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil
		}
		return []Chunk{makeChunk(0, trimmed)}
	}

	lookback := cfg.Size / 4
	if lookback > 100 {
		lookback = 100
	}

	var chunks []Chunk
	start := 0
	for start < len(runes) {
		end := start + cfg.Size
		if end < len(runes) {
			end = snapToSentence(runes, start, end, lookback)
		} else {
			end = len(runes)
		}

		piece := strings.TrimSpace(string(runes[start:end]))
		if piece != "" {
			chunks = append(chunks, makeChunk(len(chunks), piece))
		}

		next := end - cfg.Overlap
		// An overlap spanning the whole window would stall the walk.
		if next <= start {
			next = end
		}
		start = next
		if start >= len(runes) || end == len(runes) {
			break
		}
	}

	return chunks
}

// snapToSentence walks back from end looking for sentence punctuation,
// so windows prefer to break after a full sentence. Returns the index
// just past the punctuation, or end unchanged if none found.
func snapToSentence(runes []rune, start, end, lookback int) int {
	limit := end - lookback
	if limit < start {
		limit = start
	}
	for i := end - 1; i >= limit; i-- {
		if isSentenceEnd(runes[i]) {
			return i + 1
		}
	}
	return end
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func makeChunk(index int, text string) Chunk {
	return Chunk{
		Index:         index,
		Text:          text,
		CharCount:     len([]rune(text)),
		SentenceCount: countSentences(text),
	}
}

// countSentences counts runs of sentence punctuation; a chunk with no
// terminator still counts as one sentence.
func countSentences(text string) int {
	count := 0
	inRun := false
	sawText := false
	for _, r := range text {
		switch {
		case isSentenceEnd(r):
			if !inRun {
				count++
				inRun = true
			}
		case unicode.IsSpace(r):
			inRun = false
		default:
			inRun = false
			sawText = true
		}
	}
	if count == 0 && sawText {
		return 1
	}
	return count
}
