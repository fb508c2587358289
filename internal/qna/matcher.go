// Package qna matches incoming messages against an assistant's curated
// question/answer list before any retrieval or completion call is made.
package qna

import (
	"strings"

	"github.com/suarabot/suarabot/internal/models"
)

// Fuzzy-pass thresholds. Both must hold: the ratio alone would let a
// short message qualify on a single shared word.
const (
	similarityThreshold = 0.7
	minSharedKeywords   = 2
	minWordLength       = 4
)

// stopWords are excluded from keyword comparison.
var stopWords = map[string]struct{}{
	"what": {}, "how": {}, "when": {}, "where": {}, "why": {}, "who": {},
	"the": {}, "and": {}, "or": {}, "but": {}, "you": {}, "your": {},
	"are": {}, "is": {}, "do": {}, "does": {}, "can": {}, "will": {},
	"would": {}, "should": {}, "about": {}, "with": {}, "for": {},
	"from": {}, "to": {}, "in": {}, "on": {}, "at": {}, "by": {},
}

// Match returns the stored answer for a message, or "" when nothing
// qualifies. Exact matches (case and surrounding-space insensitive) win
// over fuzzy ones; among fuzzy candidates the highest Jaccard
// similarity wins.
func Match(message string, entries []models.QnAEntry) string {
	messageLower := strings.ToLower(strings.TrimSpace(message))
	if messageLower == "" {
		return ""
	}

	for _, e := range entries {
		if messageLower == strings.ToLower(strings.TrimSpace(e.Question)) {
			return e.Answer
		}
	}

	messageWords := keywords(messageLower)
	if len(messageWords) == 0 {
		return ""
	}

	var best string
	bestScore := 0.0
	for _, e := range entries {
		questionWords := keywords(strings.ToLower(e.Question))
		if len(questionWords) == 0 {
			continue
		}
		similarity, shared := jaccard(messageWords, questionWords)
		if similarity >= similarityThreshold && shared >= minSharedKeywords && similarity > bestScore {
			bestScore = similarity
			best = e.Answer
		}
	}
	return best
}

// keywords extracts the comparable word set from lowercase text.
func keywords(text string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, w := range strings.Fields(text) {
		if len(w) < minWordLength {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		words[w] = struct{}{}
	}
	return words
}

// jaccard returns intersection-over-union and the intersection size.
func jaccard(a, b map[string]struct{}) (float64, int) {
	shared := 0
	for w := range a {
		if _, ok := b[w]; ok {
			shared++
		}
	}
	union := len(a) + len(b) - shared
	if union == 0 {
		return 0, 0
	}
	return float64(shared) / float64(union), shared
}
