package qna

import (
	"testing"

	"github.com/suarabot/suarabot/internal/models"
)

func entries(pairs ...string) []models.QnAEntry {
	var out []models.QnAEntry
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, models.QnAEntry{Question: pairs[i], Answer: pairs[i+1]})
	}
	return out
}

func TestMatchExact(t *testing.T) {
	qnas := entries(
		"What are your opening hours?", "We open 9am to 6pm.",
		"Do you deliver?", "Yes, nationwide.",
	)

	tests := []struct {
		name    string
		message string
		want    string
	}{
		{"verbatim", "What are your opening hours?", "We open 9am to 6pm."},
		{"case insensitive", "WHAT ARE YOUR OPENING HOURS?", "We open 9am to 6pm."},
		{"surrounding whitespace", "  do you deliver?  ", "Yes, nationwide."},
		{"no match", "Do you ship abroad?", ""},
		{"empty message", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Match(tt.message, qnas); got != tt.want {
				t.Errorf("Match(%q) = %q, want %q", tt.message, got, tt.want)
			}
		})
	}
}

func TestMatchExactWinsOverFuzzy(t *testing.T) {
	qnas := entries(
		"opening hours weekend", "Fuzzy answer.",
		"Opening hours weekend schedule", "Exact answer.",
	)
	if got := Match("opening hours weekend schedule", qnas); got != "Exact answer." {
		t.Errorf("Match = %q, want the exact-pass answer", got)
	}
}

func TestMatchFuzzy(t *testing.T) {
	qnas := entries("What are the opening hours of the store", "We open 9am to 6pm.")

	// Stop words and short words drop out, leaving a high keyword overlap.
	if got := Match("opening hours store please", qnas); got != "We open 9am to 6pm." {
		t.Errorf("fuzzy match = %q, want the stored answer", got)
	}
	// Low overlap with the stored question.
	if got := Match("opening ceremony tickets tonight", qnas); got != "" {
		t.Errorf("expected no match, got %q", got)
	}
}

func TestMatchRejectsSingleSharedKeyword(t *testing.T) {
	qnas := entries("about your delivery", "We deliver nationwide.")

	// Perfect ratio on exactly one shared keyword must not qualify.
	if got := Match("delivery", qnas); got != "" {
		t.Errorf("single shared keyword matched: %q", got)
	}
}

func TestMatchPicksHighestSimilarity(t *testing.T) {
	qnas := entries(
		"the enterprise pricing plans discount", "Close answer.",
		"the enterprise pricing plans", "Best answer.",
	)
	if got := Match("enterprise pricing plans", qnas); got != "Best answer." {
		t.Errorf("Match = %q, want the highest-similarity answer", got)
	}
}

func TestMatchEmptyList(t *testing.T) {
	if got := Match("anything", nil); got != "" {
		t.Errorf("Match with no entries = %q, want empty", got)
	}
}

func TestKeywords(t *testing.T) {
	got := keywords("what are the opening hours at our shop")
	want := []string{"opening", "hours", "shop"}
	if len(got) != len(want) {
		t.Fatalf("keywords = %v, want %v", got, want)
	}
	for _, w := range want {
		if _, ok := got[w]; !ok {
			t.Errorf("keywords missing %q", w)
		}
	}
}
