// Package lang detects whether a customer message is English or Malay
// and maps the result to language-specific assistant settings.
package lang

import (
	"strings"
	"unicode"
)

// Language codes used across assistant settings and sessions.
const (
	English = "en"
	Malay   = "ms"
	Auto    = "auto"
)

var englishIndicators = wordSet(
	"what", "how", "when", "where", "why", "who", "which", "whose",
	"the", "and", "or", "but", "with", "for", "from", "to", "at", "by",
	"are", "is", "was", "were", "be", "been", "being", "have", "has", "had",
	"do", "does", "did", "will", "would", "should", "could", "can", "may", "might",
	"your", "you", "i", "we", "they", "he", "she", "it", "my", "our", "their",
	"business", "service", "services", "hours", "contact", "many", "much", "some",
	"about", "company", "property", "properties", "agent", "agents", "luxury",
)

var malayWords = wordSet(
	"apa", "yang", "ini", "itu", "saya", "awak", "kamu", "dengan", "untuk", "dari", "dalam",
	"boleh", "tidak", "tak", "ada", "tiada", "macam", "mana", "bagaimana", "kenapa", "bila",
	"kami", "mereka", "dia", "terima", "kasih", "maaf", "tolong", "pun", "lagi", "juga",
	"sudah", "belum", "akan", "sedang", "buat", "kerja", "rumah", "sekolah", "universiti",
	"malaysia", "melayu", "ringgit", "sen", "berapa", "banyak", "sikit", "ramai",
	"ejen", "hartanah", "mewah", "perkhidmatan", "waktu", "operasi", "perniagaan",
	"masa", "hari", "minggu", "bulan", "tahun", "pagi", "tengah", "petang", "malam",
)

// malayPhrases short-circuit detection when present as substrings.
var malayPhrases = []string{
	"terima kasih", "boleh tak", "macam mana", "tak ada", "ada tak",
	"apa khabar", "berapa ramai", "boleh tolong", "saya nak", "awak ada",
	"berapa harga", "bagaimana nak", "apa waktu", "waktu operasi",
}

// Detect classifies a message as English or Malay. Empty or ambiguous
// input defaults to English.
func Detect(message string) string {
	lower := strings.ToLower(strings.TrimSpace(message))
	if lower == "" {
		return English
	}

	words := tokenize(lower)
	if len(words) == 0 {
		return English
	}

	for _, phrase := range malayPhrases {
		if strings.Contains(lower, phrase) {
			return Malay
		}
	}

	malayCount, englishCount := 0, 0
	for _, w := range words {
		if _, ok := malayWords[w]; ok {
			malayCount++
		}
		if _, ok := englishIndicators[w]; ok {
			englishCount++
		}
	}

	if englishCount > 0 && malayCount == 0 {
		return English
	}

	if len(words) > 2 {
		malayRatio := float64(malayCount) / float64(len(words))
		englishRatio := float64(englishCount) / float64(len(words))
		if englishRatio > malayRatio && englishRatio >= 0.3 {
			return English
		}
		if malayRatio >= 0.2 {
			return Malay
		}
	}

	if len(words) <= 2 && malayCount == 0 {
		return English
	}
	if malayCount > 0 {
		return Malay
	}
	return English
}

// Resolve returns the effective language: an explicit assistant
// preference wins, Auto falls back to detection.
func Resolve(preferred, message string) string {
	if preferred == English || preferred == Malay {
		return preferred
	}
	return Detect(message)
}

// VoiceFor maps a language preference to the synthesis voice used by
// realtime sessions.
func VoiceFor(lang string) string {
	if lang == Malay {
		return "shimmer"
	}
	return "alloy"
}

// TranscriptionFor returns the transcription language hint, empty for
// auto-detection.
func TranscriptionFor(lang string) string {
	if lang == English || lang == Malay {
		return lang
	}
	return ""
}

// tokenize splits on whitespace after replacing punctuation, mirroring
// the indicator lists which hold bare words.
func tokenize(lower string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			return r
		}
		return ' '
	}, lower)
	return strings.Fields(cleaned)
}

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
