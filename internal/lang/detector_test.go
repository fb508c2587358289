package lang

import "testing"

func TestDetect(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
	}{
		{"empty", "", English},
		{"whitespace", "   ", English},
		{"plain english", "What are your business hours?", English},
		{"english sentence", "How many agents do you have in the company?", English},
		{"malay phrase short circuit", "Terima kasih banyak!", Malay},
		{"malay phrase inside sentence", "Saya nak tahu lebih lanjut", Malay},
		{"malay words by ratio", "Apakah perkhidmatan anda", Malay},
		{"malay question with punctuation", "Apa? Yang mana?", Malay},
		{"short ambiguous defaults english", "hello", English},
		{"short with malay word", "tolong saya", Malay},
		{"mixed leaning english", "saya want to know the price", English},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect(tt.message); got != tt.want {
				t.Errorf("Detect(%q) = %q, want %q", tt.message, got, tt.want)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	if got := Resolve(English, "terima kasih"); got != English {
		t.Errorf("explicit preference should win, got %q", got)
	}
	if got := Resolve(Malay, "hello there"); got != Malay {
		t.Errorf("explicit preference should win, got %q", got)
	}
	if got := Resolve(Auto, "terima kasih"); got != Malay {
		t.Errorf("auto should fall back to detection, got %q", got)
	}
	if got := Resolve("", "what services do you offer"); got != English {
		t.Errorf("unset preference should fall back to detection, got %q", got)
	}
}

func TestVoiceFor(t *testing.T) {
	tests := []struct{ lang, want string }{
		{Malay, "shimmer"},
		{English, "alloy"},
		{Auto, "alloy"},
		{"", "alloy"},
	}
	for _, tt := range tests {
		if got := VoiceFor(tt.lang); got != tt.want {
			t.Errorf("VoiceFor(%q) = %q, want %q", tt.lang, got, tt.want)
		}
	}
}

func TestTranscriptionFor(t *testing.T) {
	if got := TranscriptionFor(English); got != "en" {
		t.Errorf("TranscriptionFor(en) = %q", got)
	}
	if got := TranscriptionFor(Malay); got != "ms" {
		t.Errorf("TranscriptionFor(ms) = %q", got)
	}
	if got := TranscriptionFor(Auto); got != "" {
		t.Errorf("auto should leave transcription unset, got %q", got)
	}
}
