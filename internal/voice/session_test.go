package voice

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/suarabot/suarabot/internal/embed"
	"github.com/suarabot/suarabot/internal/models"
	"github.com/suarabot/suarabot/internal/quota"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// fakeStream scripts upstream events and records outbound messages as
// decoded JSON objects.
type fakeStream struct {
	incoming chan any

	mu   sync.Mutex
	sent []map[string]any

	closeOnce sync.Once
}

func newFakeStream() *fakeStream {
	return &fakeStream{incoming: make(chan any, 16)}
}

func (f *fakeStream) push(event map[string]any) { f.incoming <- event }

func (f *fakeStream) ReadJSON(v any) error {
	event, ok := <-f.incoming
	if !ok {
		return io.EOF
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func (f *fakeStream) WriteJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	f.mu.Lock()
	f.sent = append(f.sent, m)
	f.mu.Unlock()
	return nil
}

func (f *fakeStream) Close() error {
	f.closeOnce.Do(func() { close(f.incoming) })
	return nil
}

func (f *fakeStream) sentMessages() []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]any, len(f.sent))
	copy(out, f.sent)
	return out
}

type fakeVoiceStore struct {
	qnas  []models.QnAEntry
	items []models.KnowledgeItem
}

func (f *fakeVoiceStore) ListQnAEntries(ctx context.Context, assistantID string) ([]models.QnAEntry, error) {
	return f.qnas, nil
}

func (f *fakeVoiceStore) ListCompletedKnowledgeItems(ctx context.Context, assistantID string) ([]models.KnowledgeItem, error) {
	return f.items, nil
}

type fakeVoiceRetriever struct{ matches []embed.Match }

func (f *fakeVoiceRetriever) Search(ctx context.Context, assistantID, query string, topK int) ([]embed.Match, error) {
	return f.matches, nil
}

type exchange struct{ user, assistant string }

type fakeConversations struct {
	mu        sync.Mutex
	exchanges []exchange
}

func (f *fakeConversations) ResolveSession(ctx context.Context, assistantID, sessionUUID string, source models.SessionSource) (*models.ChatSession, error) {
	return &models.ChatSession{
		ID:        surrealmodels.NewRecordID("chat_session", "v1"),
		SessionID: "voice-uuid",
		Source:    source,
	}, nil
}

func (f *fakeConversations) SaveExchange(ctx context.Context, session *models.ChatSession, userText, assistantText string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchanges = append(f.exchanges, exchange{userText, assistantText})
	return nil
}

func (f *fakeConversations) saved() []exchange {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]exchange, len(f.exchanges))
	copy(out, f.exchanges)
	return out
}

type fakeUsageStore struct {
	mu     sync.Mutex
	tokens []int
}

func (f *fakeUsageStore) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	return &models.Profile{}, nil
}

func (f *fakeUsageStore) RecordProfileUsage(ctx context.Context, profileID string, tokens int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, tokens)
	return nil
}

func (f *fakeUsageStore) RecordUsageLog(ctx context.Context, log models.UsageLog) error { return nil }

func (f *fakeUsageStore) recorded() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int, len(f.tokens))
	copy(out, f.tokens)
	return out
}

type harness struct {
	session       *Session
	stream        *fakeStream
	conversations *fakeConversations
	usage         *fakeUsageStore
}

func startSession(t *testing.T, mutate func(*Config)) *harness {
	t.Helper()

	stream := newFakeStream()
	conversations := &fakeConversations{}
	usage := &fakeUsageStore{}

	cfg := Config{
		Assistant: &models.Assistant{
			ID:                surrealmodels.NewRecordID("assistant", "a1"),
			User:              surrealmodels.NewRecordID("profile", "p1"),
			BusinessType:      "Restaurant",
			PreferredLanguage: models.LangAuto,
		},
		Source:        models.SourceTestVoice,
		Model:         "gpt-4o-realtime-preview-2024-12-17",
		APIKey:        "test-key",
		Store:         &fakeVoiceStore{},
		Conversations: conversations,
		Retriever:     &fakeVoiceRetriever{},
		Guard:         quota.NewGuard(usage),
		Dial: func(ctx context.Context, apiKey, model string) (Stream, error) {
			return stream, nil
		},
	}
	if mutate != nil {
		mutate(&cfg)
	}

	s := NewSession(cfg)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return &harness{session: s, stream: stream, conversations: conversations, usage: usage}
}

func nextEvent(t *testing.T, s *Session) ClientEvent {
	t.Helper()
	select {
	case event, ok := <-s.Events():
		if !ok {
			t.Fatal("event channel closed")
		}
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for client event")
	}
	return ClientEvent{}
}

func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestStartSendsSessionConfiguration(t *testing.T) {
	h := startSession(t, func(cfg *Config) {
		cfg.Language = models.LangMalay
		cfg.Store = &fakeVoiceStore{
			qnas: []models.QnAEntry{{Question: "Ada diskaun?", Answer: "Ya, 10%."}},
		}
	})

	sent := h.stream.sentMessages()
	if len(sent) != 1 || sent[0]["type"] != "session.update" {
		t.Fatalf("first upstream message = %+v, want session.update", sent)
	}

	session := sent[0]["session"].(map[string]any)
	if session["voice"] != "shimmer" {
		t.Errorf("voice = %v, want shimmer for Malay", session["voice"])
	}
	if session["input_audio_format"] != "pcm16" || session["output_audio_format"] != "pcm16" {
		t.Error("audio format should be pcm16 both ways")
	}

	transcription := session["input_audio_transcription"].(map[string]any)
	if transcription["model"] != transcriptionModel || transcription["language"] != "ms" {
		t.Errorf("transcription config = %+v", transcription)
	}

	vad := session["turn_detection"].(map[string]any)
	if vad["type"] != "server_vad" || vad["threshold"] != 0.5 ||
		vad["prefix_padding_ms"] != float64(300) || vad["silence_duration_ms"] != float64(500) {
		t.Errorf("turn detection = %+v", vad)
	}

	tools := session["tools"].([]any)
	if len(tools) != 1 || tools[0].(map[string]any)["name"] != "search_knowledge" {
		t.Errorf("tools = %+v", tools)
	}

	instructions := session["instructions"].(string)
	if !strings.Contains(instructions, "Restaurant") || !strings.Contains(instructions, "Ada diskaun?") {
		t.Error("instructions should embed business type and QnA list")
	}
}

func TestSessionUpdatedEmitsConnectionStatus(t *testing.T) {
	h := startSession(t, nil)
	h.stream.push(map[string]any{"type": "session.updated"})

	event := nextEvent(t, h.session)
	if event.Type != EventConnectionStatus || event.Status != "ready" {
		t.Errorf("event = %+v, want connection_status ready", event)
	}
}

func TestSpeechStoppedRequestsResponse(t *testing.T) {
	h := startSession(t, nil)
	h.stream.push(map[string]any{"type": "input_audio_buffer.speech_stopped"})

	waitFor(t, func() bool {
		for _, m := range h.stream.sentMessages() {
			if m["type"] == "response.create" {
				return true
			}
		}
		return false
	}, "response.create after speech stop")
}

func TestAudioAndTranscriptForwarding(t *testing.T) {
	h := startSession(t, nil)

	h.stream.push(map[string]any{"type": "response.audio.delta", "delta": "BASE64AUDIO"})
	event := nextEvent(t, h.session)
	if event.Type != EventAIAudioDelta || event.Audio != "BASE64AUDIO" {
		t.Errorf("audio event = %+v", event)
	}

	h.stream.push(map[string]any{
		"type": "conversation.item.input_audio_transcription.delta",
		"delta": "how ", "item_id": "i1",
	})
	event = nextEvent(t, h.session)
	if event.Type != EventUserTranscriptDelta || event.Delta != "how " {
		t.Errorf("delta event = %+v", event)
	}

	h.stream.push(map[string]any{
		"type":       "conversation.item.input_audio_transcription.completed",
		"transcript": "how much is it", "item_id": "i1",
	})
	event = nextEvent(t, h.session)
	if event.Type != EventUserTranscript || event.Transcript != "how much is it" {
		t.Errorf("transcript event = %+v", event)
	}

	h.stream.push(map[string]any{"type": "response.audio_transcript.done", "transcript": "Ten ringgit."})
	event = nextEvent(t, h.session)
	if event.Type != EventAIResponseText || event.Text != "Ten ringgit." {
		t.Errorf("response text event = %+v", event)
	}
}

func TestSearchKnowledgeQnAHit(t *testing.T) {
	h := startSession(t, func(cfg *Config) {
		cfg.Store = &fakeVoiceStore{
			qnas: []models.QnAEntry{{Question: "Do you deliver?", Answer: "Yes, nationwide."}},
		}
	})

	h.stream.push(map[string]any{
		"type":      "response.function_call_arguments.done",
		"name":      "search_knowledge",
		"arguments": `{"query":"do you deliver?"}`,
		"call_id":   "c1",
	})

	var output map[string]any
	waitFor(t, func() bool {
		for _, m := range h.stream.sentMessages() {
			if m["type"] == "conversation.item.create" {
				item := m["item"].(map[string]any)
				if item["call_id"] != "c1" || item["type"] != "function_call_output" {
					continue
				}
				json.Unmarshal([]byte(item["output"].(string)), &output)
				return true
			}
		}
		return false
	}, "function_call_output")

	if output["success"] != true || output["source"] != "qna" || output["result"] != "Yes, nationwide." {
		t.Errorf("function output = %+v", output)
	}

	// A fresh response must be requested after the tool result.
	waitFor(t, func() bool {
		sent := h.stream.sentMessages()
		return sent[len(sent)-1]["type"] == "response.create"
	}, "response.create after tool result")
}

func TestSearchKnowledgeRetrievalFallback(t *testing.T) {
	h := startSession(t, func(cfg *Config) {
		cfg.Retriever = &fakeVoiceRetriever{matches: []embed.Match{
			{Source: "Menu (chunk 1)", Text: "Laksa costs RM10.", Score: 0.8},
			{Source: "Menu (chunk 2)", Text: "Satay costs RM12.", Score: 0.6},
		}}
	})

	h.stream.push(map[string]any{
		"type":      "response.function_call_arguments.done",
		"name":      "search_knowledge",
		"arguments": `{"query":"laksa price"}`,
		"call_id":   "c2",
	})

	var output map[string]any
	waitFor(t, func() bool {
		for _, m := range h.stream.sentMessages() {
			if m["type"] == "conversation.item.create" {
				item := m["item"].(map[string]any)
				json.Unmarshal([]byte(item["output"].(string)), &output)
				return true
			}
		}
		return false
	}, "function_call_output")

	if output["source"] != "knowledge_base" {
		t.Errorf("source = %v, want knowledge_base", output["source"])
	}
	result := output["result"].(string)
	if !strings.Contains(result, "MOST RELEVANT") || !strings.Contains(result, "Laksa costs RM10.") {
		t.Errorf("result = %q", result)
	}
}

func TestSearchKnowledgeNoResults(t *testing.T) {
	h := startSession(t, nil)

	h.stream.push(map[string]any{
		"type":      "response.function_call_arguments.done",
		"name":      "search_knowledge",
		"arguments": `{"query":"quantum physics"}`,
		"call_id":   "c3",
	})

	var output map[string]any
	waitFor(t, func() bool {
		for _, m := range h.stream.sentMessages() {
			if m["type"] == "conversation.item.create" {
				item := m["item"].(map[string]any)
				json.Unmarshal([]byte(item["output"].(string)), &output)
				return true
			}
		}
		return false
	}, "function_call_output")

	if output["success"] != false || output["source"] != "none" {
		t.Errorf("output = %+v, want unsuccessful none result", output)
	}
}

func TestResponseDonePersistsTurnAndUsage(t *testing.T) {
	h := startSession(t, nil)

	h.stream.push(map[string]any{
		"type":       "conversation.item.input_audio_transcription.completed",
		"transcript": "how much is laksa",
	})
	nextEvent(t, h.session)
	h.stream.push(map[string]any{"type": "response.audio_transcript.done", "transcript": "Ten ringgit."})
	nextEvent(t, h.session)

	h.stream.push(map[string]any{
		"type": "response.done",
		"response": map[string]any{
			"usage": map[string]any{"input_tokens": 50, "output_tokens": 30, "total_tokens": 80},
		},
	})

	waitFor(t, func() bool { return len(h.conversations.saved()) == 1 }, "saved exchange")
	saved := h.conversations.saved()[0]
	if saved.user != "how much is laksa" || saved.assistant != "Ten ringgit." {
		t.Errorf("exchange = %+v", saved)
	}
	waitFor(t, func() bool { return len(h.usage.recorded()) == 1 }, "usage record")
	if h.usage.recorded()[0] != 80 {
		t.Errorf("tokens = %v, want [80]", h.usage.recorded())
	}

	// A turn with no transcripts and no usage still records one request.
	h.stream.push(map[string]any{"type": "response.done"})
	waitFor(t, func() bool { return len(h.usage.recorded()) == 2 }, "zero-token usage record")
	if h.usage.recorded()[1] != 0 {
		t.Errorf("second record = %d, want 0", h.usage.recorded()[1])
	}
	if len(h.conversations.saved()) != 1 {
		t.Error("empty turn should not save an exchange")
	}
}

func TestUpstreamErrorForwarded(t *testing.T) {
	h := startSession(t, nil)

	h.stream.push(map[string]any{
		"type":  "error",
		"error": map[string]any{"message": "rate limit reached"},
	})

	event := nextEvent(t, h.session)
	if event.Type != EventOpenAIError || event.Error != "rate limit reached" {
		t.Errorf("event = %+v", event)
	}
}

func TestCloseEndsEventLoop(t *testing.T) {
	h := startSession(t, nil)
	h.session.Close()

	// Drain: the loop emits voice_stopped, then closes the channel.
	sawStopped := false
	for event := range h.session.Events() {
		if event.Type == EventVoiceStopped {
			sawStopped = true
		}
	}
	if !sawStopped {
		t.Error("expected voice_stopped before the channel closed")
	}
}

func TestSendAudioForwardsUpstream(t *testing.T) {
	h := startSession(t, nil)

	if err := h.session.SendAudio("CHUNK"); err != nil {
		t.Fatalf("SendAudio failed: %v", err)
	}
	found := false
	for _, m := range h.stream.sentMessages() {
		if m["type"] == "input_audio_buffer.append" && m["audio"] == "CHUNK" {
			found = true
		}
	}
	if !found {
		t.Error("audio append not sent upstream")
	}
}
