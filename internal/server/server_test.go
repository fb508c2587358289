package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/suarabot/suarabot/internal/chat"
	"github.com/suarabot/suarabot/internal/config"
	"github.com/suarabot/suarabot/internal/embed"
	"github.com/suarabot/suarabot/internal/llm"
	"github.com/suarabot/suarabot/internal/metrics"
	"github.com/suarabot/suarabot/internal/models"
	"github.com/suarabot/suarabot/internal/quota"
	"github.com/suarabot/suarabot/internal/session"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// fakeBackend implements the store interfaces the server's services
// need, backed by in-memory maps.
type fakeBackend struct {
	assistant *models.Assistant
	profile   *models.Profile

	sessions map[string]*models.ChatSession
	messages map[string][]models.ChatMessage
	nextID   int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		assistant: &models.Assistant{
			ID:                surrealmodels.NewRecordID("assistant", "a1"),
			User:              surrealmodels.NewRecordID("profile", "p1"),
			BusinessType:      "Restaurant",
			PreferredLanguage: models.LangAuto,
			APIKey:            "sk-widget-valid",
			IsActive:          true,
		},
		profile:  &models.Profile{},
		sessions: map[string]*models.ChatSession{},
		messages: map[string][]models.ChatMessage{},
	}
}

func (f *fakeBackend) GetAssistantByAPIKey(ctx context.Context, apiKey string) (*models.Assistant, error) {
	if apiKey == f.assistant.APIKey {
		return f.assistant, nil
	}
	return nil, nil
}

func (f *fakeBackend) GetSessionByUUID(ctx context.Context, assistantID, sessionUUID string) (*models.ChatSession, error) {
	return f.sessions[sessionUUID], nil
}

func (f *fakeBackend) CreateSession(ctx context.Context, assistantID, sessionUUID string, source models.SessionSource, threadID string) (*models.ChatSession, error) {
	f.nextID++
	s := &models.ChatSession{
		ID:        surrealmodels.NewRecordID("chat_session", fmt.Sprintf("s%d", f.nextID)),
		SessionID: sessionUUID,
		Source:    source,
		ThreadID:  threadID,
	}
	f.sessions[sessionUUID] = s
	return s, nil
}

func (f *fakeBackend) TouchSession(ctx context.Context, sessionID string) error { return nil }

func (f *fakeBackend) CreateMessage(ctx context.Context, sessionID, role, content string, isVoice bool) (*models.ChatMessage, error) {
	m := models.ChatMessage{Role: role, Content: content, IsVoice: isVoice}
	f.messages[sessionID] = append(f.messages[sessionID], m)
	return &m, nil
}

func (f *fakeBackend) ListMessages(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	return f.messages[sessionID], nil
}

func (f *fakeBackend) LastMessages(ctx context.Context, sessionID string, n int) ([]models.ChatMessage, error) {
	return f.messages[sessionID], nil
}

func (f *fakeBackend) ListSessions(ctx context.Context, assistantID string, limit int) ([]models.ChatSession, error) {
	out := make([]models.ChatSession, 0, len(f.sessions))
	for _, s := range f.sessions {
		out = append(out, *s)
	}
	return out, nil
}

func (f *fakeBackend) DeleteSession(ctx context.Context, sessionID string) (bool, error) {
	for uuid, s := range f.sessions {
		id, _ := models.RecordIDString(s.ID)
		if id == sessionID {
			delete(f.sessions, uuid)
			delete(f.messages, sessionID)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeBackend) ListQnAEntries(ctx context.Context, assistantID string) ([]models.QnAEntry, error) {
	return nil, nil
}

func (f *fakeBackend) ListCompletedKnowledgeItems(ctx context.Context, assistantID string) ([]models.KnowledgeItem, error) {
	return nil, nil
}

func (f *fakeBackend) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	return f.profile, nil
}

func (f *fakeBackend) RecordProfileUsage(ctx context.Context, profileID string, tokens int) error {
	f.profile.RecordUsage(tokens)
	return nil
}

func (f *fakeBackend) RecordUsageLog(ctx context.Context, log models.UsageLog) error { return nil }

type stubRetriever struct{}

func (stubRetriever) Search(ctx context.Context, assistantID, query string, topK int) ([]embed.Match, error) {
	return nil, nil
}

type stubCompleter struct{ text string }

func (s stubCompleter) Complete(ctx context.Context, system string, history []llm.Turn, userMessage string) (llm.Completion, error) {
	return llm.Completion{Text: s.text, Usage: llm.Usage{TotalTokens: 10}}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, backend *fakeBackend) *httptest.Server {
	t.Helper()

	guard := quota.NewGuard(backend)
	composer := chat.NewComposer(backend, stubRetriever{}, stubCompleter{text: "Hello from the assistant."}, nil, guard, "gpt-4o-mini", nil)
	sessions := session.NewService(backend)

	srv := New(config.Config{}, backend, composer, sessions, backend, stubRetriever{}, guard, metrics.NewCollector(), testLogger())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url, apiKey string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatal(err)
	}
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil && err != io.EOF {
		t.Fatal(err)
	}
	return resp, decoded
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, newFakeBackend())
	resp, body := doJSON(t, http.MethodGet, ts.URL+"/healthz", "", nil)
	if resp.StatusCode != http.StatusOK || body["status"] != "ok" {
		t.Errorf("healthz = %d %v", resp.StatusCode, body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, newFakeBackend())
	resp, body := doJSON(t, http.MethodGet, ts.URL+"/metrics", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status = %d, want 200", resp.StatusCode)
	}
	if _, ok := body["UptimeSeconds"]; !ok {
		t.Errorf("metrics body missing UptimeSeconds: %v", body)
	}
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t, newFakeBackend())

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/chat", "", chatRequest{Message: "hi"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("missing key status = %d, want 401", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/chat", "sk-wrong", chatRequest{Message: "hi"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad key status = %d, want 401", resp.StatusCode)
	}
}

func TestChatEndpoint(t *testing.T) {
	backend := newFakeBackend()
	ts := newTestServer(t, backend)

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/chat", "sk-widget-valid", chatRequest{Message: "what do you serve"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
	}
	if body["response"] != "Hello from the assistant." {
		t.Errorf("response = %v", body["response"])
	}
	if body["session_id"] == "" {
		t.Error("expected a session id")
	}

	// Session reuse: same id continues the conversation.
	sessionID := body["session_id"].(string)
	resp, body = doJSON(t, http.MethodPost, ts.URL+"/api/chat", "sk-widget-valid", chatRequest{Message: "more", SessionID: sessionID})
	if resp.StatusCode != http.StatusOK || body["session_id"] != sessionID {
		t.Errorf("session not reused: %v", body)
	}
	if len(backend.sessions) != 1 {
		t.Errorf("sessions = %d, want 1", len(backend.sessions))
	}
}

func TestChatEmptyMessageRejected(t *testing.T) {
	ts := newTestServer(t, newFakeBackend())
	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/chat", "sk-widget-valid", chatRequest{Message: "  "})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestChatQuotaExceeded(t *testing.T) {
	backend := newFakeBackend()
	backend.profile.MonthlyAPILimit = 5
	backend.profile.APIRequestsUsed = 5
	ts := newTestServer(t, backend)

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/chat", "sk-widget-valid", chatRequest{Message: "hi"})
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", resp.StatusCode)
	}
	if body["error"] != quota.KindAPILimit {
		t.Errorf("error = %v, want %s", body["error"], quota.KindAPILimit)
	}
	if body["used"] != float64(5) || body["limit"] != float64(5) {
		t.Errorf("usage detail = %v", body)
	}
}

func TestSessionEndpoints(t *testing.T) {
	backend := newFakeBackend()
	ts := newTestServer(t, backend)

	// Seed one conversation through the chat endpoint.
	_, body := doJSON(t, http.MethodPost, ts.URL+"/api/chat", "sk-widget-valid", chatRequest{Message: "hello"})
	sessionID := body["session_id"].(string)

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/sessions", "sk-widget-valid", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	sessions := body["sessions"].([]any)
	if len(sessions) != 1 {
		t.Fatalf("sessions = %d, want 1", len(sessions))
	}
	first := sessions[0].(map[string]any)
	if first["message_count"] != float64(2) {
		t.Errorf("message_count = %v, want 2", first["message_count"])
	}

	resp, body = doJSON(t, http.MethodGet, ts.URL+"/api/sessions/"+sessionID, "sk-widget-valid", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("detail status = %d", resp.StatusCode)
	}
	messages := body["messages"].([]any)
	if len(messages) != 2 {
		t.Errorf("messages = %d, want 2", len(messages))
	}

	resp, body = doJSON(t, http.MethodGet, ts.URL+"/api/sessions/stats", "sk-widget-valid", nil)
	if resp.StatusCode != http.StatusOK || body["total_sessions"] != float64(1) {
		t.Errorf("stats = %d %v", resp.StatusCode, body)
	}

	resp, _ = doJSON(t, http.MethodDelete, ts.URL+"/api/sessions/"+sessionID, "sk-widget-valid", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("delete status = %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/api/sessions/"+sessionID, "sk-widget-valid", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("deleted session status = %d, want 404", resp.StatusCode)
	}
}

func TestChatWebsocket(t *testing.T) {
	ts := newTestServer(t, newFakeBackend())

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/chat?api_key=sk-widget-valid"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var greeting map[string]any
	if err := conn.ReadJSON(&greeting); err != nil {
		t.Fatal(err)
	}
	if greeting["type"] != "connection_status" {
		t.Errorf("greeting = %v", greeting)
	}

	if err := conn.WriteJSON(map[string]any{"type": "chat_message", "message": "hello"}); err != nil {
		t.Fatal(err)
	}
	var reply map[string]any
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatal(err)
	}
	if reply["type"] != "chat_response" || reply["response"] != "Hello from the assistant." {
		t.Errorf("reply = %v", reply)
	}
}

func TestChatWebsocketQuotaExceeded(t *testing.T) {
	backend := newFakeBackend()
	backend.profile.MonthlyTokenLimit = 100
	backend.profile.TokensUsed = 200
	ts := newTestServer(t, backend)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/chat?api_key=sk-widget-valid"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var greeting map[string]any
	if err := conn.ReadJSON(&greeting); err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteJSON(map[string]any{"type": "chat_message", "message": "hello"}); err != nil {
		t.Fatal(err)
	}

	var event map[string]any
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatal(err)
	}
	if event["type"] != "quota_exceeded" || event["kind"] != quota.KindTokenLimit {
		t.Errorf("event = %v", event)
	}
}
