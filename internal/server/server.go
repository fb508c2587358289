// Package server exposes the widget and test-console transport: JSON
// endpoints for chat and session history plus websocket endpoints for
// streaming chat and realtime voice.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/suarabot/suarabot/internal/chat"
	"github.com/suarabot/suarabot/internal/config"
	"github.com/suarabot/suarabot/internal/metrics"
	"github.com/suarabot/suarabot/internal/models"
	"github.com/suarabot/suarabot/internal/quota"
	"github.com/suarabot/suarabot/internal/session"
	"github.com/suarabot/suarabot/internal/voice"
)

// AssistantStore resolves widget API keys to assistants.
type AssistantStore interface {
	GetAssistantByAPIKey(ctx context.Context, apiKey string) (*models.Assistant, error)
}

// Server handles the HTTP and websocket surface for one deployment.
type Server struct {
	cfg        config.Config
	assistants AssistantStore
	composer   *chat.Composer
	sessions   *session.Service
	guard      *quota.Guard
	voiceStore voice.Store
	retriever  voice.Retriever
	metrics    *metrics.Collector
	logger     *slog.Logger
}

// New creates the transport server. guard and collector may be nil.
func New(cfg config.Config, assistants AssistantStore, composer *chat.Composer, sessions *session.Service, voiceStore voice.Store, retriever voice.Retriever, guard *quota.Guard, collector *metrics.Collector, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:        cfg,
		assistants: assistants,
		composer:   composer,
		sessions:   sessions,
		guard:      guard,
		voiceStore: voiceStore,
		retriever:  retriever,
		metrics:    collector,
		logger:     logger,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.Handle("POST /api/chat", s.withAssistant(s.handleChat))
	mux.Handle("GET /api/sessions", s.withAssistant(s.handleListSessions))
	mux.Handle("GET /api/sessions/stats", s.withAssistant(s.handleSessionStats))
	mux.Handle("GET /api/sessions/{id}", s.withAssistant(s.handleGetSession))
	mux.Handle("DELETE /api/sessions/{id}", s.withAssistant(s.handleDeleteSession))
	mux.Handle("GET /ws/chat", s.withAssistant(s.handleChatSocket))
	mux.Handle("GET /ws/voice", s.withAssistant(s.handleVoiceSocket))
	return s.logRequests(mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.metrics == nil {
		writeError(w, http.StatusNotFound, "metrics disabled")
		return
	}
	writeJSON(w, http.StatusOK, s.metrics.Snapshot())
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
	Source    string `json:"source,omitempty"`
}

type chatResponse struct {
	SessionID string `json:"session_id"`
	Response  string `json:"response"`
	Source    string `json:"source"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request, assistant *models.Assistant) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message required")
		return
	}

	if err := s.checkQuota(r.Context(), assistant); err != nil {
		writeQuotaError(w, err)
		return
	}

	source := models.SessionSource(req.Source)
	if source == "" {
		source = models.SourceWidgetChat
	}

	reply, err := s.composer.Respond(r.Context(), assistant, chat.Request{
		SessionUUID: req.SessionID,
		Message:     req.Message,
		Source:      source,
	})
	if err != nil {
		s.logger.Error("chat request failed", "assistant", assistant.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to process message")
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		SessionID: reply.SessionUUID,
		Response:  reply.Text,
		Source:    reply.Source,
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request, assistant *models.Assistant) {
	assistantID, err := models.RecordIDString(assistant.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "bad assistant record")
		return
	}
	source := models.SessionSource(r.URL.Query().Get("source"))
	summaries, err := s.sessions.List(r.Context(), assistantID, source, 0)
	if err != nil {
		s.logger.Error("list sessions failed", "assistant", assistantID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}

	type sessionSummary struct {
		SessionID    string `json:"session_id"`
		Source       string `json:"source"`
		MessageCount int    `json:"message_count"`
		Preview      string `json:"last_message,omitempty"`
	}
	out := make([]sessionSummary, 0, len(summaries))
	for _, sum := range summaries {
		out = append(out, sessionSummary{
			SessionID:    sum.Session.SessionID,
			Source:       string(sum.Session.Source),
			MessageCount: sum.MessageCount,
			Preview:      sum.Preview,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": out})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request, assistant *models.Assistant) {
	assistantID, err := models.RecordIDString(assistant.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "bad assistant record")
		return
	}
	detail, err := s.sessions.Get(r.Context(), assistantID, r.PathValue("id"))
	if err != nil {
		s.logger.Error("get session failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	if detail == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	type messageView struct {
		Role    string `json:"role"`
		Content string `json:"content"`
		IsVoice bool   `json:"is_voice"`
	}
	messages := make([]messageView, 0, len(detail.Messages))
	for _, m := range detail.Messages {
		messages = append(messages, messageView{Role: m.Role, Content: m.Content, IsVoice: m.IsVoice})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": detail.Session.SessionID,
		"source":     string(detail.Session.Source),
		"messages":   messages,
	})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request, assistant *models.Assistant) {
	assistantID, err := models.RecordIDString(assistant.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "bad assistant record")
		return
	}
	ok, err := s.sessions.Delete(r.Context(), assistantID, r.PathValue("id"))
	if err != nil {
		s.logger.Error("delete session failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete session")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleSessionStats(w http.ResponseWriter, r *http.Request, assistant *models.Assistant) {
	assistantID, err := models.RecordIDString(assistant.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "bad assistant record")
		return
	}
	stats, err := s.sessions.Stats(r.Context(), assistantID)
	if err != nil {
		s.logger.Error("session stats failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}

	bySource := make(map[string]int, len(stats.BySource))
	for source, count := range stats.BySource {
		bySource[string(source)] = count
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total_sessions": stats.TotalSessions,
		"total_messages": stats.TotalMessages,
		"by_source":      bySource,
	})
}

// checkQuota returns the guard's verdict for the assistant's owner.
func (s *Server) checkQuota(ctx context.Context, assistant *models.Assistant) error {
	if s.guard == nil {
		return nil
	}
	profileID, err := models.RecordIDString(assistant.User)
	if err != nil {
		return err
	}
	return s.guard.Check(ctx, profileID)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeQuotaError surfaces limit rejections with usage detail; other
// failures degrade to a generic 500.
func writeQuotaError(w http.ResponseWriter, err error) {
	var limitErr *quota.LimitError
	if errors.As(err, &limitErr) {
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"error": limitErr.Kind,
			"used":  limitErr.Used,
			"limit": limitErr.Limit,
		})
		return
	}
	writeError(w, http.StatusInternalServerError, "quota check failed")
}
