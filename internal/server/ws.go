package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/suarabot/suarabot/internal/chat"
	"github.com/suarabot/suarabot/internal/models"
	"github.com/suarabot/suarabot/internal/quota"
	"github.com/suarabot/suarabot/internal/voice"
)

const wsWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Widget embeds run on customer domains.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// clientMessage is the inbound websocket envelope.
type clientMessage struct {
	Type      string `json:"type"`
	Message   string `json:"message,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Source    string `json:"source,omitempty"`
	Language  string `json:"language,omitempty"`
	Audio     string `json:"audio,omitempty"`
}

// handleChatSocket serves the streaming chat protocol: a
// connection_status greeting, then one chat_response per chat_message.
func (s *Server) handleChatSocket(w http.ResponseWriter, r *http.Request, assistant *models.Assistant) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("chat socket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	s.writeEvent(conn, voice.ClientEvent{Type: voice.EventConnectionStatus, Status: "connected"})

	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("chat socket closed", "error", err)
			}
			return
		}
		if msg.Type != "chat_message" || msg.Message == "" {
			continue
		}

		if err := s.checkQuota(r.Context(), assistant); err != nil {
			s.writeQuotaEvent(conn, err)
			continue
		}

		source := models.SessionSource(msg.Source)
		if source == "" {
			source = models.SourceWidgetChat
		}
		reply, err := s.composer.Respond(r.Context(), assistant, chat.Request{
			SessionUUID: msg.SessionID,
			Message:     msg.Message,
			Source:      source,
		})
		if err != nil {
			s.logger.Error("chat socket request failed", "assistant", assistant.ID, "error", err)
			s.writeEvent(conn, voice.ClientEvent{Type: "error", Error: "failed to process message"})
			continue
		}

		s.writeJSONWithDeadline(conn, map[string]any{
			"type":       "chat_response",
			"session_id": reply.SessionUUID,
			"response":   reply.Text,
			"source":     reply.Source,
		})
	}
}

// handleVoiceSocket bridges the client websocket to a realtime voice
// session: inbound audio chunks go upstream, session events stream
// back.
func (s *Server) handleVoiceSocket(w http.ResponseWriter, r *http.Request, assistant *models.Assistant) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("voice socket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	if err := s.checkQuota(r.Context(), assistant); err != nil {
		s.writeQuotaEvent(conn, err)
		return
	}

	source := models.SessionSource(r.URL.Query().Get("source"))
	if !source.IsVoice() {
		source = models.SourceWidgetVoice
	}

	sess := voice.NewSession(voice.Config{
		Assistant:     assistant,
		Source:        source,
		Language:      r.URL.Query().Get("language"),
		Model:         s.cfg.RealtimeModel,
		APIKey:        s.cfg.OpenAIKey,
		Store:         s.voiceStore,
		Conversations: s.composer,
		Retriever:     s.retriever,
		Guard:         s.guard,
		Metrics:       s.metrics,
	})
	if err := sess.Start(r.Context()); err != nil {
		s.logger.Error("voice session start failed", "assistant", assistant.ID, "error", err)
		s.writeEvent(conn, voice.ClientEvent{Type: voice.EventOpenAIError, Error: "failed to start voice session"})
		return
	}
	defer sess.Close()

	s.writeEvent(conn, voice.ClientEvent{Type: voice.EventVoiceStarted})

	// Forward session events until the session ends or the client send
	// fails.
	go func() {
		for event := range sess.Events() {
			if err := s.writeEventErr(conn, event); err != nil {
				s.logger.Debug("voice client send failed", "error", err)
				sess.Close()
				return
			}
		}
		conn.Close()
	}()

	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Type {
		case "audio":
			if err := sess.SendAudio(msg.Audio); err != nil {
				s.logger.Warn("audio forward failed", "error", err)
				return
			}
		case "stop":
			return
		}
	}
}

func (s *Server) writeEvent(conn *websocket.Conn, event voice.ClientEvent) {
	if err := s.writeEventErr(conn, event); err != nil {
		s.logger.Debug("client send failed", "type", event.Type, "error", err)
	}
}

func (s *Server) writeEventErr(conn *websocket.Conn, event voice.ClientEvent) error {
	return s.writeJSONWithDeadlineErr(conn, event)
}

func (s *Server) writeQuotaEvent(conn *websocket.Conn, err error) {
	var limitErr *quota.LimitError
	if errors.As(err, &limitErr) {
		s.writeEvent(conn, voice.ClientEvent{
			Type:  voice.EventQuotaExceeded,
			Kind:  limitErr.Kind,
			Used:  limitErr.Used,
			Limit: limitErr.Limit,
		})
		return
	}
	s.writeEvent(conn, voice.ClientEvent{Type: "error", Error: "quota check failed"})
}

func (s *Server) writeJSONWithDeadline(conn *websocket.Conn, v any) {
	if err := s.writeJSONWithDeadlineErr(conn, v); err != nil {
		s.logger.Debug("client send failed", "error", err)
	}
}

func (s *Server) writeJSONWithDeadlineErr(conn *websocket.Conn, v any) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(v)
}
