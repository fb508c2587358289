// Package voice runs realtime speech sessions against the OpenAI
// realtime API, bridging audio and transcripts between the connected
// client and the model, with function-calling into the same QnA and
// retrieval pipeline the chat composer uses.
package voice

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/suarabot/suarabot/internal/embed"
	"github.com/suarabot/suarabot/internal/lang"
	"github.com/suarabot/suarabot/internal/metrics"
	"github.com/suarabot/suarabot/internal/models"
	"github.com/suarabot/suarabot/internal/qna"
	"github.com/suarabot/suarabot/internal/quota"
)

const (
	realtimeURL        = "wss://api.openai.com/v1/realtime?model="
	transcriptionModel = "gpt-4o-transcribe"

	// outboundBuffer bounds the client event queue. A slow client drops
	// events instead of blocking the stream loop.
	outboundBuffer = 64

	noResultMessage = "I don't have specific information about that in our knowledge base. Let me help you with general information or you can contact us directly for more details."
)

// Stream is the duplex connection to the realtime API.
type Stream interface {
	ReadJSON(v any) error
	WriteJSON(v any) error
	Close() error
}

// Dialer opens a realtime stream. Swappable in tests.
type Dialer func(ctx context.Context, apiKey, model string) (Stream, error)

// DialOpenAI connects to the OpenAI realtime websocket endpoint.
func DialOpenAI(ctx context.Context, apiKey, model string) (Stream, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+apiKey)
	header.Set("OpenAI-Beta", "realtime=v1")

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, realtimeURL+model, header)
	if err != nil {
		return nil, fmt.Errorf("dial realtime api: %w", err)
	}
	return conn, nil
}

// Store is the slice of the database layer a voice session needs.
type Store interface {
	ListQnAEntries(ctx context.Context, assistantID string) ([]models.QnAEntry, error)
	ListCompletedKnowledgeItems(ctx context.Context, assistantID string) ([]models.KnowledgeItem, error)
}

// Retriever finds relevant knowledge chunks for a query.
type Retriever interface {
	Search(ctx context.Context, assistantID, query string, topK int) ([]embed.Match, error)
}

// Conversations persists voice transcripts through the chat message
// storage contract.
type Conversations interface {
	ResolveSession(ctx context.Context, assistantID, sessionUUID string, source models.SessionSource) (*models.ChatSession, error)
	SaveExchange(ctx context.Context, session *models.ChatSession, userText, assistantText string) error
}

// Config wires one voice session.
type Config struct {
	Assistant *models.Assistant
	Source    models.SessionSource
	// Language requested by the client; empty falls back to the
	// assistant's preference.
	Language string
	Model    string
	APIKey   string

	Store         Store
	Conversations Conversations
	Retriever     Retriever
	Guard         *quota.Guard
	Metrics       *metrics.Collector
	Dial          Dialer
}

// Session is one active realtime voice connection. Start launches a
// goroutine that owns the upstream read loop; client events arrive on
// Events until the session ends.
type Session struct {
	cfg         Config
	assistantID string
	language    string

	stream      Stream
	chatSession *models.ChatSession
	outbound    chan ClientEvent

	writeMu   sync.Mutex
	closeOnce sync.Once
	started   time.Time

	// Per-turn transcript buffers, flushed on response.done.
	userTranscript      string
	assistantTranscript string
}

// NewSession prepares a voice session from config.
func NewSession(cfg Config) *Session {
	if cfg.Dial == nil {
		cfg.Dial = DialOpenAI
	}
	return &Session{
		cfg:      cfg,
		outbound: make(chan ClientEvent, outboundBuffer),
	}
}

// Start connects upstream, configures the session and launches the
// event loop.
func (s *Session) Start(ctx context.Context) error {
	assistantID, err := models.RecordIDString(s.cfg.Assistant.ID)
	if err != nil {
		return fmt.Errorf("assistant id: %w", err)
	}
	s.assistantID = assistantID

	s.language = s.cfg.Language
	if s.language == "" {
		s.language = s.cfg.Assistant.PreferredLanguage
	}
	if s.language == "" {
		s.language = lang.Auto
	}

	s.chatSession, err = s.cfg.Conversations.ResolveSession(ctx, assistantID, "", s.cfg.Source)
	if err != nil {
		return fmt.Errorf("create voice session: %w", err)
	}

	s.stream, err = s.cfg.Dial(ctx, s.cfg.APIKey, s.cfg.Model)
	if err != nil {
		return err
	}

	if err := s.configure(ctx); err != nil {
		s.stream.Close()
		return err
	}

	s.started = time.Now()
	go s.run(ctx)

	slog.Info("voice session started",
		"assistant", assistantID,
		"session", s.chatSession.SessionID,
		"language", s.language)
	return nil
}

// Events delivers client-bound events. Closed when the session ends.
func (s *Session) Events() <-chan ClientEvent {
	return s.outbound
}

// SessionID returns the external identifier of the backing chat session.
func (s *Session) SessionID() string {
	return s.chatSession.SessionID
}

// SendAudio forwards one base64 pcm16 audio chunk to the model.
func (s *Session) SendAudio(audio string) error {
	return s.send(audioAppend{Type: "input_audio_buffer.append", Audio: audio})
}

// Close tears down the upstream stream; the event loop drains and
// closes Events.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.stream.Close()
		if s.cfg.Metrics != nil && !s.started.IsZero() {
			s.cfg.Metrics.RecordTiming(metrics.OpVoiceSession, time.Since(s.started))
		}
	})
	return err
}

func (s *Session) configure(ctx context.Context) error {
	qnas, err := s.cfg.Store.ListQnAEntries(ctx, s.assistantID)
	if err != nil {
		return fmt.Errorf("load qna entries: %w", err)
	}
	items, err := s.cfg.Store.ListCompletedKnowledgeItems(ctx, s.assistantID)
	if err != nil {
		return fmt.Errorf("load knowledge items: %w", err)
	}

	update := sessionUpdate{
		Type: "session.update",
		Session: sessionConfig{
			Instructions:      Instructions(s.cfg.Assistant, qnas, items, s.language),
			Voice:             lang.VoiceFor(s.language),
			InputAudioFormat:  "pcm16",
			OutputAudioFormat: "pcm16",
			InputAudioTranscription: transcriptionConfig{
				Model:    transcriptionModel,
				Language: lang.TranscriptionFor(s.language),
			},
			TurnDetection: turnDetection{
				Type:              "server_vad",
				Threshold:         0.5,
				PrefixPaddingMS:   300,
				SilenceDurationMS: 500,
			},
			Tools:       []toolDefinition{searchTool()},
			ToolChoice:  "auto",
			Modalities:  []string{"text", "audio"},
			Temperature: 0.7,
		},
	}
	if err := s.send(update); err != nil {
		return fmt.Errorf("configure session: %w", err)
	}
	return nil
}

// run owns the upstream read loop. It exits when the stream closes and
// then closes the outbound channel.
func (s *Session) run(ctx context.Context) {
	defer close(s.outbound)

	for {
		var event upstreamEvent
		if err := s.stream.ReadJSON(&event); err != nil {
			slog.Debug("voice stream closed", "session", s.chatSession.SessionID, "error", err)
			s.emit(ClientEvent{Type: EventVoiceStopped})
			return
		}
		s.handle(ctx, event)
	}
}

func (s *Session) handle(ctx context.Context, event upstreamEvent) {
	switch event.Type {
	case upSessionUpdated:
		s.emit(ClientEvent{Type: EventConnectionStatus, Status: "ready"})

	case upSpeechStarted:
		s.emit(ClientEvent{Type: EventVoiceStarted})

	case upSpeechStopped:
		// The upstream does not auto-trigger a response.
		if err := s.send(responseCreate{Type: "response.create"}); err != nil {
			slog.Warn("failed to request response", "error", err)
		}

	case upAudioDelta:
		s.emit(ClientEvent{Type: EventAIAudioDelta, Audio: event.Delta})

	case upAudioTranscriptDone:
		if event.Transcript != "" {
			s.assistantTranscript = event.Transcript
			s.emit(ClientEvent{Type: EventAIResponseText, Text: event.Transcript})
		}

	case upUserTranscriptDelta:
		if event.Delta != "" {
			s.emit(ClientEvent{Type: EventUserTranscriptDelta, Delta: event.Delta, ItemID: event.ItemID})
		}

	case upUserTranscriptDone:
		if event.Transcript != "" {
			s.userTranscript = event.Transcript
			s.emit(ClientEvent{Type: EventUserTranscript, Transcript: event.Transcript, ItemID: event.ItemID})
		}

	case upUserTranscriptFailed:
		msg := "transcription failed"
		if event.Error != nil && event.Error.Message != "" {
			msg = event.Error.Message
		}
		s.emit(ClientEvent{Type: EventOpenAIError, Error: msg, ItemID: event.ItemID})

	case upFunctionCallDone:
		if event.Name == "search_knowledge" {
			s.handleSearch(ctx, event.Arguments, event.CallID)
		}

	case upResponseDone:
		s.finishTurn(ctx, event)

	case upError:
		msg := "unknown error"
		if event.Error != nil && event.Error.Message != "" {
			msg = event.Error.Message
		}
		slog.Warn("realtime api error", "session", s.chatSession.SessionID, "error", msg)
		s.emit(ClientEvent{Type: EventOpenAIError, Error: msg})
	}
}

// searchResult is the function_call_output payload returned to the
// model.
type searchResult struct {
	Success bool   `json:"success"`
	Source  string `json:"source"`
	Result  string `json:"result"`
	Query   string `json:"query"`
}

// handleSearch runs the chat pipeline's QnA-then-retrieval priority for
// a search_knowledge call and hands the result back to the model.
func (s *Session) handleSearch(ctx context.Context, arguments, callID string) {
	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		slog.Warn("bad search_knowledge arguments", "error", err)
	}

	result := s.search(ctx, args.Query)
	payload, err := json.Marshal(result)
	if err != nil {
		slog.Warn("failed to encode search result", "error", err)
		return
	}

	if err := s.send(itemCreate{
		Type: "conversation.item.create",
		Item: functionItem{Type: "function_call_output", CallID: callID, Output: string(payload)},
	}); err != nil {
		slog.Warn("failed to send function output", "error", err)
		return
	}
	if err := s.send(responseCreate{Type: "response.create"}); err != nil {
		slog.Warn("failed to request response after function call", "error", err)
	}
}

func (s *Session) search(ctx context.Context, query string) searchResult {
	entries, err := s.cfg.Store.ListQnAEntries(ctx, s.assistantID)
	if err != nil {
		slog.Warn("failed to load QnA entries", "error", err)
	}
	if answer := qna.Match(query, entries); answer != "" {
		return searchResult{Success: true, Source: "qna", Result: answer, Query: query}
	}

	matches, err := s.cfg.Retriever.Search(ctx, s.assistantID, query, embed.VoiceTopK)
	if err != nil {
		slog.Warn("voice retrieval failed", "error", err)
	}
	if len(matches) > 0 {
		return searchResult{Success: true, Source: "knowledge_base", Result: embed.FormatMatches(matches), Query: query}
	}
	return searchResult{Success: false, Source: "none", Result: noResultMessage, Query: query}
}

// finishTurn persists the buffered transcripts as one exchange and
// records usage. A turn without reported tokens still counts as one API
// request.
func (s *Session) finishTurn(ctx context.Context, event upstreamEvent) {
	if s.userTranscript != "" || s.assistantTranscript != "" {
		if err := s.cfg.Conversations.SaveExchange(ctx, s.chatSession, s.userTranscript, s.assistantTranscript); err != nil {
			slog.Warn("failed to save voice transcripts",
				"session", s.chatSession.SessionID, "error", err)
		} else {
			s.userTranscript = ""
			s.assistantTranscript = ""
		}
	}

	if s.cfg.Guard == nil {
		return
	}
	var prompt, completion, total int
	if event.Response != nil && event.Response.Usage != nil {
		usage := event.Response.Usage
		prompt = usage.InputTokens
		completion = usage.OutputTokens
		total = usage.TotalTokens
		if total == 0 {
			total = prompt + completion
		}
	}
	s.cfg.Guard.Record(ctx, models.UsageLog{
		User:             s.cfg.Assistant.User,
		Kind:             "voice",
		Model:            s.cfg.Model,
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      total,
	})
}

// emit queues a client event without ever blocking the stream loop.
func (s *Session) emit(event ClientEvent) {
	select {
	case s.outbound <- event:
	default:
		slog.Warn("dropping client event, outbound buffer full", "type", event.Type)
	}
}

func (s *Session) send(v any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.stream.WriteJSON(v)
}
