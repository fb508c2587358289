// Package chat composes assistant replies: curated Q&A first, then
// retrieval-augmented completion, then a plain completion fallback.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/suarabot/suarabot/internal/embed"
	"github.com/suarabot/suarabot/internal/llm"
	"github.com/suarabot/suarabot/internal/metrics"
	"github.com/suarabot/suarabot/internal/models"
	"github.com/suarabot/suarabot/internal/qna"
	"github.com/suarabot/suarabot/internal/quota"
)

// apology is the fixed user-facing text for completion failures. The
// underlying error is logged, never shown.
const apology = "I apologize, but I'm having trouble processing your request right now. Please try again later or contact our support team."

// Response sources, recorded for debugging.
const (
	SourceQnA       = "qna"
	SourceKnowledge = "kb+llm"
	SourceLLM       = "llm"
)

// Store is the slice of the database layer the composer needs.
type Store interface {
	GetSessionByUUID(ctx context.Context, assistantID, sessionUUID string) (*models.ChatSession, error)
	CreateSession(ctx context.Context, assistantID, sessionUUID string, source models.SessionSource, threadID string) (*models.ChatSession, error)
	TouchSession(ctx context.Context, sessionID string) error
	CreateMessage(ctx context.Context, sessionID, role, content string, isVoice bool) (*models.ChatMessage, error)
	LastMessages(ctx context.Context, sessionID string, n int) ([]models.ChatMessage, error)
	ListQnAEntries(ctx context.Context, assistantID string) ([]models.QnAEntry, error)
	ListCompletedKnowledgeItems(ctx context.Context, assistantID string) ([]models.KnowledgeItem, error)
}

// Retriever finds relevant knowledge chunks for a query.
type Retriever interface {
	Search(ctx context.Context, assistantID, query string, topK int) ([]embed.Match, error)
}

// Completer generates a model response.
type Completer interface {
	Complete(ctx context.Context, system string, history []llm.Turn, userMessage string) (llm.Completion, error)
}

// ThreadAllocator creates upstream conversation threads for non-voice
// sessions. May be nil when the provider offers none.
type ThreadAllocator interface {
	CreateThread(ctx context.Context) (string, error)
}

// Request is one inbound user message.
type Request struct {
	SessionUUID string
	Message     string
	Source      models.SessionSource
	IsVoice     bool
}

// Reply is the composed assistant response.
type Reply struct {
	SessionUUID string
	Text        string
	// Source reports which stage answered: qna, kb+llm or llm.
	Source string
}

// Composer orchestrates the per-message response flow.
type Composer struct {
	db        Store
	retriever Retriever
	model     Completer
	threads   ThreadAllocator
	guard     *quota.Guard
	chatModel string
	metrics   *metrics.Collector
}

// NewComposer creates a chat composer. threads, guard and collector may
// be nil.
func NewComposer(db Store, retriever Retriever, model Completer, threads ThreadAllocator, guard *quota.Guard, chatModel string, collector *metrics.Collector) *Composer {
	return &Composer{
		db:        db,
		retriever: retriever,
		model:     model,
		threads:   threads,
		guard:     guard,
		chatModel: chatModel,
		metrics:   collector,
	}
}

// Respond handles one user message end to end: session resolution,
// message persistence, Q&A check, retrieval, completion, usage
// accounting. The user message is saved before composing so a failure
// still leaves the question on record.
func (c *Composer) Respond(ctx context.Context, assistant *models.Assistant, req Request) (Reply, error) {
	start := time.Now()
	defer func() {
		if c.metrics != nil {
			c.metrics.RecordTiming(metrics.OpChatCompletion, time.Since(start))
		}
	}()

	assistantID, err := models.RecordIDString(assistant.ID)
	if err != nil {
		return Reply{}, fmt.Errorf("assistant id: %w", err)
	}

	session, err := c.resolveSession(ctx, assistantID, req.SessionUUID, req.Source)
	if err != nil {
		return Reply{}, err
	}
	sessionID, err := models.RecordIDString(session.ID)
	if err != nil {
		return Reply{}, fmt.Errorf("session id: %w", err)
	}

	if _, err := c.db.CreateMessage(ctx, sessionID, models.RoleUser, req.Message, req.IsVoice); err != nil {
		return Reply{}, fmt.Errorf("save user message: %w", err)
	}

	text, source := c.compose(ctx, assistant, assistantID, sessionID, req.Message)

	if _, err := c.db.CreateMessage(ctx, sessionID, models.RoleAssistant, text, false); err != nil {
		return Reply{}, fmt.Errorf("save assistant message: %w", err)
	}
	if err := c.db.TouchSession(ctx, sessionID); err != nil {
		slog.Warn("failed to touch session", "session", sessionID, "error", err)
	}

	return Reply{SessionUUID: session.SessionID, Text: text, Source: source}, nil
}

// SaveExchange persists one complete voice turn (user transcript plus
// assistant transcript) using the same message-storage contract as
// chat. Either side may be empty.
func (c *Composer) SaveExchange(ctx context.Context, session *models.ChatSession, userText, assistantText string) error {
	sessionID, err := models.RecordIDString(session.ID)
	if err != nil {
		return fmt.Errorf("session id: %w", err)
	}
	if userText != "" {
		if _, err := c.db.CreateMessage(ctx, sessionID, models.RoleUser, userText, true); err != nil {
			return fmt.Errorf("save user transcript: %w", err)
		}
	}
	if assistantText != "" {
		if _, err := c.db.CreateMessage(ctx, sessionID, models.RoleAssistant, assistantText, true); err != nil {
			return fmt.Errorf("save assistant transcript: %w", err)
		}
	}
	if err := c.db.TouchSession(ctx, sessionID); err != nil {
		slog.Warn("failed to touch session", "session", sessionID, "error", err)
	}
	return nil
}

// ResolveSession finds an existing session by its external id or
// creates a fresh one. Voice sources never allocate an upstream thread.
func (c *Composer) ResolveSession(ctx context.Context, assistantID, sessionUUID string, source models.SessionSource) (*models.ChatSession, error) {
	return c.resolveSession(ctx, assistantID, sessionUUID, source)
}

func (c *Composer) resolveSession(ctx context.Context, assistantID, sessionUUID string, source models.SessionSource) (*models.ChatSession, error) {
	if sessionUUID != "" {
		session, err := c.db.GetSessionByUUID(ctx, assistantID, sessionUUID)
		if err != nil {
			return nil, fmt.Errorf("resolve session: %w", err)
		}
		if session != nil {
			return session, nil
		}
	}

	threadID := ""
	if !source.IsVoice() && c.threads != nil {
		id, err := c.threads.CreateThread(ctx)
		if err != nil {
			slog.Warn("thread allocation failed, continuing without", "error", err)
		} else {
			threadID = id
		}
	}

	session, err := c.db.CreateSession(ctx, assistantID, uuid.NewString(), source, threadID)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// compose runs the answer pipeline for a saved user message.
func (c *Composer) compose(ctx context.Context, assistant *models.Assistant, assistantID, sessionID, message string) (string, string) {
	entries, err := c.db.ListQnAEntries(ctx, assistantID)
	if err != nil {
		slog.Warn("failed to load QnA entries", "assistant", assistantID, "error", err)
	}
	if answer := qna.Match(message, entries); answer != "" {
		return answer, SourceQnA
	}

	matches, err := c.retriever.Search(ctx, assistantID, message, embed.DefaultTopK)
	if err != nil {
		slog.Warn("retrieval failed, falling back to plain completion",
			"assistant", assistantID, "error", err)
		matches = nil
	}

	items, err := c.db.ListCompletedKnowledgeItems(ctx, assistantID)
	if err != nil {
		slog.Warn("failed to load knowledge items", "assistant", assistantID, "error", err)
	}
	history, err := c.db.LastMessages(ctx, sessionID, historyWindow)
	if err != nil {
		slog.Warn("failed to load history", "session", sessionID, "error", err)
	}

	system := Instructions(assistant, entries, items, message)
	prompt := buildPrompt(message, matches, history)

	completion, err := c.model.Complete(ctx, system, nil, prompt)
	if err != nil {
		slog.Error("completion failed", "assistant", assistantID, "error", err)
		return apology, SourceLLM
	}

	if c.guard != nil && completion.Usage.TotalTokens > 0 {
		c.guard.Record(ctx, models.UsageLog{
			User:             assistant.User,
			Kind:             "chat",
			Model:            c.chatModel,
			PromptTokens:     completion.Usage.PromptTokens,
			CompletionTokens: completion.Usage.CompletionTokens,
			TotalTokens:      completion.Usage.TotalTokens,
		})
	}

	if len(matches) > 0 {
		return completion.Text, SourceKnowledge
	}
	return completion.Text, SourceLLM
}
