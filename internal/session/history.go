// Package session provides the conversation-history views built on top
// of chat sessions and messages.
package session

import (
	"context"
	"fmt"

	"github.com/suarabot/suarabot/internal/models"
)

// previewLength caps the last-message preview in session listings.
const previewLength = 100

// Store is the slice of the database layer the history service needs.
type Store interface {
	ListSessions(ctx context.Context, assistantID string, limit int) ([]models.ChatSession, error)
	GetSessionByUUID(ctx context.Context, assistantID, sessionUUID string) (*models.ChatSession, error)
	ListMessages(ctx context.Context, sessionID string) ([]models.ChatMessage, error)
	DeleteSession(ctx context.Context, sessionID string) (bool, error)
}

// Summary is one session in a listing, with a preview of its last
// message.
type Summary struct {
	Session      models.ChatSession
	MessageCount int
	LastMessage  *models.ChatMessage
	// Preview is the last message's content, truncated.
	Preview string
}

// Detail is a session with its full message list.
type Detail struct {
	Session  models.ChatSession
	Messages []models.ChatMessage
}

// Stats aggregates an assistant's sessions by source.
type Stats struct {
	TotalSessions int
	TotalMessages int
	BySource      map[models.SessionSource]int
}

// Service reads and deletes conversation history for one assistant.
type Service struct {
	db Store
}

func NewService(db Store) *Service {
	return &Service{db: db}
}

// List returns the assistant's sessions, most recently active first,
// each with a message count and last-message preview.
func (s *Service) List(ctx context.Context, assistantID string, source models.SessionSource, limit int) ([]Summary, error) {
	sessions, err := s.db.ListSessions(ctx, assistantID, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	summaries := make([]Summary, 0, len(sessions))
	for _, sess := range sessions {
		if source != "" && sess.Source != source {
			continue
		}
		summary := Summary{Session: sess}

		id, err := models.RecordIDString(sess.ID)
		if err != nil {
			return nil, fmt.Errorf("session id: %w", err)
		}
		messages, err := s.db.ListMessages(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("list messages: %w", err)
		}
		summary.MessageCount = len(messages)
		if len(messages) > 0 {
			last := messages[len(messages)-1]
			summary.LastMessage = &last
			summary.Preview = preview(last.Content)
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// Get returns one session with all of its messages, nil if the session
// does not exist for this assistant.
func (s *Service) Get(ctx context.Context, assistantID, sessionUUID string) (*Detail, error) {
	sess, err := s.db.GetSessionByUUID(ctx, assistantID, sessionUUID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if sess == nil {
		return nil, nil
	}

	id, err := models.RecordIDString(sess.ID)
	if err != nil {
		return nil, fmt.Errorf("session id: %w", err)
	}
	messages, err := s.db.ListMessages(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return &Detail{Session: *sess, Messages: messages}, nil
}

// Delete removes a session and its messages, scoped to the assistant.
// Returns false when no such session exists.
func (s *Service) Delete(ctx context.Context, assistantID, sessionUUID string) (bool, error) {
	sess, err := s.db.GetSessionByUUID(ctx, assistantID, sessionUUID)
	if err != nil {
		return false, fmt.Errorf("get session: %w", err)
	}
	if sess == nil {
		return false, nil
	}
	id, err := models.RecordIDString(sess.ID)
	if err != nil {
		return false, fmt.Errorf("session id: %w", err)
	}
	return s.db.DeleteSession(ctx, id)
}

// Stats summarizes session and message counts per source.
func (s *Service) Stats(ctx context.Context, assistantID string) (Stats, error) {
	sessions, err := s.db.ListSessions(ctx, assistantID, 0)
	if err != nil {
		return Stats{}, fmt.Errorf("list sessions: %w", err)
	}

	stats := Stats{BySource: map[models.SessionSource]int{}}
	for _, sess := range sessions {
		stats.TotalSessions++
		stats.BySource[sess.Source]++

		id, err := models.RecordIDString(sess.ID)
		if err != nil {
			return Stats{}, fmt.Errorf("session id: %w", err)
		}
		messages, err := s.db.ListMessages(ctx, id)
		if err != nil {
			return Stats{}, fmt.Errorf("list messages: %w", err)
		}
		stats.TotalMessages += len(messages)
	}
	return stats, nil
}

func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewLength {
		return content
	}
	return string(runes[:previewLength]) + "..."
}
