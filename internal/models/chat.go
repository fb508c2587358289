package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// SessionSource tags where a chat session originated. Voice sources skip
// upstream conversation-thread allocation.
type SessionSource string

const (
	SourceTestChat      SessionSource = "test_chat"
	SourceTestVoice     SessionSource = "test_voice_realtime"
	SourceWidgetChat    SessionSource = "widget_chat"
	SourceWidgetVoice   SessionSource = "widget_voice"
	DefaultSessionLimit               = 50
)

// IsVoice reports whether the source is a realtime voice channel.
func (s SessionSource) IsVoice() bool {
	return s == SourceTestVoice || s == SourceWidgetVoice
}

// ChatSession groups an ordered sequence of messages for one assistant.
// Created lazily on first message or voice connect; deleted together
// with its messages.
type ChatSession struct {
	ID        surrealmodels.RecordID `json:"id"`
	Assistant surrealmodels.RecordID `json:"assistant"`

	// SessionID is the external identifier handed to clients.
	SessionID string `json:"session_id"`

	// ThreadID is the upstream conversation thread, when one was
	// allocated. Always empty for voice sources.
	ThreadID string `json:"thread_id,omitempty"`

	Source    SessionSource `json:"source"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one append-only message within a session.
type ChatMessage struct {
	ID      surrealmodels.RecordID `json:"id"`
	Session surrealmodels.RecordID `json:"session"`

	Role    string `json:"role"`
	Content string `json:"content"`
	IsVoice bool   `json:"is_voice"`

	CreatedAt time.Time `json:"created_at"`
}
