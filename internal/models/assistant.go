// Package models defines data structures for the Suarabot assistant platform.
package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Language codes supported by assistants.
const (
	LangEnglish = "en"
	LangMalay   = "ms"
	LangAuto    = "auto"
)

// Assistant is one tenant's AI customer-service assistant.
// Each approved user owns exactly one.
type Assistant struct {
	ID surrealmodels.RecordID `json:"id"`

	// Owner reference (profile record)
	User surrealmodels.RecordID `json:"user"`

	BusinessType       string `json:"business_type"`
	SystemInstructions string `json:"system_instructions"`

	// PreferredLanguage selects instruction templates and the synthesized
	// voice: "en", "ms" or "auto".
	PreferredLanguage string `json:"preferred_language"`

	// APIKey authenticates widget requests for this assistant.
	APIKey string `json:"api_key"`

	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// QnAEntry is one curated question/answer pair for an assistant.
// The list is ordered and fully replaceable on regeneration; no versioning.
type QnAEntry struct {
	ID        surrealmodels.RecordID `json:"id"`
	Assistant surrealmodels.RecordID `json:"assistant"`
	Question  string                 `json:"question"`
	Answer    string                 `json:"answer"`
	Order     int                    `json:"display_order"`
	CreatedAt time.Time              `json:"created_at"`
}
