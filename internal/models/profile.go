package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Default monthly quotas for new profiles. Zero means unlimited.
const (
	DefaultMonthlyAPILimit   = 1000
	DefaultMonthlyTokenLimit = 50000
)

// Profile is a tenant account with usage quotas. Counters accumulate
// until an out-of-band monthly reset.
type Profile struct {
	ID surrealmodels.RecordID `json:"id"`

	Email      string `json:"email"`
	IsApproved bool   `json:"is_approved"`

	MonthlyAPILimit   int `json:"monthly_api_limit"`
	MonthlyTokenLimit int `json:"monthly_token_limit"`
	APIRequestsUsed   int `json:"api_requests_used"`
	TokensUsed        int `json:"tokens_used"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CanMakeRequest reports whether another API request fits the quota.
func (p *Profile) CanMakeRequest() bool {
	if p.MonthlyAPILimit == 0 {
		return true
	}
	return p.APIRequestsUsed < p.MonthlyAPILimit
}

// TokenLimitExceeded reports whether the token budget is exhausted.
func (p *Profile) TokenLimitExceeded() bool {
	if p.MonthlyTokenLimit == 0 {
		return false
	}
	return p.TokensUsed >= p.MonthlyTokenLimit
}

// RecordUsage increments the request counter and adds consumed tokens.
func (p *Profile) RecordUsage(tokens int) {
	p.APIRequestsUsed++
	p.TokensUsed += tokens
}

// UsageLog is one recorded model invocation for auditing.
type UsageLog struct {
	ID   surrealmodels.RecordID `json:"id"`
	User surrealmodels.RecordID `json:"user"`

	Kind             string `json:"kind"`
	Model            string `json:"model"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`

	CreatedAt time.Time `json:"created_at"`
}
