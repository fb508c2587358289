// Package quota enforces per-tenant monthly API and token limits.
package quota

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/suarabot/suarabot/internal/models"
)

// Limit kinds reported to the transport layer.
const (
	KindAPILimit   = "api_limit_exceeded"
	KindTokenLimit = "token_limit_exceeded"
)

// LimitError is a typed quota rejection carrying enough detail for the
// client UI to explain the block.
type LimitError struct {
	Kind  string
	Used  int
	Limit int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("%s: %d of %d used", e.Kind, e.Used, e.Limit)
}

// Store is the slice of the database layer the guard needs.
type Store interface {
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
	RecordProfileUsage(ctx context.Context, profileID string, tokens int) error
	RecordUsageLog(ctx context.Context, log models.UsageLog) error
}

// Guard checks quotas before model calls and records usage after them.
type Guard struct {
	db Store
}

func NewGuard(db Store) *Guard {
	return &Guard{db: db}
}

// Check returns a LimitError when the profile is over either limit.
func (g *Guard) Check(ctx context.Context, profileID string) error {
	profile, err := g.db.GetProfile(ctx, profileID)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	if !profile.CanMakeRequest() {
		return &LimitError{Kind: KindAPILimit, Used: profile.APIRequestsUsed, Limit: profile.MonthlyAPILimit}
	}
	if profile.TokenLimitExceeded() {
		return &LimitError{Kind: KindTokenLimit, Used: profile.TokensUsed, Limit: profile.MonthlyTokenLimit}
	}
	return nil
}

// Record bumps the profile counters and appends a usage-log entry. One
// call equals one API request, token counts of zero included. Recording
// failures are logged, never surfaced to the user-facing path.
func (g *Guard) Record(ctx context.Context, log models.UsageLog) {
	profileID, err := models.RecordIDString(log.User)
	if err != nil {
		slog.Warn("usage record skipped, bad profile id", "error", err)
		return
	}
	if err := g.db.RecordProfileUsage(ctx, profileID, log.TotalTokens); err != nil {
		slog.Warn("failed to update profile usage", "profile", profileID, "error", err)
	}
	if err := g.db.RecordUsageLog(ctx, log); err != nil {
		slog.Warn("failed to append usage log", "profile", profileID, "error", err)
	}
}
