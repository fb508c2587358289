// Package db provides SurrealDB query functions for platform records.
package db

import (
	"context"
	"fmt"

	"github.com/suarabot/suarabot/internal/models"
	"github.com/surrealdb/surrealdb.go"
)

// ---------------------------------------------------------------------------
// Profiles
// ---------------------------------------------------------------------------

// CreateProfile creates a tenant profile with default quotas.
func (c *Client) CreateProfile(ctx context.Context, email string) (*models.Profile, error) {
	results, err := surrealdb.Query[[]models.Profile](ctx, c.db, `
		CREATE profile SET email = $email RETURN AFTER
	`, map[string]any{"email": email})
	if err != nil {
		return nil, fmt.Errorf("create profile: %w", wrapQueryError(err))
	}
	return firstOrErr(results, "create profile")
}

// GetProfile retrieves a profile by ID. Returns nil if not found.
func (c *Client) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	results, err := surrealdb.Query[[]models.Profile](ctx, c.db, `
		SELECT * FROM type::record("profile", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return firstOrNil(results), nil
}

// RecordProfileUsage atomically bumps the profile's request and token
// counters after a model call.
func (c *Client) RecordProfileUsage(ctx context.Context, profileID string, tokens int) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("profile", $id) SET
			api_requests_used += 1,
			tokens_used += $tokens,
			updated_at = time::now()
	`, map[string]any{"id": profileID, "tokens": tokens})
	if err != nil {
		return fmt.Errorf("record profile usage: %w", err)
	}
	return nil
}

// ResetMonthlyUsage zeroes the usage counters on every profile.
// Run from a monthly scheduled job.
func (c *Client) ResetMonthlyUsage(ctx context.Context) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE profile SET
			api_requests_used = 0,
			tokens_used = 0,
			updated_at = time::now()
	`, nil)
	if err != nil {
		return fmt.Errorf("reset monthly usage: %w", err)
	}
	return nil
}

// RecordUsageLog appends one usage log row for auditing.
func (c *Client) RecordUsageLog(ctx context.Context, log models.UsageLog) error {
	userID, err := models.RecordIDString(log.User)
	if err != nil {
		return fmt.Errorf("record usage log: %w", err)
	}
	_, err = surrealdb.Query[any](ctx, c.db, `
		CREATE usage_log SET
			user = type::record("profile", $user),
			kind = $kind,
			model = $model,
			prompt_tokens = $prompt_tokens,
			completion_tokens = $completion_tokens,
			total_tokens = $total_tokens
	`, map[string]any{
		"user":              userID,
		"kind":              log.Kind,
		"model":             log.Model,
		"prompt_tokens":     log.PromptTokens,
		"completion_tokens": log.CompletionTokens,
		"total_tokens":      log.TotalTokens,
	})
	if err != nil {
		return fmt.Errorf("record usage log: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Assistants
// ---------------------------------------------------------------------------

// AssistantInput holds fields for creating an assistant.
type AssistantInput struct {
	ProfileID          string
	BusinessType       string
	SystemInstructions string
	PreferredLanguage  string
	APIKey             string
}

// CreateAssistant creates an assistant owned by a profile.
func (c *Client) CreateAssistant(ctx context.Context, input AssistantInput) (*models.Assistant, error) {
	lang := input.PreferredLanguage
	if lang == "" {
		lang = models.LangAuto
	}
	results, err := surrealdb.Query[[]models.Assistant](ctx, c.db, `
		CREATE assistant SET
			user = type::record("profile", $user),
			business_type = $business_type,
			system_instructions = $system_instructions,
			preferred_language = $preferred_language,
			api_key = $api_key
		RETURN AFTER
	`, map[string]any{
		"user":                input.ProfileID,
		"business_type":       input.BusinessType,
		"system_instructions": input.SystemInstructions,
		"preferred_language":  lang,
		"api_key":             input.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create assistant: %w", wrapQueryError(err))
	}
	return firstOrErr(results, "create assistant")
}

// GetAssistant retrieves an assistant by ID. Returns nil if not found.
func (c *Client) GetAssistant(ctx context.Context, id string) (*models.Assistant, error) {
	results, err := surrealdb.Query[[]models.Assistant](ctx, c.db, `
		SELECT * FROM type::record("assistant", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get assistant: %w", err)
	}
	return firstOrNil(results), nil
}

// GetAssistantByAPIKey looks up an active assistant by widget API key.
// Returns nil if no active assistant matches.
func (c *Client) GetAssistantByAPIKey(ctx context.Context, apiKey string) (*models.Assistant, error) {
	results, err := surrealdb.Query[[]models.Assistant](ctx, c.db, `
		SELECT * FROM assistant WHERE api_key = $api_key AND is_active = true LIMIT 1
	`, map[string]any{"api_key": apiKey})
	if err != nil {
		return nil, fmt.Errorf("get assistant by api key: %w", err)
	}
	return firstOrNil(results), nil
}

// ---------------------------------------------------------------------------
// Knowledge items
// ---------------------------------------------------------------------------

// KnowledgeItemInput holds fields for creating a knowledge item.
type KnowledgeItemInput struct {
	AssistantID string
	Title       string
	Content     string
	SourceFile  string
	Status      models.ItemStatus
}

// CreateKnowledgeItem creates a knowledge item. Manual items start in
// processing, file uploads in uploading.
func (c *Client) CreateKnowledgeItem(ctx context.Context, input KnowledgeItemInput) (*models.KnowledgeItem, error) {
	status := input.Status
	if status == "" {
		status = models.StatusUploading
	}
	results, err := surrealdb.Query[[]models.KnowledgeItem](ctx, c.db, `
		CREATE knowledge_item SET
			assistant = type::record("assistant", $assistant),
			title = $title,
			content = $content,
			source_file = $source_file,
			status = $status
		RETURN AFTER
	`, map[string]any{
		"assistant":   input.AssistantID,
		"title":       input.Title,
		"content":     input.Content,
		"source_file": nilIfEmpty(input.SourceFile),
		"status":      string(status),
	})
	if err != nil {
		return nil, fmt.Errorf("create knowledge item: %w", wrapQueryError(err))
	}
	return firstOrErr(results, "create knowledge item")
}

// GetKnowledgeItem retrieves a knowledge item by ID. Returns nil if not found.
func (c *Client) GetKnowledgeItem(ctx context.Context, id string) (*models.KnowledgeItem, error) {
	results, err := surrealdb.Query[[]models.KnowledgeItem](ctx, c.db, `
		SELECT * FROM type::record("knowledge_item", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get knowledge item: %w", err)
	}
	return firstOrNil(results), nil
}

// ListKnowledgeItems returns all knowledge items for an assistant,
// newest first.
func (c *Client) ListKnowledgeItems(ctx context.Context, assistantID string) ([]models.KnowledgeItem, error) {
	results, err := surrealdb.Query[[]models.KnowledgeItem](ctx, c.db, `
		SELECT * FROM knowledge_item
		WHERE assistant = type::record("assistant", $assistant)
		ORDER BY created_at DESC
	`, map[string]any{"assistant": assistantID})
	if err != nil {
		return nil, fmt.Errorf("list knowledge items: %w", err)
	}
	return allOrEmpty(results), nil
}

// ListCompletedKnowledgeItems returns items ready for retrieval.
func (c *Client) ListCompletedKnowledgeItems(ctx context.Context, assistantID string) ([]models.KnowledgeItem, error) {
	results, err := surrealdb.Query[[]models.KnowledgeItem](ctx, c.db, `
		SELECT * FROM knowledge_item
		WHERE assistant = type::record("assistant", $assistant)
			AND status = "completed"
		ORDER BY created_at ASC
	`, map[string]any{"assistant": assistantID})
	if err != nil {
		return nil, fmt.Errorf("list completed knowledge items: %w", err)
	}
	return allOrEmpty(results), nil
}

// ListKnowledgeItemsByStatus returns an assistant's items in one of the
// given lifecycle states. Used by the regeneration sweep.
func (c *Client) ListKnowledgeItemsByStatus(ctx context.Context, assistantID string, statuses []models.ItemStatus) ([]models.KnowledgeItem, error) {
	vals := make([]string, len(statuses))
	for i, s := range statuses {
		vals[i] = string(s)
	}
	results, err := surrealdb.Query[[]models.KnowledgeItem](ctx, c.db, `
		SELECT * FROM knowledge_item
		WHERE assistant = type::record("assistant", $assistant)
			AND status IN $statuses
		ORDER BY created_at ASC
	`, map[string]any{"assistant": assistantID, "statuses": vals})
	if err != nil {
		return nil, fmt.Errorf("list knowledge items by status: %w", err)
	}
	return allOrEmpty(results), nil
}

// UpdateKnowledgeContent replaces an item's title and inline content and
// resets it to processing so the pipeline regenerates embeddings.
func (c *Client) UpdateKnowledgeContent(ctx context.Context, id, title, content string) (*models.KnowledgeItem, error) {
	results, err := surrealdb.Query[[]models.KnowledgeItem](ctx, c.db, `
		UPDATE type::record("knowledge_item", $id) SET
			title = $title,
			content = $content,
			status = "processing",
			embedding_file_path = "",
			chunks_count = 0,
			embeddings = NONE,
			updated_at = time::now()
		RETURN AFTER
	`, map[string]any{"id": id, "title": title, "content": content})
	if err != nil {
		return nil, fmt.Errorf("update knowledge content: %w", err)
	}
	item := firstOrNil(results)
	if item == nil {
		return nil, fmt.Errorf("update knowledge content: %w", ErrNotFound)
	}
	return item, nil
}

// UpdateEmbeddingState writes the item's lifecycle fields directly,
// without touching content. This is the only path the pipeline uses for
// status changes, so a status write can never re-trigger regeneration.
func (c *Client) UpdateEmbeddingState(ctx context.Context, item *models.KnowledgeItem) error {
	id, err := models.RecordIDString(item.ID)
	if err != nil {
		return fmt.Errorf("update embedding state: %w", err)
	}
	_, err = surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("knowledge_item", $id) SET
			status = $status,
			embedding_file_path = $embedding_file_path,
			chunks_count = $chunks_count,
			embedding_model = $embedding_model,
			updated_at = time::now()
	`, map[string]any{
		"id":                  id,
		"status":              string(item.Status),
		"embedding_file_path": item.EmbeddingFilePath,
		"chunks_count":        item.ChunksCount,
		"embedding_model":     item.EmbeddingModel,
	})
	if err != nil {
		return fmt.Errorf("update embedding state: %w", err)
	}
	return nil
}

// DeleteKnowledgeItem deletes an item row. Returns true if a record was
// deleted. The caller removes the embedding file.
func (c *Client) DeleteKnowledgeItem(ctx context.Context, id string) (bool, error) {
	results, err := surrealdb.Query[[]models.KnowledgeItem](ctx, c.db, `
		DELETE type::record("knowledge_item", $id) RETURN BEFORE
	`, map[string]any{"id": id})
	if err != nil {
		return false, fmt.Errorf("delete knowledge item: %w", err)
	}
	return firstOrNil(results) != nil, nil
}

// ListEmbeddingFilePaths returns every non-empty embedding_file_path in
// the database. Used by the orphan cleanup job.
func (c *Client) ListEmbeddingFilePaths(ctx context.Context) ([]string, error) {
	type pathRow struct {
		EmbeddingFilePath string `json:"embedding_file_path"`
	}
	results, err := surrealdb.Query[[]pathRow](ctx, c.db, `
		SELECT embedding_file_path FROM knowledge_item WHERE embedding_file_path != ""
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("list embedding file paths: %w", err)
	}

	var paths []string
	if results != nil && len(*results) > 0 {
		for _, row := range (*results)[0].Result {
			paths = append(paths, row.EmbeddingFilePath)
		}
	}
	return paths, nil
}

// ---------------------------------------------------------------------------
// QnA entries
// ---------------------------------------------------------------------------

// QnAInput is one question/answer pair for ReplaceQnAEntries.
type QnAInput struct {
	Question string
	Answer   string
}

// ReplaceQnAEntries atomically swaps an assistant's full QnA list.
// Order follows slice position.
func (c *Client) ReplaceQnAEntries(ctx context.Context, assistantID string, entries []QnAInput) error {
	rows := make([]map[string]any, len(entries))
	for i, e := range entries {
		rows[i] = map[string]any{
			"question":      e.Question,
			"answer":        e.Answer,
			"display_order": i,
		}
	}

	_, err := surrealdb.Query[any](ctx, c.db, `
		BEGIN TRANSACTION;
		DELETE qna_entry WHERE assistant = type::record("assistant", $assistant);
		FOR $row IN $rows {
			CREATE qna_entry SET
				assistant = type::record("assistant", $assistant),
				question = $row.question,
				answer = $row.answer,
				display_order = $row.display_order;
		};
		COMMIT TRANSACTION;
	`, map[string]any{"assistant": assistantID, "rows": rows})
	if err != nil {
		return fmt.Errorf("replace qna entries: %w", wrapQueryError(err))
	}
	return nil
}

// ListQnAEntries returns an assistant's QnA pairs in display order.
func (c *Client) ListQnAEntries(ctx context.Context, assistantID string) ([]models.QnAEntry, error) {
	results, err := surrealdb.Query[[]models.QnAEntry](ctx, c.db, `
		SELECT * FROM qna_entry
		WHERE assistant = type::record("assistant", $assistant)
		ORDER BY display_order ASC
	`, map[string]any{"assistant": assistantID})
	if err != nil {
		return nil, fmt.Errorf("list qna entries: %w", err)
	}
	return allOrEmpty(results), nil
}

// ---------------------------------------------------------------------------
// Chat sessions and messages
// ---------------------------------------------------------------------------

// CreateSession creates a chat session for an assistant. threadID may be
// empty (always is for voice sources).
func (c *Client) CreateSession(ctx context.Context, assistantID, sessionUUID string, source models.SessionSource, threadID string) (*models.ChatSession, error) {
	results, err := surrealdb.Query[[]models.ChatSession](ctx, c.db, `
		CREATE chat_session SET
			assistant = type::record("assistant", $assistant),
			session_id = $session_id,
			thread_id = $thread_id,
			source = $source
		RETURN AFTER
	`, map[string]any{
		"assistant":  assistantID,
		"session_id": sessionUUID,
		"thread_id":  nilIfEmpty(threadID),
		"source":     string(source),
	})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", wrapQueryError(err))
	}
	return firstOrErr(results, "create session")
}

// GetSessionByUUID finds a session by its external identifier, scoped to
// one assistant. Returns nil if not found.
func (c *Client) GetSessionByUUID(ctx context.Context, assistantID, sessionUUID string) (*models.ChatSession, error) {
	results, err := surrealdb.Query[[]models.ChatSession](ctx, c.db, `
		SELECT * FROM chat_session
		WHERE assistant = type::record("assistant", $assistant)
			AND session_id = $session_id
		LIMIT 1
	`, map[string]any{"assistant": assistantID, "session_id": sessionUUID})
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return firstOrNil(results), nil
}

// TouchSession bumps a session's updated_at so recent activity sorts first.
func (c *Client) TouchSession(ctx context.Context, sessionID string) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("chat_session", $id) SET updated_at = time::now()
	`, map[string]any{"id": sessionID})
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

// ListSessions returns an assistant's sessions, most recently active
// first.
func (c *Client) ListSessions(ctx context.Context, assistantID string, limit int) ([]models.ChatSession, error) {
	if limit <= 0 {
		limit = models.DefaultSessionLimit
	}
	results, err := surrealdb.Query[[]models.ChatSession](ctx, c.db, `
		SELECT * FROM chat_session
		WHERE assistant = type::record("assistant", $assistant)
		ORDER BY updated_at DESC
		LIMIT $limit
	`, map[string]any{"assistant": assistantID, "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return allOrEmpty(results), nil
}

// DeleteSession removes a session and all of its messages.
// Returns true if the session existed.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) (bool, error) {
	results, err := surrealdb.Query[[]models.ChatSession](ctx, c.db, `
		BEGIN TRANSACTION;
		DELETE chat_message WHERE session = type::record("chat_session", $id);
		DELETE type::record("chat_session", $id) RETURN BEFORE;
		COMMIT TRANSACTION;
	`, map[string]any{"id": sessionID})
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	if results == nil || len(*results) == 0 {
		return false, nil
	}
	last := (*results)[len(*results)-1]
	return len(last.Result) > 0, nil
}

// CreateMessage appends one message to a session.
func (c *Client) CreateMessage(ctx context.Context, sessionID, role, content string, isVoice bool) (*models.ChatMessage, error) {
	results, err := surrealdb.Query[[]models.ChatMessage](ctx, c.db, `
		CREATE chat_message SET
			session = type::record("chat_session", $session),
			role = $role,
			content = $content,
			is_voice = $is_voice
		RETURN AFTER
	`, map[string]any{
		"session":  sessionID,
		"role":     role,
		"content":  content,
		"is_voice": isVoice,
	})
	if err != nil {
		return nil, fmt.Errorf("create message: %w", wrapQueryError(err))
	}
	return firstOrErr(results, "create message")
}

// ListMessages returns a session's messages in chronological order.
func (c *Client) ListMessages(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	results, err := surrealdb.Query[[]models.ChatMessage](ctx, c.db, `
		SELECT * FROM chat_message
		WHERE session = type::record("chat_session", $session)
		ORDER BY created_at ASC
	`, map[string]any{"session": sessionID})
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return allOrEmpty(results), nil
}

// LastMessages returns the most recent n messages in chronological
// order. Used to build completion history.
func (c *Client) LastMessages(ctx context.Context, sessionID string, n int) ([]models.ChatMessage, error) {
	results, err := surrealdb.Query[[]models.ChatMessage](ctx, c.db, `
		SELECT * FROM (
			SELECT * FROM chat_message
			WHERE session = type::record("chat_session", $session)
			ORDER BY created_at DESC
			LIMIT $limit
		) ORDER BY created_at ASC
	`, map[string]any{"session": sessionID, "limit": n})
	if err != nil {
		return nil, fmt.Errorf("last messages: %w", err)
	}
	return allOrEmpty(results), nil
}

// ---------------------------------------------------------------------------
// Result helpers
// ---------------------------------------------------------------------------

func firstOrNil[T any](results *[]surrealdb.QueryResult[[]T]) *T {
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil
	}
	return &(*results)[0].Result[0]
}

func firstOrErr[T any](results *[]surrealdb.QueryResult[[]T], op string) (*T, error) {
	if v := firstOrNil(results); v != nil {
		return v, nil
	}
	return nil, fmt.Errorf("%s: no result returned", op)
}

func allOrEmpty[T any](results *[]surrealdb.QueryResult[[]T]) []T {
	if results == nil || len(*results) == 0 {
		return []T{}
	}
	return (*results)[0].Result
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
