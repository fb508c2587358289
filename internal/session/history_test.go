package session

import (
	"context"
	"strings"
	"testing"

	"github.com/suarabot/suarabot/internal/models"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

type fakeStore struct {
	sessions []models.ChatSession
	messages map[string][]models.ChatMessage
	deleted  []string
}

func (f *fakeStore) ListSessions(ctx context.Context, assistantID string, limit int) ([]models.ChatSession, error) {
	return f.sessions, nil
}

func (f *fakeStore) GetSessionByUUID(ctx context.Context, assistantID, sessionUUID string) (*models.ChatSession, error) {
	for i := range f.sessions {
		if f.sessions[i].SessionID == sessionUUID {
			return &f.sessions[i], nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ListMessages(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	return f.messages[sessionID], nil
}

func (f *fakeStore) DeleteSession(ctx context.Context, sessionID string) (bool, error) {
	f.deleted = append(f.deleted, sessionID)
	return true, nil
}

func sessionRecord(id, uuid string, source models.SessionSource) models.ChatSession {
	return models.ChatSession{
		ID:        surrealmodels.NewRecordID("chat_session", id),
		SessionID: uuid,
		Source:    source,
	}
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions: []models.ChatSession{
			sessionRecord("s1", "uuid-1", models.SourceTestChat),
			sessionRecord("s2", "uuid-2", models.SourceWidgetVoice),
		},
		messages: map[string][]models.ChatMessage{
			"s1": {
				{Role: models.RoleUser, Content: "hello"},
				{Role: models.RoleAssistant, Content: "hi, how can I help?"},
			},
			"s2": {
				{Role: models.RoleUser, Content: strings.Repeat("x", 150), IsVoice: true},
			},
		},
	}
}

func TestListSummaries(t *testing.T) {
	svc := NewService(newFakeStore())

	got, err := svc.List(context.Background(), "a1", "", 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("summaries = %d, want 2", len(got))
	}
	if got[0].MessageCount != 2 {
		t.Errorf("message count = %d, want 2", got[0].MessageCount)
	}
	if got[0].Preview != "hi, how can I help?" {
		t.Errorf("preview = %q", got[0].Preview)
	}

	// Long previews are truncated with an ellipsis.
	if len(got[1].Preview) != 103 || !strings.HasSuffix(got[1].Preview, "...") {
		t.Errorf("long preview = %q (len %d)", got[1].Preview, len(got[1].Preview))
	}
}

func TestListSourceFilter(t *testing.T) {
	svc := NewService(newFakeStore())

	got, err := svc.List(context.Background(), "a1", models.SourceWidgetVoice, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 1 || got[0].Session.Source != models.SourceWidgetVoice {
		t.Errorf("filtered summaries = %+v", got)
	}
}

func TestGetDetail(t *testing.T) {
	svc := NewService(newFakeStore())

	detail, err := svc.Get(context.Background(), "a1", "uuid-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if detail == nil || len(detail.Messages) != 2 {
		t.Fatalf("detail = %+v", detail)
	}

	missing, err := svc.Get(context.Background(), "a1", "nope")
	if err != nil {
		t.Fatal(err)
	}
	if missing != nil {
		t.Error("unknown session should return nil")
	}
}

func TestDelete(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)

	ok, err := svc.Delete(context.Background(), "a1", "uuid-2")
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if !ok || len(store.deleted) != 1 || store.deleted[0] != "s2" {
		t.Errorf("deleted = %v", store.deleted)
	}

	ok, err = svc.Delete(context.Background(), "a1", "nope")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("deleting an unknown session should report false")
	}
}

func TestStats(t *testing.T) {
	svc := NewService(newFakeStore())

	stats, err := svc.Stats(context.Background(), "a1")
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalSessions != 2 || stats.TotalMessages != 3 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.BySource[models.SourceTestChat] != 1 || stats.BySource[models.SourceWidgetVoice] != 1 {
		t.Errorf("by source = %v", stats.BySource)
	}
}
