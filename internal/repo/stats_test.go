package repo

import (
	"context"
	"testing"

	"github.com/legaluplift/go-legal-backend/internal/domain"
)

func TestDocumentsStats_EmptyAndPopulated(t *testing.T) {
	db := newTestDB(t, &domain.Document{})
	ctx := context.Background()

	count, ts, err := DocumentsStats(ctx, db, "u1")
	if err != nil || count != 0 || ts != nil {
		t.Fatalf("empty stats = (%d, %v, %v)", count, ts, err)
	}

	_, _ = CreateDocument(ctx, db, "u1", "a", "citizen", "f1", "x")
	_, _ = CreateDocument(ctx, db, "u1", "b", "citizen", "f2", "x")
	_, _ = CreateDocument(ctx, db, "u2", "c", "business", "f3", "x")

	count, ts, err = DocumentsStats(ctx, db, "u1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
	if ts == nil || ts.IsZero() {
		t.Fatalf("maxUpdatedAt not set: %v", ts)
	}
}

func TestSessionsStats(t *testing.T) {
	db := newTestDB(t, &domain.ChatSession{})
	ctx := context.Background()

	count, ts, err := SessionsStats(ctx, db, "u1")
	if err != nil || count != 0 || ts != nil {
		t.Fatalf("empty stats = (%d, %v, %v)", count, ts, err)
	}

	_, _ = CreateSession(ctx, db, "u1", "a", nil)
	_, _ = CreateSession(ctx, db, "u2", "b", nil)

	count, ts, err = SessionsStats(ctx, db, "u1")
	if err != nil || count != 1 || ts == nil {
		t.Fatalf("stats = (%d, %v, %v)", count, ts, err)
	}
}

func TestMessagesStats(t *testing.T) {
	db := newTestDB(t, &domain.ChatSession{}, &domain.ChatMessage{})
	ctx := context.Background()
	s, _ := CreateSession(ctx, db, "u1", "t", nil)

	count, ts, err := MessagesStats(ctx, db, s.ID)
	if err != nil || count != 0 || ts != nil {
		t.Fatalf("empty stats = (%d, %v, %v)", count, ts, err)
	}

	_, _ = CreateChatMessage(db, s.ID, domain.RoleUser, "hi")
	_, _ = CreateChatMessage(db, s.ID, domain.RoleAssistant, "hello")

	count, ts, err = MessagesStats(ctx, db, s.ID)
	if err != nil || count != 2 || ts == nil {
		t.Fatalf("stats = (%d, %v, %v)", count, ts, err)
	}
}
