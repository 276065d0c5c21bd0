package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/legaluplift/go-legal-backend/internal/domain"
)

func TestCreateSession_WithAndWithoutDocument(t *testing.T) {
	db := newTestDB(t, &domain.Document{}, &domain.ChatSession{})
	ctx := context.Background()

	s, err := CreateSession(ctx, db, "u1", "New chat", nil)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if s.ID == "" || s.UserID != "u1" || s.Title != "New chat" || s.DocumentID != nil {
		t.Fatalf("unexpected session: %+v", s)
	}

	doc, _ := CreateDocument(ctx, db, "u1", "Lease", "citizen", "f", "x")
	linked, err := CreateSession(ctx, db, "u1", "Lease questions", &doc.ID)
	if err != nil {
		t.Fatalf("CreateSession linked: %v", err)
	}
	if linked.DocumentID == nil || *linked.DocumentID != doc.ID {
		t.Fatalf("document link not stored: %+v", linked)
	}
}

func TestGetSession_ScopesByOwner(t *testing.T) {
	db := newTestDB(t, &domain.ChatSession{})
	ctx := context.Background()

	s, _ := CreateSession(ctx, db, "u1", "t", nil)

	if got, err := GetSession(ctx, db, s.ID, "u1"); err != nil || got.ID != s.ID {
		t.Fatalf("owner fetch failed: %v %v", got, err)
	}
	if _, err := GetSession(ctx, db, s.ID, "other"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign fetch should be ErrNotFound, got %v", err)
	}
	if got, err := GetSessionAny(ctx, db, s.ID); err != nil || got.UserID != "u1" {
		t.Fatalf("GetSessionAny: %v %v", got, err)
	}
}

func TestListSessions_NewestFirstAndPaged(t *testing.T) {
	db := newTestDB(t, &domain.ChatSession{})
	ctx := context.Background()

	a, _ := CreateSession(ctx, db, "u1", "older", nil)
	if err := db.Model(&domain.ChatSession{}).Where("id = ?", a.ID).
		Update("created_at", time.Now().UTC().Add(-time.Hour)).Error; err != nil {
		t.Fatalf("backdate: %v", err)
	}
	b, _ := CreateSession(ctx, db, "u1", "newer", nil)
	_, _ = CreateSession(ctx, db, "u2", "foreign", nil)

	out, err := ListSessions(ctx, db, "u1")
	if err != nil || len(out) != 2 {
		t.Fatalf("ListSessions = %d, %v", len(out), err)
	}
	if out[0].ID != b.ID {
		t.Fatalf("expected newest first")
	}

	total, err := CountSessions(ctx, db, "u1")
	if err != nil || total != 2 {
		t.Fatalf("CountSessions = %d, %v", total, err)
	}
	page, err := ListSessionsPage(ctx, db, "u1", 1, 5)
	if err != nil || len(page) != 1 || page[0].ID != a.ID {
		t.Fatalf("ListSessionsPage offset=1 mismatch: %v %v", page, err)
	}
}

func TestUpdateSessionTitle(t *testing.T) {
	db := newTestDB(t, &domain.ChatSession{})
	ctx := context.Background()

	s, _ := CreateSession(ctx, db, "u1", "New chat", nil)
	if err := UpdateSessionTitle(ctx, db, s.ID, "Deposit Rules"); err != nil {
		t.Fatalf("UpdateSessionTitle: %v", err)
	}
	got, _ := GetSessionAny(ctx, db, s.ID)
	if got.Title != "Deposit Rules" {
		t.Fatalf("title = %q", got.Title)
	}
	if err := UpdateSessionTitle(ctx, db, "missing", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing id should be ErrNotFound, got %v", err)
	}
}
