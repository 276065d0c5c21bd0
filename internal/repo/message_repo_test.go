package repo

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/legaluplift/go-legal-backend/internal/domain"
)

func seedSession(t *testing.T, db *gorm.DB, userID string) *domain.ChatSession {
	t.Helper()
	s, err := CreateSession(context.Background(), db, userID, "t", nil)
	if err != nil {
		t.Fatalf("seed session: %v", err)
	}
	return s
}

func TestCreateChatMessage_PersistsRoleAndContent(t *testing.T) {
	db := newTestDB(t, &domain.ChatSession{}, &domain.ChatMessage{})
	s := seedSession(t, db, "u1")

	m, err := CreateChatMessage(db, s.ID, domain.RoleUser, "what is escrow?")
	if err != nil {
		t.Fatalf("CreateChatMessage: %v", err)
	}
	if m.ID == "" || m.SessionID != s.ID || m.Role != domain.RoleUser || m.Content != "what is escrow?" {
		t.Fatalf("unexpected message: %+v", m)
	}

	got, err := GetMessage(db, m.ID)
	if err != nil || got.Content != "what is escrow?" {
		t.Fatalf("readback: %v %v", got, err)
	}
}

func TestListMessages_OrderedOldestFirst(t *testing.T) {
	db := newTestDB(t, &domain.ChatSession{}, &domain.ChatMessage{})
	s := seedSession(t, db, "u1")

	m1, _ := CreateChatMessage(db, s.ID, domain.RoleUser, "first")
	// Backdate m1 so ordering cannot depend on insert order alone.
	if err := db.Model(&domain.ChatMessage{}).Where("id = ?", m1.ID).
		Update("created_at", time.Now().UTC().Add(-time.Minute)).Error; err != nil {
		t.Fatalf("backdate: %v", err)
	}
	m2, _ := CreateChatMessage(db, s.ID, domain.RoleAssistant, "second")
	_, _ = CreateChatMessage(db, seedSession(t, db, "u2").ID, domain.RoleUser, "unrelated")

	out, err := ListMessages(db, s.ID, 0)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(out) != 2 || out[0].ID != m1.ID || out[1].ID != m2.ID {
		t.Fatalf("expected [first second], got %+v", out)
	}

	limited, err := ListMessages(db, s.ID, 1)
	if err != nil || len(limited) != 1 || limited[0].ID != m1.ID {
		t.Fatalf("limit=1 mismatch: %+v %v", limited, err)
	}
}

func TestListMessagesPage_And_Count(t *testing.T) {
	db := newTestDB(t, &domain.ChatSession{}, &domain.ChatMessage{})
	s := seedSession(t, db, "u1")

	ids := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		m, err := CreateChatMessage(db, s.ID, domain.RoleUser, "m")
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		// Spread timestamps so (created_at, id) ordering is deterministic.
		if err := db.Model(&domain.ChatMessage{}).Where("id = ?", m.ID).
			Update("created_at", time.Now().UTC().Add(time.Duration(i)*time.Second)).Error; err != nil {
			t.Fatalf("stamp %d: %v", i, err)
		}
		ids = append(ids, m.ID)
	}

	total, err := CountMessages(db, s.ID)
	if err != nil || total != 5 {
		t.Fatalf("CountMessages = %d, %v", total, err)
	}

	page, err := ListMessagesPage(db, s.ID, 2, 2)
	if err != nil {
		t.Fatalf("ListMessagesPage: %v", err)
	}
	if len(page) != 2 || page[0].ID != ids[2] || page[1].ID != ids[3] {
		t.Fatalf("page mismatch: %+v", page)
	}
}

func TestCountMessages_NoTableSurfacesError(t *testing.T) {
	db := newTestDB(t /* no migrations */)
	if _, err := CountMessages(db, "s1"); err == nil {
		t.Fatalf("expected error without table")
	}
}
