// Handler wiring for the public API.
//
// Handlers are transport-thin: they validate input, call application services
// through narrow interfaces, and translate results into HTTP responses. All
// business rules (ownership, lifecycle transitions, reply scheduling) live in
// the services package.
package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/legaluplift/go-legal-backend/internal/domain"
	"github.com/legaluplift/go-legal-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// DocumentService defines document lifecycle operations consumed by HTTP
// handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type DocumentService interface {
	// Submit stores an upload and schedules its analysis.
	Submit(ctx context.Context, userID, title, category, fileID, originalText string) (*domain.Document, error)
	// Get returns one document owned by userID.
	Get(ctx context.Context, userID, documentID string) (*domain.Document, error)
	// ListPage returns a page of the user's documents and the total count.
	ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Document, int64, error)
	// UpdateNotes patches the notes of a document owned by userID.
	UpdateNotes(ctx context.Context, userID, documentID, notes string) error
}

// ChatService defines chat session and message operations consumed by HTTP
// handlers.
type ChatService interface {
	// Create starts a new session, optionally linked to a document.
	Create(ctx context.Context, userID, title string, documentID *string) (*domain.ChatSession, error)
	// ListPage returns a page of the user's sessions and the total count.
	ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.ChatSession, int64, error)
	// ListMessagesPage returns a page of messages within an owned session.
	ListMessagesPage(ctx context.Context, userID, sessionID string, page, pageSize int) ([]domain.ChatMessage, int64, error)
	// Send persists a user message and schedules the assistant reply.
	Send(ctx context.Context, userID, sessionID, content string) (*domain.ChatMessage, error)
}

// ProfileService defines user preference operations consumed by HTTP handlers.
type ProfileService interface {
	// Get returns the caller's profile, or nil when none exists.
	Get(ctx context.Context, userID string) (*domain.UserProfile, error)
	// Upsert creates or patches the caller's profile.
	Upsert(ctx context.Context, userID, category, theme string, notifications bool) (*domain.UserProfile, error)
}

// Handlers groups the HTTP endpoints for documents, chat, and profiles.
type Handlers struct {
	docSvc     DocumentService
	chatSvc    ChatService
	profileSvc ProfileService

	// IdempotencyTTL bounds how long a recorded Idempotency-Key replays the
	// original response (IDEMPOTENCY_TTL).
	IdempotencyTTL time.Duration
}

// New constructs a Handlers instance bound to the given services.
func New(docSvc DocumentService, chatSvc ChatService, profileSvc ProfileService) *Handlers {
	return &Handlers{
		docSvc:         docSvc,
		chatSvc:        chatSvc,
		profileSvc:     profileSvc,
		IdempotencyTTL: 24 * time.Hour,
	}
}

// userID extracts the authenticated user id from the Gin context (set by
// upstream middleware). If absent, it falls back to the "X-User-ID" header.
// An empty result means the request is unauthenticated.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return ""
}

// requireUser returns the caller identity or fails the request closed with a
// generic unauthenticated error.
func requireUser(c *gin.Context) (string, bool) {
	uid := userID(c)
	if uid == "" {
		fail(c, 401, ErrCodeUnauthorized, "not authenticated")
		return "", false
	}
	return uid, true
}

//
// Shared DTOs and helpers
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// paginationFor assembles the metadata block from a page fetch.
func paginationFor(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}
