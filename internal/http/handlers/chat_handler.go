// Chat HTTP handlers.
//
// This file exposes REST endpoints for chat sessions and their messages:
//   - POST /sessions                (create a session, optionally document-linked)
//   - GET  /sessions                (list, paginated)
//   - GET  /sessions/{id}/messages  (list messages, paginated, ETag support)
//   - POST /sessions/{id}/messages  (send a message; assistant reply is async)
//
// Sending a message returns 202 with the persisted user message: the
// assistant reply does not exist yet and shows up in a later list call.
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous accepted
// submission exists for (user, session, key), the handler returns the
// recorded user message and sets `Idempotency-Replayed: true` without
// scheduling a second reply.
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/legaluplift/go-legal-backend/internal/domain"
	"github.com/legaluplift/go-legal-backend/internal/http/middleware"
	"github.com/legaluplift/go-legal-backend/internal/repo"
	"github.com/legaluplift/go-legal-backend/internal/services"
)

//
// DTOs
//

// CreateSessionRequest is the JSON payload for creating a chat session.
type CreateSessionRequest struct {
	// Title optionally names the session; a default is used when empty.
	Title string `json:"title" example:"Lease questions"`
	// DocumentID optionally links the session to one of the caller's
	// documents so replies can use its summary as context.
	DocumentID *string `json:"document_id,omitempty" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
}

// SendMessageRequest is the JSON payload for sending a user message.
type SendMessageRequest struct {
	// Content is the user prompt. It must be non-empty.
	Content string `json:"content" binding:"required,min=1" example:"What is a force majeure clause?"`
}

// SendMessageResponse is the JSON envelope for an accepted user message.
type SendMessageResponse struct {
	// Message is the persisted user message; the assistant reply follows
	// asynchronously.
	Message *domain.ChatMessage `json:"message"`
}

// ListSessionsResponse wraps a page of sessions and pagination information.
type ListSessionsResponse struct {
	Sessions   []domain.ChatSession `json:"sessions"`
	Pagination Pagination           `json:"pagination"`
}

// ListMessagesResponse contains a page of chat messages and pagination metadata.
type ListMessagesResponse struct {
	Messages   []domain.ChatMessage `json:"messages"`
	Pagination Pagination           `json:"pagination"`
}

//
// Helpers
//

// nlCollapseRE collapses runs of 3+ newlines to two, preserving paragraphs.
var nlCollapseRE = regexp.MustCompile(`\n{3,}`)

// sanitizeContent normalizes user text for consistent downstream behavior:
//   - converts CRLF/CR to LF,
//   - collapses runs of 3+ LFs to exactly two (paragraph separation),
//   - trims surrounding whitespace.
func sanitizeContent(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = nlCollapseRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

//
// Handlers
//

// CreateSession godoc
// @ID          createSession
// @Summary     Create a new chat session
// @Description Creates a chat session for the current user, optionally linked to one of their documents.
// @Tags        Chat
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "User ID"  example(user123)
// @Param       body       body    handlers.CreateSessionRequest  true  "Create session payload"
//
// @Success     201  {object}  domain.ChatSession
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Not authenticated"
// @Failure     404  {object}  handlers.ErrorResponse  "Linked document not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /sessions [post]
func (h *Handlers) CreateSession(c *gin.Context) {
	uid, authed := requireUser(c)
	if !authed {
		return
	}

	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if req.DocumentID != nil {
		if _, err := uuid.Parse(*req.DocumentID); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "document_id must be a UUID")
			return
		}
	}

	sess, err := h.chatSvc.Create(c.Request.Context(), uid, strings.TrimSpace(req.Title), req.DocumentID)
	if err != nil {
		if errors.Is(err, services.ErrDocumentNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "document not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		return
	}
	ok(c, http.StatusCreated, sess)
}

// ListSessions godoc
// @ID          listSessions
// @Summary     List chat sessions (paginated)
// @Description Returns a page of the user's chat sessions, newest first. Supports weak ETag via If-None-Match.
// @Tags        Chat
// @Produce     json
//
// @Param       X-User-ID      header  string  true  "User ID"        example(user123)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       page           query   int     false "Page number"    minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page" minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListSessionsResponse
// @Success     304  {string} string "Not Modified"
// @Failure     401  {object} handlers.ErrorResponse "Not authenticated"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /sessions [get]
func (h *Handlers) ListSessions(c *gin.Context) {
	ctx := c.Request.Context()
	uid, authed := requireUser(c)
	if !authed {
		return
	}
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	if db := h.chatDB(); db != nil {
		count, maxTS, err := repo.SessionsStats(ctx, db, uid)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"sessions:%s:%d:%d"`, uid, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.chatSvc.ListPage(ctx, uid, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListSessionsResponse{
		Sessions:   items,
		Pagination: paginationFor(page, pageSize, total),
	})
}

// ListMessages godoc
// @ID          listMessages
// @Summary     List messages in a session (paginated)
// @Description Returns a page of messages for a session owned by the current user, oldest first.
// @Tags        Chat
// @Produce     json
//
// @Param       X-User-ID      header  string  true  "User ID"           example(user123)
// @Param       id             path    string  true  "Session ID (UUID)" format(uuid)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       page           query   int     false "Page number"       minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"    minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListMessagesResponse
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     401  {object} handlers.ErrorResponse "Not authenticated"
// @Failure     404  {object} handlers.ErrorResponse "Session not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /sessions/{id}/messages [get]
func (h *Handlers) ListMessages(c *gin.Context) {
	ctx := c.Request.Context()
	uid, authed := requireUser(c)
	if !authed {
		return
	}
	sessionID := c.Param("id")
	if _, err := uuid.Parse(sessionID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "session id must be a UUID")
		return
	}
	page, pageSize := clampPagination(c)

	// ETag pre-check only makes sense once ownership is known; the service
	// re-verifies it, so a stats miss here leaks nothing.
	if db := h.chatDB(); db != nil {
		if _, err := repo.GetSession(ctx, db, sessionID, uid); err == nil {
			count, maxTS, serr := repo.MessagesStats(ctx, db, sessionID)
			if serr == nil {
				var ts int64
				if maxTS != nil {
					ts = maxTS.Unix()
				}
				etag := fmt.Sprintf(`W/"messages:%s:%d:%d"`, sessionID, count, ts)
				c.Header("ETag", etag)
				if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
					c.Status(http.StatusNotModified)
					return
				}
			}
		}
	}

	items, total, err := h.chatSvc.ListMessagesPage(ctx, uid, sessionID, page, pageSize)
	if err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "session not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListMessagesResponse{
		Messages:   items,
		Pagination: paginationFor(page, pageSize, total),
	})
}

// SendMessage godoc
// @ID          sendMessage
// @Summary     Send a message; assistant reply is generated asynchronously
// @Description Appends a user message to the session and schedules one assistant reply. Returns 202 with the persisted user message.
// @Description Supports idempotency via the Idempotency-Key header (same key → same accepted message, no second reply).
// @Tags        Chat
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  true  "User ID that owns the session"  example(user123)
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"
// @Param       id               path    string  true  "Session ID (UUID)"              format(uuid)
// @Param       body             body    handlers.SendMessageRequest  true  "User message payload"
//
// @Success     202  {object}  handlers.SendMessageResponse  "Accepted user message"
// @Failure     400  {object}  handlers.ErrorResponse        "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse        "Not authenticated"
// @Failure     404  {object}  handlers.ErrorResponse        "Session not found"
// @Failure     500  {object}  handlers.ErrorResponse        "Internal error"
// @Router      /sessions/{id}/messages [post]
func (h *Handlers) SendMessage(c *gin.Context) {
	ctx := c.Request.Context()
	uid, authed := requireUser(c)
	if !authed {
		return
	}
	sessionID := c.Param("id")
	if _, err := uuid.Parse(sessionID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "session id must be a UUID")
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		return
	}
	content := sanitizeContent(req.Content)

	// Replay path: return the previously accepted message for this key.
	db := h.chatDB()
	idemKey, hasKey := middleware.GetIdempotencyKey(c)
	if hasKey && db != nil {
		if rec, err := repo.GetIdempotency(ctx, db, uid, sessionID, idemKey, time.Now().UTC()); err == nil && rec != nil {
			if msg, merr := repo.GetMessage(db.WithContext(ctx), rec.MessageID); merr == nil {
				c.Header("Idempotency-Replayed", "true")
				ok(c, rec.Status, SendMessageResponse{Message: msg})
				return
			}
		}
	}

	msg, err := h.chatSvc.Send(ctx, uid, sessionID, content)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyPrompt):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		case errors.Is(err, services.ErrTooLong):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content too long")
		case errors.Is(err, services.ErrSessionNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "session not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeSendFailed, err.Error())
		}
		return
	}

	// Record the accepted submission for future replays (best effort).
	if hasKey && db != nil {
		ttl := h.IdempotencyTTL
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}
		if _, err := repo.CreateIdempotency(ctx, db, uid, sessionID, idemKey, msg.ID, http.StatusAccepted, ttl); err != nil && !errors.Is(err, repo.ErrDuplicate) {
			middleware.LoggerFrom(c).Warn().Err(err).Msg("idempotency record not stored")
		}
	}

	ok(c, http.StatusAccepted, SendMessageResponse{Message: msg})
}

// chatDB exposes the concrete ChatService DB handle for ETag and idempotency
// lookups; nil when a test double is installed.
func (h *Handlers) chatDB() *gorm.DB {
	if svc, okSvc := h.chatSvc.(*services.ChatService); okSvc {
		return svc.DB
	}
	return nil
}
