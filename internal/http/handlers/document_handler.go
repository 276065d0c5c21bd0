// Document HTTP handlers.
//
// This file exposes REST endpoints for document resources:
//   - POST /documents             (submit an upload for analysis)
//   - GET  /documents             (list, paginated, ETag support)
//   - GET  /documents/{id}        (fetch one document)
//   - PUT  /documents/{id}/notes  (save user notes)
//
// Submission returns immediately with status "uploaded"; the analysis runs in
// the background and clients observe completion by re-fetching.
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/legaluplift/go-legal-backend/internal/domain"
	"github.com/legaluplift/go-legal-backend/internal/repo"
	"github.com/legaluplift/go-legal-backend/internal/services"
)

//
// DTOs
//

// UploadDocumentRequest is the JSON payload for submitting an upload.
//
// FileID is the opaque storage handle obtained from the file store before
// this call; the API never receives document bytes. OriginalText carries the
// extracted text and may be empty, in which case a placeholder is stored.
type UploadDocumentRequest struct {
	Title        string `json:"title" binding:"required,min=1,max=255" example:"Apartment lease 2026"`
	Category     string `json:"category" binding:"required,oneof=business citizen student" example:"citizen"`
	FileID       string `json:"file_id" binding:"required" example:"store/7a8d9f4c"`
	OriginalText string `json:"original_text" example:"This lease agreement is made between..."`
}

// UpdateNotesRequest is the JSON payload for saving notes on a document.
type UpdateNotesRequest struct {
	Notes string `json:"notes" example:"Check clause 7 with the landlord"`
}

// ListDocumentsResponse wraps a page of documents and pagination information.
type ListDocumentsResponse struct {
	Documents  []domain.Document `json:"documents"`
	Pagination Pagination        `json:"pagination"`
}

//
// Handlers
//

// UploadDocument godoc
// @ID          uploadDocument
// @Summary     Submit an uploaded document for analysis
// @Description Stores the document metadata and extracted text, then schedules AI analysis in the background. The response document has status "uploaded".
// @Tags        Documents
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "User ID"  example(user123)
// @Param       body       body    handlers.UploadDocumentRequest  true  "Upload payload"
//
// @Success     201  {object}  domain.Document
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Not authenticated"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /documents [post]
func (h *Handlers) UploadDocument(c *gin.Context) {
	uid, authed := requireUser(c)
	if !authed {
		return
	}

	var req UploadDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "title, category (business|citizen|student) and file_id are required")
		return
	}

	doc, err := h.docSvc.Submit(c.Request.Context(), uid, req.Title, req.Category, req.FileID, req.OriginalText)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyTitle),
			errors.Is(err, services.ErrInvalidCategory),
			errors.Is(err, services.ErrEmptyFileID):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeUploadFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, doc)
}

// ListDocuments godoc
// @ID          listDocuments
// @Summary     List documents (paginated)
// @Description Returns a page of the user's documents, newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Documents
// @Produce     json
//
// @Param       X-User-ID      header  string  true  "User ID"                     example(user123)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListDocumentsResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     401  {object} handlers.ErrorResponse "Not authenticated"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /documents [get]
func (h *Handlers) ListDocuments(c *gin.Context) {
	ctx := c.Request.Context()
	uid, authed := requireUser(c)
	if !authed {
		return
	}
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, ok := h.docSvc.(*services.DocumentService); ok {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.DocumentsStats(ctx, db, uid)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"documents:%s:%d:%d"`, uid, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.docSvc.ListPage(ctx, uid, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListDocumentsResponse{
		Documents:  items,
		Pagination: paginationFor(page, pageSize, total),
	})
}

// GetDocument godoc
// @ID          getDocument
// @Summary     Fetch one document
// @Description Returns a single document owned by the current user, including analysis fields once status is "completed".
// @Tags        Documents
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "User ID"         example(user123)
// @Param       id         path    string  true  "Document ID (UUID)"  format(uuid)
//
// @Success     200  {object} domain.Document
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     401  {object} handlers.ErrorResponse "Not authenticated"
// @Failure     404  {object} handlers.ErrorResponse "Document not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /documents/{id} [get]
func (h *Handlers) GetDocument(c *gin.Context) {
	uid, authed := requireUser(c)
	if !authed {
		return
	}
	docID := c.Param("id")
	if _, err := uuid.Parse(docID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "document id must be a UUID")
		return
	}

	doc, err := h.docSvc.Get(c.Request.Context(), uid, docID)
	if err != nil {
		if errors.Is(err, services.ErrDocumentNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "document not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, doc)
}

// UpdateNotes godoc
// @ID          updateDocumentNotes
// @Summary     Save notes on a document
// @Description Patches the user-editable notes of a document owned by the current user. No lifecycle transition occurs.
// @Tags        Documents
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "User ID"             example(user123)
// @Param       id         path    string  true  "Document ID (UUID)"  format(uuid)
// @Param       body       body    handlers.UpdateNotesRequest  true  "Notes payload"
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     401  {object} handlers.ErrorResponse "Not authenticated"
// @Failure     404  {object} handlers.ErrorResponse "Document not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /documents/{id}/notes [put]
func (h *Handlers) UpdateNotes(c *gin.Context) {
	uid, authed := requireUser(c)
	if !authed {
		return
	}
	docID := c.Param("id")
	if _, err := uuid.Parse(docID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "document id must be a UUID")
		return
	}

	var req UpdateNotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	if err := h.docSvc.UpdateNotes(c.Request.Context(), uid, docID, strings.TrimSpace(req.Notes)); err != nil {
		if errors.Is(err, services.ErrDocumentNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "document not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeSaveFailed, err.Error())
		return
	}
	noContent(c)
}
