// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Document
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a document is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// Ownership: every read or mutation that serves a user request takes the
// caller's userID and scopes the query to it, so a mismatched owner is
// indistinguishable from a missing row. Only the lifecycle worker uses the
// unscoped GetDocumentAny / status helpers.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/legaluplift/go-legal-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateDocument inserts a new Document row owned by userID in the
// "uploaded" state. The document ID is a randomly generated UUID and
// CreatedAt is set to UTC.
func CreateDocument(ctx context.Context, db *gorm.DB, userID, title, category, fileID, originalText string) (*domain.Document, error) {
	d := &domain.Document{
		ID:           uuid.NewString(),
		UserID:       userID,
		Title:        title,
		Category:     category,
		FileID:       fileID,
		OriginalText: originalText,
		Status:       domain.StatusUploaded,
		CreatedAt:    time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(d).Error; err != nil {
		return nil, err
	}
	return d, nil
}

// ListDocuments returns all documents belonging to userID, ordered by
// creation time descending (most recent first).
func ListDocuments(ctx context.Context, db *gorm.DB, userID string) ([]domain.Document, error) {
	var out []domain.Document
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// CountDocuments returns the total number of documents owned by userID.
func CountDocuments(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Document{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}

// ListDocumentsPage returns a paginated slice of documents for userID,
// ordered by creation time descending. The caller computes offset and limit.
func ListDocumentsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Document, error) {
	var out []domain.Document
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// GetDocument fetches a single document by its ID and owner (userID). If the
// record does not exist or belongs to someone else, it returns ErrNotFound.
func GetDocument(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Document, error) {
	var d domain.Document
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&d).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// GetDocumentAny fetches a document by ID without an ownership scope. It is
// reserved for the background lifecycle worker, which operates on documents
// it was handed by Submit rather than on behalf of a caller.
func GetDocumentAny(ctx context.Context, db *gorm.DB, id string) (*domain.Document, error) {
	var d domain.Document
	if err := db.WithContext(ctx).Where("id = ?", id).First(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

// UpdateDocumentStatus sets only the status column of a document. Used for
// the uploaded → processing transition and for the revert path on analysis
// failure. Returns ErrNotFound when no row matches.
func UpdateDocumentStatus(ctx context.Context, db *gorm.DB, id, status string) error {
	res := db.WithContext(ctx).
		Model(&domain.Document{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateDocumentAnalysis writes all four analysis fields together with the
// "completed" status in one UPDATE statement, so readers never observe a
// partially analyzed document.
func UpdateDocumentAnalysis(ctx context.Context, db *gorm.DB, id, summary string, keyPoints []string, riskLevel string, glossary []domain.GlossaryTerm) error {
	res := db.WithContext(ctx).
		Model(&domain.Document{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"summary":        summary,
			"key_points":     domain.StringList(keyPoints),
			"risk_level":     riskLevel,
			"glossary_terms": domain.GlossaryTerms(glossary),
			"status":         domain.StatusCompleted,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateDocumentNotes patches the notes column of a document owned by userID.
// If no rows are affected (document missing or owned by someone else), it
// returns ErrNotFound.
func UpdateDocumentNotes(ctx context.Context, db *gorm.DB, id, userID, notes string) error {
	res := db.WithContext(ctx).
		Model(&domain.Document{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("notes", notes)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
