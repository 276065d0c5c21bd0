// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the ChatSession
// model.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/legaluplift/go-legal-backend/internal/domain"
)

// CreateSession inserts a new ChatSession row owned by userID, optionally
// linked to a document.
func CreateSession(ctx context.Context, db *gorm.DB, userID, title string, documentID *string) (*domain.ChatSession, error) {
	s := &domain.ChatSession{
		ID:         uuid.NewString(),
		UserID:     userID,
		DocumentID: documentID,
		Title:      title,
		CreatedAt:  time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

// ListSessions returns all sessions belonging to userID, newest first.
func ListSessions(ctx context.Context, db *gorm.DB, userID string) ([]domain.ChatSession, error) {
	var out []domain.ChatSession
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// CountSessions returns the total number of sessions owned by userID.
func CountSessions(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.ChatSession{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}

// ListSessionsPage returns a paginated slice of sessions for userID, newest
// first. The caller computes offset and limit.
func ListSessionsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.ChatSession, error) {
	var out []domain.ChatSession
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// GetSession fetches a session by ID and owner. If the record does not exist
// or belongs to someone else, it returns ErrNotFound.
func GetSession(ctx context.Context, db *gorm.DB, id, userID string) (*domain.ChatSession, error) {
	var s domain.ChatSession
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetSessionAny fetches a session by ID without an ownership scope. Reserved
// for the background reply worker.
func GetSessionAny(ctx context.Context, db *gorm.DB, id string) (*domain.ChatSession, error) {
	var s domain.ChatSession
	if err := db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateSessionTitle updates the title of a session identified by id. Used by
// the auto-titling step after the first user prompt.
func UpdateSessionTitle(ctx context.Context, db *gorm.DB, id, title string) error {
	res := db.WithContext(ctx).
		Model(&domain.ChatSession{}).
		Where("id = ?", id).
		Update("title", title)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
