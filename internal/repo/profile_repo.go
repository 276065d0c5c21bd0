// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the UserProfile
// model, which follows upsert semantics: one row per user, created on first
// save and patched in place afterwards.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/legaluplift/go-legal-backend/internal/domain"
)

// GetProfile returns the profile for userID, or ErrNotFound when the user has
// never saved one.
func GetProfile(ctx context.Context, db *gorm.DB, userID string) (*domain.UserProfile, error) {
	var p domain.UserProfile
	if err := db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// UpsertProfile creates the profile on first save and patches category, theme,
// and notifications in place on subsequent saves.
func UpsertProfile(ctx context.Context, db *gorm.DB, userID, category, theme string, notifications bool) (*domain.UserProfile, error) {
	existing, err := GetProfile(ctx, db, userID)
	switch {
	case err == nil:
		res := db.WithContext(ctx).
			Model(&domain.UserProfile{}).
			Where("user_id = ?", userID).
			Updates(map[string]any{
				"category":      category,
				"theme":         theme,
				"notifications": notifications,
			})
		if res.Error != nil {
			return nil, res.Error
		}
		existing.Category = category
		existing.Theme = theme
		existing.Notifications = notifications
		return existing, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		p := &domain.UserProfile{
			ID:            uuid.NewString(),
			UserID:        userID,
			Category:      category,
			Theme:         theme,
			Notifications: notifications,
			CreatedAt:     time.Now().UTC(),
		}
		if err := db.WithContext(ctx).Create(p).Error; err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, err
	}
}
