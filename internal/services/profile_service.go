// Package services – ProfileService
//
// This file implements ProfileService, which manages per-user preference
// profiles with upsert semantics: the first save creates the row, later saves
// patch it in place.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/legaluplift/go-legal-backend/internal/domain"
	"github.com/legaluplift/go-legal-backend/internal/repo"
)

// ProfileService provides read and upsert operations for user profiles.
type ProfileService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// NewProfileService constructs a ProfileService.
func NewProfileService(db *gorm.DB) *ProfileService {
	return &ProfileService{DB: db}
}

// Get returns the caller's profile, or (nil, nil) when none has been saved
// yet. Absence is an ordinary state here, not an error.
func (s *ProfileService) Get(ctx context.Context, userID string) (*domain.UserProfile, error) {
	p, err := repo.GetProfile(ctx, s.DB, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return p, err
}

// Upsert validates and saves the caller's preferences, creating the profile
// on first save.
func (s *ProfileService) Upsert(ctx context.Context, userID, category, theme string, notifications bool) (*domain.UserProfile, error) {
	if !domain.ValidCategory(category) {
		return nil, ErrInvalidCategory
	}
	if theme != "light" && theme != "dark" {
		return nil, ErrInvalidTheme
	}
	return repo.UpsertProfile(ctx, s.DB, userID, category, theme, notifications)
}
