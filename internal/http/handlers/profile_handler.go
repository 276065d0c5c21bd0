// Profile HTTP handlers: read and upsert per-user preferences.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/legaluplift/go-legal-backend/internal/services"
)

// SaveProfileRequest is the JSON payload for saving user preferences.
type SaveProfileRequest struct {
	// Category is the default audience used for document context.
	Category string `json:"category" binding:"required,oneof=business citizen student" example:"citizen"`
	// Theme selects the UI color scheme.
	Theme string `json:"theme" binding:"required,oneof=light dark" example:"light"`
	// Notifications toggles email notifications.
	Notifications bool `json:"notifications" example:"true"`
}

// GetProfile godoc
// @ID          getProfile
// @Summary     Get the current user's preference profile
// @Description Returns the saved profile, or 204 when the user has never saved one.
// @Tags        Profile
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "User ID"  example(user123)
//
// @Success     200  {object}  domain.UserProfile
// @Success     204  {string}  string  "No profile saved yet"
// @Failure     401  {object}  handlers.ErrorResponse  "Not authenticated"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /profile [get]
func (h *Handlers) GetProfile(c *gin.Context) {
	uid, authed := requireUser(c)
	if !authed {
		return
	}
	p, err := h.profileSvc.Get(c.Request.Context(), uid)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	if p == nil {
		noContent(c)
		return
	}
	ok(c, http.StatusOK, p)
}

// SaveProfile godoc
// @ID          saveProfile
// @Summary     Create or update the current user's preference profile
// @Description Upserts the profile: the first save creates it, later saves patch it in place.
// @Tags        Profile
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "User ID"  example(user123)
// @Param       body       body    handlers.SaveProfileRequest  true  "Profile payload"
//
// @Success     200  {object}  domain.UserProfile
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Not authenticated"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /profile [put]
func (h *Handlers) SaveProfile(c *gin.Context) {
	uid, authed := requireUser(c)
	if !authed {
		return
	}
	var req SaveProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "category (business|citizen|student) and theme (light|dark) are required")
		return
	}
	p, err := h.profileSvc.Upsert(c.Request.Context(), uid, req.Category, req.Theme, req.Notifications)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidCategory), errors.Is(err, services.ErrInvalidTheme):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeSaveFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, p)
}
