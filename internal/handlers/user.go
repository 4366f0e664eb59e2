package handlers

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/meshflow/meshflow/backend/internal/identity"
	"github.com/meshflow/meshflow/backend/internal/middleware"
	"github.com/meshflow/meshflow/backend/internal/services"
	"github.com/meshflow/meshflow/backend/pkg/logger"
	"github.com/meshflow/meshflow/backend/pkg/response"
)

type UserHandler struct {
	accountService *services.AccountService
	authService    *services.AuthService
	sessions       identity.Strategy
}

func NewUserHandler(account *services.AccountService, auth *services.AuthService, sessions identity.Strategy) *UserHandler {
	return &UserHandler{accountService: account, authService: auth, sessions: sessions}
}

// GetProfile returns the caller's profile
// GET /api/user/profile
func (h *UserHandler) GetProfile(c *gin.Context) {
	profile, err := h.accountService.GetProfile(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"user": profile})
}

// UpdateProfile changes the display name only; other body fields are ignored
// PATCH /api/user/profile
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req services.UpdateProfileRequest
	// An empty body clears the name like an absent field does.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, "Invalid request body")
		return
	}

	profile, err := h.accountService.UpdateProfile(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"user": profile})
}

// DeleteAccount removes the caller and everything they own, then ends the session
// DELETE /api/user/account
func (h *UserHandler) DeleteAccount(c *gin.Context) {
	if err := h.accountService.DeleteAccount(c.Request.Context(), middleware.GetUserID(c)); err != nil {
		fail(c, err)
		return
	}

	// The account is gone either way; a stale Redis session resolves to no user.
	if err := h.sessions.Revoke(c.Request.Context(), c.Request); err != nil {
		logger.Warnf("failed to revoke session after account deletion: %v", err)
	}
	h.sessions.ClearCookie(c.Writer)
	response.OK(c)
}

// ChangePassword
// POST /api/user/password
func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req services.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "oldPassword and newPassword are required")
		return
	}

	if err := h.authService.ChangePassword(c.Request.Context(), middleware.GetUserID(c), &req); err != nil {
		fail(c, err)
		return
	}
	response.OK(c)
}
