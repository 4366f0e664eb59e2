package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/meshflow/meshflow/backend/internal/identity"
	"github.com/meshflow/meshflow/backend/internal/models"
	"github.com/meshflow/meshflow/backend/internal/services"
	"github.com/meshflow/meshflow/backend/pkg/logger"
	"github.com/meshflow/meshflow/backend/pkg/response"
)

type AuthHandler struct {
	authService *services.AuthService
	sessions    identity.Strategy
}

func NewAuthHandler(auth *services.AuthService, sessions identity.Strategy) *AuthHandler {
	return &AuthHandler{authService: auth, sessions: sessions}
}

// Register creates an account and signs it in
// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "A valid email and a password are required")
		return
	}

	user, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}
	if !h.startSession(c, user) {
		return
	}
	response.Created(c, gin.H{"user": user.Profile()})
}

// Login handles user login
// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Email and password are required")
		return
	}

	user, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}
	if !h.startSession(c, user) {
		return
	}
	response.Success(c, gin.H{"user": user.Profile()})
}

// Logout revokes the session of the request, if any
// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.sessions.Revoke(c.Request.Context(), c.Request); err != nil {
		logger.Warnf("failed to revoke session: %v", err)
	}
	h.sessions.ClearCookie(c.Writer)
	response.OK(c)
}

func (h *AuthHandler) startSession(c *gin.Context, user *models.User) bool {
	token, err := h.sessions.Issue(c.Request.Context(), user.ID)
	if err != nil {
		response.Error(c, err)
		return false
	}
	h.sessions.WriteCookie(c.Writer, token)
	return true
}
