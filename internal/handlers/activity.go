package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/meshflow/meshflow/backend/internal/middleware"
	"github.com/meshflow/meshflow/backend/internal/rbac"
	"github.com/meshflow/meshflow/backend/internal/services"
	"github.com/meshflow/meshflow/backend/pkg/response"
)

type ActivityHandler struct {
	accessService   *services.AccessService
	activityService *services.ActivityService
}

func NewActivityHandler(access *services.AccessService, activity *services.ActivityService) *ActivityHandler {
	return &ActivityHandler{accessService: access, activityService: activity}
}

// List returns the newest activity entries of a workspace. A missing or
// malformed limit falls back to the default.
// GET /api/workspaces/:id/activity?limit=N
func (h *ActivityHandler) List(c *gin.Context) {
	workspaceID := c.Param("id")
	if _, err := h.accessService.RequireAction(c.Request.Context(), middleware.GetUserID(c), workspaceID, rbac.ActionRead); err != nil {
		fail(c, err)
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	items, err := h.activityService.List(c.Request.Context(), workspaceID, limit)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"activities": items})
}
