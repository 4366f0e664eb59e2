package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/meshflow/meshflow/backend/internal/middleware"
	"github.com/meshflow/meshflow/backend/internal/services"
	"github.com/meshflow/meshflow/backend/pkg/response"
)

type WorkspaceHandler struct {
	workspaceService *services.WorkspaceService
}

func NewWorkspaceHandler(workspace *services.WorkspaceService) *WorkspaceHandler {
	return &WorkspaceHandler{workspaceService: workspace}
}

// List returns every workspace the caller owns or belongs to
// GET /api/workspaces
func (h *WorkspaceHandler) List(c *gin.Context) {
	items, err := h.workspaceService.List(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"workspaces": items})
}

// Create
// POST /api/workspaces
func (h *WorkspaceHandler) Create(c *gin.Context) {
	var req services.CreateWorkspaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "name is required")
		return
	}

	ws, err := h.workspaceService.Create(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, gin.H{"workspace": ws})
}

// Get
// GET /api/workspaces/:id
func (h *WorkspaceHandler) Get(c *gin.Context) {
	ws, err := h.workspaceService.Get(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"workspace": ws})
}

// Update
// PATCH /api/workspaces/:id
func (h *WorkspaceHandler) Update(c *gin.Context) {
	var req services.UpdateWorkspaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	ws, err := h.workspaceService.Update(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"workspace": ws})
}

// Delete removes the workspace with its canvas, members and activity
// DELETE /api/workspaces/:id
func (h *WorkspaceHandler) Delete(c *gin.Context) {
	if err := h.workspaceService.Delete(c.Request.Context(), middleware.GetUserID(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	response.OK(c)
}
