package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/meshflow/meshflow/backend/internal/middleware"
	"github.com/meshflow/meshflow/backend/internal/services"
	"github.com/meshflow/meshflow/backend/pkg/response"
)

type CanvasHandler struct {
	canvasService   *services.CanvasService
	autoLinkService *services.AutoLinkService
}

func NewCanvasHandler(canvas *services.CanvasService, autoLink *services.AutoLinkService) *CanvasHandler {
	return &CanvasHandler{canvasService: canvas, autoLinkService: autoLink}
}

// GET /api/workspaces/:id/nodes
func (h *CanvasHandler) ListNodes(c *gin.Context) {
	nodes, err := h.canvasService.ListNodes(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"nodes": nodes})
}

// POST /api/workspaces/:id/nodes
func (h *CanvasHandler) CreateNode(c *gin.Context) {
	var req services.CreateNodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	node, err := h.canvasService.CreateNode(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, gin.H{"node": node})
}

// PATCH /api/workspaces/:id/nodes/:nodeId
func (h *CanvasHandler) UpdateNode(c *gin.Context) {
	var req services.UpdateNodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	node, err := h.canvasService.UpdateNode(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), c.Param("nodeId"), &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"node": node})
}

// DELETE /api/workspaces/:id/nodes/:nodeId
func (h *CanvasHandler) DeleteNode(c *gin.Context) {
	if err := h.canvasService.DeleteNode(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), c.Param("nodeId")); err != nil {
		fail(c, err)
		return
	}
	response.OK(c)
}

// GET /api/workspaces/:id/edges
func (h *CanvasHandler) ListEdges(c *gin.Context) {
	edges, err := h.canvasService.ListEdges(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"edges": edges})
}

// POST /api/workspaces/:id/edges
func (h *CanvasHandler) CreateEdge(c *gin.Context) {
	var req services.CreateEdgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "sourceId and targetId are required")
		return
	}

	edge, err := h.canvasService.CreateEdge(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, gin.H{"edge": edge})
}

// DELETE /api/workspaces/:id/edges/:edgeId
func (h *CanvasHandler) DeleteEdge(c *gin.Context) {
	if err := h.canvasService.DeleteEdge(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), c.Param("edgeId")); err != nil {
		fail(c, err)
		return
	}
	response.OK(c)
}

// AutoLink queues a similarity pass over the workspace
// POST /api/workspaces/:id/autolink
func (h *CanvasHandler) AutoLink(c *gin.Context) {
	if err := h.autoLinkService.Request(c.Request.Context(), middleware.GetUserID(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	response.Accepted(c, gin.H{"queued": true})
}
