package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/meshflow/meshflow/backend/internal/middleware"
	"github.com/meshflow/meshflow/backend/internal/services"
	"github.com/meshflow/meshflow/backend/pkg/response"
)

type MemberHandler struct {
	memberService *services.MemberService
}

func NewMemberHandler(member *services.MemberService) *MemberHandler {
	return &MemberHandler{memberService: member}
}

// GET /api/workspaces/:id/members
func (h *MemberHandler) List(c *gin.Context) {
	members, err := h.memberService.List(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"members": members})
}

// POST /api/workspaces/:id/members
func (h *MemberHandler) Add(c *gin.Context) {
	var req services.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "email and role are required")
		return
	}

	member, err := h.memberService.Add(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, gin.H{"member": member})
}

// PATCH /api/workspaces/:id/members/:userId
func (h *MemberHandler) ChangeRole(c *gin.Context) {
	var req services.ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "role is required")
		return
	}

	member, err := h.memberService.ChangeRole(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), c.Param("userId"), &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"member": member})
}

// DELETE /api/workspaces/:id/members/:userId
func (h *MemberHandler) Remove(c *gin.Context) {
	if err := h.memberService.Remove(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), c.Param("userId")); err != nil {
		fail(c, err)
		return
	}
	response.OK(c)
}
