package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"collabtodo/internal/model"
	"collabtodo/pkg/rbac"
)

// MemberAPI is implemented by *service.MemberService.
type MemberAPI interface {
	List(ctx context.Context, callerID, projectID string) ([]model.MemberWithProfile, error)
	Invite(ctx context.Context, callerID, projectID, email string, role rbac.Role) (*model.ProjectMember, error)
	Remove(ctx context.Context, callerID, projectID, memberID string) error
	UpdateRole(ctx context.Context, callerID, projectID, memberID string, role rbac.Role) (*model.ProjectMember, error)
}

type MemberHandler struct {
	members MemberAPI
	logger  *zap.Logger
}

func NewMemberHandler(members MemberAPI, logger *zap.Logger) *MemberHandler {
	return &MemberHandler{members: members, logger: logger}
}

// List handles GET /projects/:id/members
func (h *MemberHandler) List(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	members, err := h.members.List(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}

// Invite handles POST /projects/:id/members
func (h *MemberHandler) Invite(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req struct {
		Email string    `json:"email"`
		Role  rbac.Role `json:"role"`
	}
	if !bindJSON(c, &req) {
		return
	}

	member, err := h.members.Invite(c.Request.Context(), userID, c.Param("id"), req.Email, req.Role)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.logger.Info("Member invited",
		zap.String("project_id", member.ProjectID),
		zap.String("profile_id", member.ProfileID),
		zap.String("role", string(member.Role)),
	)
	c.JSON(http.StatusCreated, member)
}

// UpdateRole handles PATCH /projects/:id/members/:memberId
func (h *MemberHandler) UpdateRole(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req struct {
		Role rbac.Role `json:"role" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}

	member, err := h.members.UpdateRole(c.Request.Context(), userID, c.Param("id"), c.Param("memberId"), req.Role)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, member)
}

// Remove handles DELETE /projects/:id/members/:memberId
func (h *MemberHandler) Remove(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	if err := h.members.Remove(c.Request.Context(), userID, c.Param("id"), c.Param("memberId")); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
