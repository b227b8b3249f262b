package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"collabtodo/internal/model"
	"collabtodo/internal/service"
)

// ProjectAPI is implemented by *service.ProjectService.
type ProjectAPI interface {
	ListForUser(ctx context.Context, userID string) ([]model.ProjectWithStats, error)
	Get(ctx context.Context, callerID, projectID string) (*model.ProjectWithStats, error)
	Create(ctx context.Context, ownerID, title string, description *string) (*model.Project, error)
	Update(ctx context.Context, callerID, projectID string, upd model.ProjectUpdate) (*model.Project, error)
	Delete(ctx context.Context, callerID, projectID string) error
	RoleOf(ctx context.Context, callerID, projectID string) (*service.ProjectRole, error)
}

type ProjectHandler struct {
	projects ProjectAPI
	logger   *zap.Logger
}

func NewProjectHandler(projects ProjectAPI, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{projects: projects, logger: logger}
}

// List handles GET /projects
func (h *ProjectHandler) List(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	projects, err := h.projects.ListForUser(c.Request.Context(), userID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

// Create handles POST /projects
func (h *ProjectHandler) Create(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req struct {
		Title       string  `json:"title"`
		Description *string `json:"description"`
	}
	if !bindJSON(c, &req) {
		return
	}

	project, err := h.projects.Create(c.Request.Context(), userID, req.Title, req.Description)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.logger.Info("Project created",
		zap.String("project_id", project.ID),
		zap.String("owner_id", userID),
	)
	c.JSON(http.StatusCreated, project)
}

// Get handles GET /projects/:id
func (h *ProjectHandler) Get(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	project, err := h.projects.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

// Update handles PATCH /projects/:id
func (h *ProjectHandler) Update(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req model.ProjectUpdate
	if !bindJSON(c, &req) {
		return
	}

	project, err := h.projects.Update(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

// Delete handles DELETE /projects/:id
func (h *ProjectHandler) Delete(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	if err := h.projects.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Role handles GET /projects/:id/role
func (h *ProjectHandler) Role(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	role, err := h.projects.RoleOf(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, role)
}
