package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"collabtodo/internal/model"
)

// TaskAPI is implemented by *service.TaskService.
type TaskAPI interface {
	List(ctx context.Context, callerID, projectID string) ([]model.Task, error)
	Create(ctx context.Context, callerID, projectID, title string, description *string) (*model.Task, error)
	Update(ctx context.Context, callerID, taskID string, upd model.TaskUpdate) (*model.Task, error)
	ToggleCompletion(ctx context.Context, callerID, taskID string, desired bool) (*model.Task, error)
	Delete(ctx context.Context, callerID, taskID string) error
}

type TaskHandler struct {
	tasks  TaskAPI
	logger *zap.Logger
}

func NewTaskHandler(tasks TaskAPI, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{tasks: tasks, logger: logger}
}

// List handles GET /projects/:id/tasks
func (h *TaskHandler) List(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	tasks, err := h.tasks.List(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// Create handles POST /projects/:id/tasks
func (h *TaskHandler) Create(c *gin.Context) {
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

	task, err := h.tasks.Create(c.Request.Context(), userID, c.Param("id"), req.Title, req.Description)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

// Update handles PATCH /tasks/:id
func (h *TaskHandler) Update(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req model.TaskUpdate
	if !bindJSON(c, &req) {
		return
	}

	task, err := h.tasks.Update(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// SetCompletion handles PUT /tasks/:id/completion
func (h *TaskHandler) SetCompletion(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req struct {
		Completed *bool `json:"completed" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}

	task, err := h.tasks.ToggleCompletion(c.Request.Context(), userID, c.Param("id"), *req.Completed)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// Delete handles DELETE /tasks/:id
func (h *TaskHandler) Delete(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	if err := h.tasks.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
