package service

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"collabtodo/internal/model"
	"collabtodo/pkg/metrics"
	"collabtodo/pkg/rbac"
)

type TaskService struct {
	tasks  TaskStore
	authz  *authorizer
	logger *zap.Logger
}

func NewTaskService(tasks TaskStore, projects ProjectStore, members MemberStore, logger *zap.Logger) *TaskService {
	return &TaskService{
		tasks:  tasks,
		authz:  &authorizer{projects: projects, members: members, logger: logger},
		logger: logger,
	}
}

// List returns the project's tasks in creation order.
func (s *TaskService) List(ctx context.Context, callerID, projectID string) ([]model.Task, error) {
	if _, _, err := s.authz.authorize(ctx, callerID, projectID, rbac.PermissionViewTasks); err != nil {
		return nil, err
	}
	return s.tasks.ListByProject(ctx, projectID)
}

func (s *TaskService) Create(ctx context.Context, callerID, projectID, title string, description *string) (*model.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, model.NewValidationError("title", "is required")
	}
	if _, _, err := s.authz.authorize(ctx, callerID, projectID, rbac.PermissionCreateTask); err != nil {
		return nil, err
	}

	task, err := s.tasks.Insert(ctx, &model.Task{
		ProjectID:   projectID,
		Title:       title,
		Description: normalizeOptional(description),
	}, callerID)
	if err != nil {
		return nil, err
	}
	metrics.TasksCreated.Inc()
	return task, nil
}

// Update applies the non-nil fields of upd. Requires EDIT_TASK.
func (s *TaskService) Update(ctx context.Context, callerID, taskID string, upd model.TaskUpdate) (*model.Task, error) {
	task, err := s.authorizeTask(ctx, callerID, taskID, rbac.PermissionEditTask)
	if err != nil {
		return nil, err
	}
	if upd.Empty() {
		return task, nil
	}

	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if title == "" {
			return nil, model.NewValidationError("title", "must not be empty")
		}
		task.Title = title
	}
	if upd.Description != nil {
		task.Description = normalizeOptional(upd.Description)
	}
	if upd.Completed != nil {
		task.Completed = *upd.Completed
	}
	return s.tasks.Update(ctx, task)
}

// ToggleCompletion sets the completed flag to desired. Setting the
// current value succeeds without changing anything.
func (s *TaskService) ToggleCompletion(ctx context.Context, callerID, taskID string, desired bool) (*model.Task, error) {
	if _, err := s.authorizeTask(ctx, callerID, taskID, rbac.PermissionEditTask); err != nil {
		return nil, err
	}
	task, err := s.tasks.SetCompleted(ctx, taskID, desired)
	if err != nil {
		return nil, err
	}
	metrics.TaskCompletionToggles.WithLabelValues(strconv.FormatBool(desired)).Inc()
	return task, nil
}

func (s *TaskService) Delete(ctx context.Context, callerID, taskID string) error {
	if _, err := s.authorizeTask(ctx, callerID, taskID, rbac.PermissionDeleteTask); err != nil {
		return err
	}
	return s.tasks.Delete(ctx, taskID)
}

// authorizeTask loads the task and checks perm against its project.
func (s *TaskService) authorizeTask(ctx context.Context, callerID, taskID string, perm rbac.Permission) (*model.Task, error) {
	task, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if _, _, err := s.authz.authorize(ctx, callerID, task.ProjectID, perm); err != nil {
		return nil, err
	}
	return task, nil
}
