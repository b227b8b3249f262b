package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"collabtodo/internal/model"
	"collabtodo/pkg/metrics"
	"collabtodo/pkg/rbac"
)

// authorizer resolves the caller's role in a project and checks it against
// the permission table before any read or write.
type authorizer struct {
	projects ProjectStore
	members  MemberStore
	logger   *zap.Logger
}

// roleIn returns the caller's role, or "" for a non-member. A missing
// project is model.ErrNotFound.
func (a *authorizer) roleIn(ctx context.Context, callerID, projectID string) (*model.Project, rbac.Role, error) {
	project, err := a.projects.Get(ctx, projectID)
	if err != nil {
		return nil, "", err
	}

	role, err := a.members.RoleOf(ctx, projectID, callerID)
	switch {
	case errors.Is(err, model.ErrNotFound):
		role = ""
	case err != nil:
		return nil, "", err
	}
	if role == "" && project.OwnerID == callerID {
		role = rbac.RoleOwner
	}
	return project, role, nil
}

// authorize returns the project and the caller's role if role grants perm.
func (a *authorizer) authorize(ctx context.Context, callerID, projectID string, perm rbac.Permission) (*model.Project, rbac.Role, error) {
	project, role, err := a.roleIn(ctx, callerID, projectID)
	if err != nil {
		return nil, "", err
	}
	if err := a.check(callerID, projectID, role, perm); err != nil {
		return nil, "", err
	}
	return project, role, nil
}

func (a *authorizer) check(callerID, projectID string, role rbac.Role, perm rbac.Permission) error {
	err := rbac.CheckPermission(role, perm)
	if err == nil {
		return nil
	}

	metrics.IncrementPermissionDenied(string(perm))
	a.logger.Info("Permission denied",
		zap.String("caller_id", callerID),
		zap.String("project_id", projectID),
		zap.String("role", string(role)),
		zap.String("permission", string(perm)),
	)
	var denied *rbac.PermissionDeniedError
	errors.As(err, &denied)
	return model.Denied(actionName(perm), denied)
}

// actionName turns EDIT_PROJECT into "edit project".
func actionName(perm rbac.Permission) string {
	return strings.ToLower(strings.ReplaceAll(string(perm), "_", " "))
}
