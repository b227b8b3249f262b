package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"collabtodo/internal/model"
	"collabtodo/pkg/metrics"
	"collabtodo/pkg/rbac"
)

type ProjectService struct {
	projects ProjectStore
	authz    *authorizer
	logger   *zap.Logger
}

func NewProjectService(projects ProjectStore, members MemberStore, logger *zap.Logger) *ProjectService {
	return &ProjectService{
		projects: projects,
		authz:    &authorizer{projects: projects, members: members, logger: logger},
		logger:   logger,
	}
}

// ListForUser returns every project userID owns or is a member of, once
// each, with task and member counts.
func (s *ProjectService) ListForUser(ctx context.Context, userID string) ([]model.ProjectWithStats, error) {
	owned, err := s.projects.ListOwnedBy(ctx, userID)
	if err != nil {
		return nil, err
	}
	memberOf, err := s.projects.ListMemberOf(ctx, userID)
	if err != nil {
		return nil, err
	}

	merged := mergeProjects(owned, memberOf)
	if len(merged) == 0 {
		return []model.ProjectWithStats{}, nil
	}

	ids := make([]string, 0, len(merged))
	for _, mp := range merged {
		ids = append(ids, mp.Project.ID)
	}
	stats, err := s.projects.Stats(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := withStats(merged, stats)
	s.logger.Debug("Listed projects for user",
		zap.String("user_id", userID),
		zap.Int("count", len(out)),
	)
	return out, nil
}

// Get returns one project with stats as seen by callerID.
func (s *ProjectService) Get(ctx context.Context, callerID, projectID string) (*model.ProjectWithStats, error) {
	project, role, err := s.authz.authorize(ctx, callerID, projectID, rbac.PermissionViewProject)
	if err != nil {
		return nil, err
	}

	stats, err := s.projects.Stats(ctx, []string{projectID})
	if err != nil {
		return nil, err
	}
	out := withStats([]model.MembershipProject{{Project: *project, Role: role}}, stats)
	if len(out) == 0 {
		return nil, model.ErrNotFound
	}
	return &out[0], nil
}

// Create makes ownerID the owner of a new project.
func (s *ProjectService) Create(ctx context.Context, ownerID, title string, description *string) (*model.Project, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, model.NewValidationError("title", "is required")
	}

	project, err := s.projects.CreateWithOwner(ctx, &model.Project{
		Title:       title,
		Description: normalizeOptional(description),
		OwnerID:     ownerID,
	})
	if err != nil {
		return nil, err
	}

	metrics.ProjectsCreated.Inc()
	return project, nil
}

// Update applies the non-nil fields of upd. Requires EDIT_PROJECT.
func (s *ProjectService) Update(ctx context.Context, callerID, projectID string, upd model.ProjectUpdate) (*model.Project, error) {
	project, _, err := s.authz.authorize(ctx, callerID, projectID, rbac.PermissionEditProject)
	if err != nil {
		return nil, err
	}
	if upd.Empty() {
		return project, nil
	}

	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if title == "" {
			return nil, model.NewValidationError("title", "must not be empty")
		}
		project.Title = title
	}
	if upd.Description != nil {
		project.Description = normalizeOptional(upd.Description)
	}
	return s.projects.Update(ctx, project)
}

// Delete removes the project with its tasks and memberships. Requires DELETE_PROJECT.
func (s *ProjectService) Delete(ctx context.Context, callerID, projectID string) error {
	if _, _, err := s.authz.authorize(ctx, callerID, projectID, rbac.PermissionDeleteProject); err != nil {
		return err
	}
	return s.projects.Delete(ctx, projectID, callerID)
}

// ProjectRole is the caller's role and what it allows.
type ProjectRole struct {
	Role        rbac.Role                `json:"role"`
	Permissions map[rbac.Permission]bool `json:"permissions"`
}

// RoleOf reports callerID's role in projectID. Non-members get an empty
// role with every permission false.
func (s *ProjectService) RoleOf(ctx context.Context, callerID, projectID string) (*ProjectRole, error) {
	_, role, err := s.authz.roleIn(ctx, callerID, projectID)
	if err != nil {
		return nil, err
	}
	return &ProjectRole{Role: role, Permissions: rbac.Permissions(role)}, nil
}

// normalizeOptional trims s and maps blank to nil.
func normalizeOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
