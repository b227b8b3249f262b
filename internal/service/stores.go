package service

import (
	"context"

	"collabtodo/internal/model"
	"collabtodo/pkg/rbac"
)

// The repository package implements these against PostgreSQL; tests use
// in-memory fakes.

type ProjectStore interface {
	CreateWithOwner(ctx context.Context, p *model.Project) (*model.Project, error)
	Get(ctx context.Context, id string) (*model.Project, error)
	ListOwnedBy(ctx context.Context, profileID string) ([]model.Project, error)
	ListMemberOf(ctx context.Context, profileID string) ([]model.MembershipProject, error)
	Stats(ctx context.Context, ids []string) (map[string]model.ProjectStats, error)
	Update(ctx context.Context, p *model.Project) (*model.Project, error)
	Delete(ctx context.Context, id, deletedBy string) error
}

type TaskStore interface {
	ListByProject(ctx context.Context, projectID string) ([]model.Task, error)
	Get(ctx context.Context, id string) (*model.Task, error)
	Insert(ctx context.Context, t *model.Task, createdBy string) (*model.Task, error)
	Update(ctx context.Context, t *model.Task) (*model.Task, error)
	SetCompleted(ctx context.Context, id string, completed bool) (*model.Task, error)
	Delete(ctx context.Context, id string) error
}

type MemberStore interface {
	RoleOf(ctx context.Context, projectID, profileID string) (rbac.Role, error)
	Get(ctx context.Context, projectID, memberID string) (*model.ProjectMember, error)
	ListByProject(ctx context.Context, projectID string) ([]model.ProjectMember, error)
	Insert(ctx context.Context, m *model.ProjectMember, invitedBy string) (*model.ProjectMember, error)
	Remove(ctx context.Context, projectID, memberID, removedBy string, allowPrivileged bool) (*model.ProjectMember, error)
	UpdateRole(ctx context.Context, projectID, memberID string, role rbac.Role, changedBy string, allowPrivileged bool) (*model.ProjectMember, error)
}

type ProfileStore interface {
	Get(ctx context.Context, id string) (*model.Profile, error)
	GetByEmail(ctx context.Context, email string) (*model.Profile, error)
	GetMany(ctx context.Context, ids []string) (map[string]*model.Profile, error)
	Create(ctx context.Context, p *model.Profile) (*model.Profile, error)
	Update(ctx context.Context, p *model.Profile) (*model.Profile, error)
	Search(ctx context.Context, query string) ([]model.Profile, error)
}

type AccountStore interface {
	CreateWithProfile(ctx context.Context, a *model.Account) (*model.Profile, error)
	FindByEmail(ctx context.Context, email string) (*model.Account, error)
	FindByID(ctx context.Context, id string) (*model.Account, error)
	UpdateUsername(ctx context.Context, id, username string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	Delete(ctx context.Context, id string) error
}
