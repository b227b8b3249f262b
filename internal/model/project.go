package model

import (
	"time"

	"collabtodo/pkg/rbac"
)

type Project struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	OwnerID     string    `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// ProjectUpdate is a partial update; nil fields are left untouched.
type ProjectUpdate struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

// Empty reports whether the update changes nothing.
func (u ProjectUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil
}

// ProjectStats are computed on read, never stored.
type ProjectStats struct {
	TotalTasks     int `json:"total_tasks"`
	CompletedTasks int `json:"completed_tasks"`
	MemberCount    int `json:"member_count"`
}

// ProjectWithStats is a project as seen by one caller.
type ProjectWithStats struct {
	Project
	ProjectStats
	UserRole rbac.Role `json:"user_role"`
	IsOwner  bool      `json:"is_owner"`
}

// MembershipProject pairs a project with the caller's membership role.
type MembershipProject struct {
	Project Project
	Role    rbac.Role
}
