package model

import (
	"time"

	"collabtodo/pkg/rbac"
)

type ProjectMember struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	ProfileID string    `json:"profile_id"`
	Role      rbac.Role `json:"role"`
	JoinedAt  time.Time `json:"joined_at"`
}

// MemberWithProfile flattens profile fields onto a membership.
type MemberWithProfile struct {
	ProjectMember
	Username  string  `json:"username"`
	Email     string  `json:"email"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}
