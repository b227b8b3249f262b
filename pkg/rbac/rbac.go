package rbac

import "fmt"

// Role is a membership role scoped to one project.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// Permission names an action on a project.
type Permission string

const (
	PermissionViewProject   Permission = "VIEW_PROJECT"
	PermissionEditProject   Permission = "EDIT_PROJECT"
	PermissionDeleteProject Permission = "DELETE_PROJECT"
	PermissionViewTasks     Permission = "VIEW_TASKS"
	PermissionCreateTask    Permission = "CREATE_TASK"
	PermissionEditTask      Permission = "EDIT_TASK"
	PermissionDeleteTask    Permission = "DELETE_TASK"
	PermissionViewMembers   Permission = "VIEW_MEMBERS"
	PermissionInviteMember  Permission = "INVITE_MEMBER"
	PermissionRemoveMember  Permission = "REMOVE_MEMBER"
	PermissionManageAdmins  Permission = "MANAGE_ADMINS"
)

// AllRoles lists roles from most to least privileged.
var AllRoles = []Role{RoleOwner, RoleAdmin, RoleEditor, RoleViewer}

// AllPermissions lists every permission in the table.
var AllPermissions = []Permission{
	PermissionViewProject,
	PermissionEditProject,
	PermissionDeleteProject,
	PermissionViewTasks,
	PermissionCreateTask,
	PermissionEditTask,
	PermissionDeleteTask,
	PermissionViewMembers,
	PermissionInviteMember,
	PermissionRemoveMember,
	PermissionManageAdmins,
}

// permission -> allowed roles
var permissionRoles = map[Permission][]Role{
	PermissionViewProject:   {RoleOwner, RoleAdmin, RoleEditor, RoleViewer},
	PermissionEditProject:   {RoleOwner},
	PermissionDeleteProject: {RoleOwner},
	PermissionViewTasks:     {RoleOwner, RoleAdmin, RoleEditor, RoleViewer},
	PermissionCreateTask:    {RoleOwner, RoleAdmin, RoleEditor},
	PermissionEditTask:      {RoleOwner, RoleAdmin, RoleEditor},
	PermissionDeleteTask:    {RoleOwner, RoleAdmin, RoleEditor},
	PermissionViewMembers:   {RoleOwner, RoleAdmin, RoleEditor, RoleViewer},
	PermissionInviteMember:  {RoleOwner, RoleAdmin},
	PermissionRemoveMember:  {RoleOwner, RoleAdmin},
	PermissionManageAdmins:  {RoleOwner},
}

// ValidRole reports whether r is one of the four membership roles.
func ValidRole(r Role) bool {
	for _, known := range AllRoles {
		if r == known {
			return true
		}
	}
	return false
}

// Privileged reports whether changing r requires MANAGE_ADMINS.
func Privileged(r Role) bool {
	return r == RoleOwner || r == RoleAdmin
}

// HasPermission checks whether role is in the permission's allowed set.
// Unknown roles and unknown permissions are denied.
func HasPermission(role Role, permission Permission) bool {
	roles, ok := permissionRoles[permission]
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// CheckPermission is HasPermission returning an error, for call sites that propagate.
func CheckPermission(role Role, permission Permission) error {
	if !HasPermission(role, permission) {
		return &PermissionDeniedError{
			Role:       role,
			Permission: permission,
		}
	}
	return nil
}

// Permissions returns the full permission map for role, used for UI gating.
func Permissions(role Role) map[Permission]bool {
	out := make(map[Permission]bool, len(AllPermissions))
	for _, p := range AllPermissions {
		out[p] = HasPermission(role, p)
	}
	return out
}

// PermissionDeniedError 表示权限不足的错误
type PermissionDeniedError struct {
	Role       Role
	Permission Permission
}

func (e *PermissionDeniedError) Error() string {
	if e.Role == "" {
		return fmt.Sprintf("insufficient permissions: %s requires project membership", e.Permission)
	}
	return fmt.Sprintf("insufficient permissions: role %q cannot %s", e.Role, e.Permission)
}
