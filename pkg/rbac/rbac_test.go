package rbac

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasPermission_FullMatrix(t *testing.T) {
	allowed := map[Permission][]Role{
		PermissionViewProject:   {RoleOwner, RoleAdmin, RoleEditor, RoleViewer},
		PermissionViewTasks:     {RoleOwner, RoleAdmin, RoleEditor, RoleViewer},
		PermissionViewMembers:   {RoleOwner, RoleAdmin, RoleEditor, RoleViewer},
		PermissionEditProject:   {RoleOwner},
		PermissionDeleteProject: {RoleOwner},
		PermissionManageAdmins:  {RoleOwner},
		PermissionCreateTask:    {RoleOwner, RoleAdmin, RoleEditor},
		PermissionEditTask:      {RoleOwner, RoleAdmin, RoleEditor},
		PermissionDeleteTask:    {RoleOwner, RoleAdmin, RoleEditor},
		PermissionInviteMember:  {RoleOwner, RoleAdmin},
		PermissionRemoveMember:  {RoleOwner, RoleAdmin},
	}
	require.Len(t, allowed, 11)

	combinations := 0
	for _, perm := range AllPermissions {
		for _, role := range AllRoles {
			combinations++
			want := false
			for _, r := range allowed[perm] {
				if r == role {
					want = true
				}
			}
			t.Run(string(role)+"/"+string(perm), func(t *testing.T) {
				assert.Equal(t, want, HasPermission(role, perm))
			})
		}
	}
	assert.Equal(t, 44, combinations)
}

func TestHasPermission_UnknownInputs(t *testing.T) {
	assert.False(t, HasPermission("", PermissionViewProject))
	assert.False(t, HasPermission("superuser", PermissionViewProject))
	assert.False(t, HasPermission(RoleOwner, "LAUNCH_ROCKETS"))
}

func TestCheckPermission(t *testing.T) {
	require.NoError(t, CheckPermission(RoleEditor, PermissionCreateTask))

	err := CheckPermission(RoleViewer, PermissionCreateTask)
	var denied *PermissionDeniedError
	require.True(t, errors.As(err, &denied))
	assert.Equal(t, RoleViewer, denied.Role)
	assert.Equal(t, PermissionCreateTask, denied.Permission)
	assert.Contains(t, err.Error(), "viewer")

	err = CheckPermission("", PermissionViewTasks)
	assert.Contains(t, err.Error(), "requires project membership")
}

func TestPermissions(t *testing.T) {
	perms := Permissions(RoleAdmin)
	assert.Len(t, perms, len(AllPermissions))
	assert.True(t, perms[PermissionInviteMember])
	assert.False(t, perms[PermissionManageAdmins])
	assert.False(t, perms[PermissionDeleteProject])
}

func TestValidRole(t *testing.T) {
	for _, r := range AllRoles {
		assert.True(t, ValidRole(r), r)
	}
	assert.False(t, ValidRole("member"))
	assert.False(t, ValidRole(""))
	assert.True(t, Privileged(RoleOwner))
	assert.True(t, Privileged(RoleAdmin))
	assert.False(t, Privileged(RoleEditor))
}
