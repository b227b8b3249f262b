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

type MemberService struct {
	members  MemberStore
	profiles ProfileStore
	authz    *authorizer
	logger   *zap.Logger
}

func NewMemberService(members MemberStore, projects ProjectStore, profiles ProfileStore, logger *zap.Logger) *MemberService {
	return &MemberService{
		members:  members,
		profiles: profiles,
		authz:    &authorizer{projects: projects, members: members, logger: logger},
		logger:   logger,
	}
}

// List returns memberships in join order with profile fields attached.
func (s *MemberService) List(ctx context.Context, callerID, projectID string) ([]model.MemberWithProfile, error) {
	project, _, err := s.authz.authorize(ctx, callerID, projectID, rbac.PermissionViewMembers)
	if err != nil {
		return nil, err
	}

	members, err := s.members.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	profiles, err := s.profiles.GetMany(ctx, profileIDs(members))
	if err != nil {
		return nil, err
	}
	return joinMembers(members, profiles, project.OwnerID), nil
}

// Invite adds the profile registered under email to the project.
func (s *MemberService) Invite(ctx context.Context, callerID, projectID, email string, role rbac.Role) (*model.ProjectMember, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, model.NewValidationError("email", "is required")
	}
	if role == "" {
		role = rbac.RoleViewer
	}
	if !rbac.ValidRole(role) {
		return nil, model.NewValidationError("role", "must be one of owner, admin, editor, viewer")
	}

	project, callerRole, err := s.authz.authorize(ctx, callerID, projectID, rbac.PermissionInviteMember)
	if err != nil {
		s.countInvite(err)
		return nil, err
	}
	if rbac.Privileged(role) {
		if err := s.authz.check(callerID, projectID, callerRole, rbac.PermissionManageAdmins); err != nil {
			s.countInvite(err)
			return nil, err
		}
	}

	profile, err := s.profiles.GetByEmail(ctx, email)
	if errors.Is(err, model.ErrNotFound) {
		s.countInvite(model.ErrUserNotFound)
		return nil, model.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	// the primary owner may have no membership row
	if profile.ID == project.OwnerID {
		s.countInvite(model.ErrAlreadyMember)
		return nil, model.ErrAlreadyMember
	}
	if _, err := s.members.RoleOf(ctx, projectID, profile.ID); err == nil {
		s.countInvite(model.ErrAlreadyMember)
		return nil, model.ErrAlreadyMember
	} else if !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}

	member, err := s.members.Insert(ctx, &model.ProjectMember{
		ProjectID: projectID,
		ProfileID: profile.ID,
		Role:      role,
	}, callerID)
	s.countInvite(err)
	if err != nil {
		return nil, err
	}
	return member, nil
}

// Remove deletes a membership. Anyone may remove their own membership;
// removing an owner or admin needs MANAGE_ADMINS.
func (s *MemberService) Remove(ctx context.Context, callerID, projectID, memberID string) error {
	_, callerRole, err := s.authz.roleIn(ctx, callerID, projectID)
	if err != nil {
		return err
	}
	if callerRole == "" {
		return s.authz.check(callerID, projectID, callerRole, rbac.PermissionRemoveMember)
	}
	target, err := s.members.Get(ctx, projectID, memberID)
	if err != nil {
		return err
	}

	self := target.ProfileID == callerID
	if !self {
		if err := s.authz.check(callerID, projectID, callerRole, rbac.PermissionRemoveMember); err != nil {
			return err
		}
		if rbac.Privileged(target.Role) {
			if err := s.authz.check(callerID, projectID, callerRole, rbac.PermissionManageAdmins); err != nil {
				return err
			}
		}
	}

	allowPrivileged := self || rbac.HasPermission(callerRole, rbac.PermissionManageAdmins)
	_, err = s.members.Remove(ctx, projectID, memberID, callerID, allowPrivileged)
	return err
}

// UpdateRole changes a membership role. Touching owner or admin roles,
// on either side of the change, needs MANAGE_ADMINS.
func (s *MemberService) UpdateRole(ctx context.Context, callerID, projectID, memberID string, role rbac.Role) (*model.ProjectMember, error) {
	if !rbac.ValidRole(role) {
		return nil, model.NewValidationError("role", "must be one of owner, admin, editor, viewer")
	}

	_, callerRole, err := s.authz.authorize(ctx, callerID, projectID, rbac.PermissionInviteMember)
	if err != nil {
		return nil, err
	}
	target, err := s.members.Get(ctx, projectID, memberID)
	if err != nil {
		return nil, err
	}
	if rbac.Privileged(target.Role) || rbac.Privileged(role) {
		if err := s.authz.check(callerID, projectID, callerRole, rbac.PermissionManageAdmins); err != nil {
			return nil, err
		}
	}
	if target.Role == role {
		return target, nil
	}

	allowPrivileged := rbac.HasPermission(callerRole, rbac.PermissionManageAdmins)
	return s.members.UpdateRole(ctx, projectID, memberID, role, callerID, allowPrivileged)
}

func (s *MemberService) countInvite(err error) {
	switch {
	case err == nil:
		metrics.IncrementMemberInvite("invited")
	case errors.Is(err, model.ErrUserNotFound):
		metrics.IncrementMemberInvite("user_not_found")
	case errors.Is(err, model.ErrAlreadyMember):
		metrics.IncrementMemberInvite("already_member")
	case errors.Is(err, model.ErrPermissionDenied):
		metrics.IncrementMemberInvite("denied")
	}
}
