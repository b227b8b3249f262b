package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	contracts "collabtodo/contracts/mq"
	"collabtodo/internal/model"
	"collabtodo/pkg/outbox"
	"collabtodo/pkg/rbac"
	"collabtodo/pkg/trace"
	"collabtodo/pkg/util"
)

type MemberRepository struct {
	db     DB
	logger *zap.Logger
}

func NewMemberRepository(db DB, logger *zap.Logger) *MemberRepository {
	return &MemberRepository{db: db, logger: logger}
}

const memberColumns = `id, project_id, profile_id, role, joined_at`

func scanMember(row interface{ Scan(...any) error }) (*model.ProjectMember, error) {
	var m model.ProjectMember
	var role string
	if err := row.Scan(&m.ID, &m.ProjectID, &m.ProfileID, &role, &m.JoinedAt); err != nil {
		return nil, err
	}
	m.Role = rbac.Role(role)
	return &m, nil
}

// RoleOf returns the membership role of profileID in projectID, or
// ErrNotFound when there is no membership row.
func (r *MemberRepository) RoleOf(ctx context.Context, projectID, profileID string) (rbac.Role, error) {
	var role string
	err := r.db.QueryRow(ctx, `
		SELECT role FROM project_members WHERE project_id = $1 AND profile_id = $2
	`, projectID, profileID).Scan(&role)
	if err != nil {
		return "", notFound(err)
	}
	return rbac.Role(role), nil
}

func (r *MemberRepository) Get(ctx context.Context, projectID, memberID string) (*model.ProjectMember, error) {
	m, err := scanMember(r.db.QueryRow(ctx, `
		SELECT `+memberColumns+` FROM project_members WHERE project_id = $1 AND id = $2
	`, projectID, memberID))
	if err != nil {
		return nil, notFound(err)
	}
	return m, nil
}

// ListByProject returns memberships in join order.
func (r *MemberRepository) ListByProject(ctx context.Context, projectID string) ([]model.ProjectMember, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+memberColumns+`
		FROM project_members
		WHERE project_id = $1
		ORDER BY joined_at ASC, id ASC
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	var members []model.ProjectMember
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

// Insert adds a membership and queues member.invited. A second membership
// for the same profile is ErrAlreadyMember.
func (r *MemberRepository) Insert(ctx context.Context, m *model.ProjectMember, invitedBy string) (*model.ProjectMember, error) {
	var created *model.ProjectMember
	err := withTx(ctx, r.db, func(tx pgx.Tx) error {
		var err error
		created, err = scanMember(tx.QueryRow(ctx, `
			INSERT INTO project_members (id, project_id, profile_id, role)
			VALUES ($1, $2, $3, $4)
			RETURNING `+memberColumns, uuid.NewString(), m.ProjectID, m.ProfileID, string(m.Role)))
		if err != nil {
			return err
		}
		return outbox.InsertEventInTx(ctx, tx, contracts.AggregateMember, created.ID,
			contracts.RoutingKeyMemberInvited, contracts.MemberInvitedPayload{
				ProjectID: created.ProjectID,
				MemberID:  created.ID,
				ProfileID: created.ProfileID,
				Role:      string(created.Role),
				InvitedBy: invitedBy,
				TraceID:   trace.FromContext(ctx),
			})
	})
	if err != nil {
		if util.IsUniqueViolation(err) {
			return nil, model.ErrAlreadyMember
		}
		if util.IsForeignKeyViolation(err) {
			return nil, model.ErrNotFound
		}
		r.logger.Error("Failed to insert member", zap.String("project_id", m.ProjectID), zap.Error(err))
		return nil, fmt.Errorf("insert member: %w", err)
	}

	r.logger.Info("Member added",
		zap.String("project_id", created.ProjectID),
		zap.String("profile_id", created.ProfileID),
		zap.String("role", string(created.Role)),
	)
	return created, nil
}

// Remove deletes the membership. Removing the last owner fails with
// ErrLastOwner; removing the primary owner hands owner_id to the
// longest-standing remaining owner. When allowPrivileged is false an
// owner or admin membership is rejected with ErrPermissionDenied; the
// role is read under the row lock.
func (r *MemberRepository) Remove(ctx context.Context, projectID, memberID, removedBy string, allowPrivileged bool) (*model.ProjectMember, error) {
	var removed *model.ProjectMember
	err := withTx(ctx, r.db, func(tx pgx.Tx) error {
		primaryOwner, err := lockProject(ctx, tx, projectID)
		if err != nil {
			return err
		}
		removed, err = lockMember(ctx, tx, projectID, memberID)
		if err != nil {
			return err
		}
		if err := checkPrivileged(removed, allowPrivileged); err != nil {
			return err
		}
		if removed.Role == rbac.RoleOwner {
			if err := ensureAnotherOwner(ctx, tx, projectID); err != nil {
				return err
			}
		}

		if _, err := tx.Exec(ctx, `DELETE FROM project_members WHERE id = $1`, memberID); err != nil {
			return fmt.Errorf("delete member: %w", err)
		}
		if removed.ProfileID == primaryOwner {
			if err := reassignPrimaryOwner(ctx, tx, projectID); err != nil {
				return err
			}
		}

		return outbox.InsertEventInTx(ctx, tx, contracts.AggregateMember, removed.ID,
			contracts.RoutingKeyMemberRemoved, contracts.MemberRemovedPayload{
				ProjectID: projectID,
				MemberID:  removed.ID,
				ProfileID: removed.ProfileID,
				RemovedBy: removedBy,
				TraceID:   trace.FromContext(ctx),
			})
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("Member removed",
		zap.String("project_id", projectID),
		zap.String("profile_id", removed.ProfileID),
	)
	return removed, nil
}

// UpdateRole changes a membership role. Demoting the last owner fails with
// ErrLastOwner; demoting the primary owner hands owner_id to another owner.
// allowPrivileged has the same meaning as for Remove.
func (r *MemberRepository) UpdateRole(ctx context.Context, projectID, memberID string, role rbac.Role, changedBy string, allowPrivileged bool) (*model.ProjectMember, error) {
	var updated *model.ProjectMember
	var oldRole rbac.Role
	err := withTx(ctx, r.db, func(tx pgx.Tx) error {
		primaryOwner, err := lockProject(ctx, tx, projectID)
		if err != nil {
			return err
		}
		current, err := lockMember(ctx, tx, projectID, memberID)
		if err != nil {
			return err
		}
		if err := checkPrivileged(current, allowPrivileged); err != nil {
			return err
		}
		oldRole = current.Role
		demoting := oldRole == rbac.RoleOwner && role != rbac.RoleOwner
		if demoting {
			if err := ensureAnotherOwner(ctx, tx, projectID); err != nil {
				return err
			}
		}

		updated, err = scanMember(tx.QueryRow(ctx, `
			UPDATE project_members SET role = $2 WHERE id = $1
			RETURNING `+memberColumns, memberID, string(role)))
		if err != nil {
			return fmt.Errorf("update member role: %w", notFound(err))
		}
		if demoting && current.ProfileID == primaryOwner {
			if err := reassignPrimaryOwner(ctx, tx, projectID); err != nil {
				return err
			}
		}

		return outbox.InsertEventInTx(ctx, tx, contracts.AggregateMember, memberID,
			contracts.RoutingKeyMemberRoleChanged, contracts.MemberRoleChangedPayload{
				ProjectID: projectID,
				MemberID:  memberID,
				ProfileID: current.ProfileID,
				OldRole:   string(oldRole),
				NewRole:   string(role),
				ChangedBy: changedBy,
				TraceID:   trace.FromContext(ctx),
			})
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("Member role changed",
		zap.String("project_id", projectID),
		zap.String("member_id", memberID),
		zap.String("old_role", string(oldRole)),
		zap.String("new_role", string(role)),
	)
	return updated, nil
}

// lockProject serializes membership changes on one project and returns
// its primary owner.
func lockProject(ctx context.Context, tx pgx.Tx, projectID string) (string, error) {
	var ownerID string
	err := tx.QueryRow(ctx, `SELECT owner_id FROM projects WHERE id = $1 FOR UPDATE`, projectID).Scan(&ownerID)
	if err != nil {
		return "", notFound(err)
	}
	return ownerID, nil
}

func lockMember(ctx context.Context, tx pgx.Tx, projectID, memberID string) (*model.ProjectMember, error) {
	m, err := scanMember(tx.QueryRow(ctx, `
		SELECT `+memberColumns+` FROM project_members
		WHERE project_id = $1 AND id = $2
		FOR UPDATE
	`, projectID, memberID))
	if err != nil {
		return nil, notFound(err)
	}
	return m, nil
}

// checkPrivileged rejects a locked owner or admin membership when the
// caller was only cleared for editor and viewer rows.
func checkPrivileged(m *model.ProjectMember, allowPrivileged bool) error {
	if !allowPrivileged && rbac.Privileged(m.Role) {
		return fmt.Errorf("member %s is %s: %w", m.ID, m.Role, model.ErrPermissionDenied)
	}
	return nil
}

// ensureAnotherOwner counts owner memberships plus a primary owner that
// has no membership row at all.
func ensureAnotherOwner(ctx context.Context, tx pgx.Tx, projectID string) error {
	var owners int
	err := tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM (
			SELECT profile_id FROM project_members
			WHERE project_id = $1 AND role = 'owner'
			UNION
			SELECT p.owner_id FROM projects p
			WHERE p.id = $1 AND NOT EXISTS (
				SELECT 1 FROM project_members pm
				WHERE pm.project_id = p.id AND pm.profile_id = p.owner_id
			)
		) owners
	`, projectID).Scan(&owners)
	if err != nil {
		return fmt.Errorf("count owners: %w", err)
	}
	if owners <= 1 {
		return model.ErrLastOwner
	}
	return nil
}

func reassignPrimaryOwner(ctx context.Context, tx pgx.Tx, projectID string) error {
	_, err := tx.Exec(ctx, `
		UPDATE projects
		SET owner_id = (SELECT profile_id FROM project_members
		                WHERE project_id = $1 AND role = 'owner'
		                ORDER BY joined_at ASC, id ASC
		                LIMIT 1)
		WHERE id = $1
	`, projectID)
	if err != nil {
		return fmt.Errorf("reassign primary owner: %w", err)
	}
	return nil
}
