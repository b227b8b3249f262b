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
)

type ProjectRepository struct {
	db     DB
	logger *zap.Logger
}

func NewProjectRepository(db DB, logger *zap.Logger) *ProjectRepository {
	return &ProjectRepository{db: db, logger: logger}
}

const projectColumns = `id, title, description, owner_id, created_at`

func scanProject(row interface{ Scan(...any) error }) (*model.Project, error) {
	var p model.Project
	if err := row.Scan(&p.ID, &p.Title, &p.Description, &p.OwnerID, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateWithOwner inserts the project, the owner membership and the
// project.created event in one transaction.
func (r *ProjectRepository) CreateWithOwner(ctx context.Context, p *model.Project) (*model.Project, error) {
	r.logger.Debug("Inserting project",
		zap.String("owner_id", p.OwnerID),
		zap.String("title", p.Title),
	)

	created := *p
	created.ID = uuid.NewString()
	err := withTx(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO projects (id, title, description, owner_id)
			VALUES ($1, $2, $3, $4)
			RETURNING created_at
		`, created.ID, created.Title, created.Description, created.OwnerID).Scan(&created.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert project: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO project_members (id, project_id, profile_id, role)
			VALUES ($1, $2, $3, $4)
		`, uuid.NewString(), created.ID, created.OwnerID, string(rbac.RoleOwner))
		if err != nil {
			return fmt.Errorf("insert owner membership: %w", err)
		}

		return outbox.InsertEventInTx(ctx, tx, contracts.AggregateProject, created.ID,
			contracts.RoutingKeyProjectCreated, contracts.ProjectCreatedPayload{
				ProjectID: created.ID,
				OwnerID:   created.OwnerID,
				Title:     created.Title,
				CreatedAt: created.CreatedAt,
				TraceID:   trace.FromContext(ctx),
			})
	})
	if err != nil {
		r.logger.Error("Failed to insert project", zap.Error(err))
		return nil, err
	}

	r.logger.Info("Project inserted successfully",
		zap.String("id", created.ID),
		zap.String("owner_id", created.OwnerID),
	)
	return &created, nil
}

func (r *ProjectRepository) Get(ctx context.Context, id string) (*model.Project, error) {
	p, err := scanProject(r.db.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

// ListOwnedBy returns projects whose primary owner is profileID.
func (r *ProjectRepository) ListOwnedBy(ctx context.Context, profileID string) ([]model.Project, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+projectColumns+`
		FROM projects
		WHERE owner_id = $1
		ORDER BY created_at ASC, id ASC
	`, profileID)
	if err != nil {
		return nil, fmt.Errorf("query owned projects: %w", err)
	}
	defer rows.Close()

	var projects []model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

// ListMemberOf returns projects profileID has a membership row in, with its role.
func (r *ProjectRepository) ListMemberOf(ctx context.Context, profileID string) ([]model.MembershipProject, error) {
	rows, err := r.db.Query(ctx, `
		SELECT p.id, p.title, p.description, p.owner_id, p.created_at, m.role
		FROM project_members m
		JOIN projects p ON p.id = m.project_id
		WHERE m.profile_id = $1
		ORDER BY p.created_at ASC, p.id ASC
	`, profileID)
	if err != nil {
		return nil, fmt.Errorf("query member projects: %w", err)
	}
	defer rows.Close()

	var out []model.MembershipProject
	for rows.Next() {
		var mp model.MembershipProject
		var role string
		p := &mp.Project
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.OwnerID, &p.CreatedAt, &role); err != nil {
			return nil, fmt.Errorf("scan member project: %w", err)
		}
		mp.Role = rbac.Role(role)
		out = append(out, mp)
	}
	return out, rows.Err()
}

// Stats counts tasks, completed tasks and members for every id in one query.
// Ids that no longer exist are absent from the result.
func (r *ProjectRepository) Stats(ctx context.Context, ids []string) (map[string]model.ProjectStats, error) {
	out := make(map[string]model.ProjectStats, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := r.db.Query(ctx, `
		SELECT p.id,
		       (SELECT COUNT(*) FROM tasks t WHERE t.project_id = p.id),
		       (SELECT COUNT(*) FROM tasks t WHERE t.project_id = p.id AND t.completed),
		       (SELECT COUNT(*) FROM project_members m WHERE m.project_id = p.id)
		FROM projects p
		WHERE p.id = ANY($1::uuid[])
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("query project stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var s model.ProjectStats
		if err := rows.Scan(&id, &s.TotalTasks, &s.CompletedTasks, &s.MemberCount); err != nil {
			return nil, fmt.Errorf("scan project stats: %w", err)
		}
		out[id] = s
	}
	return out, rows.Err()
}

// Update writes title and description. A vanished row is ErrNotFound.
func (r *ProjectRepository) Update(ctx context.Context, p *model.Project) (*model.Project, error) {
	updated, err := scanProject(r.db.QueryRow(ctx, `
		UPDATE projects SET title = $2, description = $3
		WHERE id = $1
		RETURNING `+projectColumns, p.ID, p.Title, p.Description))
	if err != nil {
		return nil, notFound(err)
	}
	return updated, nil
}

// Delete removes the project; tasks and memberships cascade.
func (r *ProjectRepository) Delete(ctx context.Context, id, deletedBy string) error {
	err := withTx(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete project: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return model.ErrNotFound
		}
		return outbox.InsertEventInTx(ctx, tx, contracts.AggregateProject, id,
			contracts.RoutingKeyProjectDeleted, contracts.ProjectDeletedPayload{
				ProjectID: id,
				DeletedBy: deletedBy,
				TraceID:   trace.FromContext(ctx),
			})
	})
	if err != nil {
		return err
	}
	r.logger.Info("Project deleted", zap.String("id", id), zap.String("deleted_by", deletedBy))
	return nil
}
