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
	"collabtodo/pkg/trace"
)

type TaskRepository struct {
	db     DB
	logger *zap.Logger
}

func NewTaskRepository(db DB, logger *zap.Logger) *TaskRepository {
	return &TaskRepository{db: db, logger: logger}
}

const taskColumns = `id, project_id, title, description, completed, created_at`

func scanTask(row interface{ Scan(...any) error }) (*model.Task, error) {
	var t model.Task
	if err := row.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Description, &t.Completed, &t.CreatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// ListByProject returns tasks in creation order.
func (r *TaskRepository) ListByProject(ctx context.Context, projectID string) ([]model.Task, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE project_id = $1
		ORDER BY created_at ASC, id ASC
	`, projectID)
	if err != nil {
		r.logger.Error("Failed to list tasks", zap.String("project_id", projectID), zap.Error(err))
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (r *TaskRepository) Get(ctx context.Context, id string) (*model.Task, error) {
	t, err := scanTask(r.db.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return t, nil
}

// Insert stores an incomplete task and queues task.created.
func (r *TaskRepository) Insert(ctx context.Context, t *model.Task, createdBy string) (*model.Task, error) {
	r.logger.Debug("Inserting task",
		zap.String("project_id", t.ProjectID),
		zap.String("title", t.Title),
	)

	var created *model.Task
	err := withTx(ctx, r.db, func(tx pgx.Tx) error {
		var err error
		created, err = scanTask(tx.QueryRow(ctx, `
			INSERT INTO tasks (id, project_id, title, description, completed)
			VALUES ($1, $2, $3, $4, FALSE)
			RETURNING `+taskColumns, uuid.NewString(), t.ProjectID, t.Title, t.Description))
		if err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
		return outbox.InsertEventInTx(ctx, tx, contracts.AggregateTask, created.ID,
			contracts.RoutingKeyTaskCreated, contracts.TaskCreatedPayload{
				TaskID:    created.ID,
				ProjectID: created.ProjectID,
				Title:     created.Title,
				CreatedBy: createdBy,
				TraceID:   trace.FromContext(ctx),
			})
	})
	if err != nil {
		r.logger.Error("Failed to insert task", zap.Error(err))
		return nil, err
	}

	r.logger.Info("Task inserted successfully",
		zap.String("id", created.ID),
		zap.String("project_id", created.ProjectID),
	)
	return created, nil
}

// Update writes title, description and completed. A vanished row is ErrNotFound.
func (r *TaskRepository) Update(ctx context.Context, t *model.Task) (*model.Task, error) {
	updated, err := scanTask(r.db.QueryRow(ctx, `
		UPDATE tasks SET title = $2, description = $3, completed = $4
		WHERE id = $1
		RETURNING `+taskColumns, t.ID, t.Title, t.Description, t.Completed))
	if err != nil {
		return nil, notFound(err)
	}
	return updated, nil
}

// SetCompleted sets the completion flag to the given value.
func (r *TaskRepository) SetCompleted(ctx context.Context, id string, completed bool) (*model.Task, error) {
	updated, err := scanTask(r.db.QueryRow(ctx, `
		UPDATE tasks SET completed = $2
		WHERE id = $1
		RETURNING `+taskColumns, id, completed))
	if err != nil {
		return nil, notFound(err)
	}
	return updated, nil
}

func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete task", zap.String("task_id", id), zap.Error(err))
		return fmt.Errorf("delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}
