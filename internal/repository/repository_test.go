package repository

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"collabtodo/internal/model"
	"collabtodo/pkg/rbac"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock
}

var (
	now           = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	memberCols    = []string{"id", "project_id", "profile_id", "role", "joined_at"}
	outboxRetCols = []string{"id", "created_at", "updated_at"}
)

func expectOutbox(mock pgxmock.PgxPoolIface) {
	mock.ExpectQuery("INSERT INTO outbox_events").
		WillReturnRows(pgxmock.NewRows(outboxRetCols).AddRow(int64(1), now, now))
}

func TestProjectRepository_CreateWithOwner(t *testing.T) {
	mock := newMock(t)
	repo := NewProjectRepository(mock, zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO projects").
		WithArgs(pgxmock.AnyArg(), "Groceries", pgxmock.AnyArg(), "u1").
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(now))
	mock.ExpectExec("INSERT INTO project_members").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "u1", "owner").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	expectOutbox(mock)
	mock.ExpectCommit()

	p, err := repo.CreateWithOwner(context.Background(), &model.Project{Title: "Groceries", OwnerID: "u1"})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "u1", p.OwnerID)
	assert.Equal(t, now, p.CreatedAt)
}

func TestProjectRepository_CreateRollsBackOnMembershipFailure(t *testing.T) {
	mock := newMock(t)
	repo := NewProjectRepository(mock, zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO projects").
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(now))
	mock.ExpectExec("INSERT INTO project_members").
		WillReturnError(&pgconn.PgError{Code: "23503"})
	mock.ExpectRollback()

	_, err := repo.CreateWithOwner(context.Background(), &model.Project{Title: "Groceries", OwnerID: "u1"})
	assert.Error(t, err)
}

func TestProjectRepository_ListMemberOf(t *testing.T) {
	mock := newMock(t)
	repo := NewProjectRepository(mock, zap.NewNop())

	desc := "weekly"
	mock.ExpectQuery("FROM project_members m").
		WithArgs("u2").
		WillReturnRows(pgxmock.NewRows([]string{"id", "title", "description", "owner_id", "created_at", "role"}).
			AddRow("p1", "Groceries", &desc, "u1", now, "editor").
			AddRow("p2", "Trip", nil, "u3", now.Add(time.Hour), "viewer"))

	got, err := repo.ListMemberOf(context.Background(), "u2")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, rbac.RoleEditor, got[0].Role)
	assert.Equal(t, "weekly", *got[0].Project.Description)
	assert.Nil(t, got[1].Project.Description)
}

func TestProjectRepository_Stats(t *testing.T) {
	mock := newMock(t)
	repo := NewProjectRepository(mock, zap.NewNop())

	mock.ExpectQuery("FROM projects p").
		WithArgs([]string{"p1", "p2"}).
		WillReturnRows(pgxmock.NewRows([]string{"id", "total", "completed", "members"}).
			AddRow("p1", 3, 1, 2))

	stats, err := repo.Stats(context.Background(), []string{"p1", "p2"})
	require.NoError(t, err)
	assert.Equal(t, model.ProjectStats{TotalTasks: 3, CompletedTasks: 1, MemberCount: 2}, stats["p1"])
	_, ok := stats["p2"]
	assert.False(t, ok)

	empty, err := repo.Stats(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestProjectRepository_DeleteMissing(t *testing.T) {
	mock := newMock(t)
	repo := NewProjectRepository(mock, zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM projects").
		WithArgs("p1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectRollback()

	assert.ErrorIs(t, repo.Delete(context.Background(), "p1", "u1"), model.ErrNotFound)
}

func TestMemberRepository_InsertDuplicate(t *testing.T) {
	mock := newMock(t)
	repo := NewMemberRepository(mock, zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO project_members").
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	_, err := repo.Insert(context.Background(),
		&model.ProjectMember{ProjectID: "p1", ProfileID: "u2", Role: rbac.RoleViewer}, "u1")
	assert.ErrorIs(t, err, model.ErrAlreadyMember)
}

func TestMemberRepository_RemoveLastOwner(t *testing.T) {
	mock := newMock(t)
	repo := NewMemberRepository(mock, zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT owner_id FROM projects").
		WithArgs("p1").
		WillReturnRows(pgxmock.NewRows([]string{"owner_id"}).AddRow("u1"))
	mock.ExpectQuery("FROM project_members").
		WithArgs("p1", "m1").
		WillReturnRows(pgxmock.NewRows(memberCols).AddRow("m1", "p1", "u1", "owner", now))
	mock.ExpectQuery("SELECT COUNT").
		WithArgs("p1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	_, err := repo.Remove(context.Background(), "p1", "m1", "u1", true)
	assert.ErrorIs(t, err, model.ErrLastOwner)
}

func TestMemberRepository_RemovePrimaryOwnerReassigns(t *testing.T) {
	mock := newMock(t)
	repo := NewMemberRepository(mock, zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT owner_id FROM projects").
		WillReturnRows(pgxmock.NewRows([]string{"owner_id"}).AddRow("u1"))
	mock.ExpectQuery("FROM project_members").
		WillReturnRows(pgxmock.NewRows(memberCols).AddRow("m1", "p1", "u1", "owner", now))
	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectExec("DELETE FROM project_members").
		WithArgs("m1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("UPDATE projects").
		WithArgs("p1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	expectOutbox(mock)
	mock.ExpectCommit()

	removed, err := repo.Remove(context.Background(), "p1", "m1", "u1", true)
	require.NoError(t, err)
	assert.Equal(t, "u1", removed.ProfileID)
}

func TestMemberRepository_RemoveMissingProject(t *testing.T) {
	mock := newMock(t)
	repo := NewMemberRepository(mock, zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT owner_id FROM projects").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.Remove(context.Background(), "p1", "m1", "u1", true)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestMemberRepository_PromoteSkipsOwnerCheck(t *testing.T) {
	mock := newMock(t)
	repo := NewMemberRepository(mock, zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT owner_id FROM projects").
		WillReturnRows(pgxmock.NewRows([]string{"owner_id"}).AddRow("u1"))
	mock.ExpectQuery("FROM project_members").
		WillReturnRows(pgxmock.NewRows(memberCols).AddRow("m2", "p1", "u2", "viewer", now))
	mock.ExpectQuery("UPDATE project_members").
		WithArgs("m2", "editor").
		WillReturnRows(pgxmock.NewRows(memberCols).AddRow("m2", "p1", "u2", "editor", now))
	expectOutbox(mock)
	mock.ExpectCommit()

	m, err := repo.UpdateRole(context.Background(), "p1", "m2", rbac.RoleEditor, "u1", false)
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleEditor, m.Role)
}

func TestMemberRepository_RoleOfNonMember(t *testing.T) {
	mock := newMock(t)
	repo := NewMemberRepository(mock, zap.NewNop())

	mock.ExpectQuery("SELECT role FROM project_members").
		WithArgs("p1", "u9").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.RoleOf(context.Background(), "p1", "u9")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestMalformedIDsAreNotFound(t *testing.T) {
	badUUID := &pgconn.PgError{Code: "22P02", Message: `invalid input syntax for type uuid: "abc"`}

	t.Run("project", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery("FROM projects WHERE id").
			WithArgs("abc").
			WillReturnError(badUUID)

		_, err := NewProjectRepository(mock, zap.NewNop()).Get(context.Background(), "abc")
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("task", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery("FROM tasks WHERE id").
			WithArgs("abc").
			WillReturnError(badUUID)

		_, err := NewTaskRepository(mock, zap.NewNop()).Get(context.Background(), "abc")
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("member", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery("FROM project_members").
			WithArgs("p1", "abc").
			WillReturnError(badUUID)

		_, err := NewMemberRepository(mock, zap.NewNop()).Get(context.Background(), "p1", "abc")
		assert.ErrorIs(t, err, model.ErrNotFound)
	})
}

func TestMemberRepository_UpdateRoleRejectsPrivilegedRow(t *testing.T) {
	mock := newMock(t)
	repo := NewMemberRepository(mock, zap.NewNop())

	// the row was promoted to admin after the caller's permission check
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT owner_id FROM projects").
		WillReturnRows(pgxmock.NewRows([]string{"owner_id"}).AddRow("u1"))
	mock.ExpectQuery("FROM project_members").
		WithArgs("p1", "m2").
		WillReturnRows(pgxmock.NewRows(memberCols).AddRow("m2", "p1", "u2", "admin", now))
	mock.ExpectRollback()

	_, err := repo.UpdateRole(context.Background(), "p1", "m2", rbac.RoleViewer, "u3", false)
	assert.ErrorIs(t, err, model.ErrPermissionDenied)
}

func TestMemberRepository_RemoveRejectsPrivilegedRow(t *testing.T) {
	mock := newMock(t)
	repo := NewMemberRepository(mock, zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT owner_id FROM projects").
		WillReturnRows(pgxmock.NewRows([]string{"owner_id"}).AddRow("u1"))
	mock.ExpectQuery("FROM project_members").
		WillReturnRows(pgxmock.NewRows(memberCols).AddRow("m1", "p1", "u1", "owner", now))
	mock.ExpectRollback()

	_, err := repo.Remove(context.Background(), "p1", "m1", "u3", false)
	assert.ErrorIs(t, err, model.ErrPermissionDenied)
}

func TestMemberRepository_OwnerCountIncludesOwnerWithoutMembership(t *testing.T) {
	mock := newMock(t)
	repo := NewMemberRepository(mock, zap.NewNop())

	// u1 owns the project through owner_id only; u2 is the sole owner row
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT owner_id FROM projects").
		WillReturnRows(pgxmock.NewRows([]string{"owner_id"}).AddRow("u1"))
	mock.ExpectQuery("FROM project_members").
		WithArgs("p1", "m2").
		WillReturnRows(pgxmock.NewRows(memberCols).AddRow("m2", "p1", "u2", "owner", now))
	mock.ExpectQuery(`(?s)SELECT COUNT.*UNION.*p\.owner_id.*NOT EXISTS`).
		WithArgs("p1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectExec("DELETE FROM project_members").
		WithArgs("m2").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	expectOutbox(mock)
	mock.ExpectCommit()

	removed, err := repo.Remove(context.Background(), "p1", "m2", "u1", true)
	require.NoError(t, err)
	assert.Equal(t, "u2", removed.ProfileID)
}

func TestTaskRepository_SetCompletedVanished(t *testing.T) {
	mock := newMock(t)
	repo := NewTaskRepository(mock, zap.NewNop())

	mock.ExpectQuery("UPDATE tasks SET completed").
		WithArgs("t1", true).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.SetCompleted(context.Background(), "t1", true)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestTaskRepository_ListByProjectEmpty(t *testing.T) {
	mock := newMock(t)
	repo := NewTaskRepository(mock, zap.NewNop())

	mock.ExpectQuery("FROM tasks").
		WithArgs("p1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "project_id", "title", "description", "completed", "created_at"}))

	tasks, err := repo.ListByProject(context.Background(), "p1")
	require.NoError(t, err)
	assert.NotNil(t, tasks)
	assert.Empty(t, tasks)
}

func TestProfileRepository_SearchEscapesWildcards(t *testing.T) {
	mock := newMock(t)
	repo := NewProfileRepository(mock, zap.NewNop())

	mock.ExpectQuery("FROM profiles").
		WithArgs(`%50\%\_off%`, SearchLimit).
		WillReturnRows(pgxmock.NewRows([]string{"id", "username", "email", "avatar_url", "created_at"}).
			AddRow("u1", "bob", "bob@example.com", nil, now))

	got, err := repo.Search(context.Background(), "50%_off")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "bob", got[0].Username)
}

func TestAccountRepository_CreateEmailTaken(t *testing.T) {
	mock := newMock(t)
	repo := NewAccountRepository(mock, zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO accounts").
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	_, err := repo.CreateWithProfile(context.Background(), &model.Account{Email: "a@b.co", Username: "a"})
	assert.ErrorIs(t, err, model.ErrEmailTaken)
}

func TestAccountRepository_Delete(t *testing.T) {
	mock := newMock(t)
	repo := NewAccountRepository(mock, zap.NewNop())

	mock.ExpectExec("SELECT delete_user_account").
		WithArgs("u1").
		WillReturnResult(pgxmock.NewResult("SELECT", 1))

	require.NoError(t, repo.Delete(context.Background(), "u1"))
}
