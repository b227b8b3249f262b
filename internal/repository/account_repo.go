package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"collabtodo/internal/model"
	"collabtodo/pkg/util"
)

type AccountRepository struct {
	db     DB
	logger *zap.Logger
}

func NewAccountRepository(db DB, logger *zap.Logger) *AccountRepository {
	return &AccountRepository{db: db, logger: logger}
}

// CreateWithProfile inserts the account and its profile in one transaction.
func (r *AccountRepository) CreateWithProfile(ctx context.Context, a *model.Account) (*model.Profile, error) {
	a.ID = uuid.NewString()
	a.Email = strings.TrimSpace(a.Email)

	var p model.Profile
	err := withTx(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO accounts (id, email, password_hash, username)
			VALUES ($1, $2, $3, $4)
			RETURNING created_at
		`, a.ID, a.Email, a.PasswordHash, a.Username).Scan(&a.CreatedAt)
		if err != nil {
			return err
		}

		return tx.QueryRow(ctx, `
			INSERT INTO profiles (id, username, email)
			VALUES ($1, $2, $3)
			RETURNING id, username, email, avatar_url, created_at
		`, a.ID, a.Username, a.Email).Scan(&p.ID, &p.Username, &p.Email, &p.AvatarURL, &p.CreatedAt)
	})
	if err != nil {
		if util.IsUniqueViolation(err) {
			return nil, model.ErrEmailTaken
		}
		r.logger.Error("Failed to create account", zap.Error(err))
		return nil, fmt.Errorf("create account: %w", err)
	}

	r.logger.Info("Account created", zap.String("account_id", a.ID))
	return &p, nil
}

// FindByEmail matches email case-insensitively.
func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	var a model.Account
	err := r.db.QueryRow(ctx, `
		SELECT id, email, password_hash, username, created_at
		FROM accounts
		WHERE lower(email) = lower($1)
	`, strings.TrimSpace(email)).Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Username, &a.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*model.Account, error) {
	var a model.Account
	err := r.db.QueryRow(ctx, `
		SELECT id, email, password_hash, username, created_at
		FROM accounts
		WHERE id = $1
	`, id).Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Username, &a.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

// UpdateUsername syncs the username metadata kept on the account.
func (r *AccountRepository) UpdateUsername(ctx context.Context, id, username string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE accounts SET username = $2, updated_at = NOW() WHERE id = $1
	`, id, username)
	if err != nil {
		return fmt.Errorf("update account username: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *AccountRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE accounts SET password_hash = $2, updated_at = NOW() WHERE id = $1
	`, id, passwordHash)
	if err != nil {
		r.logger.Error("Failed to update password", zap.String("account_id", id), zap.Error(err))
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// Delete removes the account through delete_user_account, which also
// removes or hands over the projects it owns.
func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, `SELECT delete_user_account($1)`, id); err != nil {
		r.logger.Error("Failed to delete account", zap.String("account_id", id), zap.Error(err))
		return fmt.Errorf("delete account: %w", err)
	}
	r.logger.Info("Account deleted", zap.String("account_id", id))
	return nil
}
