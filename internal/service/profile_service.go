package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"collabtodo/internal/model"
)

type ProfileService struct {
	profiles ProfileStore
	accounts AccountStore
	logger   *zap.Logger
}

func NewProfileService(profiles ProfileStore, accounts AccountStore, logger *zap.Logger) *ProfileService {
	return &ProfileService{profiles: profiles, accounts: accounts, logger: logger}
}

func (s *ProfileService) Get(ctx context.Context, id string) (*model.Profile, error) {
	return s.profiles.Get(ctx, id)
}

func (s *ProfileService) GetByEmail(ctx context.Context, email string) (*model.Profile, error) {
	return s.profiles.GetByEmail(ctx, email)
}

// Update applies the non-nil fields of upd to the caller's own profile.
func (s *ProfileService) Update(ctx context.Context, id string, upd model.ProfileUpdate) (*model.Profile, error) {
	current, err := s.profiles.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	usernameChanged := false
	if upd.Username != nil {
		username := strings.TrimSpace(*upd.Username)
		if username == "" {
			return nil, model.NewValidationError("username", "must not be empty")
		}
		usernameChanged = username != current.Username
		current.Username = username
	}
	if upd.AvatarURL != nil {
		current.AvatarURL = normalizeOptional(upd.AvatarURL)
	}

	updated, err := s.profiles.Update(ctx, current)
	if err != nil {
		return nil, err
	}

	if usernameChanged {
		// account metadata is secondary; the profile is the source of truth
		if err := s.accounts.UpdateUsername(ctx, id, updated.Username); err != nil {
			s.logger.Warn("Failed to sync account username",
				zap.String("profile_id", id),
				zap.Error(err),
			)
		}
	}
	return updated, nil
}

// Search returns at most ten profiles whose email or username contains query.
func (s *ProfileService) Search(ctx context.Context, query string) ([]model.Profile, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []model.Profile{}, nil
	}
	return s.profiles.Search(ctx, query)
}

// Ensure returns the account's profile, creating it when missing. The
// username comes from the account metadata, else the email local part.
func (s *ProfileService) Ensure(ctx context.Context, accountID string) (*model.Profile, error) {
	profile, err := s.profiles.Get(ctx, accountID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}

	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	username := strings.TrimSpace(account.Username)
	if username == "" {
		username, _, _ = strings.Cut(account.Email, "@")
	}

	s.logger.Info("Provisioning missing profile", zap.String("account_id", accountID))
	return s.profiles.Create(ctx, &model.Profile{
		ID:       account.ID,
		Username: username,
		Email:    account.Email,
	})
}
