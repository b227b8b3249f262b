package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"collabtodo/internal/model"
	"collabtodo/internal/session"
	"collabtodo/pkg/config"
	"collabtodo/pkg/util"
)

const minPasswordLength = 6

var validate = validator.New()

type AuthService struct {
	accounts AccountStore
	profiles *ProfileService
	sessions session.Store
	jwt      config.JWTConfig
	logger   *zap.Logger
}

func NewAuthService(
	accounts AccountStore,
	profiles *ProfileService,
	sessions session.Store,
	jwtCfg config.JWTConfig,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		accounts: accounts,
		profiles: profiles,
		sessions: sessions,
		jwt:      jwtCfg,
		logger:   logger,
	}
}

type SignUpInput struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// Session is returned on sign-in.
type Session struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	Profile   *model.Profile `json:"profile"`
}

// SignUp validates the input, then creates the account and its profile.
func (s *AuthService) SignUp(ctx context.Context, in SignUpInput) (*model.Profile, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	if in.Username == "" {
		return nil, model.NewValidationError("username", "is required")
	}
	if err := validate.Var(in.Email, "required,email"); err != nil {
		return nil, model.NewValidationError("email", "must be a valid email address")
	}
	if err := checkPassword(in.Password, in.ConfirmPassword); err != nil {
		return nil, err
	}

	hash, err := util.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	profile, err := s.accounts.CreateWithProfile(ctx, &model.Account{
		Email:        in.Email,
		PasswordHash: hash,
		Username:     in.Username,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("User signed up", zap.String("profile_id", profile.ID))
	return profile, nil
}

// SignIn checks credentials and issues a token.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*Session, error) {
	account, err := s.accounts.FindByEmail(ctx, email)
	if errors.Is(err, model.ErrNotFound) {
		return nil, model.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !util.CheckPassword(password, account.PasswordHash) {
		return nil, model.ErrInvalidCredentials
	}

	profile, err := s.profiles.Ensure(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	token, claims, err := util.GenerateJWT(account.ID, s.jwt.Secret, s.jwt.TTL)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: claims.ExpiresAt.Time, Profile: profile}, nil
}

// Authenticate parses token and rejects revoked sessions. A revocation
// store error rejects the request.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*util.SessionClaims, error) {
	claims, err := util.ParseJWT(token, s.jwt.Secret)
	if err != nil {
		return nil, model.ErrUnauthorized
	}

	revoked, err := s.sessions.IsRevoked(ctx, claims.ID)
	if err != nil {
		s.logger.Error("Failed to check session revocation",
			zap.String("session_id", claims.ID),
			zap.Error(err),
		)
		return nil, err
	}
	if revoked {
		return nil, model.ErrUnauthorized
	}
	return claims, nil
}

// SignOut revokes the session until its token would have expired.
func (s *AuthService) SignOut(ctx context.Context, claims *util.SessionClaims) error {
	ttl := time.Until(claims.ExpiresAt.Time)
	return s.sessions.Revoke(ctx, claims.ID, ttl)
}

func (s *AuthService) ChangePassword(ctx context.Context, accountID, password, confirm string) error {
	if err := checkPassword(password, confirm); err != nil {
		return err
	}
	hash, err := util.HashPassword(password)
	if err != nil {
		return err
	}
	return s.accounts.UpdatePassword(ctx, accountID, hash)
}

// CurrentUser returns the caller's profile, provisioning it if missing.
func (s *AuthService) CurrentUser(ctx context.Context, accountID string) (*model.Profile, error) {
	return s.profiles.Ensure(ctx, accountID)
}

// DeleteAccount removes the account and revokes the current session.
func (s *AuthService) DeleteAccount(ctx context.Context, claims *util.SessionClaims) error {
	if err := s.accounts.Delete(ctx, claims.Subject); err != nil {
		return err
	}
	if err := s.SignOut(ctx, claims); err != nil {
		s.logger.Warn("Failed to revoke session of deleted account",
			zap.String("account_id", claims.Subject),
			zap.Error(err),
		)
	}
	return nil
}

func checkPassword(password, confirm string) error {
	if len(password) < minPasswordLength {
		return model.NewValidationError("password", "must be at least 6 characters")
	}
	if password != confirm {
		return model.NewValidationError("confirm_password", "passwords do not match")
	}
	return nil
}
