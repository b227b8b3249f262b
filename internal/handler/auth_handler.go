package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"collabtodo/internal/model"
	"collabtodo/internal/service"
	"collabtodo/pkg/util"
)

// AuthAPI is implemented by *service.AuthService.
type AuthAPI interface {
	SignUp(ctx context.Context, in service.SignUpInput) (*model.Profile, error)
	SignIn(ctx context.Context, email, password string) (*service.Session, error)
	SignOut(ctx context.Context, claims *util.SessionClaims) error
	ChangePassword(ctx context.Context, accountID, password, confirm string) error
	CurrentUser(ctx context.Context, accountID string) (*model.Profile, error)
	DeleteAccount(ctx context.Context, claims *util.SessionClaims) error
}

type AuthHandler struct {
	auth   AuthAPI
	logger *zap.Logger
}

func NewAuthHandler(auth AuthAPI, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

// SignUp handles POST /auth/signup
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req service.SignUpInput
	if !bindJSON(c, &req) {
		return
	}

	profile, err := h.auth.SignUp(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, profile)
}

// SignIn handles POST /auth/signin
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}

	sess, err := h.auth.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// SignOut handles POST /auth/signout
func (h *AuthHandler) SignOut(c *gin.Context) {
	claims, ok := getClaims(c)
	if !ok {
		return
	}
	if err := h.auth.SignOut(c.Request.Context(), claims); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Me handles GET /me
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	profile, err := h.auth.CurrentUser(c.Request.Context(), userID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// ChangePassword handles PUT /me/password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req struct {
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirm_password"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if err := h.auth.ChangePassword(c.Request.Context(), userID, req.Password, req.ConfirmPassword); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteMe handles DELETE /me
func (h *AuthHandler) DeleteMe(c *gin.Context) {
	claims, ok := getClaims(c)
	if !ok {
		return
	}
	if err := h.auth.DeleteAccount(c.Request.Context(), claims); err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.logger.Info("Account deleted", zap.String("account_id", claims.Subject))
	c.Status(http.StatusNoContent)
}
