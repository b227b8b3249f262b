package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"collabtodo/internal/model"
	"collabtodo/pkg/logger"
	"collabtodo/pkg/util"
)

const (
	ctxUserID = "user_id"
	ctxClaims = "claims"
)

// SetSession stores the authenticated session on the gin context.
func SetSession(c *gin.Context, claims *util.SessionClaims) {
	c.Set(ctxUserID, claims.Subject)
	c.Set(ctxClaims, claims)
}

// getUserID 统一的 userID 读取工具
func getUserID(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxUserID)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return "", false
	}
	return v.(string), true
}

func getClaims(c *gin.Context) (*util.SessionClaims, bool) {
	v, ok := c.Get(ctxClaims)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return nil, false
	}
	return v.(*util.SessionClaims), true
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return false
	}
	return true
}

// writeError maps domain errors to a status code. Anything unrecognised
// is logged and answered with a generic 500.
func writeError(c *gin.Context, log *zap.Logger, err error) {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
	case errors.Is(err, model.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, model.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, model.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, model.ErrLastOwner),
		errors.Is(err, model.ErrAlreadyMember),
		errors.Is(err, model.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, model.ErrInvalidCredentials),
		errors.Is(err, model.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	default:
		logger.WithTrace(c.Request.Context(), log).Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
