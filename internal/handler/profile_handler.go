package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"collabtodo/internal/model"
)

// ProfileAPI is implemented by *service.ProfileService.
type ProfileAPI interface {
	Update(ctx context.Context, id string, upd model.ProfileUpdate) (*model.Profile, error)
	Search(ctx context.Context, query string) ([]model.Profile, error)
}

type ProfileHandler struct {
	profiles ProfileAPI
	logger   *zap.Logger
}

func NewProfileHandler(profiles ProfileAPI, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, logger: logger}
}

// UpdateMe handles PATCH /me
func (h *ProfileHandler) UpdateMe(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req model.ProfileUpdate
	if !bindJSON(c, &req) {
		return
	}

	profile, err := h.profiles.Update(c.Request.Context(), userID, req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// Search handles GET /profiles/search?q=
func (h *ProfileHandler) Search(c *gin.Context) {
	profiles, err := h.profiles.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profiles": profiles})
}
