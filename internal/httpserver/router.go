package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"collabtodo/internal/handler"
	"collabtodo/internal/model"
)

// Pinger reports database readiness. *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers groups the API handlers mounted by NewRouter.
type Handlers struct {
	Auth     *handler.AuthHandler
	Profiles *handler.ProfileHandler
	Projects *handler.ProjectHandler
	Tasks    *handler.TaskHandler
	Members  *handler.MemberHandler
}

func NewRouter(h Handlers, auth Authenticator, db Pinger, logger *zap.Logger) *gin.Engine {
	r := newEngine(logger)

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_not_ready", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	// Public
	r.POST("/auth/signup", h.Auth.SignUp)
	r.POST("/auth/signin", h.Auth.SignIn)

	// Protected
	api := r.Group("/")
	api.Use(AuthMiddleware(auth, logger))
	{
		api.POST("/auth/signout", h.Auth.SignOut)

		api.GET("/me", h.Auth.Me)
		api.PATCH("/me", h.Profiles.UpdateMe)
		api.DELETE("/me", h.Auth.DeleteMe)
		api.PUT("/me/password", h.Auth.ChangePassword)
		api.GET("/profiles/search", h.Profiles.Search)

		api.GET("/projects", h.Projects.List)
		api.POST("/projects", h.Projects.Create)
		api.GET("/projects/:id", h.Projects.Get)
		api.PATCH("/projects/:id", h.Projects.Update)
		api.DELETE("/projects/:id", h.Projects.Delete)
		api.GET("/projects/:id/role", h.Projects.Role)

		api.GET("/projects/:id/tasks", h.Tasks.List)
		api.POST("/projects/:id/tasks", h.Tasks.Create)
		api.PATCH("/tasks/:id", h.Tasks.Update)
		api.PUT("/tasks/:id/completion", h.Tasks.SetCompletion)
		api.DELETE("/tasks/:id", h.Tasks.Delete)

		api.GET("/projects/:id/members", h.Members.List)
		api.POST("/projects/:id/members", h.Members.Invite)
		api.PATCH("/projects/:id/members/:memberId", h.Members.UpdateRole)
		api.DELETE("/projects/:id/members/:memberId", h.Members.Remove)
	}

	return r
}

// NewUnconfiguredRouter answers every API route with 503 and the
// configuration error. Health and metrics keep working.
func NewUnconfiguredRouter(cause error, logger *zap.Logger) *gin.Engine {
	r := newEngine(logger)
	r.GET("/readyz", func(c *gin.Context) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_configured", "error": cause.Error()})
	})
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": cause.Error()})
	})
	return r
}

func newEngine(logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), TraceMiddleware(), Metrics(), RequestLogger(logger))

	// Health endpoints (放在最前面)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

func isUnauthorized(err error) bool {
	return errors.Is(err, model.ErrUnauthorized)
}
