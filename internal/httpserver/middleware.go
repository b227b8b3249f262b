package httpserver

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"collabtodo/internal/handler"
	"collabtodo/pkg/logger"
	"collabtodo/pkg/metrics"
	"collabtodo/pkg/trace"
	"collabtodo/pkg/util"
)

// Authenticator is implemented by *service.AuthService.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*util.SessionClaims, error)
}

func AuthMiddleware(auth Authenticator, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := util.ExtractToken(c.Request)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		claims, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			status := http.StatusUnauthorized
			msg := "invalid token"
			if !isUnauthorized(err) {
				// revocation store unavailable
				logger.WithTrace(c.Request.Context(), log).Error("Session check failed", zap.Error(err))
				status = http.StatusServiceUnavailable
				msg = "session check unavailable"
			}
			c.AbortWithStatusJSON(status, gin.H{"error": msg})
			return
		}

		// store user_id in context so handlers can use it
		handler.SetSession(c, claims)
		c.Next()
	}
}

// TraceMiddleware 为每个请求注入 trace_id，优先使用上游传入的值
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(trace.HeaderName)
		if traceID == "" {
			traceID = trace.GenerateTraceID()
		}
		c.Request = c.Request.WithContext(trace.WithContext(c.Request.Context(), traceID))
		c.Header(trace.HeaderName, traceID)
		c.Next()
	}
}

// RequestLogger 请求日志中间件
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.WithTrace(c.Request.Context(), log).Info("HTTP Request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// Metrics records request latency by route template.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.RecordHTTPRequestDuration(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
