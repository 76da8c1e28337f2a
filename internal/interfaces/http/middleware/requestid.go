// Package middleware 提供 HTTP 中间件
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"z-novel-desk/pkg/logger"
)

const (
	// RequestIDHeader 请求 ID 头
	RequestIDHeader = "X-Request-ID"
)

// RequestID 注入请求 ID，并把路由上的项目 / 会话 ID 带入日志上下文，
// 之后各层用 logger.FromContext 即可带上 project_id / session_id。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)

		ctx := logger.WithContext(c.Request.Context(), logger.RequestIDKey, requestID)
		if pid := c.Param("pid"); pid != "" {
			c.Set("project_id", pid)
			ctx = logger.WithContext(ctx, logger.ProjectIDKey, pid)
		}
		if sid := c.Param("sid"); sid != "" {
			ctx = logger.WithContext(ctx, logger.SessionIDKey, sid)
		}
		c.Request = c.Request.WithContext(ctx)

		c.Header(RequestIDHeader, requestID)

		c.Next()
	}
}
