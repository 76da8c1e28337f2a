// Package middleware 提供 HTTP 中间件
package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"z-novel-desk/internal/interfaces/http/dto"
	"z-novel-desk/pkg/errors"
	"z-novel-desk/pkg/logger"
)

// Recovery 捕获处理器 panic，按统一错误结构返回 500。
// 已开始写出的流式响应无法再改写状态码，只中断连接。
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			err, ok := rec.(error)
			if !ok {
				err = fmt.Errorf("%v", rec)
			}

			logger.Error(c.Request.Context(), "panic recovered", err,
				"stack", string(debug.Stack()),
				"route", c.FullPath(),
				"method", c.Request.Method,
			)

			if c.Writer.Written() {
				c.Abort()
				return
			}
			dto.ErrorWithDetail(c, http.StatusInternalServerError, "internal server error", &dto.ErrorDetail{
				ErrorCode: string(errors.CodeInternalError),
			})
			c.Abort()
		}()

		c.Next()
	}
}
