// Package middleware 提供 HTTP 中间件
package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"z-novel-desk/pkg/metrics"
)

// Metrics Prometheus 指标采集中间件。
// skip 中的路由（探活、指标端点）不计数；SSE 事件流按连接时长计入耗时，不记录响应大小。
func Metrics(skip ...string) gin.HandlerFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}

	return func(c *gin.Context) {
		path := c.FullPath()
		if _, ok := skipped[path]; ok {
			c.Next()
			return
		}
		if path == "" {
			path = "unknown"
		}
		start := time.Now()
		method := c.Request.Method

		if reqSize := float64(c.Request.ContentLength); reqSize > 0 {
			metrics.HTTPRequestSize.WithLabelValues(method, path).Observe(reqSize)
		}

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		metrics.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		if isEventStream(c) {
			return
		}
		if respSize := float64(c.Writer.Size()); respSize > 0 {
			metrics.HTTPResponseSize.WithLabelValues(method, path).Observe(respSize)
		}
	}
}

func isEventStream(c *gin.Context) bool {
	return strings.HasPrefix(c.Writer.Header().Get("Content-Type"), "text/event-stream")
}
