package node

import (
	"context"
	"errors"
	"strings"
)

// OpaqueLLMError 把提供商错误压成一条面向用户的消息，不区分错误类型
func OpaqueLLMError(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "request timed out"
	case errors.Is(err, context.Canceled):
		return "request canceled"
	}

	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		return "unknown provider error"
	}
	return TruncateByRunes(msg, 500)
}

// IsAuthError 粗略判断是否为鉴权失败（用于日志分级）
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "401"):
		return true
	case strings.Contains(msg, "unauthorized"):
		return true
	case strings.Contains(msg, "invalid api key"), strings.Contains(msg, "incorrect api key"):
		return true
	default:
		return false
	}
}
