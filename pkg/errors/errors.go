// Package errors 提供统一的错误定义
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode 错误码类型
type ErrorCode string

// 预定义错误码
const (
	// 通用错误 (1xxx)
	CodeSuccess            ErrorCode = "0"
	CodeUnknown            ErrorCode = "1000"
	CodeInvalidParam       ErrorCode = "1001"
	CodeNotFound           ErrorCode = "1004"
	CodeConflict           ErrorCode = "1005"
	CodeInternalError      ErrorCode = "1007"
	CodeServiceUnavailable ErrorCode = "1008"

	// 资源错误 (3xxx)
	CodeProjectNotFound  ErrorCode = "3001"
	CodeChapterNotFound  ErrorCode = "3002"
	CodeEntityNotFound   ErrorCode = "3003"
	CodeFileNotFound     ErrorCode = "3004"
	CodeSessionNotFound  ErrorCode = "3005"
	CodeDocumentNotOpen  ErrorCode = "3006"
	CodePathOutsideScope ErrorCode = "3007"

	// 业务错误 (4xxx)
	CodeLLMCallFailed    ErrorCode = "4005"
	CodeLLMConfigInvalid ErrorCode = "4101"
	CodeLLMTransport     ErrorCode = "4102"
	CodeParse            ErrorCode = "4103"
	CodeBusy             ErrorCode = "4104"
	CodeExportFailed     ErrorCode = "4105"
	CodeQuotaExceeded    ErrorCode = "4106"

	// 外部服务错误 (5xxx)
	CodeCacheError   ErrorCode = "5002"
	CodeStorageError ErrorCode = "5004"
)

// AppError 应用错误
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Err        error     `json:"-"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 按错误码比较，便于 errors.Is 与预定义错误配合
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetail 添加详细信息（返回副本，预定义错误不会被修改）
func (e *AppError) WithDetail(detail string) *AppError {
	cp := *e
	cp.Detail = detail
	return &cp
}

// WithError 添加底层错误（返回副本）
func (e *AppError) WithError(err error) *AppError {
	cp := *e
	cp.Err = err
	return &cp
}

// New 创建新的应用错误
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

// Newf 创建带格式化消息的应用错误
func Newf(code ErrorCode, format string, args ...any) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap 包装错误
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Err:        err,
	}
}

// codeToHTTPStatus 错误码转 HTTP 状态码
func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case CodeSuccess:
		return http.StatusOK
	case CodeInvalidParam, CodePathOutsideScope:
		return http.StatusBadRequest
	case CodeLLMConfigInvalid:
		return http.StatusUnprocessableEntity
	case CodeNotFound, CodeProjectNotFound, CodeChapterNotFound, CodeEntityNotFound,
		CodeFileNotFound, CodeSessionNotFound, CodeDocumentNotOpen:
		return http.StatusNotFound
	case CodeConflict, CodeBusy:
		return http.StatusConflict
	case CodeQuotaExceeded:
		return http.StatusTooManyRequests
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case CodeLLMTransport, CodeLLMCallFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// 预定义错误
var (
	ErrInvalidParam    = New(CodeInvalidParam, "invalid parameter")
	ErrNotFound        = New(CodeNotFound, "resource not found")
	ErrInternalError   = New(CodeInternalError, "internal server error")
	ErrProjectNotFound = New(CodeProjectNotFound, "project not found")
	ErrChapterNotFound = New(CodeChapterNotFound, "chapter not found")
	ErrSessionNotFound = New(CodeSessionNotFound, "session not found")
	ErrDocumentNotOpen = New(CodeDocumentNotOpen, "document not open")
	ErrPathOutside     = New(CodePathOutsideScope, "path escapes project directory")
	ErrBusy            = New(CodeBusy, "another assistant request is in progress")
	ErrLLMConfig       = New(CodeLLMConfigInvalid, "assistant provider is not configured")
	ErrLLMTransport    = New(CodeLLMTransport, "assistant request failed")
	ErrQuotaExceeded   = New(CodeQuotaExceeded, "daily token budget exhausted")
)

// ConfigurationError 构造提供商配置错误（缺失 key / 未知 provider）
func ConfigurationError(format string, args ...any) *AppError {
	return ErrLLMConfig.WithDetail(fmt.Sprintf(format, args...))
}

// IsConfigurationError 判断是否为提供商配置错误
func IsConfigurationError(err error) bool {
	return HasCode(err, CodeLLMConfigInvalid)
}

// HasCode 判断错误链中是否存在指定错误码
func HasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// IsAppError 检查是否为 AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError 将错误转换为 AppError
func AsAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, CodeUnknown, "unknown error")
}

// UserMessage 返回适合展示给用户的消息
func (e *AppError) UserMessage() string {
	if e.Detail != "" {
		return e.Message + ": " + e.Detail
	}
	return e.Message
}
