// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"github.com/gin-gonic/gin"
)

// BindProjectID 从 URI 绑定项目 ID
func BindProjectID(c *gin.Context) string {
	return c.Param("pid")
}

// BindChapterID 从 URI 绑定章节 ID
func BindChapterID(c *gin.Context) string {
	return c.Param("cid")
}

// BindSessionID 从 URI 绑定会话 ID
func BindSessionID(c *gin.Context) string {
	return c.Param("sid")
}
