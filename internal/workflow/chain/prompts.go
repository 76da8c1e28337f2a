// Package chain 组装各助手模式的提示
package chain

import (
	"z-novel-desk/internal/workflow/prompt"
)

// PromptBuilder 基于内嵌模板组装提示
type PromptBuilder struct {
	registry *prompt.Registry
}

// NewPromptBuilder 创建提示组装器
func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{registry: prompt.NewRegistry()}
}
