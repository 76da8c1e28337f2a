// Package entity 定义领域实体
package entity

import "time"

// ChatRole 对话角色
type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
	ChatRoleSystem    ChatRole = "system"
)

// ChatTurn 助手面板中的一条消息
type ChatTurn struct {
	Role      ChatRole  `json:"role"`
	Content   string    `json:"content"`
	SessionID string    `json:"session_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
