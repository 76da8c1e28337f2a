// Package entity 定义领域实体
package entity

import "time"

// EventKind 会话事件类型
type EventKind string

const (
	EventThinking      EventKind = "thinking"
	EventChunk         EventKind = "chunk"
	EventEnd           EventKind = "end"
	EventError         EventKind = "error"
	EventThinkingEnd   EventKind = "thinking_end"
	EventChatMessage   EventKind = "chat_message"
	EventFocusCritique EventKind = "focus_critique"
	EventFocusRelease  EventKind = "focus_release"
	// EventClosed 会话事件序列的最后一条，订阅者据此结束
	EventClosed EventKind = "closed"
)

// IsTerminal end / error 为流的终止事件
func (k EventKind) IsTerminal() bool {
	return k == EventEnd || k == EventError
}

// AssistEvent 发往宿主界面的一条会话事件
type AssistEvent struct {
	SessionID   string     `json:"session_id"`
	Kind        EventKind  `json:"kind"`
	Mode        AssistMode `json:"mode,omitempty"`
	ProjectID   string     `json:"project_id,omitempty"`
	DocumentKey string     `json:"document_key,omitempty"`
	Chunk       string     `json:"chunk,omitempty"`
	Message     string     `json:"message,omitempty"`
	Seq         int64      `json:"seq"`
	CreatedAt   time.Time  `json:"created_at"`
}
