// Package messaging 提供会话事件总线（内存与 Redis Streams 两种实现）
package messaging

import (
	"encoding/json"
	"time"

	"z-novel-desk/internal/domain/entity"
)

// Message 写入 Redis Stream 的消息信封
type Message struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	ProjectID string            `json:"project_id"`
	Payload   json.RawMessage   `json:"payload"`
	Metadata  map[string]string `json:"metadata"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewMessage 创建新消息
func NewMessage(id, msgType, projectID string, payload interface{}) (*Message, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Message{
		ID:        id,
		Type:      msgType,
		ProjectID: projectID,
		Payload:   payloadBytes,
		Metadata:  make(map[string]string),
		CreatedAt: time.Now(),
	}, nil
}

// SetMetadata 设置元数据
func (m *Message) SetMetadata(key, value string) {
	if m.Metadata == nil {
		m.Metadata = make(map[string]string)
	}
	m.Metadata[key] = value
}

// GetMetadata 获取元数据
func (m *Message) GetMetadata(key string) string {
	if m.Metadata == nil {
		return ""
	}
	return m.Metadata[key]
}

// UnmarshalPayload 解析消息载荷
func (m *Message) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(m.Payload, v)
}

// Stream 流定义
type Stream string

const streamSessionPrefix = "stream:assist:session:"

// SessionStream 会话事件流名称
func SessionStream(sessionID string) Stream {
	return Stream(streamSessionPrefix + sessionID)
}

// eventMessage 把会话事件包装为消息
func eventMessage(evt *entity.AssistEvent) (*Message, error) {
	return NewMessage(evt.SessionID, string(evt.Kind), evt.ProjectID, evt)
}
