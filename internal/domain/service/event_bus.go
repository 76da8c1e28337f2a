package service

import (
	"context"

	"z-novel-desk/internal/domain/entity"
)

// EventBus 会话事件总线（port）。
// 订阅者从会话第一条事件开始重放，并持续跟随直到 closed 事件。
type EventBus interface {
	Publish(ctx context.Context, evt *entity.AssistEvent) error
	Subscribe(ctx context.Context, sessionID string) (<-chan *entity.AssistEvent, error)
}
