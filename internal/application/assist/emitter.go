package assist

import (
	"context"
	"sync/atomic"
	"time"

	"z-novel-desk/internal/domain/entity"
	"z-novel-desk/internal/domain/service"
	"z-novel-desk/pkg/logger"
)

// Emitter 向事件总线发布单个会话的事件，序号单调递增
type Emitter struct {
	bus  service.EventBus
	sess *entity.StreamSession
	seq  atomic.Int64
}

// NewEmitter 创建会话事件发布器
func NewEmitter(bus service.EventBus, sess *entity.StreamSession) *Emitter {
	return &Emitter{bus: bus, sess: sess}
}

// Emit 发布一条事件；发布失败只记录日志，不影响会话
func (e *Emitter) Emit(ctx context.Context, kind entity.EventKind, chunk, message string) {
	if e == nil || e.bus == nil {
		return
	}
	evt := &entity.AssistEvent{
		SessionID:   e.sess.ID,
		Kind:        kind,
		Mode:        e.sess.Mode,
		ProjectID:   e.sess.ProjectID,
		DocumentKey: e.sess.DocumentKey,
		Chunk:       chunk,
		Message:     message,
		Seq:         e.seq.Add(1),
		CreatedAt:   time.Now(),
	}
	if err := e.bus.Publish(ctx, evt); err != nil {
		logger.Error(ctx, "failed to publish assist event", err, "kind", kind, "session_id", e.sess.ID)
	}
}

func (e *Emitter) Thinking(ctx context.Context) { e.Emit(ctx, entity.EventThinking, "", "") }

func (e *Emitter) ThinkingEnd(ctx context.Context) { e.Emit(ctx, entity.EventThinkingEnd, "", "") }

func (e *Emitter) Chunk(ctx context.Context, chunk string) { e.Emit(ctx, entity.EventChunk, chunk, "") }

func (e *Emitter) End(ctx context.Context) { e.Emit(ctx, entity.EventEnd, "", "") }

func (e *Emitter) Error(ctx context.Context, message string) {
	e.Emit(ctx, entity.EventError, "", message)
}

func (e *Emitter) ChatMessage(ctx context.Context, message string) {
	e.Emit(ctx, entity.EventChatMessage, "", message)
}

// Close 发布 closed，订阅者随之结束
func (e *Emitter) Close(ctx context.Context) { e.Emit(ctx, entity.EventClosed, "", "") }
