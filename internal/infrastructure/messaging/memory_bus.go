package messaging

import (
	"context"
	"sync"
	"time"

	"z-novel-desk/internal/domain/entity"
	"z-novel-desk/internal/domain/service"
	"z-novel-desk/pkg/errors"
	"z-novel-desk/pkg/metrics"
)

var _ service.EventBus = (*MemoryBus)(nil)

// sessionLog 单个会话的事件日志
type sessionLog struct {
	events   []*entity.AssistEvent
	closed   bool
	closedAt time.Time
	// notify 每次追加后关闭并替换，唤醒等待中的订阅者
	notify chan struct{}
}

// MemoryBus 进程内事件总线。已关闭的会话在 retention 之后被清理。
type MemoryBus struct {
	mu        sync.Mutex
	sessions  map[string]*sessionLog
	retention time.Duration
	nowFn     func() time.Time
}

// NewMemoryBus 创建内存事件总线
func NewMemoryBus(retention time.Duration) *MemoryBus {
	if retention <= 0 {
		retention = 10 * time.Minute
	}
	return &MemoryBus{
		sessions:  make(map[string]*sessionLog),
		retention: retention,
		nowFn:     time.Now,
	}
}

// Publish 追加事件；会话关闭后的事件被丢弃
func (b *MemoryBus) Publish(_ context.Context, evt *entity.AssistEvent) error {
	if evt == nil || evt.SessionID == "" {
		return errors.ErrInvalidParam.WithDetail("event requires a session id")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.nowFn()
	b.pruneLocked(now)

	log, ok := b.sessions[evt.SessionID]
	if !ok {
		log = &sessionLog{notify: make(chan struct{})}
		b.sessions[evt.SessionID] = log
	}
	if log.closed {
		return nil
	}

	cp := *evt
	if cp.Seq == 0 {
		cp.Seq = int64(len(log.events) + 1)
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	log.events = append(log.events, &cp)
	if cp.Kind == entity.EventClosed {
		log.closed = true
		log.closedAt = now
	}

	close(log.notify)
	log.notify = make(chan struct{})

	metrics.EventsPublished.WithLabelValues("memory", string(cp.Kind)).Inc()
	return nil
}

// Subscribe 从头重放会话事件并跟随，直到 closed 事件或 ctx 结束
func (b *MemoryBus) Subscribe(ctx context.Context, sessionID string) (<-chan *entity.AssistEvent, error) {
	b.mu.Lock()
	_, ok := b.sessions[sessionID]
	b.mu.Unlock()
	if !ok {
		return nil, errors.ErrSessionNotFound
	}

	out := make(chan *entity.AssistEvent, 16)
	go b.follow(ctx, sessionID, out)
	return out, nil
}

func (b *MemoryBus) follow(ctx context.Context, sessionID string, out chan<- *entity.AssistEvent) {
	defer close(out)

	next := 0
	for {
		b.mu.Lock()
		log, ok := b.sessions[sessionID]
		if !ok {
			b.mu.Unlock()
			return
		}
		pending := append([]*entity.AssistEvent(nil), log.events[next:]...)
		notify := log.notify
		b.mu.Unlock()

		for _, evt := range pending {
			select {
			case out <- evt:
			case <-ctx.Done():
				return
			}
			next++
			if evt.Kind == entity.EventClosed {
				return
			}
		}

		if len(pending) > 0 {
			continue
		}
		select {
		case <-notify:
		case <-ctx.Done():
			return
		}
	}
}

func (b *MemoryBus) pruneLocked(now time.Time) {
	for id, log := range b.sessions {
		if log.closed && now.Sub(log.closedAt) > b.retention {
			delete(b.sessions, id)
		}
	}
}
