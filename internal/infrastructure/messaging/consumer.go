package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"z-novel-desk/internal/domain/entity"
	"z-novel-desk/pkg/errors"
	"z-novel-desk/pkg/logger"
)

// Subscribe 从流起点重放并阻塞跟随，直到 closed 事件、流过期或 ctx 结束
func (b *RedisBus) Subscribe(ctx context.Context, sessionID string) (<-chan *entity.AssistEvent, error) {
	stream := string(SessionStream(sessionID))

	n, err := b.client.Exists(ctx, stream).Result()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeCacheError, "failed to look up session stream")
	}
	if n == 0 {
		return nil, errors.ErrSessionNotFound
	}

	out := make(chan *entity.AssistEvent, 16)
	go b.follow(ctx, stream, out)
	return out, nil
}

// follow 消费循环
func (b *RedisBus) follow(ctx context.Context, stream string, out chan<- *entity.AssistEvent) {
	defer close(out)
	log := logger.FromContext(ctx)

	lastID := "0"
	for {
		if ctx.Err() != nil {
			return
		}

		streams, err := b.client.XRead(ctx, &redis.XReadArgs{
			Streams: []string{stream, lastID},
			Count:   100,
			Block:   b.blockTimeout,
		}).Result()

		if err != nil {
			if err == redis.Nil {
				// 超时无新消息：流已过期则结束
				if n, existsErr := b.client.Exists(ctx, stream).Result(); existsErr == nil && n == 0 {
					return
				}
				continue
			}
			if ctx.Err() != nil {
				return
			}
			log.Error("failed to read from stream", "error", err, "stream", stream)
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		for _, s := range streams {
			for _, xmsg := range s.Messages {
				lastID = xmsg.ID
				msgCtx, evt, ok := decodeEvent(ctx, xmsg)
				if !ok {
					continue
				}
				select {
				case out <- evt:
				case <-ctx.Done():
					return
				}
				if evt.Kind == entity.EventClosed {
					logger.FromContext(msgCtx).Debug("session stream closed", "stream", stream, "seq", evt.Seq)
					return
				}
			}
		}
	}
}

// decodeEvent 解析单条消息并恢复发布方的日志上下文；格式错误的消息被跳过
func decodeEvent(ctx context.Context, xmsg redis.XMessage) (context.Context, *entity.AssistEvent, bool) {
	dataStr, ok := xmsg.Values["data"].(string)
	if !ok {
		logger.FromContext(ctx).Warn("invalid message format", "message_id", xmsg.ID)
		return ctx, nil, false
	}

	var msg Message
	if err := json.Unmarshal([]byte(dataStr), &msg); err != nil {
		logger.FromContext(ctx).Warn("failed to unmarshal message", "error", err, "message_id", xmsg.ID)
		return ctx, nil, false
	}
	ctx = messageContext(ctx, &msg)

	var evt entity.AssistEvent
	if err := msg.UnmarshalPayload(&evt); err != nil {
		logger.FromContext(ctx).Warn("failed to unmarshal event payload", "error", err, "message_id", xmsg.ID)
		return ctx, nil, false
	}
	return ctx, &evt, true
}

// messageContext 注入日志上下文（project_id / request_id / trace_id）
func messageContext(ctx context.Context, msg *Message) context.Context {
	if msg.ProjectID != "" {
		ctx = logger.WithContext(ctx, logger.ProjectIDKey, msg.ProjectID)
	}
	if reqID := msg.GetMetadata("request_id"); reqID != "" {
		ctx = logger.WithContext(ctx, logger.RequestIDKey, reqID)
	}
	if traceID := msg.GetMetadata("trace_id"); traceID != "" {
		ctx = logger.WithContext(ctx, logger.TraceIDKey, traceID)
	}
	return ctx
}
