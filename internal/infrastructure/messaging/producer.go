package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"z-novel-desk/internal/domain/entity"
	"z-novel-desk/internal/domain/service"
	"z-novel-desk/pkg/errors"
	"z-novel-desk/pkg/logger"
	"z-novel-desk/pkg/metrics"
)

var tracer = otel.Tracer("messaging")

var _ service.EventBus = (*RedisBus)(nil)

// RedisBus 基于 Redis Streams 的事件总线，每个会话一个流
type RedisBus struct {
	client       *redis.Client
	maxLen       int64
	retention    time.Duration
	blockTimeout time.Duration
}

// RedisBusConfig Redis 事件总线配置
type RedisBusConfig struct {
	MaxLen       int64
	Retention    time.Duration
	BlockTimeout time.Duration
}

// NewRedisBus 创建 Redis 事件总线
func NewRedisBus(client *redis.Client, cfg RedisBusConfig) *RedisBus {
	if cfg.MaxLen <= 0 {
		cfg.MaxLen = 10000
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 10 * time.Minute
	}
	if cfg.BlockTimeout <= 0 {
		cfg.BlockTimeout = 2 * time.Second
	}
	return &RedisBus{
		client:       client,
		maxLen:       cfg.MaxLen,
		retention:    cfg.Retention,
		blockTimeout: cfg.BlockTimeout,
	}
}

// Publish 发布事件到会话流，并刷新流的过期时间
func (b *RedisBus) Publish(ctx context.Context, evt *entity.AssistEvent) error {
	if evt == nil || evt.SessionID == "" {
		return errors.ErrInvalidParam.WithDetail("event requires a session id")
	}
	stream := SessionStream(evt.SessionID)

	ctx, span := tracer.Start(ctx, "producer.Publish",
		trace.WithAttributes(
			attribute.String("stream", string(stream)),
			attribute.String("event.kind", string(evt.Kind)),
		))
	defer span.End()

	if evt.CreatedAt.IsZero() {
		evt.CreatedAt = time.Now()
	}
	msg, err := eventMessage(evt)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to build message: %w", err)
	}
	if reqID := logger.RequestIDFromContext(ctx); reqID != "" {
		msg.SetMetadata("request_id", reqID)
	}
	if traceID := logger.TraceIDFromContext(ctx); traceID != "" {
		msg.SetMetadata("trace_id", traceID)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	pipe := b.client.TxPipeline()
	add := pipe.XAdd(ctx, &redis.XAddArgs{
		Stream: string(stream),
		MaxLen: b.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data": string(data),
		},
	})
	pipe.Expire(ctx, string(stream), b.retention)
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return errors.Wrap(err, errors.CodeCacheError, "failed to publish event")
	}

	span.SetAttributes(attribute.String("stream.message_id", add.Val()))
	metrics.EventsPublished.WithLabelValues("redis", string(evt.Kind)).Inc()
	return nil
}
