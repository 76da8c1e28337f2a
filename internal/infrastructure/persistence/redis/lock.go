package redis

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"z-novel-desk/internal/domain/repository"
)

var _ repository.Locker = (*Locker)(nil)

const lockPrefix = "lock:desk:"

// Locker 基于 SETNX + TTL 的单写者锁，释放时校验持有者
type Locker struct {
	client  *Client
	ownerID string
}

// NewLocker 创建锁，持有者标识为 hostname:pid:uuid
func NewLocker(client *Client) *Locker {
	hostname, _ := os.Hostname()
	return &Locker{
		client:  client,
		ownerID: fmt.Sprintf("%s:%d:%s", hostname, os.Getpid(), uuid.NewString()),
	}
}

// Acquire 尝试获取锁，已被持有时返回 false
func (l *Locker) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	ctx, span := tracer.Start(ctx, "redis.LockAcquire",
		trace.WithAttributes(attribute.String("lock.name", name)))
	defer span.End()

	ok, err := l.client.rdb.SetNX(ctx, lockPrefix+name, l.ownerID, ttl).Result()
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	span.SetAttributes(attribute.Bool("lock.acquired", ok))
	return ok, nil
}

// 仅当持有者匹配时删除
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// Release 释放本实例持有的锁；未持有或已过期时无副作用
func (l *Locker) Release(ctx context.Context, name string) error {
	_, err := releaseScript.Run(ctx, l.client.rdb, []string{lockPrefix + name}, l.ownerID).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("release lock %s: %w", name, err)
	}
	return nil
}

// OwnerID 持有者标识
func (l *Locker) OwnerID() string {
	return l.ownerID
}
