// Package memory 提供单进程内的锁实现
package memory

import (
	"context"
	"sync"
	"time"

	"z-novel-desk/internal/domain/repository"
)

var _ repository.Locker = (*Locker)(nil)

// Locker 进程内单写者锁；ttl<=0 表示不过期
type Locker struct {
	mu    sync.Mutex
	held  map[string]time.Time
	nowFn func() time.Time
}

// NewLocker 创建进程内锁
func NewLocker() *Locker {
	return &Locker{
		held:  make(map[string]time.Time),
		nowFn: time.Now,
	}
}

// Acquire 尝试获取锁，已被持有且未过期时返回 false
func (l *Locker) Acquire(_ context.Context, name string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFn()
	if exp, ok := l.held[name]; ok && (exp.IsZero() || now.Before(exp)) {
		return false, nil
	}

	var exp time.Time
	if ttl > 0 {
		exp = now.Add(ttl)
	}
	l.held[name] = exp
	return true, nil
}

// Release 释放锁
func (l *Locker) Release(_ context.Context, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, name)
	return nil
}
