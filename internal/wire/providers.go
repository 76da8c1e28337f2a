package wire

import (
	"context"

	"z-novel-desk/internal/application/assist"
	"z-novel-desk/internal/application/quota"
	"z-novel-desk/internal/config"
	"z-novel-desk/internal/domain/repository"
	"z-novel-desk/internal/domain/service"
	"z-novel-desk/internal/infrastructure/messaging"
	"z-novel-desk/internal/infrastructure/persistence/memory"
	"z-novel-desk/internal/infrastructure/persistence/redis"
	"z-novel-desk/internal/interfaces/http/handler"
	"z-novel-desk/internal/interfaces/http/router"
	"z-novel-desk/pkg/logger"
)

// App 进程级依赖
type App struct {
	Router     *router.Router
	Dispatcher *assist.Dispatcher
	Ledger     *quota.UsageLedger
}

// ProvideRedisClient 提供 Redis 客户端；未启用 Redis 时返回 nil
func ProvideRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, func(), error) {
	if !cfg.UsesRedis() {
		logger.Info(ctx, "redis disabled, using in-process event bus and locks")
		return nil, func() {}, nil
	}
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideEventBus 按配置选择事件总线
func ProvideEventBus(cfg *config.Config, client *redis.Client) service.EventBus {
	if client == nil {
		return messaging.NewMemoryBus(cfg.Events.Retention)
	}
	return messaging.NewRedisBus(client.Redis(), messaging.RedisBusConfig{
		MaxLen:    cfg.Events.MaxLen,
		Retention: cfg.Events.Retention,
	})
}

// ProvideLocker 按配置选择文档锁
func ProvideLocker(client *redis.Client) repository.Locker {
	if client == nil {
		return memory.NewLocker()
	}
	return redis.NewLocker(client)
}

// ProvideHealthHandler 提供健康检查处理器
func ProvideHealthHandler(cfg *config.Config, client *redis.Client) *handler.HealthHandler {
	return handler.NewHealthHandler(cfg.Workspace.Root, client)
}
