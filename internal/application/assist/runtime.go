package assist

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"z-novel-desk/internal/application/editor"
	"z-novel-desk/internal/config"
	"z-novel-desk/internal/domain/entity"
	"z-novel-desk/internal/domain/repository"
	"z-novel-desk/internal/domain/service"
	"z-novel-desk/internal/workflow/chain"
	"z-novel-desk/internal/workflow/port"
	"z-novel-desk/pkg/errors"
	"z-novel-desk/pkg/logger"
)

const (
	defaultLockTTL      = 5 * time.Minute
	defaultFocusRelease = 1500 * time.Millisecond
	defaultHistoryTurns = 10
)

// QuotaGuard 发起会话前检查项目 Token 日配额
type QuotaGuard interface {
	CheckDailyTokens(ctx context.Context, projectID string) (used int64, max int64, err error)
}

// Runtime 各控制器共享的协作者
type Runtime struct {
	store      repository.ProjectStore
	workspace  *editor.Workspace
	resolver   port.ChatModelResolver
	prompts    *chain.PromptBuilder
	dispatcher *Dispatcher
	bus        service.EventBus
	locker     repository.Locker
	quota      QuotaGuard

	lockTTL      time.Duration
	focusRelease time.Duration
	historyTurns int
}

// NewRuntime 创建助手运行时
func NewRuntime(
	cfg *config.Config,
	store repository.ProjectStore,
	workspace *editor.Workspace,
	resolver port.ChatModelResolver,
	prompts *chain.PromptBuilder,
	dispatcher *Dispatcher,
	bus service.EventBus,
	locker repository.Locker,
	quota QuotaGuard,
) *Runtime {
	rt := &Runtime{
		store:        store,
		workspace:    workspace,
		resolver:     resolver,
		prompts:      prompts,
		dispatcher:   dispatcher,
		bus:          bus,
		locker:       locker,
		quota:        quota,
		lockTTL:      cfg.Events.LockTTL,
		focusRelease: cfg.Assistant.FocusRelease,
		historyTurns: cfg.Assistant.ChatHistoryTurns,
	}
	if rt.lockTTL <= 0 {
		rt.lockTTL = defaultLockTTL
	}
	if rt.focusRelease <= 0 {
		rt.focusRelease = defaultFocusRelease
	}
	if rt.historyTurns <= 0 {
		rt.historyTurns = defaultHistoryTurns
	}
	return rt
}

func (rt *Runtime) newSession(projectID, documentKey string, mode entity.AssistMode, prompt string) *entity.StreamSession {
	return entity.NewStreamSession(uuid.NewString(), projectID, documentKey, mode, prompt)
}

// acquire 获取单写者锁，已被持有时返回 ErrBusy
func (rt *Runtime) acquire(ctx context.Context, name string) error {
	ok, err := rt.locker.Acquire(ctx, name, rt.lockTTL)
	if err != nil {
		return errors.Wrap(err, errors.CodeCacheError, "failed to acquire lock")
	}
	if !ok {
		return errors.ErrBusy.WithDetail(name)
	}
	return nil
}

// release 释放锁；会话可能已超时，这里不继承 ctx 的取消
func (rt *Runtime) release(ctx context.Context, name string) {
	if err := rt.locker.Release(context.WithoutCancel(ctx), name); err != nil {
		logger.Warn(ctx, "failed to release lock", "lock", name, "error", err.Error())
	}
}

// resolve 读取项目设置并解析模型；配置错误在任何文档改动之前返回
func (rt *Runtime) resolve(ctx context.Context, projectID string) (*entity.ProjectSettings, *port.ResolvedModel, error) {
	settings, err := rt.store.LoadSettings(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}
	if rt.quota != nil {
		if used, max, err := rt.quota.CheckDailyTokens(ctx, projectID); err != nil {
			return nil, nil, errors.ErrQuotaExceeded.WithDetail(fmt.Sprintf("%d of %d tokens used today", used, max)).WithError(err)
		}
	}
	rm, err := rt.resolver.Resolve(ctx, settings.ProviderConfig)
	if err != nil {
		return nil, nil, err
	}
	return settings, rm, nil
}

// collectWorld 并发扫描三类世界设定，结果按固定类型顺序拼接
func (rt *Runtime) collectWorld(ctx context.Context, projectID string) ([]entity.WorldEntity, error) {
	groups := make([][]entity.WorldEntity, len(entity.WorldEntityKinds))

	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range entity.WorldEntityKinds {
		g.Go(func() error {
			items, err := rt.store.ListEntities(gctx, projectID, kind)
			if err != nil {
				return err
			}
			groups[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []entity.WorldEntity
	for _, items := range groups {
		out = append(out, items...)
	}
	return out, nil
}

// worldOrEmpty 世界设定只是提示上下文，扫描失败时降级为空
func (rt *Runtime) worldOrEmpty(ctx context.Context, projectID string) []entity.WorldEntity {
	world, err := rt.collectWorld(ctx, projectID)
	if err != nil {
		logger.Warn(ctx, "world scan failed, continuing without world context", "project_id", projectID, "error", err.Error())
		return nil
	}
	return world
}
