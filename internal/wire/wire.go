//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"z-novel-desk/internal/application/assist"
	"z-novel-desk/internal/application/editor"
	"z-novel-desk/internal/application/export"
	"z-novel-desk/internal/application/quota"
	"z-novel-desk/internal/config"
	"z-novel-desk/internal/domain/repository"
	"z-novel-desk/internal/domain/service"
	pdfexport "z-novel-desk/internal/infrastructure/export"
	"z-novel-desk/internal/infrastructure/llm"
	"z-novel-desk/internal/infrastructure/persistence/fs"
	"z-novel-desk/internal/interfaces/http/handler"
	"z-novel-desk/internal/interfaces/http/router"
	"z-novel-desk/internal/workflow/chain"
	"z-novel-desk/internal/workflow/port"
)

// InitializeApp 初始化整个应用（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	wire.Build(
		StoreSet,
		RedisSet,
		QuotaSet,
		AssistSet,
		RouterSet,
		wire.Struct(new(App), "*"),
	)
	return nil, nil, nil
}

// StoreSet 项目目录存储
var StoreSet = wire.NewSet(
	fs.NewStore,
	wire.Bind(new(repository.ProjectStore), new(*fs.Store)),
	wire.Bind(new(repository.ChapterRepository), new(*fs.Store)),
)

// RedisSet Redis 及其上的事件总线与文档锁；events.backend 不是 redis 时退回内存实现
var RedisSet = wire.NewSet(
	ProvideRedisClient,
	ProvideEventBus,
	ProvideLocker,
)

// QuotaSet 用量账本与日配额
var QuotaSet = wire.NewSet(
	quota.NewUsageLedger,
	quota.NewTokenQuotaChecker,
	wire.Bind(new(service.LLMUsageRecorder), new(*quota.UsageLedger)),
	wire.Bind(new(assist.QuotaGuard), new(*quota.TokenQuotaChecker)),
)

// AssistSet 助手会话
var AssistSet = wire.NewSet(
	llm.NewGateway,
	wire.Bind(new(port.ChatModelResolver), new(*llm.Gateway)),
	chain.NewPromptBuilder,
	assist.NewDispatcher,
	editor.NewWorkspace,
	assist.NewRuntime,
	assist.NewRewriteService,
	assist.NewCritiqueService,
	assist.NewChatService,
	pdfexport.NewPDFRenderer,
	export.NewService,
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	ProvideHealthHandler,
	handler.NewProjectHandler,
	handler.NewChapterHandler,
	handler.NewEditorHandler,
	handler.NewAssistHandler,
	handler.NewSessionHandler,
	handler.NewExportHandler,
	wire.Struct(new(router.Handlers), "*"),
	router.New,
)
