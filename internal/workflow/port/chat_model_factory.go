package port

import (
	"context"

	"github.com/cloudwego/eino/components/model"

	"z-novel-desk/internal/domain/entity"
)

// ResolvedModel 按项目设置解析出的模型句柄
type ResolvedModel struct {
	Provider  entity.Provider
	Model     string
	ChatModel model.BaseChatModel
}

// ChatModelResolver 定义工作流层对 LLM ChatModel 的最小依赖（port）。
// 每次调用都基于传入的设置重新构建，不做缓存。
type ChatModelResolver interface {
	Resolve(ctx context.Context, cfg entity.ProviderConfig) (*ResolvedModel, error)
}
