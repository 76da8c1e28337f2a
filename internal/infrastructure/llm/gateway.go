// Package llm 按项目设置解析并构建 Eino ChatModel
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"z-novel-desk/internal/config"
	"z-novel-desk/internal/domain/entity"
	"z-novel-desk/internal/workflow/port"
	"z-novel-desk/pkg/errors"
)

const (
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultOpenAIModel   = "gpt-4-turbo"
	DefaultGoogleBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
	DefaultGoogleModel   = "gemini-1.5-pro"
	DefaultXAIBaseURL    = "https://api.x.ai/v1"
	DefaultXAIModel      = "grok-beta"

	googleModelPrefix = "models/"
)

// ChatModelConstructor 构建底层 ChatModel，测试中可替换
type ChatModelConstructor func(ctx context.Context, cfg *openai.ChatModelConfig) (model.BaseChatModel, error)

func newOpenAIChatModel(ctx context.Context, cfg *openai.ChatModelConfig) (model.BaseChatModel, error) {
	return openai.NewChatModel(ctx, cfg)
}

// Gateway 提供商网关：每次请求按最新设置构建新的模型客户端，不缓存
type Gateway struct {
	config       *config.AssistantConfig
	newChatModel ChatModelConstructor
}

var _ port.ChatModelResolver = (*Gateway)(nil)

// NewGateway 创建网关
func NewGateway(cfg *config.Config) *Gateway {
	return &Gateway{
		config:       &cfg.Assistant,
		newChatModel: newOpenAIChatModel,
	}
}

// WithConstructor 替换底层模型构造函数
func (g *Gateway) WithConstructor(fn ChatModelConstructor) *Gateway {
	g.newChatModel = fn
	return g
}

// endpoint 一个提供商的连接参数
type endpoint struct {
	provider entity.Provider
	baseURL  string
	model    string
	apiKey   string
}

// Resolve 校验设置并构建模型；配置错误在任何网络调用之前返回
func (g *Gateway) Resolve(ctx context.Context, cfg entity.ProviderConfig) (*port.ResolvedModel, error) {
	ep, err := g.endpointFor(cfg)
	if err != nil {
		return nil, err
	}

	chatModel, err := g.newChatModel(ctx, &openai.ChatModelConfig{
		APIKey:      ep.apiKey,
		BaseURL:     ep.baseURL,
		Model:       ep.model,
		MaxTokens:   g.maxTokens(),
		Temperature: g.temperature(),
		Timeout:     g.requestTimeout(),
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeLLMConfigInvalid,
			fmt.Sprintf("failed to create chat model for %s", ep.provider))
	}

	return &port.ResolvedModel{
		Provider:  ep.provider,
		Model:     ep.model,
		ChatModel: chatModel,
	}, nil
}

func (g *Gateway) endpointFor(cfg entity.ProviderConfig) (*endpoint, error) {
	provider, ok := entity.ParseProvider(cfg.Provider)
	if !ok {
		return nil, errors.ConfigurationError("unknown AI provider %q", cfg.Provider)
	}

	var ep endpoint
	switch provider {
	case entity.ProviderGoogle:
		ep = endpoint{
			provider: provider,
			baseURL:  orDefault(g.config.GoogleBaseURL, DefaultGoogleBaseURL),
			model:    GoogleModelName(cfg.GoogleModel, orDefault(g.config.GoogleDefaultModel, DefaultGoogleModel)),
			apiKey:   strings.TrimSpace(cfg.GoogleAPIKey),
		}
	case entity.ProviderXAI:
		ep = endpoint{
			provider: provider,
			baseURL:  orDefault(g.config.XAIBaseURL, DefaultXAIBaseURL),
			model:    orDefault(g.config.XAIModel, DefaultXAIModel),
			apiKey:   strings.TrimSpace(cfg.XAIAPIKey),
		}
	default:
		ep = endpoint{
			provider: provider,
			baseURL:  orDefault(g.config.OpenAIBaseURL, DefaultOpenAIBaseURL),
			model:    orDefault(g.config.OpenAIModel, DefaultOpenAIModel),
			apiKey:   strings.TrimSpace(cfg.APIKey),
		}
	}

	if ep.apiKey == "" {
		return nil, errors.ConfigurationError("API key for provider %s is not set in project settings", provider)
	}
	return &ep, nil
}

// GoogleModelName 补全 "models/" 前缀，未设置时使用默认模型
func GoogleModelName(name, fallback string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = fallback
	}
	if strings.HasPrefix(name, googleModelPrefix) {
		return name
	}
	return googleModelPrefix + name
}

func (g *Gateway) maxTokens() *int {
	if g.config.MaxTokens <= 0 {
		return nil
	}
	v := g.config.MaxTokens
	return &v
}

func (g *Gateway) temperature() *float32 {
	if g.config.Temperature <= 0 {
		return nil
	}
	return ptrFloat32(float32(g.config.Temperature))
}

func (g *Gateway) requestTimeout() time.Duration {
	return g.config.RequestTimeout
}

func orDefault(v, def string) string {
	if s := strings.TrimSpace(v); s != "" {
		return s
	}
	return def
}

func ptrFloat32(f float32) *float32 {
	return &f
}
