// Package entity 定义领域实体
package entity

import "strings"

// Provider AI 提供商
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGoogle Provider = "google"
	ProviderXAI    Provider = "xai"
)

// ParseProvider 解析提供商名称，空值回退为 openai
func ParseProvider(s string) (Provider, bool) {
	switch Provider(strings.ToLower(strings.TrimSpace(s))) {
	case "", ProviderOpenAI:
		return ProviderOpenAI, true
	case ProviderGoogle:
		return ProviderGoogle, true
	case ProviderXAI:
		return ProviderXAI, true
	default:
		return Provider(s), false
	}
}

// ProviderConfig 提供商选择与密钥；每次请求都重新读取
type ProviderConfig struct {
	Provider     string `json:"provider"`
	APIKey       string `json:"apiKey"`
	GoogleAPIKey string `json:"googleApiKey"`
	XAIAPIKey    string `json:"xaiApiKey"`
	GoogleModel  string `json:"googleModel"`
}

// ProjectSettings 项目设置（project.json）
type ProjectSettings struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Plot   string `json:"plot"`
	ProviderConfig
}

// Masked 返回隐藏密钥后的副本，用于对外展示
func (s ProjectSettings) Masked() ProjectSettings {
	s.APIKey = maskSecret(s.APIKey)
	s.GoogleAPIKey = maskSecret(s.GoogleAPIKey)
	s.XAIAPIKey = maskSecret(s.XAIAPIKey)
	return s
}

func maskSecret(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= 8 {
		return "****"
	}
	return v[:4] + "****" + v[len(v)-4:]
}
