// Package config 提供配置加载和管理功能
package config

import (
	"time"
)

// Config 应用配置根结构
type Config struct {
	App           AppConfig           `yaml:"app" mapstructure:"app"`
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Workspace     WorkspaceConfig     `yaml:"workspace" mapstructure:"workspace"`
	Assistant     AssistantConfig     `yaml:"assistant" mapstructure:"assistant"`
	Events        EventsConfig        `yaml:"events" mapstructure:"events"`
	Cache         CacheConfig         `yaml:"cache" mapstructure:"cache"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
	Security      SecurityConfig      `yaml:"security" mapstructure:"security"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Version string `yaml:"version" mapstructure:"version"`
	Env     string `yaml:"env" mapstructure:"env"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTP HTTPServerConfig `yaml:"http" mapstructure:"http"`
}

// HTTPServerConfig HTTP 服务器配置
type HTTPServerConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
}

// WorkspaceConfig 项目目录配置
type WorkspaceConfig struct {
	// Root 所有项目目录的根，每个项目一个子目录
	Root string `yaml:"root" mapstructure:"root"`
	// ExportDir 导出文件所在的项目相对目录
	ExportDir string `yaml:"export_dir" mapstructure:"export_dir"`
}

// AssistantConfig AI 助手配置
type AssistantConfig struct {
	OpenAIBaseURL      string        `yaml:"openai_base_url" mapstructure:"openai_base_url"`
	OpenAIModel        string        `yaml:"openai_model" mapstructure:"openai_model"`
	GoogleBaseURL      string        `yaml:"google_base_url" mapstructure:"google_base_url"`
	GoogleDefaultModel string        `yaml:"google_default_model" mapstructure:"google_default_model"`
	XAIBaseURL         string        `yaml:"xai_base_url" mapstructure:"xai_base_url"`
	XAIModel           string        `yaml:"xai_model" mapstructure:"xai_model"`
	Temperature        float64       `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens          int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	RequestTimeout     time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
	// SessionTimeout 单个流式会话的最长时间，0 表示不限制
	SessionTimeout time.Duration `yaml:"session_timeout" mapstructure:"session_timeout"`
	// FocusRelease 评审完成后聚焦信号的释放延迟
	FocusRelease time.Duration `yaml:"focus_release" mapstructure:"focus_release"`
	// ChatHistoryTurns 对话提示中保留的历史轮数
	ChatHistoryTurns int `yaml:"chat_history_turns" mapstructure:"chat_history_turns"`
	// DailyTokenBudget 每个项目每日 Token 上限，0 表示不限制
	DailyTokenBudget int64 `yaml:"daily_token_budget" mapstructure:"daily_token_budget"`
}

// EventsConfig 会话事件总线配置
type EventsConfig struct {
	// Backend memory | redis
	Backend   string        `yaml:"backend" mapstructure:"backend"`
	Retention time.Duration `yaml:"retention" mapstructure:"retention"`
	MaxLen    int64         `yaml:"max_len" mapstructure:"max_len"`
	// LockTTL Redis 文档锁的过期时间
	LockTTL time.Duration `yaml:"lock_ttl" mapstructure:"lock_ttl"`
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Redis RedisConfig `yaml:"redis" mapstructure:"redis"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	Password     string        `yaml:"password" mapstructure:"password"`
	DB           int           `yaml:"db" mapstructure:"db"`
	PoolSize     int           `yaml:"pool_size" mapstructure:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// ObservabilityConfig 可观测性配置
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
	Output string `yaml:"output" mapstructure:"output"`
}

// TracingConfig 追踪配置
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	Exporter   string  `yaml:"exporter" mapstructure:"exporter"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	CORS CORSConfig `yaml:"cors" mapstructure:"cors"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" mapstructure:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" mapstructure:"allowed_headers"`
}

// UsesRedis 事件总线与文档锁是否走 Redis
func (c *Config) UsesRedis() bool {
	return c.Events.Backend == "redis"
}
