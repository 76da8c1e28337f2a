// Package config 提供配置加载功能
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// envPattern 匹配 ${VAR} 或 ${VAR:default}
// g1: 变量名, g2: 默认值部分（含冒号）, g3: 默认值内容
var envPattern = regexp.MustCompile(`\${(\w+)(:([^}]*))?}`)

// Load 从默认目录 configs/ 加载配置
func Load() (*Config, error) {
	return LoadFrom("configs")
}

// LoadFrom 加载配置文件
// 按优先级加载：默认配置 -> 环境配置 -> 环境变量
func LoadFrom(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	// 1. 默认配置（桌面端允许缺省，全部走默认值）
	if err := loadConfigFile(v, filepath.Join(dir, "config.yaml"), true); err != nil {
		return nil, err
	}

	// 2. 环境特定配置
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	envFile := filepath.Join(dir, fmt.Sprintf("config.%s.yaml", env))
	if err := loadConfigFile(v, envFile, true); err != nil {
		return nil, err
	}

	// 3. 绑定环境变量 (直接覆盖)
	v.SetEnvPrefix("DESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadConfigFile 读取文件，执行环境变量替换，并加载到 viper
func loadConfigFile(v *viper.Viper, path string, optional bool) error {
	content, err := os.ReadFile(path)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	reader := strings.NewReader(expandEnv(string(content)))
	if v.ConfigFileUsed() == "" {
		if err := v.ReadConfig(reader); err != nil {
			return fmt.Errorf("failed to read processed config %s: %w", path, err)
		}
		// 手动标记已加载文件，后续文件走 Merge
		v.SetConfigFile(path)
	} else {
		if err := v.MergeConfig(reader); err != nil {
			return fmt.Errorf("failed to merge processed config %s: %w", path, err)
		}
	}

	return nil
}

// expandEnv 替换字符串中的 ${VAR:default} 占位符
func expandEnv(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		submatch := envPattern.FindStringSubmatch(match)
		key := submatch[1]
		hasDefault := submatch[2] != ""
		defVal := submatch[3]

		if val, ok := os.LookupEnv(key); ok {
			return val
		}
		if hasDefault {
			return defVal
		}
		// 保留原样以便识别未定义的变量
		return match
	})
}

// MustLoad 加载配置，失败时 panic
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// Validate 校验关键配置
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Workspace.Root) == "" {
		return fmt.Errorf("workspace.root must not be empty")
	}
	if c.Server.HTTP.Port <= 0 || c.Server.HTTP.Port > 65535 {
		return fmt.Errorf("server.http.port must be a valid TCP port, got %d", c.Server.HTTP.Port)
	}
	switch c.Events.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("events.backend must be one of memory or redis, got %q", c.Events.Backend)
	}
	if c.Assistant.SessionTimeout < 0 {
		return fmt.Errorf("assistant.session_timeout must not be negative")
	}
	return nil
}

// setDefaults 设置配置默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "z-novel-desk")
	v.SetDefault("app.version", "v0.0.0")
	v.SetDefault("app.env", "development")

	// HTTP 服务器默认值（仅监听本机）
	v.SetDefault("server.http.host", "127.0.0.1")
	v.SetDefault("server.http.port", 7420)
	v.SetDefault("server.http.read_timeout", "30s")
	v.SetDefault("server.http.write_timeout", "0s")
	v.SetDefault("server.http.idle_timeout", "120s")

	v.SetDefault("workspace.root", defaultWorkspaceRoot())
	v.SetDefault("workspace.export_dir", "exports")

	// 助手默认值
	v.SetDefault("assistant.openai_base_url", "")
	v.SetDefault("assistant.openai_model", "gpt-4-turbo")
	v.SetDefault("assistant.google_base_url", "https://generativelanguage.googleapis.com/v1beta/openai/")
	v.SetDefault("assistant.google_default_model", "gemini-1.5-pro")
	v.SetDefault("assistant.xai_base_url", "https://api.x.ai/v1")
	v.SetDefault("assistant.xai_model", "grok-beta")
	v.SetDefault("assistant.temperature", 0.7)
	v.SetDefault("assistant.max_tokens", 4096)
	v.SetDefault("assistant.request_timeout", "120s")
	v.SetDefault("assistant.session_timeout", "0s")
	v.SetDefault("assistant.focus_release", "1500ms")
	v.SetDefault("assistant.chat_history_turns", 10)
	v.SetDefault("assistant.daily_token_budget", 0)

	// 事件总线默认值
	v.SetDefault("events.backend", "memory")
	v.SetDefault("events.retention", "10m")
	v.SetDefault("events.max_len", 10000)
	v.SetDefault("events.lock_ttl", "10m")

	// Redis 默认值
	v.SetDefault("cache.redis.host", "localhost")
	v.SetDefault("cache.redis.port", 6379)
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.pool_size", 10)
	v.SetDefault("cache.redis.min_idle_conns", 1)
	v.SetDefault("cache.redis.dial_timeout", "5s")
	v.SetDefault("cache.redis.read_timeout", "3s")
	v.SetDefault("cache.redis.write_timeout", "3s")

	// 可观测性默认值
	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "text")
	v.SetDefault("observability.logging.output", "stderr")
	v.SetDefault("observability.tracing.enabled", false)
	v.SetDefault("observability.tracing.exporter", "otlp")
	v.SetDefault("observability.tracing.endpoint", "localhost:4317")
	v.SetDefault("observability.tracing.sample_rate", 1.0)
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.path", "/metrics")

	// 安全默认值
	v.SetDefault("security.cors.allowed_origins", []string{"http://localhost:5173", "app://."})
}

func defaultWorkspaceRoot() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "projects"
	}
	return filepath.Join(home, "NovelDesk")
}
