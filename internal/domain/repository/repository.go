// Package repository 定义数据访问层接口
package repository

import (
	"context"
	"time"

	"z-novel-desk/internal/domain/entity"
)

// SettingsRepository 项目设置（project.json）
type SettingsRepository interface {
	// LoadSettings 读取项目设置；文件缺失时返回零值设置
	LoadSettings(ctx context.Context, projectID string) (*entity.ProjectSettings, error)
	SaveSettings(ctx context.Context, projectID string, settings *entity.ProjectSettings) error
}

// ChapterRepository 章节文件与顺序
type ChapterRepository interface {
	// ListChapters 按 chapter_order.json 顺序返回，未登记的章节按名称排在末尾
	ListChapters(ctx context.Context, projectID string) ([]entity.Chapter, error)
	CreateChapter(ctx context.Context, projectID, chapterID, raw string) (*entity.Chapter, error)
	// ReadChapter 返回章节文件原始内容（标签格式或旧版纯文本）
	ReadChapter(ctx context.Context, projectID, chapterID string) (string, error)
	WriteChapter(ctx context.Context, projectID, chapterID, raw string) error
	ReorderChapters(ctx context.Context, projectID string, chapterIDs []string) error
}

// EntityRepository 世界设定实体（只读）
type EntityRepository interface {
	ListEntities(ctx context.Context, projectID string, kind entity.WorldEntityKind) ([]entity.WorldEntity, error)
}

// FileRepository 项目内相对路径的文件读写
type FileRepository interface {
	ReadFile(ctx context.Context, projectID, relPath string) ([]byte, error)
	WriteFile(ctx context.Context, projectID, relPath string, data []byte) error
	// AbsPath 返回项目内相对路径对应的绝对路径（导出用）
	AbsPath(projectID, relPath string) (string, error)
}

// ProjectStore 聚合所有项目目录访问
type ProjectStore interface {
	SettingsRepository
	ChapterRepository
	EntityRepository
	FileRepository
}

// Locker 单写者锁，按文档或会话类型加锁
type Locker interface {
	// Acquire 尝试获取锁，已被持有时返回 false
	Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error)
	// Release 释放本实例持有的锁，未持有时无副作用
	Release(ctx context.Context, name string) error
}
